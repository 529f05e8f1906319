package templates

import (
	"bytes"
	"html/template"
	"log"
)

// LeadNotificationProps is the data shown to the sales inbox for a new lead.
type LeadNotificationProps struct {
	LeadCode      string
	Name          string
	Phone         string
	InterestScore int
	VisitCount    int
	TimeOnSite    string
	FloorPlan     string
	FloorPlanTime string
	PagesViewed   []string
	LeisureItems  []string
	Referrer      string
	UTMSource     string
	UTMCampaign   string
}

var leadNotificationTemplate = template.Must(template.New("leadNotification").Parse(`
<h2 style="margin: 0 0 16px;">Nuevo lead {{.LeadCode}}</h2>
<p><strong>Nombre:</strong> {{if .Name}}{{.Name}}{{else}}(sin nombre){{end}}<br>
<strong>Teléfono:</strong> {{if .Phone}}{{.Phone}}{{else}}(sin teléfono){{end}}</p>
<p><strong>Interés:</strong> {{.InterestScore}}/100<br>
<strong>Visitas:</strong> {{.VisitCount}}<br>
<strong>Tiempo en el sitio:</strong> {{.TimeOnSite}}</p>
{{if .FloorPlan}}<p><strong>Planta más vista:</strong> {{.FloorPlan}} ({{.FloorPlanTime}})</p>{{end}}
{{if .PagesViewed}}<p><strong>Secciones:</strong> {{range $i, $p := .PagesViewed}}{{if $i}}, {{end}}{{$p}}{{end}}</p>{{end}}
{{if .LeisureItems}}<p><strong>Amenidades:</strong> {{range $i, $p := .LeisureItems}}{{if $i}}, {{end}}{{$p}}{{end}}</p>{{end}}
{{if or .Referrer .UTMSource}}<p style="color: #6b7280;">Origen: {{.Referrer}} {{.UTMSource}} {{.UTMCampaign}}</p>{{end}}
`))

// GetLeadNotificationContent renders the lead details block.
func GetLeadNotificationContent(props LeadNotificationProps) string {
	var buf bytes.Buffer
	if err := leadNotificationTemplate.Execute(&buf, props); err != nil {
		log.Printf("Error executing lead notification template: %v", err)
		return "<p>Nuevo lead " + template.HTMLEscapeString(props.LeadCode) + "</p>"
	}
	return buf.String()
}
