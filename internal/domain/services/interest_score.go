// Package services provides pure domain computations over tracker state.
package services

import (
	"math"

	"github.com/AtRiskMedia/leadtrack-go/internal/domain/entities/session"
)

// Component caps of the interest score.
const (
	maxTimeOnSitePoints = 30.0
	maxFloorPlanPoints  = 25.0
	maxGalleryPoints    = 15.0
	maxLeisurePoints    = 15.0
	maxContactPoints    = 15.0
	maxInterestScore    = 100
)

// ScoreBreakdown exposes each capped component before rounding.
type ScoreBreakdown struct {
	TimeOnSite float64 `json:"timeOnSite"`
	FloorPlans float64 `json:"floorPlans"`
	Gallery    float64 `json:"gallery"`
	Leisure    float64 `json:"leisure"`
	Contact    float64 `json:"contact"`
	Total      int     `json:"total"`
}

// InterestScore derives a 0..100 engagement score from a session snapshot.
// Facade dwell and navigation do not contribute.
func InterestScore(s *session.Session) int {
	return ScoreInterest(s).Total
}

// ScoreInterest returns the score with its per-component breakdown.
func ScoreInterest(s *session.Session) ScoreBreakdown {
	if s == nil {
		return ScoreBreakdown{}
	}
	b := ScoreBreakdown{
		TimeOnSite: capped(float64(s.TotalTimeOnSite)/10, maxTimeOnSitePoints),
		FloorPlans: capped(float64(s.FloorPlans.Total())/5, maxFloorPlanPoints),
		Gallery:    capped(float64(s.GalleryImages.Total())/3, maxGalleryPoints),
		Leisure:    capped(float64(len(s.LeisureItemsClicked))*3, maxLeisurePoints),
		Contact:    capped(float64(s.WhatsAppClicks)*15, maxContactPoints),
	}
	total := int(math.Round(b.TimeOnSite + b.FloorPlans + b.Gallery + b.Leisure + b.Contact))
	b.Total = min(max(total, 0), maxInterestScore)
	return b
}

func capped(v, limit float64) float64 {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	return math.Min(v, limit)
}
