// Package visitor defines the per-browser identity ledger that survives
// across sessions.
package visitor

import "time"

// Identity is persisted indefinitely for a browser. VisitorID and LeadCode
// never change once issued.
type Identity struct {
	VisitorID  string    `json:"visitorId"`
	LeadCode   string    `json:"leadCode"`
	FirstVisit time.Time `json:"firstVisit"`
	LastVisit  time.Time `json:"lastVisit"`
	VisitCount int       `json:"visitCount"`
}

// Info is the read-only summary exposed to callers.
type Info struct {
	VisitCount int       `json:"visitCount"`
	FirstVisit time.Time `json:"firstVisit"`
	Returning  bool      `json:"isReturning"`
}

// NewIdentity records a first-ever visit at now.
func NewIdentity(visitorID, leadCode string, now time.Time) *Identity {
	return &Identity{
		VisitorID:  visitorID,
		LeadCode:   leadCode,
		FirstVisit: now,
		LastVisit:  now,
		VisitCount: 1,
	}
}

// RegisterVisit counts a new visit when more than window has passed since the
// previous one, then stamps LastVisit. Returns true when the count changed.
func (i *Identity) RegisterVisit(now time.Time, window time.Duration) bool {
	counted := false
	if now.Sub(i.LastVisit) > window {
		i.VisitCount++
		counted = true
	}
	i.LastVisit = now
	return counted
}

// IsReturning reports whether the browser has visited more than once.
func (i *Identity) IsReturning() bool {
	return i.VisitCount > 1
}

// Info summarizes the identity.
func (i *Identity) Info() Info {
	return Info{
		VisitCount: i.VisitCount,
		FirstVisit: i.FirstVisit,
		Returning:  i.IsReturning(),
	}
}

// Valid reports whether both stable identifiers are present.
func (i *Identity) Valid() bool {
	return i.VisitorID != "" && i.LeadCode != ""
}

// Repair fills missing identifiers and timestamps. The generator functions are
// only called for fields that are actually missing.
func (i *Identity) Repair(newVisitorID, newLeadCode func() string, now time.Time) []string {
	var repaired []string
	if i.VisitorID == "" {
		i.VisitorID = newVisitorID()
		repaired = append(repaired, "visitorId")
	}
	if i.LeadCode == "" {
		i.LeadCode = newLeadCode()
		repaired = append(repaired, "leadCode")
	}
	if i.VisitCount < 1 {
		i.VisitCount = 1
		repaired = append(repaired, "visitCount")
	}
	if i.FirstVisit.IsZero() {
		i.FirstVisit = now
		repaired = append(repaired, "firstVisit")
	}
	if i.LastVisit.IsZero() {
		i.LastVisit = i.FirstVisit
		repaired = append(repaired, "lastVisit")
	}
	return repaired
}
