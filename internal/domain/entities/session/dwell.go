package session

import (
	"maps"
	"math"
	"slices"
	"time"
)

// DwellState holds one timed-activity tracker: cumulative seconds per item,
// the order items were first seen, and at most one open timer.
type DwellState struct {
	TimeSpent   map[string]int `json:"timeSpent"`
	Order       []string       `json:"order,omitempty"`
	CurrentItem string         `json:"currentItem,omitempty"`
	StartTime   *time.Time     `json:"startTime,omitempty"`
}

// NewDwellState returns an empty tracker with no open timer.
func NewDwellState() DwellState {
	return DwellState{TimeSpent: map[string]int{}, Order: []string{}}
}

// ElapsedSeconds is the whole-second interval between start and now,
// rounded to nearest. Clock skew never produces a negative interval.
func ElapsedSeconds(start, now time.Time) int {
	secs := int(math.Round(now.Sub(start).Seconds()))
	if secs < 0 {
		return 0
	}
	return secs
}

// IsOpen reports whether a timer is currently running.
func (d *DwellState) IsOpen() bool {
	return d.CurrentItem != "" && d.StartTime != nil
}

// Open closes any running timer and starts a new one for item.
func (d *DwellState) Open(item string, now time.Time) (closed string, secs int) {
	closed, secs = d.Close(now)
	d.normalize()
	d.ensure(item)
	start := now
	d.CurrentItem = item
	d.StartTime = &start
	return closed, secs
}

// Close accumulates the open interval into its item. It is a no-op when no
// timer is open.
func (d *DwellState) Close(now time.Time) (item string, secs int) {
	if !d.IsOpen() {
		d.CurrentItem = ""
		d.StartTime = nil
		return "", 0
	}
	d.normalize()
	item = d.CurrentItem
	secs = ElapsedSeconds(*d.StartTime, now)
	d.ensure(item)
	d.TimeSpent[item] += secs
	d.CurrentItem = ""
	d.StartTime = nil
	return item, secs
}

// Seconds returns the accumulated dwell time for item.
func (d *DwellState) Seconds(item string) int {
	return d.TimeSpent[item]
}

// Total sums all accumulated dwell time. Negative entries count as zero.
func (d *DwellState) Total() int {
	total := 0
	for _, secs := range d.TimeSpent {
		if secs > 0 {
			total += secs
		}
	}
	return total
}

// MostViewed returns the item with the most accumulated seconds. Ties go to
// the item seen first.
func (d *DwellState) MostViewed() (string, int, bool) {
	best, bestSecs, found := "", 0, false
	for _, item := range d.orderedItems() {
		secs := d.TimeSpent[item]
		if !found || secs > bestSecs {
			best, bestSecs, found = item, secs, true
		}
	}
	return best, bestSecs, found
}

// orderedItems lists items in first-seen order, appending any entries that
// predate order tracking in sorted order so the result stays deterministic.
func (d *DwellState) orderedItems() []string {
	items := make([]string, 0, len(d.TimeSpent))
	seen := make(map[string]bool, len(d.TimeSpent))
	for _, item := range d.Order {
		if _, ok := d.TimeSpent[item]; ok && !seen[item] {
			items = append(items, item)
			seen[item] = true
		}
	}
	var rest []string
	for item := range d.TimeSpent {
		if !seen[item] {
			rest = append(rest, item)
		}
	}
	slices.Sort(rest)
	return append(items, rest...)
}

func (d *DwellState) ensure(item string) {
	if _, ok := d.TimeSpent[item]; !ok {
		d.TimeSpent[item] = 0
		d.Order = append(d.Order, item)
	}
}

// normalize backfills a tracker loaded without its map. Returns true when
// anything was filled.
func (d *DwellState) normalize() bool {
	if d.TimeSpent != nil {
		return false
	}
	d.TimeSpent = map[string]int{}
	if d.Order == nil {
		d.Order = []string{}
	}
	return true
}

func (d DwellState) clone() DwellState {
	c := DwellState{
		TimeSpent:   maps.Clone(d.TimeSpent),
		Order:       slices.Clone(d.Order),
		CurrentItem: d.CurrentItem,
	}
	if d.StartTime != nil {
		start := *d.StartTime
		c.StartTime = &start
	}
	return c
}
