package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/AtRiskMedia/leadtrack-go/internal/domain/entities/lead"
	"github.com/AtRiskMedia/leadtrack-go/internal/domain/repositories"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/persistence/state"
)

var t0 = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: t0} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// brokenStore fails every read and write.
type brokenStore struct{}

func (brokenStore) Load(context.Context, string) ([]byte, error) {
	return nil, errors.New("storage disabled")
}

func (brokenStore) Save(context.Context, string, []byte) error {
	return errors.New("storage disabled")
}

type fakeLeadRepo struct {
	mu        sync.Mutex
	inserted  []*lead.Snapshot
	insertErr error
	queryErr  error
}

func (r *fakeLeadRepo) InsertDocument(_ context.Context, _ string, snapshot *lead.Snapshot) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return "", r.insertErr
	}
	r.inserted = append(r.inserted, snapshot)
	return fmt.Sprintf("doc-%d", len(r.inserted)), nil
}

func (r *fakeLeadRepo) QueryDocuments(_ context.Context, _ string, q lead.Query) ([]*lead.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.queryErr != nil {
		return nil, r.queryErr
	}
	var out []*lead.Snapshot
	for i := len(r.inserted) - 1; i >= 0; i-- {
		if q.LeadCode == "" || r.inserted[i].LeadCode == q.LeadCode {
			out = append(out, r.inserted[i])
		}
	}
	if limit := q.EffectiveLimit(); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeLeadRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inserted)
}

func (r *fakeLeadRepo) last() *lead.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.inserted) == 0 {
		return nil
	}
	return r.inserted[len(r.inserted)-1]
}

type fakePublisher struct {
	mu        sync.Mutex
	published []*lead.Snapshot
}

func (p *fakePublisher) PublishLead(snapshot *lead.Snapshot) {
	p.mu.Lock()
	p.published = append(p.published, snapshot)
	p.mu.Unlock()
}

type fakeNotifier struct {
	sent chan *lead.Snapshot
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{sent: make(chan *lead.Snapshot, 4)}
}

func (n *fakeNotifier) SendLeadNotification(snapshot *lead.Snapshot) error {
	n.sent <- snapshot
	return nil
}

type recordedEvent struct {
	name   string
	params map[string]any
}

type fakeEvents struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (e *fakeEvents) LogEvent(_ context.Context, name string, params map[string]any) {
	e.mu.Lock()
	e.events = append(e.events, recordedEvent{name: name, params: params})
	e.mu.Unlock()
}

func (e *fakeEvents) all() []recordedEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]recordedEvent(nil), e.events...)
}

func (e *fakeEvents) names() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.events))
	for i, evt := range e.events {
		out[i] = evt.name
	}
	return out
}

type trackerFixture struct {
	tracker   *Tracker
	clock     *fakeClock
	store     repositories.StateStore
	repo      *fakeLeadRepo
	publisher *fakePublisher
	notifier  *fakeNotifier
	events    *fakeEvents
}

func testDeps(clock *fakeClock, repo repositories.LeadRepository, publisher *fakePublisher, notifier *fakeNotifier, events *fakeEvents) TrackerDeps {
	deps := TrackerDeps{
		Config: TrackerConfig{
			SessionTimeout:    30 * time.Minute,
			ReturnVisitWindow: 30 * time.Minute,
			TimelineCapacity:  100,
			LeadsCollection:   "leads",
		},
		Leads:     repo,
		Analytics: events,
		Clock:     clock,
		Logger:    logging.NewDiscardLogger(),
	}
	if publisher != nil {
		deps.Publisher = publisher
	}
	if notifier != nil {
		deps.Notifier = notifier
	}
	return deps
}

func newTrackerFixture() *trackerFixture {
	f := &trackerFixture{
		clock:     newFakeClock(),
		store:     repositories.Scope(state.NewMemoryStore(), "browser-1"),
		repo:      &fakeLeadRepo{},
		publisher: &fakePublisher{},
		notifier:  newFakeNotifier(),
		events:    &fakeEvents{},
	}
	f.tracker = NewTracker("browser-1", f.store, testDeps(f.clock, f.repo, f.publisher, f.notifier, f.events))
	return f
}

func newSessionFixture(store repositories.StateStore, clock *fakeClock) (*VisitorService, *SessionManager) {
	logger := logging.NewDiscardLogger()
	visitors := NewVisitorService(store, clock, 30*time.Minute, logger)
	sessions := NewSessionManager(store, visitors, clock, SessionConfig{
		Timeout:          30 * time.Minute,
		TimelineCapacity: 100,
	}, logger, nil)
	return visitors, sessions
}
