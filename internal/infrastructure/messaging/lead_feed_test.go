package messaging

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/leadtrack-go/internal/domain/entities/lead"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
)

type fixedActivity int

func (f fixedActivity) ActiveTrackers() int { return int(f) }

func receive(t *testing.T, client *FeedClient) FeedMessage {
	t.Helper()
	select {
	case raw, ok := <-client.Send:
		require.True(t, ok, "send channel closed")
		var msg FeedMessage
		require.NoError(t, json.Unmarshal(raw, &msg))
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for feed message")
		return FeedMessage{}
	}
}

func TestLeadFeed_PublishesToClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := NewLeadFeed(fixedActivity(3), logging.NewDiscardLogger())
	go feed.Run(ctx)

	client := &FeedClient{Send: make(chan []byte, clientBuffer)}
	feed.Register(client)
	require.Eventually(t, func() bool { return feed.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	feed.PublishLead(&lead.Snapshot{
		ID:            "01HDOC",
		LeadCode:      "ABC234",
		Trigger:       lead.TriggerFormSubmit,
		InterestScore: 71,
		Name:          "Ana",
	})

	msg := receive(t, client)
	assert.Equal(t, "lead", msg.Type)
	require.NotNil(t, msg.Lead)
	assert.Equal(t, "ABC234", msg.Lead.LeadCode)
	assert.Equal(t, "form_submit", msg.Lead.Trigger)
	assert.Equal(t, 71, msg.Lead.InterestScore)
}

func TestLeadFeed_StatsTick(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := NewLeadFeed(nil, logging.NewDiscardLogger())
	feed.tick = 20 * time.Millisecond
	feed.SetActivitySource(fixedActivity(5))
	go feed.Run(ctx)

	client := &FeedClient{Send: make(chan []byte, clientBuffer)}
	feed.Register(client)

	msg := receive(t, client)
	assert.Equal(t, "stats", msg.Type)
	require.NotNil(t, msg.Stats)
	assert.Equal(t, 5, msg.Stats.ActiveTrackers)
	assert.Equal(t, 1, msg.Stats.Clients)
}

func TestLeadFeed_StopClosesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	feed := NewLeadFeed(nil, logging.NewDiscardLogger())
	done := make(chan struct{})
	go func() {
		feed.Run(ctx)
		close(done)
	}()

	client := &FeedClient{Send: make(chan []byte, clientBuffer)}
	feed.Register(client)
	require.Eventually(t, func() bool { return feed.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	<-done

	_, ok := <-client.Send
	assert.False(t, ok)

	late := &FeedClient{Send: make(chan []byte, 1)}
	feed.Register(late)
	_, ok = <-late.Send
	assert.False(t, ok)
	feed.Unregister(client)
}

func TestLeadFeed_PublishNeverBlocks(t *testing.T) {
	feed := NewLeadFeed(nil, logging.NewDiscardLogger())
	for i := 0; i < 200; i++ {
		feed.PublishLead(&lead.Snapshot{LeadCode: "ABC234"})
	}
	feed.PublishLead(nil)
}
