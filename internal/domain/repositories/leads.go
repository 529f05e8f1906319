package repositories

import (
	"context"
	"errors"

	"github.com/AtRiskMedia/leadtrack-go/internal/domain/entities/lead"
)

// ErrStoreUnavailable is returned when no document store is configured.
var ErrStoreUnavailable = errors.New("store unavailable")

// LeadRepository is the external document store. Each InsertDocument call is
// an independent append; the store keeps a history of snapshots per lead code.
type LeadRepository interface {
	InsertDocument(ctx context.Context, collection string, snapshot *lead.Snapshot) (string, error)
	QueryDocuments(ctx context.Context, collection string, query lead.Query) ([]*lead.Snapshot, error)
}
