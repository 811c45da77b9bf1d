package archive

import (
	"context"
	"strings"
	"time"
)

// ExchangeRecord is one committed user/agent exchange persisted for later
// review. Archival is best-effort: a failed write never fails the turn.
type ExchangeRecord struct {
	ID        string
	SessionID string
	Persona   string
	UserText  string
	AgentText string
	CreatedAt time.Time
}

// Store archives completed exchanges.
type Store interface {
	SaveExchange(ctx context.Context, record ExchangeRecord) error
	RecentExchanges(ctx context.Context, sessionID string, limit int) ([]ExchangeRecord, error)
	Close() error
}

// NewStore creates a postgres-backed store when configured, otherwise a noop.
func NewStore(ctx context.Context, databaseURL string) (Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewNoopStore(), nil
	}
	return NewPostgresStore(ctx, databaseURL)
}
