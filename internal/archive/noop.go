package archive

import "context"

// NoopStore discards everything; used when no database is configured.
type NoopStore struct{}

func NewNoopStore() *NoopStore { return &NoopStore{} }

func (*NoopStore) SaveExchange(context.Context, ExchangeRecord) error {
	return nil
}

func (*NoopStore) RecentExchanges(context.Context, string, int) ([]ExchangeRecord, error) {
	return nil, nil
}

func (*NoopStore) Close() error { return nil }
