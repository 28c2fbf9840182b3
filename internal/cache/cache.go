package cache

import (
	"context"
	"time"
)

// ReceiptCache holds rendered ESC/POS streams keyed by invoice number so a
// reprint does not re-encode. Cache misses and cache errors are equivalent:
// the caller falls back to encoding from the stored sale.
type ReceiptCache interface {
	Get(ctx context.Context, invoiceNo string) ([]byte, bool, error)
	Set(ctx context.Context, invoiceNo string, data []byte, ttl time.Duration) error
}

type NoopReceiptCache struct{}

func (NoopReceiptCache) Get(_ context.Context, _ string) ([]byte, bool, error) {
	return nil, false, nil
}

func (NoopReceiptCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error {
	return nil
}
