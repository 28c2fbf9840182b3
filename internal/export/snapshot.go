package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Priew-rasri/Ncare-sub000/internal/domain"
)

var ErrUnsupportedVersion = errors.New("unsupported snapshot version")

const SchemaVersion = 1

// Settings captures the store-level configuration that must survive a
// restore onto a fresh install.
type Settings struct {
	Store           domain.StoreProfile `json:"store"`
	VatRatePercent  int                 `json:"vat_rate_percent"`
	PointValueCents int64               `json:"point_value_cents"`
	TerminalID      string              `json:"terminal_id"`
}

// Snapshot is the full-state backup document. Every collection round-trips
// losslessly through JSON; amounts stay integer satang end to end.
// PurchaseOrders belong to the purchasing module and pass through untouched
// so a restore never drops them.
type Snapshot struct {
	Version        int                 `json:"version"`
	ExportedAt     time.Time           `json:"exported_at"`
	Products       []domain.Product    `json:"products"`
	Batches        []domain.Batch      `json:"batches"`
	Customers      []domain.Customer   `json:"customers"`
	Sales          []domain.SaleRecord `json:"sales"`
	Shifts         []domain.Shift      `json:"shifts"`
	PurchaseOrders []json.RawMessage   `json:"purchase_orders,omitempty"`
	Settings       Settings            `json:"settings"`
}

// Write serializes the snapshot with stable indentation.
func Write(w io.Writer, snap Snapshot) error {
	snap.Version = SchemaVersion
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// Read parses and version-checks a snapshot document. Unknown fields are
// rejected so a truncated or foreign file fails loudly instead of restoring
// partial state.
func Read(r io.Reader) (Snapshot, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var snap Snapshot
	if err := dec.Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version != SchemaVersion {
		return Snapshot{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, snap.Version)
	}
	return snap, nil
}
