package inventory

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Priew-rasri/Ncare-sub000/internal/domain"
)

var (
	ErrUnknownProduct    = errors.New("unknown product")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrStalePlan         = errors.New("stale allocation plan")
)

// BatchTake is one deduction inside an allocation plan.
type BatchTake struct {
	BatchID       string
	LotNumber     string
	Qty           int
	UnitCostCents int64
}

// AllocationPlan is a read-only picking proposal. It mutates nothing until
// Commit, and carries the product version observed at planning time so a
// plan built against stale stock is refused rather than silently applied.
type AllocationPlan struct {
	ProductID string
	Qty       int
	Version   uint64
	Takes     []BatchTake
}

// Ledger owns every product's batches. All stock movement goes through it;
// persisted batch rows are a write-behind snapshot, never an alternate
// source of truth. Derived invariant: stock of a product is exactly the sum
// of its active batches' quantities.
type Ledger struct {
	mu       sync.Mutex
	batches  map[string][]domain.Batch
	versions map[string]uint64
	// retired keeps pruned batches so a reversal can restore the exact lot
	// (same ID, lot number, expiry, cost) instead of inventing a new one.
	retired map[string]domain.Batch
}

func NewLedger() *Ledger {
	return &Ledger{
		batches:  make(map[string][]domain.Batch),
		versions: make(map[string]uint64),
		retired:  make(map[string]domain.Batch),
	}
}

// Load replaces the ledger contents from persisted rows, typically at boot.
func (l *Ledger) Load(batches []domain.Batch) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.batches = make(map[string][]domain.Batch)
	for _, b := range batches {
		if b.Quantity <= 0 {
			continue
		}
		l.batches[b.ProductID] = append(l.batches[b.ProductID], b)
	}
	for pid := range l.batches {
		slices.SortFunc(l.batches[pid], compareBatchFEFO)
	}
}

// compareBatchFEFO orders batches earliest-expiry-first, ties broken by
// batch ID so the pick order is total and reproducible.
func compareBatchFEFO(a, b domain.Batch) int {
	if !a.ExpiryDate.Equal(b.ExpiryDate) {
		if a.ExpiryDate.Before(b.ExpiryDate) {
			return -1
		}
		return 1
	}
	return strings.Compare(a.ID, b.ID)
}

// Receive adds a new lot and returns the resulting stock level.
func (l *Ledger) Receive(batch domain.Batch) (int, error) {
	if batch.Quantity <= 0 {
		return 0, fmt.Errorf("%w: quantity %d", ErrInvalidQuantity, batch.Quantity)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.batches[batch.ProductID] = append(l.batches[batch.ProductID], batch)
	slices.SortFunc(l.batches[batch.ProductID], compareBatchFEFO)
	l.versions[batch.ProductID]++
	return l.stockLocked(batch.ProductID), nil
}

// Allocate builds a FEFO picking plan for qty units without touching stock.
// The whole request fails if total stock cannot cover it; partial
// fulfillment is never offered.
func (l *Ledger) Allocate(productID string, qty int) (AllocationPlan, error) {
	if qty <= 0 {
		return AllocationPlan{}, fmt.Errorf("%w: quantity %d", ErrInvalidQuantity, qty)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	lots, ok := l.batches[productID]
	if !ok || len(lots) == 0 {
		return AllocationPlan{}, fmt.Errorf("%w: product %s has no stock", ErrInsufficientStock, productID)
	}
	if l.stockLocked(productID) < qty {
		return AllocationPlan{}, fmt.Errorf("%w: product %s, want %d have %d",
			ErrInsufficientStock, productID, qty, l.stockLocked(productID))
	}

	plan := AllocationPlan{
		ProductID: productID,
		Qty:       qty,
		Version:   l.versions[productID],
	}
	remaining := qty
	for _, lot := range lots {
		if remaining == 0 {
			break
		}
		take := lot.Quantity
		if take > remaining {
			take = remaining
		}
		plan.Takes = append(plan.Takes, BatchTake{
			BatchID:       lot.ID,
			LotNumber:     lot.LotNumber,
			Qty:           take,
			UnitCostCents: lot.CostCents,
		})
		remaining -= take
	}
	return plan, nil
}

// Commit applies a plan's deductions. The plan must have been built against
// the current product version; any intervening mutation makes it stale and
// nothing is applied. Batches drained to zero leave the active set.
func (l *Ledger) Commit(plan AllocationPlan) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.commitLocked(plan)
}

// CommitAll applies every plan or none: plans are version-checked up front
// so a multi-line checkout cannot half-apply.
func (l *Ledger) CommitAll(plans []AllocationPlan) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range plans {
		if p.Version != l.versions[p.ProductID] {
			return fmt.Errorf("%w: product %s", ErrStalePlan, p.ProductID)
		}
	}
	for _, p := range plans {
		if err := l.commitLocked(p); err != nil {
			return err
		}
	}
	return nil
}

func (l *Ledger) commitLocked(plan AllocationPlan) error {
	if plan.Version != l.versions[plan.ProductID] {
		return fmt.Errorf("%w: product %s", ErrStalePlan, plan.ProductID)
	}
	lots := l.batches[plan.ProductID]
	byID := make(map[string]int, len(lots))
	for i, lot := range lots {
		byID[lot.ID] = i
	}
	for _, take := range plan.Takes {
		idx, ok := byID[take.BatchID]
		if !ok || lots[idx].Quantity < take.Qty {
			return fmt.Errorf("%w: batch %s", ErrStalePlan, take.BatchID)
		}
	}
	kept := lots[:0]
	for _, lot := range lots {
		for _, take := range plan.Takes {
			if take.BatchID == lot.ID {
				lot.Quantity -= take.Qty
			}
		}
		if lot.Quantity == 0 {
			l.retired[lot.ID] = lot
			continue
		}
		kept = append(kept, lot)
	}
	l.batches[plan.ProductID] = kept
	l.versions[plan.ProductID]++
	return nil
}

// Reverse restores a committed plan's quantities to the same batches. A
// batch pruned at commit time is recreated with its original lot number,
// expiry and cost.
func (l *Ledger) Reverse(plan AllocationPlan) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	lots := l.batches[plan.ProductID]
	for _, take := range plan.Takes {
		restored := false
		for i := range lots {
			if lots[i].ID == take.BatchID {
				lots[i].Quantity += take.Qty
				restored = true
				break
			}
		}
		if restored {
			continue
		}
		lot, ok := l.retired[take.BatchID]
		if !ok {
			return fmt.Errorf("%w: batch %s unknown", ErrStalePlan, take.BatchID)
		}
		lot.Quantity = take.Qty
		delete(l.retired, take.BatchID)
		lots = append(lots, lot)
	}
	slices.SortFunc(lots, compareBatchFEFO)
	l.batches[plan.ProductID] = lots
	l.versions[plan.ProductID]++
	return nil
}

// ReverseAll undoes a set of plans, stopping at the first failure.
func (l *Ledger) ReverseAll(plans []AllocationPlan) error {
	for _, p := range plans {
		if err := l.Reverse(p); err != nil {
			return err
		}
	}
	return nil
}

// Stock reports the derived stock level of a product.
func (l *Ledger) Stock(productID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stockLocked(productID)
}

func (l *Ledger) stockLocked(productID string) int {
	total := 0
	for _, lot := range l.batches[productID] {
		total += lot.Quantity
	}
	return total
}

// Batches returns a product's active batches in FEFO order.
func (l *Ledger) Batches(productID string) []domain.Batch {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.Batch, len(l.batches[productID]))
	copy(out, l.batches[productID])
	return out
}

// Snapshot returns every active batch, for persistence and export.
func (l *Ledger) Snapshot() []domain.Batch {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.Batch
	for _, lots := range l.batches {
		out = append(out, lots...)
	}
	slices.SortFunc(out, func(a, b domain.Batch) int {
		if c := strings.Compare(a.ProductID, b.ProductID); c != 0 {
			return c
		}
		return compareBatchFEFO(a, b)
	})
	return out
}

// ExpiringBefore lists active batches whose expiry falls before cutoff.
func (l *Ledger) ExpiringBefore(cutoff time.Time) []domain.Batch {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.Batch
	for _, lots := range l.batches {
		for _, lot := range lots {
			if lot.ExpiryDate.Before(cutoff) {
				out = append(out, lot)
			}
		}
	}
	slices.SortFunc(out, compareBatchFEFO)
	return out
}
