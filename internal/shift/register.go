package shift

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Priew-rasri/Ncare-sub000/internal/domain"
)

var (
	ErrShiftAlreadyOpen = errors.New("shift already open")
	ErrNoActiveShift    = errors.New("no active shift")
	ErrInvalidAmount    = errors.New("invalid amount")
)

// Register is the live cash-session accumulator for one terminal. It holds
// at most one open shift; sales and voids may only be recorded while a shift
// is open. Invariant: TotalSalesCents == Cash + QR + Credit at all times.
type Register struct {
	mu     sync.Mutex
	active *domain.Shift
	newID  func() string
	now    func() time.Time
}

func NewRegister(newID func() string) *Register {
	return &Register{newID: newID, now: time.Now}
}

// Restore seeds the register with a shift left open by a previous process.
func (r *Register) Restore(s domain.Shift) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil {
		return ErrShiftAlreadyOpen
	}
	if s.Status != domain.ShiftStatusOpen {
		return fmt.Errorf("%w: shift %s is %s", ErrNoActiveShift, s.ID, s.Status)
	}
	clone := s
	clone.Entries = append([]domain.ShiftEntry(nil), s.Entries...)
	r.active = &clone
	return nil
}

// Open starts a new shift with the counted opening float.
func (r *Register) Open(terminalID, cashierName string, openingCashCents int64) (*domain.Shift, error) {
	if openingCashCents < 0 {
		return nil, fmt.Errorf("%w: opening cash %d", ErrInvalidAmount, openingCashCents)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil {
		return nil, ErrShiftAlreadyOpen
	}
	r.active = &domain.Shift{
		ID:               r.newID(),
		TerminalID:       terminalID,
		CashierName:      cashierName,
		OpeningCashCents: openingCashCents,
		Status:           domain.ShiftStatusOpen,
		OpenedAt:         r.now().UTC(),
	}
	return r.snapshotLocked(), nil
}

// RecordSale adds a committed sale to the totals and exactly one payment
// bucket.
func (r *Register) RecordSale(invoiceNo string, amountCents int64, method domain.PaymentMethod) error {
	return r.record(invoiceNo, amountCents, method, domain.ShiftEntrySale)
}

// RecordVoid applies the inverse adjustment of a sale against the same
// buckets. A voided cash sale also accrues the cash handed back, for the
// closing report.
func (r *Register) RecordVoid(invoiceNo string, amountCents int64, method domain.PaymentMethod) error {
	return r.record(invoiceNo, -amountCents, method, domain.ShiftEntryVoid)
}

func (r *Register) record(invoiceNo string, amountCents int64, method domain.PaymentMethod, kind domain.ShiftEntryKind) error {
	if !method.Valid() {
		return fmt.Errorf("%w: payment method %q", ErrInvalidAmount, method)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return ErrNoActiveShift
	}
	r.active.TotalSalesCents += amountCents
	switch method {
	case domain.PayCash:
		r.active.CashSalesCents += amountCents
		if kind == domain.ShiftEntryVoid {
			r.active.CashRefundCents += -amountCents
		}
	case domain.PayQR:
		r.active.QRSalesCents += amountCents
	case domain.PayCredit:
		r.active.CreditSalesCents += amountCents
	}
	r.active.Entries = append(r.active.Entries, domain.ShiftEntry{
		At:          r.now().UTC(),
		InvoiceNo:   invoiceNo,
		AmountCents: amountCents,
		Method:      method,
		Kind:        kind,
	})
	return nil
}

// Close ends the shift and reconciles the drawer. Expected cash is the
// opening float plus cash sales net of cash handed back on voids; variance
// is what was counted minus what was expected.
func (r *Register) Close(countedCashCents int64) (*domain.Shift, *domain.ShiftReconciliation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return nil, nil, ErrNoActiveShift
	}
	s := r.active
	now := r.now().UTC()
	s.Status = domain.ShiftStatusClosed
	s.ClosedAt = &now

	// CashSalesCents is already net of voids, so the refund term cancels:
	// opening + grossCash - refunds == opening + netCash.
	expected := s.OpeningCashCents + s.CashSalesCents
	rec := &domain.ShiftReconciliation{
		ShiftID:           s.ID,
		ExpectedCashCents: expected,
		CountedCashCents:  countedCashCents,
		VarianceCents:     countedCashCents - expected,
		TotalSalesCents:   s.TotalSalesCents,
		CashSalesCents:    s.CashSalesCents,
		QRSalesCents:      s.QRSalesCents,
		CreditSalesCents:  s.CreditSalesCents,
	}
	closed := r.snapshotLocked()
	r.active = nil
	return closed, rec, nil
}

// Active returns a snapshot of the open shift, if any.
func (r *Register) Active() (*domain.Shift, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return nil, false
	}
	return r.snapshotLocked(), true
}

// ActiveID returns the open shift's ID without copying entries.
func (r *Register) ActiveID() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return "", false
	}
	return r.active.ID, true
}

func (r *Register) snapshotLocked() *domain.Shift {
	clone := *r.active
	clone.Entries = append([]domain.ShiftEntry(nil), r.active.Entries...)
	return &clone
}
