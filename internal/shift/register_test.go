package shift

import (
	"errors"
	"testing"

	"github.com/Priew-rasri/Ncare-sub000/internal/domain"
)

func newTestRegister() *Register {
	n := 0
	return NewRegister(func() string {
		n++
		return "shift-test"
	})
}

func TestOpenTwiceFails(t *testing.T) {
	r := newTestRegister()

	if _, err := r.Open("T1", "mali", 100000); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := r.Open("T1", "mali", 100000); !errors.Is(err, ErrShiftAlreadyOpen) {
		t.Fatalf("expected ErrShiftAlreadyOpen, got %v", err)
	}
}

func TestRecordRequiresOpenShift(t *testing.T) {
	r := newTestRegister()

	if err := r.RecordSale("INV-2601-0001", 10700, domain.PayCash); !errors.Is(err, ErrNoActiveShift) {
		t.Fatalf("expected ErrNoActiveShift, got %v", err)
	}
	if _, _, err := r.Close(0); !errors.Is(err, ErrNoActiveShift) {
		t.Fatalf("close without shift: expected ErrNoActiveShift, got %v", err)
	}
}

func TestBucketsSumToTotal(t *testing.T) {
	r := newTestRegister()
	if _, err := r.Open("T1", "mali", 50000); err != nil {
		t.Fatalf("open: %v", err)
	}

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(r.RecordSale("INV-2601-0001", 10700, domain.PayCash))
	must(r.RecordSale("INV-2601-0002", 21400, domain.PayQR))
	must(r.RecordSale("INV-2601-0003", 5350, domain.PayCredit))
	must(r.RecordVoid("INV-2601-0002", 21400, domain.PayQR))

	s, ok := r.Active()
	if !ok {
		t.Fatal("shift should still be open")
	}
	if s.TotalSalesCents != s.CashSalesCents+s.QRSalesCents+s.CreditSalesCents {
		t.Fatalf("buckets do not sum to total: %+v", s)
	}
	if s.TotalSalesCents != 16050 {
		t.Fatalf("total = %d, want 16050", s.TotalSalesCents)
	}
	if s.QRSalesCents != 0 {
		t.Fatalf("voided QR sale should zero the bucket, got %d", s.QRSalesCents)
	}
	if len(s.Entries) != 4 {
		t.Fatalf("expected 4 append-only entries, got %d", len(s.Entries))
	}
}

func TestCloseReconciliation(t *testing.T) {
	r := newTestRegister()
	if _, err := r.Open("T1", "mali", 100000); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := r.RecordSale("INV-2601-0001", 30000, domain.PayCash); err != nil {
		t.Fatal(err)
	}
	if err := r.RecordSale("INV-2601-0002", 20000, domain.PayQR); err != nil {
		t.Fatal(err)
	}
	if err := r.RecordVoid("INV-2601-0003", 5000, domain.PayCash); err != nil {
		t.Fatal(err)
	}

	closed, rec, err := r.Close(124000)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.Status != domain.ShiftStatusClosed || closed.ClosedAt == nil {
		t.Fatalf("shift not closed: %+v", closed)
	}
	// opening 1000.00 + cash 300.00 - cash back 50.00 = 1250.00 expected
	if rec.ExpectedCashCents != 125000 {
		t.Fatalf("expected cash = %d, want 125000", rec.ExpectedCashCents)
	}
	if rec.VarianceCents != -1000 {
		t.Fatalf("variance = %d, want -1000", rec.VarianceCents)
	}
	if closed.CashRefundCents != 5000 {
		t.Fatalf("cash refund = %d, want 5000", closed.CashRefundCents)
	}

	if _, ok := r.Active(); ok {
		t.Fatal("register should have no active shift after close")
	}
	if _, err := r.Open("T1", "mali", 0); err != nil {
		t.Fatalf("reopening after close: %v", err)
	}
}

func TestRestore(t *testing.T) {
	r := newTestRegister()

	err := r.Restore(domain.Shift{ID: "shift-old", Status: domain.ShiftStatusClosed})
	if err == nil {
		t.Fatal("restoring a closed shift should fail")
	}

	if err := r.Restore(domain.Shift{ID: "shift-old", Status: domain.ShiftStatusOpen, OpeningCashCents: 7000}); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if id, ok := r.ActiveID(); !ok || id != "shift-old" {
		t.Fatalf("active shift = %q, %v", id, ok)
	}
	if _, err := r.Open("T1", "mali", 0); !errors.Is(err, ErrShiftAlreadyOpen) {
		t.Fatalf("expected ErrShiftAlreadyOpen after restore, got %v", err)
	}
}
