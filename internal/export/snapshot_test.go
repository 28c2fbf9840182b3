package export

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/Priew-rasri/Ncare-sub000/internal/domain"
)

func TestSnapshotRoundTrip(t *testing.T) {
	opened := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
	snap := Snapshot{
		ExportedAt: time.Date(2026, 1, 15, 20, 0, 0, 0, time.UTC),
		Products: []domain.Product{
			{ID: "PARA-500", Barcode: "8850999320113", Name: "Paracetamol 500mg", Category: "analgesic", PriceCents: 3500, CostCents: 1500, ReorderLevel: 50, Unit: "tab", Active: true},
		},
		Batches: []domain.Batch{
			{ID: "B-1", ProductID: "PARA-500", LotNumber: "L1", ExpiryDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), CostCents: 1500, Quantity: 20, ReceivedAt: opened},
		},
		Customers: []domain.Customer{
			{ID: "cust-1", Name: "Somsri", Phone: "0812345678", Points: 42, LifetimeSpendCents: 512345, CreatedAt: opened},
		},
		Sales: []domain.SaleRecord{
			{
				InvoiceNo: "INV-2601-0001", InvoiceScope: "2601", InvoiceSeq: 1,
				Status: domain.SaleStatusCommitted, CreatedAt: opened, TerminalID: "T1", ShiftID: "shift-1",
				Lines: []domain.SaleLine{{
					ProductID: "PARA-500", Name: "Paracetamol 500mg", Qty: 2,
					UnitPriceCents: 3500, LineTotalCents: 7000,
					Allocations: []domain.BatchAllocation{{BatchID: "B-1", LotNumber: "L1", Qty: 2, UnitCostCents: 1500}},
				}},
				SubtotalCents: 7000, VatableSubtotalCents: 7000, VatAmountCents: 458, VatRatePercent: 7,
				NetTotalCents: 7000,
				Payment:       domain.Payment{Method: domain.PayCash, TenderedCents: 10000, ChangeCents: 3000},
			},
		},
		Shifts: []domain.Shift{
			{ID: "shift-1", TerminalID: "T1", CashierName: "mali", OpeningCashCents: 100000, TotalSalesCents: 7000, CashSalesCents: 7000, Status: domain.ShiftStatusOpen, OpenedAt: opened},
		},
		Settings: Settings{
			Store:           domain.StoreProfile{Name: "Ncare Pharmacy", TaxID: "0105561234567"},
			VatRatePercent:  7,
			PointValueCents: 100,
			TerminalID:      "T1",
		},
	}

	var buf bytes.Buffer
	if err := Write(&buf, snap); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	snap.Version = SchemaVersion
	if !reflect.DeepEqual(got, snap) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, snap)
	}
}

func TestPurchaseOrdersPassThrough(t *testing.T) {
	doc := `{"version": 1, "exported_at": "2026-01-15T20:00:00Z", "purchase_orders": [{"id": "po-1", "supplier": "ABC Pharma"}], "settings": {"store": {"name": "", "address": "", "phone": "", "tax_id": "", "footer": ""}, "vat_rate_percent": 7, "point_value_cents": 100, "terminal_id": "T1"}}`
	snap, err := Read(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(snap.PurchaseOrders) != 1 {
		t.Fatalf("purchase orders = %d, want 1", len(snap.PurchaseOrders))
	}

	var buf bytes.Buffer
	if err := Write(&buf, snap); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.Contains(buf.String(), "ABC Pharma") {
		t.Fatal("purchase orders dropped on re-export")
	}
}

func TestReadRejectsUnknownVersion(t *testing.T) {
	if _, err := Read(strings.NewReader(`{"version": 99}`)); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestReadRejectsForeignDocuments(t *testing.T) {
	if _, err := Read(strings.NewReader(`{"version": 1, "surprise": true}`)); err == nil {
		t.Fatal("unknown fields must be rejected")
	}
}
