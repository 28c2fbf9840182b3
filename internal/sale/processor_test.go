package sale

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Priew-rasri/Ncare-sub000/internal/domain"
	"github.com/Priew-rasri/Ncare-sub000/internal/inventory"
	"github.com/Priew-rasri/Ncare-sub000/internal/shift"
	"github.com/Priew-rasri/Ncare-sub000/internal/store"
	"github.com/Priew-rasri/Ncare-sub000/internal/store/memory"
)

type capturePrinter struct {
	mu   sync.Mutex
	jobs []string
}

func (p *capturePrinter) Enqueue(invoiceNo string, _ []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs = append(p.jobs, invoiceNo)
}

func (p *capturePrinter) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.jobs)
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

type fixture struct {
	proc    *Processor
	repo    *memory.Store
	ledger  *inventory.Ledger
	printer *capturePrinter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	repo := memory.New()

	products := []domain.Product{
		{ID: "PARA-500", Barcode: "8850999320113", Name: "Paracetamol 500mg", Category: "analgesic", PriceCents: 3500, CostCents: 1500, ReorderLevel: 10, Unit: "tab", Active: true},
		{ID: "GAUZE-10", Name: "Sterile Gauze", Category: "supplies", PriceCents: 3700, CostCents: 1800, ReorderLevel: 5, VatExempt: true, Unit: "pack", Active: true},
	}
	for _, p := range products {
		if _, err := repo.CreateProduct(ctx, p); err != nil {
			t.Fatalf("seed product: %v", err)
		}
	}
	batches := []domain.Batch{
		{ID: "B-1", ProductID: "PARA-500", LotNumber: "L1", ExpiryDate: day("2026-03-01"), CostCents: 1500, Quantity: 20},
		{ID: "B-2", ProductID: "PARA-500", LotNumber: "L2", ExpiryDate: day("2026-09-01"), CostCents: 1550, Quantity: 100},
		{ID: "B-3", ProductID: "GAUZE-10", LotNumber: "G1", ExpiryDate: day("2028-01-01"), CostCents: 1800, Quantity: 40},
	}
	if err := repo.SaveBatches(ctx, batches); err != nil {
		t.Fatalf("seed batches: %v", err)
	}

	ledger := inventory.NewLedger()
	ledger.Load(batches)

	n := 0
	register := shift.NewRegister(func() string {
		n++
		return fmt.Sprintf("shift-%d", n)
	})
	printer := &capturePrinter{}
	proc := New(repo, ledger, register, nil, printer, Config{
		TerminalID:      "T1",
		VatRatePercent:  7,
		PointValueCents: 100,
		ManagerPIN:      "9999",
		Store:           domain.StoreProfile{Name: "Ncare Pharmacy"},
	})
	proc.now = func() time.Time { return time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC) }
	return &fixture{proc: proc, repo: repo, ledger: ledger, printer: printer}
}

func (f *fixture) openShift(t *testing.T) {
	t.Helper()
	if _, err := f.proc.OpenShift(context.Background(), domain.ShiftOpenRequest{TerminalID: "T1", CashierName: "mali", OpeningCashCents: 100000}); err != nil {
		t.Fatalf("open shift: %v", err)
	}
}

func TestCheckoutCommitsCashSale(t *testing.T) {
	f := newFixture(t)
	f.openShift(t)

	sale, err := f.proc.Checkout(context.Background(), domain.CheckoutRequest{
		PaymentMethod: domain.PayCash,
		TenderedCents: 20000,
		Lines: []domain.CheckoutLineRequest{
			{ProductID: "PARA-500", Qty: 2},
			{ProductID: "GAUZE-10", Qty: 1},
		},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if sale.InvoiceNo != "INV-2601-0001" {
		t.Fatalf("invoice = %s, want INV-2601-0001", sale.InvoiceNo)
	}
	if sale.SubtotalCents != 10700 || sale.NetTotalCents != 10700 {
		t.Fatalf("totals wrong: %+v", sale)
	}
	if sale.VatableSubtotalCents != 7000 || sale.ExemptSubtotalCents != 3700 {
		t.Fatalf("vat partition wrong: %+v", sale)
	}
	if sale.VatAmountCents != 458 {
		t.Fatalf("vat = %d, want 458", sale.VatAmountCents)
	}
	if sale.Payment.TenderedCents != 20000 || sale.Payment.ChangeCents != 9300 {
		t.Fatalf("cash detail wrong: %+v", sale.Payment)
	}
	if got := f.ledger.Stock("PARA-500"); got != 118 {
		t.Fatalf("stock = %d, want 118", got)
	}

	s, err := f.proc.ActiveShift(context.Background())
	if err != nil {
		t.Fatalf("active shift: %v", err)
	}
	if s.CashSalesCents != 10700 || s.TotalSalesCents != 10700 {
		t.Fatalf("shift not recorded: %+v", s)
	}
	if f.printer.count() != 1 {
		t.Fatalf("expected 1 receipt enqueued, got %d", f.printer.count())
	}

	persisted, err := f.repo.GetSale(context.Background(), sale.InvoiceNo)
	if err != nil {
		t.Fatalf("persisted sale: %v", err)
	}
	if persisted.Status != domain.SaleStatusCommitted {
		t.Fatalf("persisted status = %s", persisted.Status)
	}
}

func TestCheckoutRequiresOpenShift(t *testing.T) {
	f := newFixture(t)

	_, err := f.proc.Checkout(context.Background(), domain.CheckoutRequest{
		PaymentMethod: domain.PayCash,
		TenderedCents: 10000,
		Lines:         []domain.CheckoutLineRequest{{ProductID: "PARA-500", Qty: 1}},
	})
	if !errors.Is(err, shift.ErrNoActiveShift) {
		t.Fatalf("expected ErrNoActiveShift, got %v", err)
	}
}

func TestRejectedCheckoutMutatesNothing(t *testing.T) {
	f := newFixture(t)
	f.openShift(t)

	cases := []domain.CheckoutRequest{
		{PaymentMethod: domain.PayCash, TenderedCents: 1, Lines: []domain.CheckoutLineRequest{{ProductID: "PARA-500", Qty: 1}}},
		{PaymentMethod: domain.PayCash, TenderedCents: 1e7, Lines: []domain.CheckoutLineRequest{{ProductID: "PARA-500", Qty: 500}}},
		{PaymentMethod: "cheque", TenderedCents: 1e7, Lines: []domain.CheckoutLineRequest{{ProductID: "PARA-500", Qty: 1}}},
		{PaymentMethod: domain.PayQR, Lines: []domain.CheckoutLineRequest{{ProductID: "NOPE", Qty: 1}}},
		{PaymentMethod: domain.PayQR},
	}
	for i, req := range cases {
		if _, err := f.proc.Checkout(context.Background(), req); err == nil {
			t.Fatalf("case %d: expected rejection", i)
		}
	}

	if got := f.ledger.Stock("PARA-500"); got != 120 {
		t.Fatalf("stock changed by rejected checkout: %d", got)
	}
	s, _ := f.proc.ActiveShift(context.Background())
	if s.TotalSalesCents != 0 {
		t.Fatalf("shift changed by rejected checkout: %+v", s)
	}
	if seq, _ := f.repo.MaxInvoiceSeq(context.Background(), "2601"); seq != 0 {
		t.Fatalf("invoice sequence consumed by rejected checkout: %d", seq)
	}
	if f.printer.count() != 0 {
		t.Fatalf("receipt enqueued for rejected checkout")
	}
}

func TestCheckoutFollowsFEFOAcrossBatches(t *testing.T) {
	f := newFixture(t)
	f.openShift(t)

	sale, err := f.proc.Checkout(context.Background(), domain.CheckoutRequest{
		PaymentMethod: domain.PayQR,
		Lines:         []domain.CheckoutLineRequest{{ProductID: "PARA-500", Qty: 25}},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	allocs := sale.Lines[0].Allocations
	if len(allocs) != 2 {
		t.Fatalf("expected 2 allocations, got %+v", allocs)
	}
	if allocs[0].BatchID != "B-1" || allocs[0].Qty != 20 || allocs[1].BatchID != "B-2" || allocs[1].Qty != 5 {
		t.Fatalf("allocations not FEFO: %+v", allocs)
	}

	lots := f.ledger.Batches("PARA-500")
	if len(lots) != 1 || lots[0].ID != "B-2" || lots[0].Quantity != 95 {
		t.Fatalf("batches after sale: %+v", lots)
	}
	// write-behind: drained batch deleted, survivor updated
	persisted, err := f.repo.ListBatches(context.Background(), "PARA-500")
	if err != nil {
		t.Fatalf("list batches: %v", err)
	}
	if len(persisted) != 1 || persisted[0].Quantity != 95 {
		t.Fatalf("persisted batches: %+v", persisted)
	}
}

func TestInvoiceSequenceScopedByMonth(t *testing.T) {
	f := newFixture(t)
	f.openShift(t)
	ctx := context.Background()

	// History from earlier in the month.
	if _, err := f.repo.CreateSale(ctx, domain.SaleRecord{
		InvoiceNo: "INV-2601-0003", InvoiceScope: "2601", InvoiceSeq: 3,
		Status: domain.SaleStatusCommitted, CreatedAt: day("2026-01-02"),
	}); err != nil {
		t.Fatalf("seed sale: %v", err)
	}

	sale, err := f.proc.Checkout(ctx, domain.CheckoutRequest{
		PaymentMethod: domain.PayQR,
		Lines:         []domain.CheckoutLineRequest{{ProductID: "PARA-500", Qty: 1}},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if sale.InvoiceNo != "INV-2601-0004" {
		t.Fatalf("invoice = %s, want INV-2601-0004", sale.InvoiceNo)
	}

	// A new month starts its own sequence.
	f.proc.now = func() time.Time { return time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC) }
	sale, err = f.proc.Checkout(ctx, domain.CheckoutRequest{
		PaymentMethod: domain.PayQR,
		Lines:         []domain.CheckoutLineRequest{{ProductID: "PARA-500", Qty: 1}},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if sale.InvoiceNo != "INV-2602-0001" {
		t.Fatalf("invoice = %s, want INV-2602-0001", sale.InvoiceNo)
	}
}

func TestCheckoutWithLoyaltyRedemption(t *testing.T) {
	f := newFixture(t)
	f.openShift(t)
	ctx := context.Background()

	if _, err := f.repo.CreateCustomer(ctx, domain.Customer{ID: "cust-1", Name: "Somsri", Points: 100}); err != nil {
		t.Fatalf("seed customer: %v", err)
	}

	sale, err := f.proc.Checkout(ctx, domain.CheckoutRequest{
		CustomerID:     "cust-1",
		PaymentMethod:  domain.PayCash,
		TenderedCents:  10000,
		PointsRedeemed: 40,
		Lines:          []domain.CheckoutLineRequest{{ProductID: "PARA-500", Qty: 2}},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if sale.DiscountCents != 4000 {
		t.Fatalf("discount = %d, want 4000", sale.DiscountCents)
	}
	if sale.NetTotalCents != 3000 {
		t.Fatalf("net = %d, want 3000", sale.NetTotalCents)
	}
	if sale.PointsEarned != 1 { // 3000/2000 truncated
		t.Fatalf("earned = %d, want 1", sale.PointsEarned)
	}

	c, err := f.repo.GetCustomer(ctx, "cust-1")
	if err != nil {
		t.Fatalf("customer: %v", err)
	}
	if c.Points != 61 { // 100 - 40 + 1
		t.Fatalf("points = %d, want 61", c.Points)
	}
	if c.LifetimeSpendCents != 3000 {
		t.Fatalf("lifetime spend = %d, want 3000", c.LifetimeSpendCents)
	}
}

func TestCheckoutRejectsOverRedemption(t *testing.T) {
	f := newFixture(t)
	f.openShift(t)
	ctx := context.Background()

	if _, err := f.repo.CreateCustomer(ctx, domain.Customer{ID: "cust-1", Name: "Somsri", Points: 3}); err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	_, err := f.proc.Checkout(ctx, domain.CheckoutRequest{
		CustomerID:     "cust-1",
		PaymentMethod:  domain.PayCash,
		TenderedCents:  10000,
		PointsRedeemed: 50,
		Lines:          []domain.CheckoutLineRequest{{ProductID: "PARA-500", Qty: 1}},
	})
	if err == nil {
		t.Fatal("expected redemption rejection")
	}
	if got := f.ledger.Stock("PARA-500"); got != 120 {
		t.Fatalf("stock changed: %d", got)
	}
}

func TestCheckoutRejectsNegativeRedemption(t *testing.T) {
	f := newFixture(t)
	f.openShift(t)
	ctx := context.Background()

	if _, err := f.repo.CreateCustomer(ctx, domain.Customer{ID: "cust-1", Name: "Somsri", Points: 10}); err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	_, err := f.proc.Checkout(ctx, domain.CheckoutRequest{
		CustomerID:     "cust-1",
		PaymentMethod:  domain.PayCash,
		TenderedCents:  10000,
		PointsRedeemed: -50,
		Lines:          []domain.CheckoutLineRequest{{ProductID: "PARA-500", Qty: 1}},
	})
	if !errors.Is(err, store.ErrInvalidTransaction) {
		t.Fatalf("expected invalid transaction, got %v", err)
	}
	if got := f.ledger.Stock("PARA-500"); got != 120 {
		t.Fatalf("stock changed: %d", got)
	}
	c, err := f.repo.GetCustomer(ctx, "cust-1")
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if c.Points != 10 {
		t.Fatalf("points changed: %d", c.Points)
	}
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "admin", Role: "admin"})
}

func TestVoidRestoresLedgerShiftAndCustomer(t *testing.T) {
	f := newFixture(t)
	f.openShift(t)
	ctx := context.Background()

	if _, err := f.repo.CreateCustomer(ctx, domain.Customer{ID: "cust-1", Name: "Somsri", Points: 10}); err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	sale, err := f.proc.Checkout(ctx, domain.CheckoutRequest{
		CustomerID:    "cust-1",
		PaymentMethod: domain.PayCash,
		TenderedCents: 100000,
		Lines:         []domain.CheckoutLineRequest{{ProductID: "PARA-500", Qty: 25}},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	voided, err := f.proc.VoidSale(ctx, sale.InvoiceNo, domain.VoidRequest{Reason: "wrong item", ManagerPIN: "9999"})
	if err != nil {
		t.Fatalf("void: %v", err)
	}
	if voided.Status != domain.SaleStatusVoided || voided.VoidedAt == nil {
		t.Fatalf("sale not marked voided: %+v", voided)
	}

	// Ledger restored, including the batch that was drained and pruned.
	lots := f.ledger.Batches("PARA-500")
	if len(lots) != 2 || lots[0].ID != "B-1" || lots[0].Quantity != 20 || lots[1].Quantity != 100 {
		t.Fatalf("ledger not restored: %+v", lots)
	}
	if got := f.ledger.Stock("PARA-500"); got != 120 {
		t.Fatalf("stock = %d, want 120", got)
	}

	// Shift netted back out, with cash handed back tracked.
	s, _ := f.proc.ActiveShift(ctx)
	if s.TotalSalesCents != 0 || s.CashSalesCents != 0 {
		t.Fatalf("shift not netted: %+v", s)
	}
	if s.CashRefundCents != sale.NetTotalCents {
		t.Fatalf("cash refund = %d, want %d", s.CashRefundCents, sale.NetTotalCents)
	}

	// Customer back to the starting position.
	c, _ := f.repo.GetCustomer(ctx, "cust-1")
	if c.Points != 10 || c.LifetimeSpendCents != 0 {
		t.Fatalf("customer not restored: %+v", c)
	}

	// A void is terminal.
	if _, err := f.proc.VoidSale(ctx, sale.InvoiceNo, domain.VoidRequest{Reason: "again", ManagerPIN: "9999"}); !errors.Is(err, store.ErrInvalidTransaction) {
		t.Fatalf("second void: expected ErrInvalidTransaction, got %v", err)
	}
}

func TestVoidRequiresManagerPinOrAdmin(t *testing.T) {
	f := newFixture(t)
	f.openShift(t)
	ctx := context.Background()

	sale, err := f.proc.Checkout(ctx, domain.CheckoutRequest{
		PaymentMethod: domain.PayQR,
		Lines:         []domain.CheckoutLineRequest{{ProductID: "PARA-500", Qty: 1}},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if _, err := f.proc.VoidSale(ctx, sale.InvoiceNo, domain.VoidRequest{Reason: "oops", ManagerPIN: "1234"}); !errors.Is(err, ErrManagerPinRequired) {
		t.Fatalf("expected ErrManagerPinRequired, got %v", err)
	}
	if _, err := f.proc.VoidSale(adminCtx(), sale.InvoiceNo, domain.VoidRequest{Reason: "oops"}); err != nil {
		t.Fatalf("admin void without pin: %v", err)
	}
}

func TestManagerPinHeldHashedOnly(t *testing.T) {
	f := newFixture(t)

	if f.proc.cfg.ManagerPIN != "" {
		t.Fatal("plaintext pin retained after construction")
	}
	if !strings.HasPrefix(f.proc.pinHash, "$2") {
		t.Fatalf("pin not stored as bcrypt hash: %q", f.proc.pinHash)
	}
	if !f.proc.validManagerPIN("9999") {
		t.Fatal("correct pin rejected")
	}
	if f.proc.validManagerPIN("0000") {
		t.Fatal("wrong pin accepted")
	}

	// Without a configured PIN, nothing verifies.
	g := newFixtureEmpty(t)
	if g.proc.validManagerPIN("") || g.proc.validManagerPIN("9999") {
		t.Fatal("pin accepted with none configured")
	}
}

func TestVoidOnlyWithinSameShift(t *testing.T) {
	f := newFixture(t)
	f.openShift(t)
	ctx := context.Background()

	sale, err := f.proc.Checkout(ctx, domain.CheckoutRequest{
		PaymentMethod: domain.PayQR,
		Lines:         []domain.CheckoutLineRequest{{ProductID: "PARA-500", Qty: 1}},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if _, _, err := f.proc.CloseShift(ctx, domain.ShiftCloseRequest{CountedCashCents: 100000}); err != nil {
		t.Fatalf("close shift: %v", err)
	}
	if _, err := f.proc.VoidSale(ctx, sale.InvoiceNo, domain.VoidRequest{Reason: "late", ManagerPIN: "9999"}); !errors.Is(err, shift.ErrNoActiveShift) {
		t.Fatalf("expected ErrNoActiveShift, got %v", err)
	}

	f.openShift(t)
	if _, err := f.proc.VoidSale(ctx, sale.InvoiceNo, domain.VoidRequest{Reason: "late", ManagerPIN: "9999"}); !errors.Is(err, ErrVoidDifferentShift) {
		t.Fatalf("expected ErrVoidDifferentShift, got %v", err)
	}
}

// A concurrent close must either land before a checkout (which is then
// rejected) or after it (and carry its totals). A committed sale missing from
// the closed shift means the two interleaved.
func TestCloseShiftSerializedWithCheckout(t *testing.T) {
	for i := 0; i < 25; i++ {
		f := newFixture(t)
		f.openShift(t)
		ctx := context.Background()

		var (
			wg       sync.WaitGroup
			sale     *domain.SaleRecord
			saleErr  error
			closed   *domain.Shift
			closeErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			sale, saleErr = f.proc.Checkout(ctx, domain.CheckoutRequest{
				PaymentMethod: domain.PayQR,
				Lines:         []domain.CheckoutLineRequest{{ProductID: "PARA-500", Qty: 1}},
			})
		}()
		go func() {
			defer wg.Done()
			closed, _, closeErr = f.proc.CloseShift(ctx, domain.ShiftCloseRequest{CountedCashCents: 100000})
		}()
		wg.Wait()

		if closeErr != nil {
			t.Fatalf("close shift: %v", closeErr)
		}
		if saleErr != nil {
			if !errors.Is(saleErr, shift.ErrNoActiveShift) {
				t.Fatalf("checkout: %v", saleErr)
			}
			if closed.TotalSalesCents != 0 {
				t.Fatalf("rejected checkout reached closed shift: %+v", closed)
			}
			continue
		}
		if closed.TotalSalesCents != sale.NetTotalCents {
			t.Fatalf("sale %s missing from closed shift: %+v", sale.InvoiceNo, closed)
		}
	}
}

func TestDailySummarySkipsVoided(t *testing.T) {
	f := newFixture(t)
	f.openShift(t)
	ctx := context.Background()

	s1, err := f.proc.Checkout(ctx, domain.CheckoutRequest{
		PaymentMethod: domain.PayCash, TenderedCents: 10000,
		Lines: []domain.CheckoutLineRequest{{ProductID: "PARA-500", Qty: 2}},
	})
	if err != nil {
		t.Fatalf("checkout 1: %v", err)
	}
	if _, err := f.proc.Checkout(ctx, domain.CheckoutRequest{
		PaymentMethod: domain.PayQR,
		Lines:         []domain.CheckoutLineRequest{{ProductID: "GAUZE-10", Qty: 1}},
	}); err != nil {
		t.Fatalf("checkout 2: %v", err)
	}
	if _, err := f.proc.VoidSale(adminCtx(), s1.InvoiceNo, domain.VoidRequest{Reason: "test"}); err != nil {
		t.Fatalf("void: %v", err)
	}

	sum, err := f.proc.DailySummary(ctx, "2026-01-15")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.SaleCount != 1 || sum.NetCents != 3700 {
		t.Fatalf("summary wrong: %+v", sum)
	}
	cost, margin := EstimateGrossMargin(sum.NetCents)
	if sum.EstimatedCostCents != cost || sum.EstimatedMarginCents != margin {
		t.Fatalf("margin heuristic not applied: %+v", sum)
	}
	if cost != 2220 || margin != 1480 {
		t.Fatalf("60/40 heuristic: cost=%d margin=%d", cost, margin)
	}
	if len(sum.ByPayment) != 1 || sum.ByPayment[0].Method != domain.PayQR {
		t.Fatalf("payment breakdown: %+v", sum.ByPayment)
	}
}

func TestReprintEncodesFromStore(t *testing.T) {
	f := newFixture(t)
	f.openShift(t)
	ctx := context.Background()

	sale, err := f.proc.Checkout(ctx, domain.CheckoutRequest{
		PaymentMethod: domain.PayQR,
		Lines:         []domain.CheckoutLineRequest{{ProductID: "PARA-500", Qty: 1}},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	resp, err := f.proc.ReprintReceipt(ctx, sale.InvoiceNo)
	if err != nil {
		t.Fatalf("reprint: %v", err)
	}
	if resp.EscposBase64 == "" {
		t.Fatal("empty receipt payload")
	}
	if _, err := f.proc.ReprintReceipt(ctx, "INV-0000-0000"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown invoice, got %v", err)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := adminCtx()

	snap, err := f.proc.ExportSnapshot(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(snap.Products) != 2 || len(snap.Batches) != 3 {
		t.Fatalf("snapshot incomplete: %d products, %d batches", len(snap.Products), len(snap.Batches))
	}

	// Restore into a fresh engine.
	g := newFixtureEmpty(t)
	if err := g.proc.ImportSnapshot(adminCtx(), snap); err != nil {
		t.Fatalf("import: %v", err)
	}
	if got := g.ledger.Stock("PARA-500"); got != 120 {
		t.Fatalf("restored stock = %d, want 120", got)
	}
	if _, err := g.repo.GetProduct(context.Background(), "GAUZE-10"); err != nil {
		t.Fatalf("restored product: %v", err)
	}
}

func newFixtureEmpty(t *testing.T) *fixture {
	t.Helper()
	repo := memory.New()
	ledger := inventory.NewLedger()
	register := shift.NewRegister(func() string { return "shift-x" })
	proc := New(repo, ledger, register, nil, nil, Config{TerminalID: "T2", VatRatePercent: 7})
	return &fixture{proc: proc, repo: repo, ledger: ledger}
}
