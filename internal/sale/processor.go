package sale

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/Priew-rasri/Ncare-sub000/internal/barcode"
	"github.com/Priew-rasri/Ncare-sub000/internal/cache"
	"github.com/Priew-rasri/Ncare-sub000/internal/domain"
	"github.com/Priew-rasri/Ncare-sub000/internal/export"
	"github.com/Priew-rasri/Ncare-sub000/internal/inventory"
	"github.com/Priew-rasri/Ncare-sub000/internal/loyalty"
	"github.com/Priew-rasri/Ncare-sub000/internal/receipt"
	"github.com/Priew-rasri/Ncare-sub000/internal/shift"
	"github.com/Priew-rasri/Ncare-sub000/internal/store"
	"github.com/Priew-rasri/Ncare-sub000/internal/tax"
	"github.com/Priew-rasri/Ncare-sub000/internal/xid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmptyCart          = errors.New("empty cart")
	ErrPaymentShort       = errors.New("tendered amount below total")
	ErrVoidDifferentShift = errors.New("sale belongs to a different shift")
	ErrManagerPinRequired = errors.New("manager pin required")
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Printer receives rendered receipts after a sale commits. Delivery is fire
// and forget: nothing a printer does can roll a sale back.
type Printer interface {
	Enqueue(invoiceNo string, data []byte)
}

// Config carries the store-level knobs the processor needs at runtime.
type Config struct {
	TerminalID      string
	VatRatePercent  int
	PointValueCents int64
	ManagerPIN      string
	ReceiptTTL      time.Duration
	Store           domain.StoreProfile
}

// Processor drives a sale through BUILDING, VALIDATING and COMMITTED (or
// REJECTED). The mutex serializes the validate-and-commit window, so stock
// deduction, invoice assignment and shift recording happen as one unit: a
// rejected sale mutates nothing.
type Processor struct {
	mu       sync.Mutex
	repo     store.Repository
	ledger   *inventory.Ledger
	register *shift.Register
	encoder  *receipt.Encoder
	receipts cache.ReceiptCache
	printer  Printer
	cfg      Config
	pinHash  string
	now      func() time.Time
}

func New(repo store.Repository, ledger *inventory.Ledger, register *shift.Register, receipts cache.ReceiptCache, printer Printer, cfg Config) *Processor {
	if cfg.TerminalID == "" {
		cfg.TerminalID = "main-terminal"
	}
	if cfg.PointValueCents <= 0 {
		cfg.PointValueCents = 100
	}
	if cfg.ReceiptTTL <= 0 {
		cfg.ReceiptTTL = 24 * time.Hour
	}
	if receipts == nil {
		receipts = cache.NoopReceiptCache{}
	}
	// The PIN is held hashed only; the plaintext never outlives construction.
	pinHash := ""
	if pin := strings.TrimSpace(cfg.ManagerPIN); pin != "" {
		if hashed, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost); err == nil {
			pinHash = string(hashed)
		}
	}
	cfg.ManagerPIN = ""
	return &Processor{
		repo:     repo,
		ledger:   ledger,
		register: register,
		encoder:  receipt.NewEncoder(cfg.Store),
		receipts: receipts,
		printer:  printer,
		cfg:      cfg,
		pinHash:  pinHash,
		now:      time.Now,
	}
}

func (p *Processor) validManagerPIN(pin string) bool {
	pin = strings.TrimSpace(pin)
	if pin == "" || p.pinHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(p.pinHash), []byte(pin)) == nil
}

// ProductWithStock augments the catalogue row with the ledger-derived level.
type ProductWithStock struct {
	domain.Product
	Stock int `json:"stock"`
}

func (p *Processor) ListProducts(ctx context.Context) ([]ProductWithStock, error) {
	products, err := p.repo.ListProducts(ctx, true)
	if err != nil {
		return nil, err
	}
	out := make([]ProductWithStock, 0, len(products))
	for _, prod := range products {
		out = append(out, ProductWithStock{Product: prod, Stock: p.ledger.Stock(prod.ID)})
	}
	return out, nil
}

func (p *Processor) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	req.Barcode = strings.TrimSpace(req.Barcode)
	if req.Name == "" || req.Category == "" || req.PriceCents < 1 || req.CostCents < 0 || req.ReorderLevel < 0 {
		return domain.Product{}, store.ErrInvalidTransaction
	}
	if req.Barcode != "" {
		if err := barcode.ValidateEAN13(req.Barcode); err != nil {
			return domain.Product{}, err
		}
	}

	product := domain.Product{
		ID:           xid.New("prd"),
		Barcode:      req.Barcode,
		Name:         req.Name,
		GenericName:  strings.TrimSpace(req.GenericName),
		Category:     req.Category,
		PriceCents:   req.PriceCents,
		CostCents:    req.CostCents,
		ReorderLevel: req.ReorderLevel,
		VatExempt:    req.VatExempt,
		Unit:         strings.TrimSpace(req.Unit),
		Active:       true,
	}
	created, err := p.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}
	return *created, nil
}

func (p *Processor) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	existing, err := p.repo.GetProduct(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Product{}, err
	}
	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, store.ErrInvalidTransaction
		}
		updated.Name = name
	}
	if req.GenericName != nil {
		updated.GenericName = strings.TrimSpace(*req.GenericName)
	}
	if req.Category != nil {
		category := strings.TrimSpace(*req.Category)
		if category == "" {
			return domain.Product{}, store.ErrInvalidTransaction
		}
		updated.Category = category
	}
	if req.PriceCents != nil {
		if *req.PriceCents < 1 {
			return domain.Product{}, store.ErrInvalidTransaction
		}
		updated.PriceCents = *req.PriceCents
	}
	if req.CostCents != nil {
		if *req.CostCents < 0 {
			return domain.Product{}, store.ErrInvalidTransaction
		}
		updated.CostCents = *req.CostCents
	}
	if req.ReorderLevel != nil {
		if *req.ReorderLevel < 0 {
			return domain.Product{}, store.ErrInvalidTransaction
		}
		updated.ReorderLevel = *req.ReorderLevel
	}
	if req.VatExempt != nil {
		updated.VatExempt = *req.VatExempt
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}

	saved, err := p.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}
	return *saved, nil
}

// LookupBarcode validates the EAN-13 check digit before touching the
// catalogue; a malformed code never reaches the repository.
func (p *Processor) LookupBarcode(ctx context.Context, code string) (ProductWithStock, error) {
	code = strings.TrimSpace(code)
	if err := barcode.ValidateEAN13(code); err != nil {
		return ProductWithStock{}, err
	}
	prod, err := p.repo.GetProductByBarcode(ctx, code)
	if err != nil {
		return ProductWithStock{}, err
	}
	return ProductWithStock{Product: *prod, Stock: p.ledger.Stock(prod.ID)}, nil
}

// ReceiveBatch books a new lot into the ledger and persists it.
func (p *Processor) ReceiveBatch(ctx context.Context, req domain.BatchReceiveRequest) (domain.Batch, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Batch{}, fmt.Errorf("admin role required")
	}
	if req.Quantity < 1 || strings.TrimSpace(req.LotNumber) == "" {
		return domain.Batch{}, store.ErrInvalidTransaction
	}
	expiry, err := time.Parse("2006-01-02", req.ExpiryDate)
	if err != nil {
		return domain.Batch{}, fmt.Errorf("%w: bad expiry date", store.ErrInvalidTransaction)
	}
	if _, err := p.repo.GetProduct(ctx, req.ProductID); err != nil {
		return domain.Batch{}, err
	}

	batch := domain.Batch{
		ID:         xid.New("bat"),
		ProductID:  req.ProductID,
		LotNumber:  strings.TrimSpace(req.LotNumber),
		ExpiryDate: expiry,
		CostCents:  req.CostCents,
		Quantity:   req.Quantity,
		ReceivedAt: p.now().UTC(),
	}
	if _, err := p.ledger.Receive(batch); err != nil {
		return domain.Batch{}, err
	}
	if err := p.repo.SaveBatch(ctx, batch); err != nil {
		log.Printf("[sale] WARN: failed to persist batch %s: %v", batch.ID, err)
	}
	return batch, nil
}

func (p *Processor) ListBatches(_ context.Context, productID string) []domain.Batch {
	return p.ledger.Batches(productID)
}

// LowStock lists active products at or below their reorder level.
func (p *Processor) LowStock(ctx context.Context) ([]ProductWithStock, error) {
	products, err := p.repo.ListProducts(ctx, true)
	if err != nil {
		return nil, err
	}
	var out []ProductWithStock
	for _, prod := range products {
		stock := p.ledger.Stock(prod.ID)
		if stock <= prod.ReorderLevel {
			out = append(out, ProductWithStock{Product: prod, Stock: stock})
		}
	}
	return out, nil
}

func (p *Processor) ExpiringBatches(_ context.Context, within time.Duration) []domain.Batch {
	return p.ledger.ExpiringBefore(p.now().UTC().Add(within))
}

func (p *Processor) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Name == "" {
		return domain.Customer{}, store.ErrInvalidTransaction
	}
	customer := domain.Customer{
		ID:        xid.New("cus"),
		Name:      req.Name,
		Phone:     req.Phone,
		CreatedAt: p.now().UTC(),
	}
	created, err := p.repo.CreateCustomer(ctx, customer)
	if err != nil {
		return domain.Customer{}, err
	}
	return *created, nil
}

// CustomerView decorates the stored row with the derived loyalty tier.
type CustomerView struct {
	domain.Customer
	Tier string `json:"tier"`
}

func (p *Processor) GetCustomer(ctx context.Context, id string) (CustomerView, error) {
	c, err := p.repo.GetCustomer(ctx, id)
	if err != nil {
		return CustomerView{}, err
	}
	return CustomerView{Customer: *c, Tier: loyalty.Tier(c.LifetimeSpendCents)}, nil
}

func (p *Processor) FindCustomerByPhone(ctx context.Context, phone string) (CustomerView, error) {
	c, err := p.repo.GetCustomerByPhone(ctx, strings.TrimSpace(phone))
	if err != nil {
		return CustomerView{}, err
	}
	return CustomerView{Customer: *c, Tier: loyalty.Tier(c.LifetimeSpendCents)}, nil
}

func (p *Processor) ListCustomers(ctx context.Context, limit int) ([]CustomerView, error) {
	customers, err := p.repo.ListCustomers(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]CustomerView, 0, len(customers))
	for _, c := range customers {
		out = append(out, CustomerView{Customer: c, Tier: loyalty.Tier(c.LifetimeSpendCents)})
	}
	return out, nil
}

func (p *Processor) OpenShift(ctx context.Context, req domain.ShiftOpenRequest) (*domain.Shift, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	terminalID := strings.TrimSpace(req.TerminalID)
	if terminalID == "" {
		terminalID = p.cfg.TerminalID
	}
	cashier := strings.TrimSpace(req.CashierName)
	if cashier == "" {
		if actor, ok := ActorFromContext(ctx); ok {
			cashier = actor.Username
		}
	}
	opened, err := p.register.Open(terminalID, cashier, req.OpeningCashCents)
	if err != nil {
		return nil, err
	}
	if _, err := p.repo.CreateShift(ctx, *opened); err != nil {
		log.Printf("[sale] WARN: failed to persist opened shift %s: %v", opened.ID, err)
	}
	return opened, nil
}

// CloseShift runs under the processor mutex so a close can never slip in
// between a checkout's active-shift check and its shift entry being recorded.
func (p *Processor) CloseShift(ctx context.Context, req domain.ShiftCloseRequest) (*domain.Shift, *domain.ShiftReconciliation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	closed, rec, err := p.register.Close(req.CountedCashCents)
	if err != nil {
		return nil, nil, err
	}
	if _, err := p.repo.UpdateShift(ctx, *closed); err != nil {
		log.Printf("[sale] WARN: failed to persist closed shift %s: %v", closed.ID, err)
	}
	return closed, rec, nil
}

func (p *Processor) ActiveShift(_ context.Context) (*domain.Shift, error) {
	s, ok := p.register.Active()
	if !ok {
		return nil, shift.ErrNoActiveShift
	}
	return s, nil
}

// resolvedLine is a cart line after product lookup, with the shelf price
// snapshotted so a concurrent price edit cannot change an in-flight sale.
type resolvedLine struct {
	product domain.Product
	qty     int
	instr   string
}

// Checkout validates and commits a sale as one serialized unit. Any failure
// up to the commit point leaves the ledger, shift, customer and invoice
// sequence untouched.
func (p *Processor) Checkout(ctx context.Context, req domain.CheckoutRequest) (*domain.SaleRecord, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyCart
	}
	if !req.PaymentMethod.Valid() {
		return nil, fmt.Errorf("%w: unknown payment method %q", store.ErrInvalidTransaction, req.PaymentMethod)
	}

	// BUILDING: resolve products and snapshot prices. Read-only.
	resolved := make([]resolvedLine, 0, len(req.Lines))
	for _, ln := range req.Lines {
		if ln.Qty < 1 {
			return nil, fmt.Errorf("%w: quantity %d", inventory.ErrInvalidQuantity, ln.Qty)
		}
		var prod *domain.Product
		var err error
		switch {
		case ln.ProductID != "":
			prod, err = p.repo.GetProduct(ctx, ln.ProductID)
		case ln.Barcode != "":
			if err = barcode.ValidateEAN13(strings.TrimSpace(ln.Barcode)); err == nil {
				prod, err = p.repo.GetProductByBarcode(ctx, strings.TrimSpace(ln.Barcode))
			}
		default:
			return nil, fmt.Errorf("%w: line missing product reference", store.ErrInvalidTransaction)
		}
		if err != nil {
			return nil, err
		}
		if !prod.Active {
			return nil, fmt.Errorf("%w: product %s inactive", store.ErrInvalidTransaction, prod.ID)
		}
		resolved = append(resolved, resolvedLine{product: *prod, qty: ln.Qty, instr: strings.TrimSpace(ln.Instruction)})
	}

	var customer *domain.Customer
	if req.CustomerID != "" {
		c, err := p.repo.GetCustomer(ctx, req.CustomerID)
		if err != nil {
			return nil, err
		}
		customer = c
	}
	if req.PointsRedeemed < 0 {
		return nil, fmt.Errorf("%w: points redeemed must not be negative", store.ErrInvalidTransaction)
	}
	if req.PointsRedeemed > 0 && customer == nil {
		return nil, fmt.Errorf("%w: redemption requires a customer", store.ErrInvalidTransaction)
	}

	// VALIDATING through COMMITTED happens under the processor lock.
	p.mu.Lock()
	defer p.mu.Unlock()

	shiftID, ok := p.register.ActiveID()
	if !ok {
		return nil, shift.ErrNoActiveShift
	}

	// Plan one allocation per product so duplicate lines cannot double-book
	// the same batch.
	neededByProduct := map[string]int{}
	productOrder := []string{}
	for _, rl := range resolved {
		if _, seen := neededByProduct[rl.product.ID]; !seen {
			productOrder = append(productOrder, rl.product.ID)
		}
		neededByProduct[rl.product.ID] += rl.qty
	}
	plans := make([]inventory.AllocationPlan, 0, len(productOrder))
	planByProduct := map[string]inventory.AllocationPlan{}
	for _, pid := range productOrder {
		plan, err := p.ledger.Allocate(pid, neededByProduct[pid])
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
		planByProduct[pid] = plan
	}

	// Pricing: line totals, VAT breakdown, loyalty discount.
	taxLines := make([]tax.Line, 0, len(resolved))
	saleLines := make([]domain.SaleLine, 0, len(resolved))
	takeCursor := map[string]int{}
	for _, rl := range resolved {
		lineTotal := rl.product.PriceCents * int64(rl.qty)
		taxLines = append(taxLines, tax.Line{TotalCents: lineTotal, Exempt: rl.product.VatExempt})
		saleLines = append(saleLines, domain.SaleLine{
			ProductID:      rl.product.ID,
			Name:           rl.product.Name,
			Qty:            rl.qty,
			UnitPriceCents: rl.product.PriceCents,
			LineTotalCents: lineTotal,
			VatExempt:      rl.product.VatExempt,
			Instruction:    rl.instr,
			Allocations:    takeAllocations(planByProduct[rl.product.ID], takeCursor, rl.qty),
		})
	}
	breakdown := tax.Compute(taxLines, p.cfg.VatRatePercent)
	subtotal := breakdown.SubtotalCents()

	var discount int64
	if req.PointsRedeemed > 0 {
		var err error
		discount, err = loyalty.Redeem(req.PointsRedeemed, customer.Points, p.cfg.PointValueCents)
		if err != nil {
			return nil, err
		}
		if discount > subtotal {
			return nil, fmt.Errorf("%w: discount exceeds subtotal", store.ErrInvalidTransaction)
		}
	}
	net := subtotal - discount

	payment := domain.Payment{Method: req.PaymentMethod}
	if req.PaymentMethod == domain.PayCash {
		if req.TenderedCents < net {
			return nil, fmt.Errorf("%w: tendered %d for total %d", ErrPaymentShort, req.TenderedCents, net)
		}
		payment.TenderedCents = req.TenderedCents
		payment.ChangeCents = req.TenderedCents - net
	}

	now := p.now().UTC()
	scope := now.Format("0601")
	maxSeq, err := p.repo.MaxInvoiceSeq(ctx, scope)
	if err != nil {
		return nil, err
	}
	seq := maxSeq + 1
	invoiceNo := fmt.Sprintf("INV-%s-%04d", scope, seq)

	pointsEarned := 0
	if customer != nil {
		pointsEarned = loyalty.PointsEarned(net)
	}

	sale := domain.SaleRecord{
		InvoiceNo:            invoiceNo,
		InvoiceScope:         scope,
		InvoiceSeq:           seq,
		Status:               domain.SaleStatusCommitted,
		CreatedAt:            now,
		TerminalID:           p.cfg.TerminalID,
		ShiftID:              shiftID,
		Lines:                saleLines,
		SubtotalCents:        subtotal,
		VatableSubtotalCents: breakdown.VatableSubtotalCents,
		ExemptSubtotalCents:  breakdown.ExemptSubtotalCents,
		VatAmountCents:       breakdown.VatAmountCents,
		VatRatePercent:       breakdown.RatePercent,
		DiscountCents:        discount,
		PointsRedeemed:       req.PointsRedeemed,
		PointsEarned:         pointsEarned,
		NetTotalCents:        net,
		Payment:              payment,
		QueueNumber:          req.QueueNumber,
	}
	if customer != nil {
		sale.CustomerID = customer.ID
	}

	// COMMITTED: apply stock, persist, record on shift. The ledger commit is
	// the point of no return; a persistence failure after it rolls the
	// deduction back before surfacing the error.
	if err := p.ledger.CommitAll(plans); err != nil {
		return nil, err
	}
	created, err := p.repo.CreateSale(ctx, sale)
	if err != nil {
		if rerr := p.ledger.ReverseAll(plans); rerr != nil {
			log.Printf("[sale] WARN: rollback after failed persist of %s: %v", invoiceNo, rerr)
		}
		return nil, err
	}
	if err := p.register.RecordSale(invoiceNo, net, req.PaymentMethod); err != nil {
		log.Printf("[sale] WARN: shift recording failed for %s: %v", invoiceNo, err)
	}
	p.persistBatches(ctx, plans)
	p.persistShift(ctx)

	// Post-commit side effects: loyalty mutation and receipt delivery. Their
	// failure never unwinds the sale.
	if customer != nil {
		if _, err := p.repo.UpdateCustomerLoyalty(ctx, customer.ID, pointsEarned-req.PointsRedeemed, net); err != nil {
			log.Printf("[sale] WARN: loyalty update failed for %s: %v", customer.ID, err)
		}
	}
	p.publishReceipt(ctx, *created)
	return created, nil
}

// takeAllocations slices qty units off a product plan's takes, resuming from
// the cursor left by earlier lines of the same product.
func takeAllocations(plan inventory.AllocationPlan, cursor map[string]int, qty int) []domain.BatchAllocation {
	var out []domain.BatchAllocation
	used := cursor[plan.ProductID]
	for _, take := range plan.Takes {
		if qty == 0 {
			break
		}
		if used >= take.Qty {
			used -= take.Qty
			continue
		}
		avail := take.Qty - used
		used = 0
		n := avail
		if n > qty {
			n = qty
		}
		out = append(out, domain.BatchAllocation{
			BatchID:       take.BatchID,
			LotNumber:     take.LotNumber,
			Qty:           n,
			UnitCostCents: take.UnitCostCents,
		})
		qty -= n
	}
	cursor[plan.ProductID] += totalAllocated(out)
	return out
}

func totalAllocated(allocs []domain.BatchAllocation) int {
	n := 0
	for _, a := range allocs {
		n += a.Qty
	}
	return n
}

// VoidSale reverses a committed sale in full: stock back to the same
// batches, an inverse shift entry, and the customer's points and spend
// restored. Only sales of the currently open shift can be voided.
func (p *Processor) VoidSale(ctx context.Context, invoiceNo string, req domain.VoidRequest) (*domain.SaleRecord, error) {
	if strings.TrimSpace(req.Reason) == "" {
		return nil, fmt.Errorf("%w: void reason required", store.ErrInvalidTransaction)
	}
	actor, _ := ActorFromContext(ctx)
	if actor.Role != "admin" && !p.validManagerPIN(req.ManagerPIN) {
		return nil, ErrManagerPinRequired
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	sale, err := p.repo.GetSale(ctx, invoiceNo)
	if err != nil {
		return nil, err
	}
	if sale.Status != domain.SaleStatusCommitted {
		return nil, fmt.Errorf("%w: sale %s is %s", store.ErrInvalidTransaction, invoiceNo, sale.Status)
	}
	shiftID, ok := p.register.ActiveID()
	if !ok {
		return nil, shift.ErrNoActiveShift
	}
	if sale.ShiftID != shiftID {
		return nil, ErrVoidDifferentShift
	}

	plans := plansFromSale(sale)
	if err := p.ledger.ReverseAll(plans); err != nil {
		return nil, err
	}
	if err := p.register.RecordVoid(invoiceNo, sale.NetTotalCents, sale.Payment.Method); err != nil {
		log.Printf("[sale] WARN: shift void recording failed for %s: %v", invoiceNo, err)
	}
	voided, err := p.repo.MarkSaleVoided(ctx, invoiceNo, strings.TrimSpace(req.Reason), p.now().UTC())
	if err != nil {
		return nil, err
	}
	p.persistBatches(ctx, plans)
	p.persistShift(ctx)

	if sale.CustomerID != "" {
		if _, err := p.repo.UpdateCustomerLoyalty(ctx, sale.CustomerID, sale.PointsRedeemed-sale.PointsEarned, -sale.NetTotalCents); err != nil {
			log.Printf("[sale] WARN: loyalty reversal failed for %s: %v", sale.CustomerID, err)
		}
	}
	p.publishReceipt(ctx, *voided)
	return voided, nil
}

func plansFromSale(sale *domain.SaleRecord) []inventory.AllocationPlan {
	byProduct := map[string]*inventory.AllocationPlan{}
	order := []string{}
	for _, ln := range sale.Lines {
		plan, ok := byProduct[ln.ProductID]
		if !ok {
			plan = &inventory.AllocationPlan{ProductID: ln.ProductID}
			byProduct[ln.ProductID] = plan
			order = append(order, ln.ProductID)
		}
		for _, a := range ln.Allocations {
			plan.Qty += a.Qty
			plan.Takes = append(plan.Takes, inventory.BatchTake{
				BatchID:       a.BatchID,
				LotNumber:     a.LotNumber,
				Qty:           a.Qty,
				UnitCostCents: a.UnitCostCents,
			})
		}
	}
	plans := make([]inventory.AllocationPlan, 0, len(order))
	for _, pid := range order {
		plans = append(plans, *byProduct[pid])
	}
	return plans
}

// persistBatches writes the post-commit state of every touched batch. The
// ledger remains the source of truth; persistence failures are warnings.
func (p *Processor) persistBatches(ctx context.Context, plans []inventory.AllocationPlan) {
	for _, plan := range plans {
		lots := p.ledger.Batches(plan.ProductID)
		present := map[string]bool{}
		for _, lot := range lots {
			present[lot.ID] = true
		}
		if err := p.repo.SaveBatches(ctx, lots); err != nil {
			log.Printf("[sale] WARN: failed to persist batches for %s: %v", plan.ProductID, err)
		}
		for _, take := range plan.Takes {
			if present[take.BatchID] {
				continue
			}
			if err := p.repo.DeleteBatch(ctx, take.BatchID); err != nil && !errors.Is(err, store.ErrNotFound) {
				log.Printf("[sale] WARN: failed to delete drained batch %s: %v", take.BatchID, err)
			}
		}
	}
}

func (p *Processor) persistShift(ctx context.Context) {
	if s, ok := p.register.Active(); ok {
		if _, err := p.repo.UpdateShift(ctx, *s); err != nil {
			log.Printf("[sale] WARN: failed to persist shift %s: %v", s.ID, err)
		}
	}
}

func (p *Processor) publishReceipt(ctx context.Context, sale domain.SaleRecord) {
	data := p.encoder.Encode(sale)
	if err := p.receipts.Set(ctx, sale.InvoiceNo, data, p.cfg.ReceiptTTL); err != nil {
		log.Printf("[sale] WARN: receipt cache set failed for %s: %v", sale.InvoiceNo, err)
	}
	if p.printer != nil {
		p.printer.Enqueue(sale.InvoiceNo, data)
	}
}

func (p *Processor) GetSale(ctx context.Context, invoiceNo string) (*domain.SaleRecord, error) {
	return p.repo.GetSale(ctx, invoiceNo)
}

// ReprintReceipt serves the cached stream when available and re-encodes from
// the stored sale otherwise.
func (p *Processor) ReprintReceipt(ctx context.Context, invoiceNo string) (domain.ReceiptReprintResponse, error) {
	if data, ok, err := p.receipts.Get(ctx, invoiceNo); err == nil && ok {
		return domain.ReceiptReprintResponse{
			InvoiceNo:    invoiceNo,
			EscposBase64: base64.StdEncoding.EncodeToString(data),
			Cached:       true,
		}, nil
	} else if err != nil {
		log.Printf("[sale] WARN: receipt cache get failed for %s: %v", invoiceNo, err)
	}

	sale, err := p.repo.GetSale(ctx, invoiceNo)
	if err != nil {
		return domain.ReceiptReprintResponse{}, err
	}
	data := p.encoder.Encode(*sale)
	if err := p.receipts.Set(ctx, invoiceNo, data, p.cfg.ReceiptTTL); err != nil {
		log.Printf("[sale] WARN: receipt cache set failed for %s: %v", invoiceNo, err)
	}
	return domain.ReceiptReprintResponse{
		InvoiceNo:    invoiceNo,
		EscposBase64: base64.StdEncoding.EncodeToString(data),
	}, nil
}

func (p *Processor) OpenCashDrawer(_ context.Context, terminalID string) domain.CashDrawerOpenResponse {
	terminalID = strings.TrimSpace(terminalID)
	if terminalID == "" {
		terminalID = p.cfg.TerminalID
	}
	return domain.CashDrawerOpenResponse{
		TerminalID:    terminalID,
		CommandBase64: base64.StdEncoding.EncodeToString(receipt.DrawerKick()),
	}
}

// EstimateGrossMargin applies the flat 60/40 cost heuristic used by the
// summary report. It is an estimate for dashboards only; real unit costs
// live on the batches and are captured per allocation at sale time.
func EstimateGrossMargin(netCents int64) (costCents, marginCents int64) {
	costCents = netCents * 60 / 100
	return costCents, netCents - costCents
}

func (p *Processor) DailySummary(ctx context.Context, date string) (domain.DailySummary, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return domain.DailySummary{}, fmt.Errorf("%w: bad date", store.ErrInvalidTransaction)
	}
	from := day
	to := day.Add(24 * time.Hour)
	sales, err := p.repo.ListSales(ctx, from, to, 0)
	if err != nil {
		return domain.DailySummary{}, err
	}

	summary := domain.DailySummary{Date: date}
	totals := map[domain.PaymentMethod]*domain.DailySummaryPayment{}
	for _, s := range sales {
		if s.Status != domain.SaleStatusCommitted {
			continue
		}
		summary.SaleCount++
		summary.GrossCents += s.SubtotalCents
		summary.VatCents += s.VatAmountCents
		summary.DiscountCents += s.DiscountCents
		summary.NetCents += s.NetTotalCents
		t, ok := totals[s.Payment.Method]
		if !ok {
			t = &domain.DailySummaryPayment{Method: s.Payment.Method}
			totals[s.Payment.Method] = t
		}
		t.Count++
		t.TotalCents += s.NetTotalCents
	}
	summary.EstimatedCostCents, summary.EstimatedMarginCents = EstimateGrossMargin(summary.NetCents)
	for _, m := range []domain.PaymentMethod{domain.PayCash, domain.PayQR, domain.PayCredit} {
		if t, ok := totals[m]; ok {
			summary.ByPayment = append(summary.ByPayment, *t)
		}
	}
	return summary, nil
}

// ExportSnapshot assembles the full-state backup document.
func (p *Processor) ExportSnapshot(ctx context.Context) (export.Snapshot, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return export.Snapshot{}, fmt.Errorf("admin role required")
	}

	products, err := p.repo.ListProducts(ctx, false)
	if err != nil {
		return export.Snapshot{}, err
	}
	customers, err := p.repo.ListCustomers(ctx, 0)
	if err != nil {
		return export.Snapshot{}, err
	}
	sales, err := p.repo.ListSales(ctx, time.Time{}, p.now().UTC().Add(time.Hour), 0)
	if err != nil {
		return export.Snapshot{}, err
	}
	shifts, err := p.repo.ListShifts(ctx, "", 0)
	if err != nil {
		return export.Snapshot{}, err
	}
	return export.Snapshot{
		Version:    export.SchemaVersion,
		ExportedAt: p.now().UTC(),
		Products:   products,
		Batches:    p.ledger.Snapshot(),
		Customers:  customers,
		Sales:      sales,
		Shifts:     shifts,
		Settings: export.Settings{
			Store:           p.cfg.Store,
			VatRatePercent:  p.cfg.VatRatePercent,
			PointValueCents: p.cfg.PointValueCents,
			TerminalID:      p.cfg.TerminalID,
		},
	}, nil
}

// ImportSnapshot restores catalogue, customers and stock from a backup.
// Existing rows with the same IDs are overwritten; sales history in the
// snapshot is restored only where the invoice is not already present.
func (p *Processor) ImportSnapshot(ctx context.Context, snap export.Snapshot) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return fmt.Errorf("admin role required")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, prod := range snap.Products {
		if _, err := p.repo.CreateProduct(ctx, prod); err != nil {
			if !errors.Is(err, store.ErrConflict) {
				return err
			}
			if _, err := p.repo.UpdateProduct(ctx, prod); err != nil {
				return err
			}
		}
	}
	for _, c := range snap.Customers {
		if _, err := p.repo.CreateCustomer(ctx, c); err != nil && !errors.Is(err, store.ErrConflict) {
			return err
		}
	}
	for _, s := range snap.Sales {
		if _, err := p.repo.CreateSale(ctx, s); err != nil && !errors.Is(err, store.ErrConflict) {
			return err
		}
	}
	p.ledger.Load(snap.Batches)
	if err := p.repo.SaveBatches(ctx, snap.Batches); err != nil {
		return err
	}
	log.Printf("[sale] restored snapshot: %d products, %d batches, %d customers, %d sales",
		len(snap.Products), len(snap.Batches), len(snap.Customers), len(snap.Sales))
	return nil
}
