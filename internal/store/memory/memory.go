package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Priew-rasri/Ncare-sub000/internal/domain"
	"github.com/Priew-rasri/Ncare-sub000/internal/store"
)

// Store is the in-memory repository used for dev/demo mode and tests. Every
// read hands out clones so callers can never mutate shared state through a
// returned pointer.
type Store struct {
	mu               sync.RWMutex
	products         map[string]domain.Product
	productByBarcode map[string]string
	batchesByID      map[string]domain.Batch
	customersByID    map[string]domain.Customer
	salesByInvoice   map[string]*domain.SaleRecord
	shiftsByID       map[string]domain.Shift
	activeShiftByTrm map[string]string
	usersByUsername  map[string]domain.UserAccount
}

func New() *Store {
	return &Store{
		products:         make(map[string]domain.Product),
		productByBarcode: make(map[string]string),
		batchesByID:      make(map[string]domain.Batch),
		customersByID:    make(map[string]domain.Customer),
		salesByInvoice:   make(map[string]*domain.SaleRecord),
		shiftsByID:       make(map[string]domain.Shift),
		activeShiftByTrm: make(map[string]string),
		usersByUsername:  seedUsers(),
	}
}

// seedUsers builds the initial user accounts for dev/demo mode. Credentials
// come from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD; unset variables
// fall back to hardcoded dev defaults with a warning. Production deployments
// run against PostgreSQL and never touch these.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"cashier", cashierPwd, "cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// NewSeeded returns a store preloaded with a small pharmacy catalogue and
// dated lots, enough to exercise checkout, FEFO picking and loyalty.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()
	day := func(s string) time.Time {
		t, _ := time.Parse("2006-01-02", s)
		return t
	}

	products := []domain.Product{
		{ID: "PARA-500", Barcode: "8850999320113", Name: "Paracetamol 500mg", GenericName: "paracetamol", Category: "analgesic", PriceCents: 3500, CostCents: 1500, ReorderLevel: 100, Unit: "tab", Active: true},
		{ID: "AMOX-500", Name: "Amoxicillin 500mg", GenericName: "amoxicillin", Category: "antibiotic", PriceCents: 12000, CostCents: 6200, ReorderLevel: 60, Unit: "cap", Active: true},
		{ID: "CETI-10", Name: "Cetirizine 10mg", GenericName: "cetirizine", Category: "antihistamine", PriceCents: 4500, CostCents: 1900, ReorderLevel: 80, Unit: "tab", Active: true},
		{ID: "ORS-SACHET", Name: "ORS Sachet", Category: "rehydration", PriceCents: 1500, CostCents: 600, ReorderLevel: 120, Unit: "sachet", Active: true},
		{ID: "GAUZE-10", Name: "Sterile Gauze 10x10", Category: "supplies", PriceCents: 3700, CostCents: 1800, ReorderLevel: 40, VatExempt: true, Unit: "pack", Active: true},
		{ID: "VITC-1000", Name: "Vitamin C 1000mg", Category: "supplement", PriceCents: 28500, CostCents: 14000, ReorderLevel: 30, Unit: "bottle", Active: true},
	}
	batches := []domain.Batch{
		{ID: "B-PARA-1", ProductID: "PARA-500", LotNumber: "PL2507", ExpiryDate: day("2027-07-01"), CostCents: 1500, Quantity: 400, ReceivedAt: now},
		{ID: "B-PARA-2", ProductID: "PARA-500", LotNumber: "PL2603", ExpiryDate: day("2028-03-01"), CostCents: 1550, Quantity: 600, ReceivedAt: now},
		{ID: "B-AMOX-1", ProductID: "AMOX-500", LotNumber: "AX2611", ExpiryDate: day("2026-11-15"), CostCents: 6200, Quantity: 180, ReceivedAt: now},
		{ID: "B-CETI-1", ProductID: "CETI-10", LotNumber: "CT2702", ExpiryDate: day("2027-02-01"), CostCents: 1900, Quantity: 250, ReceivedAt: now},
		{ID: "B-ORS-1", ProductID: "ORS-SACHET", LotNumber: "OR2609", ExpiryDate: day("2026-09-30"), CostCents: 600, Quantity: 500, ReceivedAt: now},
		{ID: "B-GAUZE-1", ProductID: "GAUZE-10", LotNumber: "GZ2812", ExpiryDate: day("2028-12-01"), CostCents: 1800, Quantity: 90, ReceivedAt: now},
		{ID: "B-VITC-1", ProductID: "VITC-1000", LotNumber: "VC2705", ExpiryDate: day("2027-05-01"), CostCents: 14000, Quantity: 60, ReceivedAt: now},
	}
	for _, p := range products {
		s.products[p.ID] = p
		if p.Barcode != "" {
			s.productByBarcode[p.Barcode] = p.ID
		}
	}
	for _, b := range batches {
		s.batchesByID[b.ID] = b
	}
	s.customersByID["cust-somsri"] = domain.Customer{
		ID: "cust-somsri", Name: "Somsri J.", Phone: "0812345678",
		Points: 120, LifetimeSpendCents: 612000, CreatedAt: now,
	}
	return s
}

func (s *Store) ListProducts(_ context.Context, activeOnly bool) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if activeOnly && !p.Active {
			continue
		}
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category != b.Category {
			return strings.Compare(a.Category, b.Category)
		}
		return strings.Compare(a.Name, b.Name)
	})
	return products, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Store) GetProductByBarcode(_ context.Context, barcode string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.productByBarcode[barcode]
	if !ok {
		return nil, store.ErrNotFound
	}
	p := s.products[id]
	return &p, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[product.ID]; exists {
		return nil, store.ErrConflict
	}
	if product.Barcode != "" {
		if _, exists := s.productByBarcode[product.Barcode]; exists {
			return nil, store.ErrConflict
		}
		s.productByBarcode[product.Barcode] = product.ID
	}
	s.products[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.products[product.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if old.Barcode != product.Barcode {
		delete(s.productByBarcode, old.Barcode)
		if product.Barcode != "" {
			s.productByBarcode[product.Barcode] = product.ID
		}
	}
	s.products[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) ListBatches(_ context.Context, productID string) ([]domain.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Batch
	for _, b := range s.batchesByID {
		if b.ProductID == productID {
			out = append(out, b)
		}
	}
	slices.SortFunc(out, compareBatch)
	return out, nil
}

func (s *Store) ListAllBatches(_ context.Context) ([]domain.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Batch, 0, len(s.batchesByID))
	for _, b := range s.batchesByID {
		out = append(out, b)
	}
	slices.SortFunc(out, compareBatch)
	return out, nil
}

func compareBatch(a, b domain.Batch) int {
	if a.ProductID != b.ProductID {
		return strings.Compare(a.ProductID, b.ProductID)
	}
	if !a.ExpiryDate.Equal(b.ExpiryDate) {
		if a.ExpiryDate.Before(b.ExpiryDate) {
			return -1
		}
		return 1
	}
	return strings.Compare(a.ID, b.ID)
}

func (s *Store) SaveBatch(_ context.Context, batch domain.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batchesByID[batch.ID] = batch
	return nil
}

func (s *Store) SaveBatches(_ context.Context, batches []domain.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range batches {
		s.batchesByID[b.ID] = b
	}
	return nil
}

func (s *Store) DeleteBatch(_ context.Context, batchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.batchesByID[batchID]; !ok {
		return store.ErrNotFound
	}
	delete(s.batchesByID, batchID)
	return nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.customersByID[customer.ID]; exists {
		return nil, store.ErrConflict
	}
	s.customersByID[customer.ID] = customer
	created := customer
	return &created, nil
}

func (s *Store) GetCustomer(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customersByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (s *Store) GetCustomerByPhone(_ context.Context, phone string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.customersByID {
		if c.Phone == phone {
			found := c
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListCustomers(_ context.Context, limit int) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Customer, 0, len(s.customersByID))
	for _, c := range s.customersByID {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b domain.Customer) int {
		return strings.Compare(a.Name, b.Name)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) UpdateCustomerLoyalty(_ context.Context, id string, pointsDelta int, spendDeltaCents int64) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customersByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c.Points += pointsDelta
	c.LifetimeSpendCents += spendDeltaCents
	s.customersByID[id] = c
	updated := c
	return &updated, nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.SaleRecord) (*domain.SaleRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.salesByInvoice[sale.InvoiceNo]; exists {
		return nil, store.ErrConflict
	}
	s.salesByInvoice[sale.InvoiceNo] = cloneSale(&sale)
	return cloneSale(&sale), nil
}

func (s *Store) GetSale(_ context.Context, invoiceNo string) (*domain.SaleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.salesByInvoice[invoiceNo]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneSale(sale), nil
}

func (s *Store) ListSales(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.SaleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.SaleRecord
	for _, sale := range s.salesByInvoice {
		if sale.CreatedAt.Before(from) || !sale.CreatedAt.Before(to) {
			continue
		}
		out = append(out, *cloneSale(sale))
	}
	slices.SortFunc(out, func(a, b domain.SaleRecord) int {
		return strings.Compare(a.InvoiceNo, b.InvoiceNo)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) MarkSaleVoided(_ context.Context, invoiceNo string, reason string, at time.Time) (*domain.SaleRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.salesByInvoice[invoiceNo]
	if !ok {
		return nil, store.ErrNotFound
	}
	if sale.Status != domain.SaleStatusCommitted {
		return nil, store.ErrInvalidTransaction
	}
	sale.Status = domain.SaleStatusVoided
	sale.VoidReason = reason
	voidedAt := at
	sale.VoidedAt = &voidedAt
	return cloneSale(sale), nil
}

func (s *Store) MaxInvoiceSeq(_ context.Context, scope string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	maxSeq := 0
	for _, sale := range s.salesByInvoice {
		if sale.InvoiceScope == scope && sale.InvoiceSeq > maxSeq {
			maxSeq = sale.InvoiceSeq
		}
	}
	return maxSeq, nil
}

func (s *Store) CreateShift(_ context.Context, shift domain.Shift) (*domain.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if activeID, ok := s.activeShiftByTrm[shift.TerminalID]; ok && activeID != "" {
		return nil, store.ErrConflict
	}
	s.shiftsByID[shift.ID] = cloneShift(shift)
	if shift.Status == domain.ShiftStatusOpen {
		s.activeShiftByTrm[shift.TerminalID] = shift.ID
	}
	created := cloneShift(shift)
	return &created, nil
}

func (s *Store) UpdateShift(_ context.Context, shift domain.Shift) (*domain.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.shiftsByID[shift.ID]; !ok {
		return nil, store.ErrNotFound
	}
	s.shiftsByID[shift.ID] = cloneShift(shift)
	if shift.Status != domain.ShiftStatusOpen && s.activeShiftByTrm[shift.TerminalID] == shift.ID {
		delete(s.activeShiftByTrm, shift.TerminalID)
	}
	updated := cloneShift(shift)
	return &updated, nil
}

func (s *Store) GetShift(_ context.Context, id string) (*domain.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shift, ok := s.shiftsByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := cloneShift(shift)
	return &found, nil
}

func (s *Store) GetActiveShift(_ context.Context, terminalID string) (*domain.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.activeShiftByTrm[terminalID]
	if !ok {
		return nil, store.ErrNotFound
	}
	shift := cloneShift(s.shiftsByID[id])
	return &shift, nil
}

func (s *Store) ListShifts(_ context.Context, terminalID string, limit int) ([]domain.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Shift
	for _, shift := range s.shiftsByID {
		if terminalID != "" && shift.TerminalID != terminalID {
			continue
		}
		out = append(out, cloneShift(shift))
	}
	slices.SortFunc(out, func(a, b domain.Shift) int {
		return b.OpenedAt.Compare(a.OpenedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByUsername[user.Username]; exists {
		return store.ErrConflict
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) GetUser(_ context.Context, username string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.usersByUsername[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, u := range s.usersByUsername {
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.usersByUsername[username]
	if !ok {
		return store.ErrNotFound
	}
	u.Password = password
	s.usersByUsername[username] = u
	return nil
}

func cloneSale(src *domain.SaleRecord) *domain.SaleRecord {
	clone := *src
	clone.Lines = make([]domain.SaleLine, len(src.Lines))
	for i, ln := range src.Lines {
		lnCopy := ln
		lnCopy.Allocations = append([]domain.BatchAllocation(nil), ln.Allocations...)
		clone.Lines[i] = lnCopy
	}
	if src.VoidedAt != nil {
		at := *src.VoidedAt
		clone.VoidedAt = &at
	}
	return &clone
}

func cloneShift(src domain.Shift) domain.Shift {
	clone := src
	clone.Entries = append([]domain.ShiftEntry(nil), src.Entries...)
	if src.ClosedAt != nil {
		at := *src.ClosedAt
		clone.ClosedAt = &at
	}
	return clone
}
