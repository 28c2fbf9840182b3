package store

import (
	"context"
	"errors"
	"time"

	"github.com/Priew-rasri/Ncare-sub000/internal/domain"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrInvalidTransaction = errors.New("invalid transaction")
)

// Repository persists durable state. The live engines (inventory ledger,
// shift register) own the hot in-memory state; the repository is their
// write-behind plus the read path for history and reporting.
type Repository interface {
	ListProducts(ctx context.Context, activeOnly bool) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	GetProductByBarcode(ctx context.Context, barcode string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)

	ListBatches(ctx context.Context, productID string) ([]domain.Batch, error)
	ListAllBatches(ctx context.Context) ([]domain.Batch, error)
	SaveBatch(ctx context.Context, batch domain.Batch) error
	SaveBatches(ctx context.Context, batches []domain.Batch) error
	DeleteBatch(ctx context.Context, batchID string) error

	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	GetCustomerByPhone(ctx context.Context, phone string) (*domain.Customer, error)
	ListCustomers(ctx context.Context, limit int) ([]domain.Customer, error)
	UpdateCustomerLoyalty(ctx context.Context, id string, pointsDelta int, spendDeltaCents int64) (*domain.Customer, error)

	CreateSale(ctx context.Context, sale domain.SaleRecord) (*domain.SaleRecord, error)
	GetSale(ctx context.Context, invoiceNo string) (*domain.SaleRecord, error)
	ListSales(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.SaleRecord, error)
	MarkSaleVoided(ctx context.Context, invoiceNo string, reason string, at time.Time) (*domain.SaleRecord, error)
	MaxInvoiceSeq(ctx context.Context, scope string) (int, error)

	CreateShift(ctx context.Context, shift domain.Shift) (*domain.Shift, error)
	UpdateShift(ctx context.Context, shift domain.Shift) (*domain.Shift, error)
	GetShift(ctx context.Context, id string) (*domain.Shift, error)
	GetActiveShift(ctx context.Context, terminalID string) (*domain.Shift, error)
	ListShifts(ctx context.Context, terminalID string, limit int) ([]domain.Shift, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	GetUser(ctx context.Context, username string) (*domain.UserAccount, error)
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
