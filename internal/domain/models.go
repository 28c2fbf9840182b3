package domain

import "time"

// All monetary amounts are stored in satang (1/100 THB) as int64. Display
// formatting divides by 100; rounding happens exactly once, at the point a
// derived amount is computed.

type Product struct {
	ID           string `json:"id"`
	Barcode      string `json:"barcode,omitempty"`
	Name         string `json:"name"`
	GenericName  string `json:"generic_name,omitempty"`
	Category     string `json:"category"`
	PriceCents   int64  `json:"price_cents"`
	CostCents    int64  `json:"cost_cents"`
	ReorderLevel int    `json:"reorder_level"`
	VatExempt    bool   `json:"vat_exempt"`
	Unit         string `json:"unit"`
	Active       bool   `json:"active"`
}

type ProductCreateRequest struct {
	Barcode      string `json:"barcode,omitempty"`
	Name         string `json:"name"`
	GenericName  string `json:"generic_name,omitempty"`
	Category     string `json:"category"`
	PriceCents   int64  `json:"price_cents"`
	CostCents    int64  `json:"cost_cents"`
	ReorderLevel int    `json:"reorder_level"`
	VatExempt    bool   `json:"vat_exempt"`
	Unit         string `json:"unit"`
}

type ProductUpdateRequest struct {
	Name         *string `json:"name,omitempty"`
	GenericName  *string `json:"generic_name,omitempty"`
	Category     *string `json:"category,omitempty"`
	PriceCents   *int64  `json:"price_cents,omitempty"`
	CostCents    *int64  `json:"cost_cents,omitempty"`
	ReorderLevel *int    `json:"reorder_level,omitempty"`
	VatExempt    *bool   `json:"vat_exempt,omitempty"`
	Active       *bool   `json:"active,omitempty"`
}

// Batch is one received lot of a product. A batch belongs to exactly one
// product and is mutated only by the inventory ledger. Product stock is never
// stored separately: it is always the sum of its batches' quantities.
type Batch struct {
	ID         string    `json:"id"`
	ProductID  string    `json:"product_id"`
	LotNumber  string    `json:"lot_number"`
	ExpiryDate time.Time `json:"expiry_date"`
	CostCents  int64     `json:"cost_cents"`
	Quantity   int       `json:"quantity"`
	ReceivedAt time.Time `json:"received_at"`
}

type BatchReceiveRequest struct {
	ProductID  string `json:"product_id"`
	LotNumber  string `json:"lot_number"`
	ExpiryDate string `json:"expiry_date"`
	CostCents  int64  `json:"cost_cents"`
	Quantity   int    `json:"quantity"`
}

type PaymentMethod string

const (
	PayCash   PaymentMethod = "cash"
	PayQR     PaymentMethod = "qr"
	PayCredit PaymentMethod = "credit"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PayCash, PayQR, PayCredit:
		return true
	default:
		return false
	}
}

// Payment carries tendered/change only for cash; the constructors in the sale
// package are the only places that populate those fields.
type Payment struct {
	Method        PaymentMethod `json:"method"`
	TenderedCents int64         `json:"tendered_cents,omitempty"`
	ChangeCents   int64         `json:"change_cents,omitempty"`
}

// BatchAllocation records which lot a sale line was taken from, so a void can
// return stock to the exact same batches.
type BatchAllocation struct {
	BatchID       string `json:"batch_id"`
	LotNumber     string `json:"lot_number"`
	Qty           int    `json:"qty"`
	UnitCostCents int64  `json:"unit_cost_cents"`
}

type SaleLine struct {
	ProductID      string            `json:"product_id"`
	Name           string            `json:"name"`
	Qty            int               `json:"qty"`
	UnitPriceCents int64             `json:"unit_price_cents"`
	LineTotalCents int64             `json:"line_total_cents"`
	VatExempt      bool              `json:"vat_exempt"`
	Instruction    string            `json:"instruction,omitempty"`
	Allocations    []BatchAllocation `json:"allocations,omitempty"`
}

const (
	SaleStatusCommitted = "committed"
	SaleStatusVoided    = "voided"
)

// SaleRecord is immutable once committed; a void marks it and reverses its
// effects but never edits the financial fields.
type SaleRecord struct {
	InvoiceNo            string     `json:"invoice_no"`
	InvoiceScope         string     `json:"invoice_scope"`
	InvoiceSeq           int        `json:"invoice_seq"`
	Status               string     `json:"status"`
	CreatedAt            time.Time  `json:"created_at"`
	TerminalID           string     `json:"terminal_id"`
	ShiftID              string     `json:"shift_id"`
	CustomerID           string     `json:"customer_id,omitempty"`
	Lines                []SaleLine `json:"lines"`
	SubtotalCents        int64      `json:"subtotal_cents"`
	VatableSubtotalCents int64      `json:"vatable_subtotal_cents"`
	ExemptSubtotalCents  int64      `json:"exempt_subtotal_cents"`
	VatAmountCents       int64      `json:"vat_amount_cents"`
	VatRatePercent       int        `json:"vat_rate_percent"`
	DiscountCents        int64      `json:"discount_cents"`
	PointsRedeemed       int        `json:"points_redeemed"`
	PointsEarned         int        `json:"points_earned"`
	NetTotalCents        int64      `json:"net_total_cents"`
	Payment              Payment    `json:"payment"`
	QueueNumber          int        `json:"queue_number,omitempty"`
	VoidReason           string     `json:"void_reason,omitempty"`
	VoidedAt             *time.Time `json:"voided_at,omitempty"`
}

type Customer struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Phone              string    `json:"phone,omitempty"`
	Points             int       `json:"points"`
	LifetimeSpendCents int64     `json:"lifetime_spend_cents"`
	CreatedAt          time.Time `json:"created_at"`
}

type CustomerCreateRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

const (
	ShiftStatusOpen   = "open"
	ShiftStatusClosed = "closed"
)

type ShiftEntryKind string

const (
	ShiftEntrySale ShiftEntryKind = "sale"
	ShiftEntryVoid ShiftEntryKind = "void"
)

// ShiftEntry is an append-only record of one cash-affecting transaction.
// Entries are never edited: a void appends an inverse entry.
type ShiftEntry struct {
	At          time.Time      `json:"at"`
	InvoiceNo   string         `json:"invoice_no"`
	AmountCents int64          `json:"amount_cents"`
	Method      PaymentMethod  `json:"method"`
	Kind        ShiftEntryKind `json:"kind"`
}

type Shift struct {
	ID               string       `json:"id"`
	TerminalID       string       `json:"terminal_id"`
	CashierName      string       `json:"cashier_name"`
	OpeningCashCents int64        `json:"opening_cash_cents"`
	TotalSalesCents  int64        `json:"total_sales_cents"`
	CashSalesCents   int64        `json:"cash_sales_cents"`
	QRSalesCents     int64        `json:"qr_sales_cents"`
	CreditSalesCents int64        `json:"credit_sales_cents"`
	CashRefundCents  int64        `json:"cash_refund_cents"`
	Status           string       `json:"status"`
	OpenedAt         time.Time    `json:"opened_at"`
	ClosedAt         *time.Time   `json:"closed_at,omitempty"`
	Entries          []ShiftEntry `json:"entries,omitempty"`
}

// ShiftReconciliation is the closing snapshot: expected cash against counted.
type ShiftReconciliation struct {
	ShiftID           string `json:"shift_id"`
	ExpectedCashCents int64  `json:"expected_cash_cents"`
	CountedCashCents  int64  `json:"counted_cash_cents"`
	VarianceCents     int64  `json:"variance_cents"`
	TotalSalesCents   int64  `json:"total_sales_cents"`
	CashSalesCents    int64  `json:"cash_sales_cents"`
	QRSalesCents      int64  `json:"qr_sales_cents"`
	CreditSalesCents  int64  `json:"credit_sales_cents"`
}

type ShiftOpenRequest struct {
	TerminalID       string `json:"terminal_id"`
	CashierName      string `json:"cashier_name"`
	OpeningCashCents int64  `json:"opening_cash_cents"`
}

type ShiftCloseRequest struct {
	CountedCashCents int64 `json:"counted_cash_cents"`
}

type CheckoutLineRequest struct {
	ProductID   string `json:"product_id,omitempty"`
	Barcode     string `json:"barcode,omitempty"`
	Qty         int    `json:"qty"`
	Instruction string `json:"instruction,omitempty"`
}

type CheckoutRequest struct {
	CustomerID     string                `json:"customer_id,omitempty"`
	PaymentMethod  PaymentMethod         `json:"payment_method"`
	TenderedCents  int64                 `json:"tendered_cents,omitempty"`
	PointsRedeemed int                   `json:"points_redeemed,omitempty"`
	QueueNumber    int                   `json:"queue_number,omitempty"`
	Lines          []CheckoutLineRequest `json:"lines"`
}

type VoidRequest struct {
	Reason     string `json:"reason"`
	ManagerPIN string `json:"manager_pin"`
}

type DailySummaryPayment struct {
	Method     PaymentMethod `json:"method"`
	Count      int           `json:"count"`
	TotalCents int64         `json:"total_cents"`
}

type DailySummary struct {
	Date                 string                `json:"date"`
	SaleCount            int                   `json:"sale_count"`
	GrossCents           int64                 `json:"gross_cents"`
	VatCents             int64                 `json:"vat_cents"`
	DiscountCents        int64                 `json:"discount_cents"`
	NetCents             int64                 `json:"net_cents"`
	EstimatedCostCents   int64                 `json:"estimated_cost_cents"`
	EstimatedMarginCents int64                 `json:"estimated_margin_cents"`
	ByPayment            []DailySummaryPayment `json:"by_payment"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

// Actor is the authenticated caller, extracted from the access token.
type Actor struct {
	Username string
	Role     string
}

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is the persistence model for auth credentials. Password holds a
// bcrypt hash at rest; plaintext only transits seed data.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type ReceiptReprintResponse struct {
	InvoiceNo    string `json:"invoice_no"`
	EscposBase64 string `json:"escpos_base64"`
	Cached       bool   `json:"cached"`
}

type CashDrawerOpenResponse struct {
	TerminalID    string `json:"terminal_id"`
	CommandBase64 string `json:"command_base64"`
}

// StoreProfile is the header block printed on every receipt.
type StoreProfile struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	TaxID   string `json:"tax_id"`
	Footer  string `json:"footer"`
}
