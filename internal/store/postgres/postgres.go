package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Priew-rasri/Ncare-sub000/internal/domain"
	"github.com/Priew-rasri/Ncare-sub000/internal/store"
	"github.com/Priew-rasri/Ncare-sub000/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListProducts(ctx context.Context, activeOnly bool) ([]domain.Product, error) {
	query := `
		SELECT id, barcode, generic_name, name, category, price_cents, cost_cents, reorder_level, vat_exempt, unit, active
		FROM products
		ORDER BY category, name
	`
	if activeOnly {
		query = `
			SELECT id, barcode, generic_name, name, category, price_cents, cost_cents, reorder_level, vat_exempt, unit, active
			FROM products
			WHERE active = true
			ORDER BY category, name
		`
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, barcode, generic_name, name, category, price_cents, cost_cents, reorder_level, vat_exempt, unit, active
		FROM products
		WHERE id = $1
	`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetProductByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, barcode, generic_name, name, category, price_cents, cost_cents, reorder_level, vat_exempt, unit, active
		FROM products
		WHERE barcode = $1
	`, barcode)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.Category == "" || product.PriceCents < 1 {
		return nil, store.ErrInvalidTransaction
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, barcode, generic_name, name, category, price_cents, cost_cents, reorder_level, vat_exempt, unit, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,now(),now())
	`, product.ID, nullIfEmpty(product.Barcode), nullIfEmpty(product.GenericName), product.Name, product.Category,
		product.PriceCents, product.CostCents, product.ReorderLevel, product.VatExempt, product.Unit, product.Active)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.Category == "" || product.PriceCents < 1 {
		return nil, store.ErrInvalidTransaction
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET barcode = $2, generic_name = $3, name = $4, category = $5, price_cents = $6,
		    cost_cents = $7, reorder_level = $8, vat_exempt = $9, unit = $10, active = $11, updated_at = now()
		WHERE id = $1
	`, product.ID, nullIfEmpty(product.Barcode), nullIfEmpty(product.GenericName), product.Name, product.Category,
		product.PriceCents, product.CostCents, product.ReorderLevel, product.VatExempt, product.Unit, product.Active)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	updated := product
	return &updated, nil
}

func (s *Store) ListBatches(ctx context.Context, productID string) ([]domain.Batch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, lot_number, expiry_date, cost_cents, quantity, received_at
		FROM batches
		WHERE product_id = $1
		ORDER BY expiry_date, id
	`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectBatches(rows)
}

func (s *Store) ListAllBatches(ctx context.Context) ([]domain.Batch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, lot_number, expiry_date, cost_cents, quantity, received_at
		FROM batches
		ORDER BY product_id, expiry_date, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectBatches(rows)
}

func (s *Store) SaveBatch(ctx context.Context, batch domain.Batch) error {
	if batch.ID == "" || batch.ProductID == "" || batch.Quantity < 0 {
		return store.ErrInvalidTransaction
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO batches (id, product_id, lot_number, expiry_date, cost_cents, quantity, received_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE
		SET quantity = EXCLUDED.quantity, cost_cents = EXCLUDED.cost_cents
	`, batch.ID, batch.ProductID, batch.LotNumber, nowDateUTC(batch.ExpiryDate), batch.CostCents, batch.Quantity, batch.ReceivedAt)
	return err
}

func (s *Store) SaveBatches(ctx context.Context, batches []domain.Batch) error {
	if len(batches) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, batch := range batches {
		if batch.ID == "" || batch.ProductID == "" || batch.Quantity < 0 {
			return store.ErrInvalidTransaction
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO batches (id, product_id, lot_number, expiry_date, cost_cents, quantity, received_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			ON CONFLICT (id) DO UPDATE
			SET quantity = EXCLUDED.quantity, cost_cents = EXCLUDED.cost_cents
		`, batch.ID, batch.ProductID, batch.LotNumber, nowDateUTC(batch.ExpiryDate), batch.CostCents, batch.Quantity, batch.ReceivedAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *Store) DeleteBatch(ctx context.Context, batchID string) error {
	if batchID == "" {
		return store.ErrInvalidTransaction
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM batches WHERE id = $1`, batchID)
	return err
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.Name == "" {
		return nil, store.ErrInvalidTransaction
	}
	if customer.ID == "" {
		customer.ID = xid.New("cust")
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, phone, points, lifetime_spend_cents, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, customer.ID, customer.Name, nullIfEmpty(customer.Phone), customer.Points, customer.LifetimeSpendCents, customer.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	created := customer
	return &created, nil
}

func (s *Store) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, phone, points, lifetime_spend_cents, created_at
		FROM customers
		WHERE id = $1
	`, id)
	return scanCustomer(row)
}

func (s *Store) GetCustomerByPhone(ctx context.Context, phone string) (*domain.Customer, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, phone, points, lifetime_spend_cents, created_at
		FROM customers
		WHERE phone = $1
	`, phone)
	return scanCustomer(row)
}

func (s *Store) ListCustomers(ctx context.Context, limit int) ([]domain.Customer, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, phone, points, lifetime_spend_cents, created_at
		FROM customers
		ORDER BY name
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, limit)
	for rows.Next() {
		var c domain.Customer
		var phone sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &phone, &c.Points, &c.LifetimeSpendCents, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Phone = phone.String
		c.CreatedAt = c.CreatedAt.UTC()
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

// UpdateCustomerLoyalty applies deltas atomically; points are clamped at zero
// so a reversal can never drive the balance negative.
func (s *Store) UpdateCustomerLoyalty(ctx context.Context, id string, pointsDelta int, spendDeltaCents int64) (*domain.Customer, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE customers
		SET points = GREATEST(points + $2, 0),
		    lifetime_spend_cents = GREATEST(lifetime_spend_cents + $3, 0)
		WHERE id = $1
		RETURNING id, name, phone, points, lifetime_spend_cents, created_at
	`, id, pointsDelta, spendDeltaCents)
	return scanCustomer(row)
}

func (s *Store) CreateSale(ctx context.Context, sale domain.SaleRecord) (*domain.SaleRecord, error) {
	if sale.InvoiceNo == "" || len(sale.Lines) == 0 {
		return nil, store.ErrInvalidTransaction
	}

	linesJSON, err := json.Marshal(sale.Lines)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sales (
			invoice_no, invoice_scope, invoice_seq, status, created_at, terminal_id, shift_id, customer_id,
			lines, subtotal_cents, vatable_subtotal_cents, exempt_subtotal_cents, vat_amount_cents, vat_rate_percent,
			discount_cents, points_redeemed, points_earned, net_total_cents,
			payment_method, tendered_cents, change_cents, queue_number, void_reason, voided_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)
	`, sale.InvoiceNo, sale.InvoiceScope, sale.InvoiceSeq, sale.Status, sale.CreatedAt, sale.TerminalID,
		sale.ShiftID, nullIfEmpty(sale.CustomerID), linesJSON,
		sale.SubtotalCents, sale.VatableSubtotalCents, sale.ExemptSubtotalCents, sale.VatAmountCents, sale.VatRatePercent,
		sale.DiscountCents, sale.PointsRedeemed, sale.PointsEarned, sale.NetTotalCents,
		string(sale.Payment.Method), sale.Payment.TenderedCents, sale.Payment.ChangeCents,
		sale.QueueNumber, nullIfEmpty(sale.VoidReason), nullTime(sale.VoidedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	created := sale
	return &created, nil
}

func (s *Store) GetSale(ctx context.Context, invoiceNo string) (*domain.SaleRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT invoice_no, invoice_scope, invoice_seq, status, created_at, terminal_id, shift_id, customer_id,
		       lines, subtotal_cents, vatable_subtotal_cents, exempt_subtotal_cents, vat_amount_cents, vat_rate_percent,
		       discount_cents, points_redeemed, points_earned, net_total_cents,
		       payment_method, tendered_cents, change_cents, queue_number, void_reason, voided_at
		FROM sales
		WHERE invoice_no = $1
	`, invoiceNo)
	sale, err := scanSale(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return sale, nil
}

func (s *Store) ListSales(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.SaleRecord, error) {
	if limit < 1 {
		limit = 500
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT invoice_no, invoice_scope, invoice_seq, status, created_at, terminal_id, shift_id, customer_id,
		       lines, subtotal_cents, vatable_subtotal_cents, exempt_subtotal_cents, vat_amount_cents, vat_rate_percent,
		       discount_cents, points_redeemed, points_earned, net_total_cents,
		       payment_method, tendered_cents, change_cents, queue_number, void_reason, voided_at
		FROM sales
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.SaleRecord, 0, limit)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, *sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) MarkSaleVoided(ctx context.Context, invoiceNo string, reason string, at time.Time) (*domain.SaleRecord, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sales
		SET status = $2, void_reason = $3, voided_at = $4
		WHERE invoice_no = $1 AND status = $5
	`, invoiceNo, domain.SaleStatusVoided, reason, at, domain.SaleStatusCommitted)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// Either missing or already voided; re-read to tell them apart.
		existing, lookupErr := s.GetSale(ctx, invoiceNo)
		if lookupErr != nil {
			return nil, lookupErr
		}
		return nil, errors.Join(store.ErrInvalidTransaction, errors.New("sale "+existing.InvoiceNo+" is "+existing.Status))
	}

	return s.GetSale(ctx, invoiceNo)
}

func (s *Store) MaxInvoiceSeq(ctx context.Context, scope string) (int, error) {
	var max sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(invoice_seq)
		FROM sales
		WHERE invoice_scope = $1
	`, scope).Scan(&max)
	if err != nil {
		return 0, err
	}
	return int(max.Int64), nil
}

func (s *Store) CreateShift(ctx context.Context, shift domain.Shift) (*domain.Shift, error) {
	if shift.ID == "" || shift.TerminalID == "" {
		return nil, store.ErrInvalidTransaction
	}

	if shift.Status == domain.ShiftStatusOpen {
		var existing string
		err := s.db.QueryRowContext(ctx, `
			SELECT id FROM shifts
			WHERE terminal_id = $1 AND status = $2
		`, shift.TerminalID, domain.ShiftStatusOpen).Scan(&existing)
		if err == nil {
			return nil, store.ErrConflict
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
	}

	entriesJSON, err := json.Marshal(shift.Entries)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO shifts (
			id, terminal_id, cashier_name, opening_cash_cents,
			total_sales_cents, cash_sales_cents, qr_sales_cents, credit_sales_cents, cash_refund_cents,
			status, opened_at, closed_at, entries
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, shift.ID, shift.TerminalID, shift.CashierName, shift.OpeningCashCents,
		shift.TotalSalesCents, shift.CashSalesCents, shift.QRSalesCents, shift.CreditSalesCents, shift.CashRefundCents,
		shift.Status, shift.OpenedAt, nullTime(shift.ClosedAt), entriesJSON)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	saved := shift
	return &saved, nil
}

func (s *Store) UpdateShift(ctx context.Context, shift domain.Shift) (*domain.Shift, error) {
	if shift.ID == "" {
		return nil, store.ErrInvalidTransaction
	}

	entriesJSON, err := json.Marshal(shift.Entries)
	if err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE shifts
		SET total_sales_cents = $2, cash_sales_cents = $3, qr_sales_cents = $4, credit_sales_cents = $5,
		    cash_refund_cents = $6, status = $7, closed_at = $8, entries = $9
		WHERE id = $1
	`, shift.ID, shift.TotalSalesCents, shift.CashSalesCents, shift.QRSalesCents, shift.CreditSalesCents,
		shift.CashRefundCents, shift.Status, nullTime(shift.ClosedAt), entriesJSON)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	saved := shift
	return &saved, nil
}

func (s *Store) GetShift(ctx context.Context, id string) (*domain.Shift, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, terminal_id, cashier_name, opening_cash_cents,
		       total_sales_cents, cash_sales_cents, qr_sales_cents, credit_sales_cents, cash_refund_cents,
		       status, opened_at, closed_at, entries
		FROM shifts
		WHERE id = $1
	`, id)
	shift, err := scanShift(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return shift, nil
}

func (s *Store) GetActiveShift(ctx context.Context, terminalID string) (*domain.Shift, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, terminal_id, cashier_name, opening_cash_cents,
		       total_sales_cents, cash_sales_cents, qr_sales_cents, credit_sales_cents, cash_refund_cents,
		       status, opened_at, closed_at, entries
		FROM shifts
		WHERE terminal_id = $1 AND status = $2
	`, terminalID, domain.ShiftStatusOpen)
	shift, err := scanShift(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return shift, nil
}

// ListShifts with an empty terminalID spans all terminals (used by the
// backup export).
func (s *Store) ListShifts(ctx context.Context, terminalID string, limit int) ([]domain.Shift, error) {
	if limit < 1 {
		limit = 500
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, terminal_id, cashier_name, opening_cash_cents,
		       total_sales_cents, cash_sales_cents, qr_sales_cents, credit_sales_cents, cash_refund_cents,
		       status, opened_at, closed_at, entries
		FROM shifts
		WHERE ($1 = '' OR terminal_id = $1)
		ORDER BY opened_at DESC
		LIMIT $2
	`, terminalID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shifts := make([]domain.Shift, 0, limit)
	for rows.Next() {
		shift, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, *shift)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return shifts, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || user.Password == "" || user.Role == "" {
		return store.ErrInvalidTransaction
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, username string) (*domain.UserAccount, error) {
	username = strings.ToLower(strings.TrimSpace(username))

	var user domain.UserAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM app_users
		WHERE username = $1
	`, username).Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM app_users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidTransaction
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var p domain.Product
	var barcode, generic sql.NullString
	err := row.Scan(&p.ID, &barcode, &generic, &p.Name, &p.Category, &p.PriceCents, &p.CostCents,
		&p.ReorderLevel, &p.VatExempt, &p.Unit, &p.Active)
	if err != nil {
		return domain.Product{}, err
	}
	p.Barcode = barcode.String
	p.GenericName = generic.String
	return p, nil
}

func scanCustomer(row rowScanner) (*domain.Customer, error) {
	var c domain.Customer
	var phone sql.NullString
	err := row.Scan(&c.ID, &c.Name, &phone, &c.Points, &c.LifetimeSpendCents, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	c.Phone = phone.String
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

func scanSale(row rowScanner) (*domain.SaleRecord, error) {
	var sale domain.SaleRecord
	var customerID, voidReason, method sql.NullString
	var voidedAt sql.NullTime
	var linesJSON []byte

	err := row.Scan(&sale.InvoiceNo, &sale.InvoiceScope, &sale.InvoiceSeq, &sale.Status, &sale.CreatedAt,
		&sale.TerminalID, &sale.ShiftID, &customerID, &linesJSON,
		&sale.SubtotalCents, &sale.VatableSubtotalCents, &sale.ExemptSubtotalCents, &sale.VatAmountCents, &sale.VatRatePercent,
		&sale.DiscountCents, &sale.PointsRedeemed, &sale.PointsEarned, &sale.NetTotalCents,
		&method, &sale.Payment.TenderedCents, &sale.Payment.ChangeCents,
		&sale.QueueNumber, &voidReason, &voidedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(linesJSON, &sale.Lines); err != nil {
		return nil, err
	}
	sale.CreatedAt = sale.CreatedAt.UTC()
	sale.CustomerID = customerID.String
	sale.VoidReason = voidReason.String
	sale.Payment.Method = domain.PaymentMethod(method.String)
	if voidedAt.Valid {
		at := voidedAt.Time.UTC()
		sale.VoidedAt = &at
	}
	return &sale, nil
}

func scanShift(row rowScanner) (*domain.Shift, error) {
	var shift domain.Shift
	var closedAt sql.NullTime
	var entriesJSON []byte

	err := row.Scan(&shift.ID, &shift.TerminalID, &shift.CashierName, &shift.OpeningCashCents,
		&shift.TotalSalesCents, &shift.CashSalesCents, &shift.QRSalesCents, &shift.CreditSalesCents, &shift.CashRefundCents,
		&shift.Status, &shift.OpenedAt, &closedAt, &entriesJSON)
	if err != nil {
		return nil, err
	}

	if len(entriesJSON) > 0 {
		if err := json.Unmarshal(entriesJSON, &shift.Entries); err != nil {
			return nil, err
		}
	}
	shift.OpenedAt = shift.OpenedAt.UTC()
	if closedAt.Valid {
		at := closedAt.Time.UTC()
		shift.ClosedAt = &at
	}
	return &shift, nil
}

func collectBatches(rows *sql.Rows) ([]domain.Batch, error) {
	batches := make([]domain.Batch, 0, 64)
	for rows.Next() {
		var b domain.Batch
		if err := rows.Scan(&b.ID, &b.ProductID, &b.LotNumber, &b.ExpiryDate, &b.CostCents, &b.Quantity, &b.ReceivedAt); err != nil {
			return nil, err
		}
		b.ExpiryDate = b.ExpiryDate.UTC()
		b.ReceivedAt = b.ReceivedAt.UTC()
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return batches, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nowDateUTC(t time.Time) time.Time {
	return time.Date(t.UTC().Year(), t.UTC().Month(), t.UTC().Day(), 0, 0, 0, 0, time.UTC)
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullTime(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}
