package billing

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dentalpay/dentalpay/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// conn resolves the statement target for a request: an in-flight
// transaction first, then the request-scoped session, then the pool.
func conn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return pool
}

// =========== Patient Repository ===========

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository { return &patientRepoPG{pool: pool} }

const patientCols = `id, full_name, email, phone, created_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.FullName, &p.Email, &p.Phone, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &p, err
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	return conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO patients (full_name, email, phone)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		p.FullName, p.Email, p.Phone).Scan(&p.ID, &p.CreatedAt)
}

func (r *patientRepoPG) GetByID(ctx context.Context, id int64) (*Patient, error) {
	return scanPatient(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
}

func (r *patientRepoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	q := conn(ctx, r.pool)

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM patients`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.Query(ctx,
		`SELECT `+patientCols+` FROM patients ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

// =========== Invoice Repository ===========

type invoiceRepoPG struct{ pool *pgxpool.Pool }

func NewInvoiceRepoPG(pool *pgxpool.Pool) InvoiceRepository { return &invoiceRepoPG{pool: pool} }

const invoiceCols = `id, patient_id, amount, status, created_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.PatientID, &inv.Amount, &inv.Status, &inv.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &inv, err
}

func (r *invoiceRepoPG) Create(ctx context.Context, inv *Invoice) error {
	return conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO invoices (patient_id, amount, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		inv.PatientID, inv.Amount, inv.Status).Scan(&inv.ID, &inv.CreatedAt)
}

func (r *invoiceRepoPG) GetByID(ctx context.Context, id int64) (*Invoice, error) {
	return scanInvoice(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+invoiceCols+` FROM invoices WHERE id = $1`, id))
}

func (r *invoiceRepoPG) ListPendingByPatient(ctx context.Context, patientID int64) ([]*Invoice, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+invoiceCols+` FROM invoices WHERE patient_id = $1 AND status = $2 ORDER BY id`,
		patientID, InvoiceStatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, inv)
	}
	return items, rows.Err()
}

func (r *invoiceRepoPG) List(ctx context.Context, patientID int64, status string, limit, offset int) ([]*Invoice, int, error) {
	where := ` WHERE ($1 = 0 OR patient_id = $1) AND ($2 = '' OR status = $2)`
	q := conn(ctx, r.pool)

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM invoices`+where, patientID, status).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.Query(ctx,
		`SELECT `+invoiceCols+` FROM invoices`+where+` ORDER BY id LIMIT $3 OFFSET $4`,
		patientID, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, inv)
	}
	return items, total, rows.Err()
}

func (r *invoiceRepoPG) UpdateStatus(ctx context.Context, id int64, status string) error {
	tag, err := conn(ctx, r.pool).Exec(ctx,
		`UPDATE invoices SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// =========== Payment Repository ===========

type paymentRepoPG struct{ pool *pgxpool.Pool }

func NewPaymentRepoPG(pool *pgxpool.Pool) PaymentRepository { return &paymentRepoPG{pool: pool} }

const paymentCols = `id, invoice_id, amount, status, bank_reference, created_at`

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.Status, &p.BankReference, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &p, err
}

func (r *paymentRepoPG) Create(ctx context.Context, p *Payment) error {
	return conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO payments (invoice_id, amount, status, bank_reference)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		p.InvoiceID, p.Amount, p.Status, p.BankReference).Scan(&p.ID, &p.CreatedAt)
}

func (r *paymentRepoPG) GetByID(ctx context.Context, id int64) (*Payment, error) {
	return scanPayment(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+paymentCols+` FROM payments WHERE id = $1`, id))
}

func (r *paymentRepoPG) UpdateStatus(ctx context.Context, id int64, status string) error {
	tag, err := conn(ctx, r.pool).Exec(ctx,
		`UPDATE payments SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *paymentRepoPG) ListByInvoice(ctx context.Context, invoiceID int64) ([]*Payment, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+paymentCols+` FROM payments WHERE invoice_id = $1 ORDER BY id`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *paymentRepoPG) ContactByPayment(ctx context.Context, paymentID int64) (*PaymentContact, error) {
	var (
		email  *string
		name   string
		status string
	)
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT pat.email, pat.full_name, pay.status
		FROM payments pay
		JOIN invoices inv ON pay.invoice_id = inv.id
		JOIN patients pat ON inv.patient_id = pat.id
		WHERE pay.id = $1`, paymentID).Scan(&email, &name, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	contact := &PaymentContact{Name: name, Status: status}
	if email != nil {
		contact.Email = *email
	}
	return contact, nil
}
