package billing

import (
	"context"
	"errors"
)

// ErrNotFound is returned by repositories when a row does not exist.
var ErrNotFound = errors.New("not found")

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id int64) (*Patient, error)
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
}

type InvoiceRepository interface {
	Create(ctx context.Context, inv *Invoice) error
	GetByID(ctx context.Context, id int64) (*Invoice, error)
	// ListPendingByPatient returns every Pending invoice of a patient,
	// unbounded.
	ListPendingByPatient(ctx context.Context, patientID int64) ([]*Invoice, error)
	// List filters by patient and/or status; zero values disable a filter.
	List(ctx context.Context, patientID int64, status string, limit, offset int) ([]*Invoice, int, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
}

type PaymentRepository interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id int64) (*Payment, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	ListByInvoice(ctx context.Context, invoiceID int64) ([]*Payment, error)
	// ContactByPayment resolves the patient contact info and the payment's
	// current status through the Payment -> Invoice -> Patient join.
	ContactByPayment(ctx context.Context, paymentID int64) (*PaymentContact, error)
}
