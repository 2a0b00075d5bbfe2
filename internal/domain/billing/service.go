package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dentalpay/dentalpay/internal/platform/bank"
	"github.com/dentalpay/dentalpay/internal/platform/db"
	"github.com/dentalpay/dentalpay/internal/platform/notify"
)

var (
	// ErrPatientNotFound signals an unknown patient id.
	ErrPatientNotFound = errors.New("patient not found")
	// ErrPaymentNotFound signals an unknown payment id.
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrInvoiceNotPayable signals that the invoice does not exist or is
	// no longer in a payable state.
	ErrInvoiceNotPayable = errors.New("invoice not payable")
)

// accruedInterestRate is the flat rate applied to the pending capital when
// consolidating balances.
const accruedInterestRate = 0.05

// InvoiceDetail is one line of a balance consultation.
type InvoiceDetail struct {
	InvoiceID int64   `json:"id_factura"`
	Amount    float64 `json:"monto"`
	Status    string  `json:"estado"`
}

// ConsultResult is the consolidated balance snapshot for a patient.
type ConsultResult struct {
	Message            string          `json:"mensaje"`
	ProcessedAt        time.Time       `json:"fecha_proceso"`
	CapitalTotal       float64         `json:"capital_total"`
	AccruedInterest    float64         `json:"intereses_causados"`
	ContingentInterest float64         `json:"intereses_contingentes"`
	Invoices           []InvoiceDetail `json:"detalle_facturas"`
	Success            bool            `json:"success"`
}

// InitiateResult describes a freshly opened payment transaction.
type InitiateResult struct {
	Message        string `json:"mensaje"`
	InvoiceID      int64  `json:"id_factura"`
	TransactionRef string `json:"transaccion_id"`
	Status         string `json:"estado_transaccion"`
	Success        bool   `json:"success"`
}

// Service implements the payment workflow on top of the repositories and
// the external collaborators.
type Service struct {
	patients PatientRepository
	invoices InvoiceRepository
	payments PaymentRepository
	bank     bank.Client
	notifier notify.Notifier
	tx       db.TxRunner
	log      zerolog.Logger
}

func NewService(
	patients PatientRepository,
	invoices InvoiceRepository,
	payments PaymentRepository,
	bankClient bank.Client,
	notifier notify.Notifier,
	tx db.TxRunner,
	log zerolog.Logger,
) *Service {
	return &Service{
		patients: patients,
		invoices: invoices,
		payments: payments,
		bank:     bankClient,
		notifier: notifier,
		tx:       tx,
		log:      log,
	}
}

// ConsultBalances consolidates the patient's pending invoices into capital
// plus accrued interest. A patient with no pending invoices gets a zeroed
// snapshot with Success=false rather than an error.
func (s *Service) ConsultBalances(ctx context.Context, patientID int64) (*ConsultResult, error) {
	if _, err := s.patients.GetByID(ctx, patientID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	pending, err := s.invoices.ListPendingByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if len(pending) == 0 {
		return &ConsultResult{
			Message:     "No existen saldos consolidados para el paciente.",
			ProcessedAt: now,
			Invoices:    []InvoiceDetail{},
			Success:     false,
		}, nil
	}

	var capital float64
	details := make([]InvoiceDetail, 0, len(pending))
	for _, inv := range pending {
		capital += inv.Amount
		details = append(details, InvoiceDetail{
			InvoiceID: inv.ID,
			Amount:    inv.Amount,
			Status:    inv.Status,
		})
	}

	return &ConsultResult{
		Message:            "Consulta de saldos exitosa",
		ProcessedAt:        now,
		CapitalTotal:       capital,
		AccruedInterest:    capital * accruedInterestRate,
		ContingentInterest: 0,
		Invoices:           details,
		Success:            true,
	}, nil
}

// InitiatePayment opens a payment transaction against the bank for a
// pending invoice. No payment row is written unless the bank accepts the
// submission.
func (s *Service) InitiatePayment(ctx context.Context, invoiceID int64, amount float64) (*InitiateResult, error) {
	inv, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvoiceNotPayable
		}
		return nil, err
	}
	if inv.Status != InvoiceStatusPending {
		return nil, ErrInvoiceNotPayable
	}

	res, err := s.bank.SubmitPayment(ctx, invoiceID, amount)
	if err != nil {
		return nil, err
	}

	payment := &Payment{
		InvoiceID:     invoiceID,
		Amount:        amount,
		Status:        PaymentStatusInProcess,
		BankReference: res.TransactionRef,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("invoice_id", invoiceID).
		Int64("payment_id", payment.ID).
		Str("bank_reference", payment.BankReference).
		Msg("payment initiated")

	return &InitiateResult{
		Message:        "Se inició el proceso de pago y se registró en estado 'InProcess'.",
		InvoiceID:      invoiceID,
		TransactionRef: payment.BankReference,
		Status:         PaymentStatusInProcess,
		Success:        true,
	}, nil
}

// ChangePaymentStatus persists the caller's status verbatim. When the new
// status is Paid, the parent invoice is settled in the same transaction.
// The patient notification runs after commit and its failure propagates.
func (s *Service) ChangePaymentStatus(ctx context.Context, paymentID int64, status string) (*Payment, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.payments.UpdateStatus(ctx, paymentID, status); err != nil {
			return err
		}
		if status == PaymentStatusPaid {
			if err := s.invoices.UpdateStatus(ctx, payment.InvoiceID, InvoiceStatusPaid); err != nil {
				return fmt.Errorf("settle invoice %d: %w", payment.InvoiceID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	contact, err := s.payments.ContactByPayment(ctx, paymentID)
	switch {
	case errors.Is(err, ErrNotFound):
		s.log.Warn().Int64("payment_id", paymentID).Msg("no contact for payment, skipping notification")
	case err != nil:
		return nil, err
	default:
		n := notify.Notification{
			Email:       contact.Email,
			Name:        contact.Name,
			FinalStatus: contact.Status,
		}
		if err := s.notifier.Send(ctx, n); err != nil {
			return nil, fmt.Errorf("notify patient: %w", err)
		}
	}

	return s.payments.GetByID(ctx, paymentID)
}

// --- Administrative operations ---

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if p.FullName == "" {
		return errors.New("full name is required")
	}
	return s.patients.Create(ctx, p)
}

func (s *Service) GetPatient(ctx context.Context, id int64) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrPatientNotFound
	}
	return p, err
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, limit, offset)
}

func (s *Service) CreateInvoice(ctx context.Context, inv *Invoice) error {
	if inv.PatientID == 0 {
		return errors.New("patient id is required")
	}
	if inv.Amount < 0 {
		return errors.New("amount must not be negative")
	}
	if _, err := s.patients.GetByID(ctx, inv.PatientID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrPatientNotFound
		}
		return err
	}
	if inv.Status == "" {
		inv.Status = InvoiceStatusPending
	}
	return s.invoices.Create(ctx, inv)
}

func (s *Service) GetInvoice(ctx context.Context, id int64) (*Invoice, error) {
	return s.invoices.GetByID(ctx, id)
}

func (s *Service) ListInvoices(ctx context.Context, patientID int64, status string, limit, offset int) ([]*Invoice, int, error) {
	return s.invoices.List(ctx, patientID, status, limit, offset)
}

func (s *Service) ListInvoicePayments(ctx context.Context, invoiceID int64) ([]*Payment, error) {
	if _, err := s.invoices.GetByID(ctx, invoiceID); err != nil {
		return nil, err
	}
	return s.payments.ListByInvoice(ctx, invoiceID)
}
