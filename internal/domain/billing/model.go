package billing

import (
	"time"
)

// Invoice status values. An invoice flips to Paid only through the payment
// finalization cascade.
const (
	InvoiceStatusPending = "Pending"
	InvoiceStatusPaid    = "Paid"
)

// Recognized payment status values. Finalization persists the caller's
// value verbatim; these are the lifecycle states the rest of the system
// reacts to.
const (
	PaymentStatusInProcess = "InProcess"
	PaymentStatusPaid      = "Paid"
	PaymentStatusRejected  = "Rejected"
)

// Patient maps to the patients table.
type Patient struct {
	ID        int64     `db:"id" json:"id_paciente"`
	FullName  string    `db:"full_name" json:"nombre_completo"`
	Email     *string   `db:"email" json:"email,omitempty"`
	Phone     *string   `db:"phone" json:"telefono,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Invoice maps to the invoices table.
type Invoice struct {
	ID        int64     `db:"id" json:"id_factura"`
	PatientID int64     `db:"patient_id" json:"id_paciente"`
	Amount    float64   `db:"amount" json:"monto_total"`
	Status    string    `db:"status" json:"estado_factura"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Payment maps to the payments table. Payments are never deleted.
type Payment struct {
	ID            int64     `db:"id" json:"id_pago"`
	InvoiceID     int64     `db:"invoice_id" json:"id_factura"`
	Amount        float64   `db:"amount" json:"monto_pagado"`
	Status        string    `db:"status" json:"estado_pago"`
	BankReference string    `db:"bank_reference" json:"transaccion_bancaria_id"`
	CreatedAt     time.Time `db:"created_at" json:"fecha_pago"`
}

// PaymentContact is the Payment -> Invoice -> Patient join row used to
// notify the patient after a status change. Email may be empty when the
// patient record has none on file.
type PaymentContact struct {
	Email  string
	Name   string
	Status string
}
