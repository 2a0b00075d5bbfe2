// Package bank holds the card-payment submission collaborator. The default
// implementation simulates the banking entity; an HTTP implementation is
// selected when an endpoint is configured.
package bank

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// ErrUnavailable marks a connectivity failure talking to the banking entity.
var ErrUnavailable = errors.New("bank unreachable")

// SubmitResult is the banking entity's synchronous answer to a submission.
type SubmitResult struct {
	Status         string `json:"status"`
	TransactionRef string `json:"transaccion_id"`
}

// Client submits card payments to the external banking entity.
type Client interface {
	SubmitPayment(ctx context.Context, invoiceID int64, amount float64) (*SubmitResult, error)
}

// SimulatedClient answers every submission with a canned OK and a freshly
// minted transaction reference. It never fails.
type SimulatedClient struct{}

func NewSimulatedClient() *SimulatedClient {
	return &SimulatedClient{}
}

func (c *SimulatedClient) SubmitPayment(_ context.Context, invoiceID int64, _ float64) (*SubmitResult, error) {
	return &SubmitResult{
		Status:         "OK",
		TransactionRef: fmt.Sprintf("TXN-%d-%s", invoiceID, uuid.NewString()[:8]),
	}, nil
}

// HTTPClient posts submissions to a remote banking endpoint. Transport
// failures and non-2xx answers surface as ErrUnavailable.
type HTTPClient struct {
	endpoint string
	hc       *http.Client
}

func NewHTTPClient(endpoint string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		endpoint: endpoint,
		hc:       &http.Client{Timeout: timeout},
	}
}

type submitRequest struct {
	InvoiceID int64   `json:"id_factura"`
	Amount    float64 `json:"monto_pago"`
}

func (c *HTTPClient) SubmitPayment(ctx context.Context, invoiceID int64, amount float64) (*SubmitResult, error) {
	body, err := json.Marshal(submitRequest{InvoiceID: invoiceID, Amount: amount})
	if err != nil {
		return nil, fmt.Errorf("encode submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build submission request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var result SubmitResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode bank response: %w", err)
	}
	return &result, nil
}
