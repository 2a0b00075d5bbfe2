package bank

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSimulatedClient_ReturnsOKWithReference(t *testing.T) {
	c := NewSimulatedClient()
	result, err := c.SubmitPayment(context.Background(), 42, 150.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != "OK" {
		t.Errorf("expected status OK, got %s", result.Status)
	}
	if !strings.HasPrefix(result.TransactionRef, "TXN-42-") {
		t.Errorf("unexpected transaction ref: %s", result.TransactionRef)
	}
}

func TestSimulatedClient_UniqueReferences(t *testing.T) {
	c := NewSimulatedClient()
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		result, err := c.SubmitPayment(context.Background(), 1, 10.0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if seen[result.TransactionRef] {
			t.Fatalf("duplicate transaction ref: %s", result.TransactionRef)
		}
		seen[result.TransactionRef] = true
	}
}

func TestHTTPClient_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"OK","transaccion_id":"TXN-9-abcdef"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second)
	result, err := c.SubmitPayment(context.Background(), 9, 99.9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TransactionRef != "TXN-9-abcdef" {
		t.Errorf("unexpected ref: %s", result.TransactionRef)
	}
}

func TestHTTPClient_ConnectionRefused(t *testing.T) {
	c := NewHTTPClient("http://127.0.0.1:1", 500*time.Millisecond)
	_, err := c.SubmitPayment(context.Background(), 1, 10.0)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestHTTPClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second)
	_, err := c.SubmitPayment(context.Background(), 1, 10.0)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}
