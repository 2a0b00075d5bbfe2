package billing

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/dentalpay/dentalpay/internal/platform/bank"
	"github.com/dentalpay/dentalpay/pkg/pagination"
)

// Handler exposes the payment workflow and the administrative CRUD
// endpoints over HTTP.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the workflow endpoints on the bare echo instance
// and the administrative endpoints on the versioned API group.
func (h *Handler) RegisterRoutes(e *echo.Echo, api *echo.Group) {
	e.GET("/usuarios/:id_paciente/consultaF", h.ConsultBalances)
	e.POST("/pago/IPago/datosP", h.InitiatePayment)
	e.PUT("/pago/:id_paciente/cambioEP", h.ChangePaymentStatus)

	api.POST("/pacientes", h.CreatePatient)
	api.GET("/pacientes", h.ListPatients)
	api.GET("/pacientes/:id", h.GetPatient)
	api.POST("/facturas", h.CreateInvoice)
	api.GET("/facturas", h.ListInvoices)
	api.GET("/facturas/:id", h.GetInvoice)
	api.GET("/facturas/:id/pagos", h.ListInvoicePayments)
}

// errorJSON writes the workflow error envelope.
func errorJSON(c echo.Context, code int, mensaje string) error {
	return c.JSON(code, map[string]interface{}{
		"mensaje": mensaje,
		"success": false,
	})
}

func pathID(c echo.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}

// ConsultBalances handles GET /usuarios/:id_paciente/consultaF.
func (h *Handler) ConsultBalances(c echo.Context) error {
	patientID, err := pathID(c, "id_paciente")
	if err != nil {
		return errorJSON(c, http.StatusNotFound, "ID de paciente inválido o no encontrado.")
	}

	result, err := h.svc.ConsultBalances(c.Request().Context(), patientID)
	switch {
	case errors.Is(err, ErrPatientNotFound):
		return errorJSON(c, http.StatusNotFound, "ID de paciente inválido o no encontrado.")
	case err != nil:
		return errorJSON(c, http.StatusServiceUnavailable, "No fue posible consultar los saldos consolidados.")
	}
	return c.JSON(http.StatusOK, result)
}

type initiatePaymentRequest struct {
	InvoiceID int64   `json:"id_factura"`
	Amount    float64 `json:"monto_pago"`
}

// InitiatePayment handles POST /pago/IPago/datosP.
func (h *Handler) InitiatePayment(c echo.Context) error {
	var req initiatePaymentRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Cuerpo de la solicitud inválido.")
	}
	if req.Amount <= 0 {
		return errorJSON(c, http.StatusBadRequest, "El monto del pago debe ser mayor que cero.")
	}

	result, err := h.svc.InitiatePayment(c.Request().Context(), req.InvoiceID, req.Amount)
	switch {
	case errors.Is(err, ErrInvoiceNotPayable):
		return errorJSON(c, http.StatusBadRequest, "Factura no existe o ya ha sido pagada.")
	case errors.Is(err, bank.ErrUnavailable):
		return errorJSON(c, http.StatusBadGateway, "Error de comunicación con la entidad bancaria externa.")
	case err != nil:
		return err
	}
	return c.JSON(http.StatusOK, result)
}

type changeStatusRequest struct {
	PaymentID int64  `json:"id_pago"`
	Status    string `json:"estado"`
}

// ChangePaymentStatus handles PUT /pago/:id_paciente/cambioEP. The payment
// id travels in the body; the path segment is kept for route compatibility.
func (h *Handler) ChangePaymentStatus(c echo.Context) error {
	var req changeStatusRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Cuerpo de la solicitud inválido.")
	}
	if req.Status == "" {
		return errorJSON(c, http.StatusBadRequest, "El estado del pago es obligatorio.")
	}

	payment, err := h.svc.ChangePaymentStatus(c.Request().Context(), req.PaymentID, req.Status)
	switch {
	case errors.Is(err, ErrPaymentNotFound):
		return errorJSON(c, http.StatusNotFound,
			fmt.Sprintf("No se encontró el registro de pago con ID: %d", req.PaymentID))
	case err != nil:
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"mensaje": "El estado de pago fue actualizado correctamente en la base de datos.",
		"data":    payment,
		"success": true,
	})
}

// --- Administrative endpoints ---

func (h *Handler) CreatePatient(c echo.Context) error {
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.CreatePatient(c.Request().Context(), &p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	p, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPatients(c echo.Context) error {
	params := pagination.FromContext(c)
	patients, total, err := h.svc.ListPatients(c.Request().Context(), params.Limit, params.Offset)
	if err != nil {
		return err
	}
	if patients == nil {
		patients = []*Patient{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(patients, total, params.Limit, params.Offset))
}

func (h *Handler) CreateInvoice(c echo.Context) error {
	var inv Invoice
	if err := c.Bind(&inv); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.CreateInvoice(c.Request().Context(), &inv); err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, inv)
}

func (h *Handler) GetInvoice(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid invoice id")
	}
	inv, err := h.svc.GetInvoice(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "invoice not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *Handler) ListInvoices(c echo.Context) error {
	params := pagination.FromContext(c)
	patientID, _ := strconv.ParseInt(c.QueryParam("id_paciente"), 10, 64)
	status := c.QueryParam("estado")

	invoices, total, err := h.svc.ListInvoices(c.Request().Context(), patientID, status, params.Limit, params.Offset)
	if err != nil {
		return err
	}
	if invoices == nil {
		invoices = []*Invoice{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(invoices, total, params.Limit, params.Offset))
}

func (h *Handler) ListInvoicePayments(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid invoice id")
	}
	payments, err := h.svc.ListInvoicePayments(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "invoice not found")
		}
		return err
	}
	if payments == nil {
		payments = []*Payment{}
	}
	return c.JSON(http.StatusOK, payments)
}
