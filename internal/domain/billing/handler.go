package billing

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/therapyhub/therapyhub/internal/platform/apperr"
	"github.com/therapyhub/therapyhub/internal/platform/auth"
	"github.com/therapyhub/therapyhub/pkg/pagination"
	"github.com/therapyhub/therapyhub/pkg/respond"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireCapability(auth.CapBillingRead))
	read.GET("/invoices", h.ListInvoices)
	read.GET("/invoices/:id", h.GetInvoice)
	read.GET("/invoices/:id/payments", h.ListPayments)

	write := api.Group("", auth.RequireCapability(auth.CapBillingWrite))
	write.POST("/invoices", h.CreateInvoice)
	write.POST("/invoices/:id/payments", h.ConfirmPayment)
}

type createInvoiceRequest struct {
	PatientID  uuid.UUID   `json:"patient_id"`
	SessionIDs []uuid.UUID `json:"session_ids"`
}

func (h *Handler) CreateInvoice(c echo.Context) error {
	var req createInvoiceRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Respond(c, apperr.Validation(err.Error()))
	}
	inv, err := h.svc.CreateInvoice(c.Request().Context(), req.PatientID, req.SessionIDs)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return respond.Created(c, inv)
}

func (h *Handler) GetInvoice(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Respond(c, apperr.Validation("invalid id"))
	}
	inv, err := h.svc.GetInvoice(c.Request().Context(), id)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return respond.OK(c, inv)
}

func (h *Handler) ListInvoices(c echo.Context) error {
	patientID, err := uuid.Parse(c.QueryParam("patient_id"))
	if err != nil {
		return apperr.Respond(c, apperr.Validation("patient_id is required"))
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListInvoicesByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return respond.OK(c, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type paymentRequest struct {
	PaidAmount      float64 `json:"paid_amount"`
	UseCreditAmount float64 `json:"use_credit_amount"`
	Method          *string `json:"method"`
}

func (h *Handler) ConfirmPayment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Respond(c, apperr.Validation("invalid id"))
	}
	var req paymentRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Respond(c, apperr.Validation(err.Error()))
	}
	inv, err := h.svc.ConfirmPayment(c.Request().Context(), id,
		req.PaidAmount, req.UseCreditAmount, req.Method)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return respond.OK(c, inv)
}

func (h *Handler) ListPayments(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Respond(c, apperr.Validation("invalid id"))
	}
	payments, err := h.svc.ListPayments(c.Request().Context(), id)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return respond.OK(c, payments)
}
