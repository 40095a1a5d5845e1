package therapy

import (
	"net/http"

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
	read := api.Group("", auth.RequireCapability(auth.CapPricingRead))
	read.GET("/therapy-types", h.ListTypes)
	read.GET("/therapy-types/:id", h.GetType)
	read.GET("/pricing", h.ListPricing)
	read.GET("/pricing/resolve", h.ResolvePricing)

	write := api.Group("", auth.RequireCapability(auth.CapPricingWrite))
	write.POST("/therapy-types", h.CreateType)
	write.PUT("/therapy-types/:id", h.UpdateType)
	write.DELETE("/therapy-types/:id", h.DeleteType)
	write.PUT("/pricing", h.UpsertPricing)
	write.DELETE("/pricing/:id", h.DeletePricing)
}

// -- Therapy types --

func (h *Handler) CreateType(c echo.Context) error {
	var t TherapyType
	if err := c.Bind(&t); err != nil {
		return apperr.Respond(c, apperr.Validation(err.Error()))
	}
	if err := h.svc.CreateType(c.Request().Context(), &t); err != nil {
		return apperr.Respond(c, err)
	}
	return respond.Created(c, t)
}

func (h *Handler) GetType(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Respond(c, apperr.Validation("invalid id"))
	}
	t, err := h.svc.GetType(c.Request().Context(), id)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return respond.OK(c, t)
}

func (h *Handler) ListTypes(c echo.Context) error {
	pg := pagination.FromContext(c)
	activeOnly := c.QueryParam("active") == "true"
	items, total, err := h.svc.ListTypes(c.Request().Context(), activeOnly, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return respond.OK(c, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateType(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Respond(c, apperr.Validation("invalid id"))
	}
	var t TherapyType
	if err := c.Bind(&t); err != nil {
		return apperr.Respond(c, apperr.Validation(err.Error()))
	}
	t.ID = id
	if err := h.svc.UpdateType(c.Request().Context(), &t); err != nil {
		return apperr.Respond(c, err)
	}
	return respond.OK(c, t)
}

func (h *Handler) DeleteType(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Respond(c, apperr.Validation("invalid id"))
	}
	if err := h.svc.DeleteType(c.Request().Context(), id); err != nil {
		return apperr.Respond(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Pricing --

func (h *Handler) UpsertPricing(c echo.Context) error {
	var p Pricing
	if err := c.Bind(&p); err != nil {
		return apperr.Respond(c, apperr.Validation(err.Error()))
	}
	if err := h.svc.UpsertPricing(c.Request().Context(), &p); err != nil {
		return apperr.Respond(c, err)
	}
	return respond.OK(c, p)
}

func (h *Handler) DeletePricing(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Respond(c, apperr.Validation("invalid id"))
	}
	if err := h.svc.DeletePricing(c.Request().Context(), id); err != nil {
		return apperr.Respond(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListPricing(c echo.Context) error {
	therapistID, err := uuid.Parse(c.QueryParam("therapist_id"))
	if err != nil {
		return apperr.Respond(c, apperr.Validation("therapist_id is required"))
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListPricingByTherapist(c.Request().Context(), therapistID, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return respond.OK(c, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ResolvePricing(c echo.Context) error {
	therapistID, err := uuid.Parse(c.QueryParam("therapist_id"))
	if err != nil {
		return apperr.Respond(c, apperr.Validation("therapist_id is required"))
	}
	therapyTypeID, err := uuid.Parse(c.QueryParam("therapy_type_id"))
	if err != nil {
		return apperr.Respond(c, apperr.Validation("therapy_type_id is required"))
	}
	resolved, err := h.svc.ResolvePricing(c.Request().Context(), therapistID, therapyTypeID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return respond.OK(c, resolved)
}
