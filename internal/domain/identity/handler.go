package identity

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
	patientsRead := api.Group("", auth.RequireCapability(auth.CapPatientsRead))
	patientsRead.GET("/patients", h.ListPatients)
	patientsRead.GET("/patients/:id", h.GetPatient)
	patientsRead.GET("/patients/:id/ledger", h.GetLedger)

	patientsWrite := api.Group("", auth.RequireCapability(auth.CapPatientsWrite))
	patientsWrite.POST("/patients", h.CreatePatient)
	patientsWrite.PUT("/patients/:id", h.UpdatePatient)
	patientsWrite.DELETE("/patients/:id", h.DeletePatient)

	therapistsRead := api.Group("", auth.RequireCapability(auth.CapTherapistsRead))
	therapistsRead.GET("/therapists", h.ListTherapists)
	therapistsRead.GET("/therapists/:id", h.GetTherapist)

	therapistsWrite := api.Group("", auth.RequireCapability(auth.CapTherapistsWrite))
	therapistsWrite.POST("/therapists", h.CreateTherapist)
	therapistsWrite.PUT("/therapists/:id", h.UpdateTherapist)
	therapistsWrite.DELETE("/therapists/:id", h.DeleteTherapist)
}

// -- Patients --

func (h *Handler) CreatePatient(c echo.Context) error {
	var p Patient
	if err := c.Bind(&p); err != nil {
		return apperr.Respond(c, apperr.Validation(err.Error()))
	}
	if err := h.svc.CreatePatient(c.Request().Context(), &p); err != nil {
		return apperr.Respond(c, err)
	}
	return respond.Created(c, p)
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Respond(c, apperr.Validation("invalid id"))
	}
	p, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return respond.OK(c, p)
}

func (h *Handler) GetLedger(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Respond(c, apperr.Validation("invalid id"))
	}
	ledger, err := h.svc.GetLedger(c.Request().Context(), id)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return respond.OK(c, ledger)
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListPatients(c.Request().Context(), c.QueryParam("search"), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return respond.OK(c, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Respond(c, apperr.Validation("invalid id"))
	}
	var p Patient
	if err := c.Bind(&p); err != nil {
		return apperr.Respond(c, apperr.Validation(err.Error()))
	}
	p.ID = id
	if err := h.svc.UpdatePatient(c.Request().Context(), &p); err != nil {
		return apperr.Respond(c, err)
	}
	return respond.OK(c, p)
}

func (h *Handler) DeletePatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Respond(c, apperr.Validation("invalid id"))
	}
	if err := h.svc.DeletePatient(c.Request().Context(), id); err != nil {
		return apperr.Respond(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Therapists --

func (h *Handler) CreateTherapist(c echo.Context) error {
	var t Therapist
	if err := c.Bind(&t); err != nil {
		return apperr.Respond(c, apperr.Validation(err.Error()))
	}
	if err := h.svc.CreateTherapist(c.Request().Context(), &t); err != nil {
		return apperr.Respond(c, err)
	}
	return respond.Created(c, t)
}

func (h *Handler) GetTherapist(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Respond(c, apperr.Validation("invalid id"))
	}
	t, err := h.svc.GetTherapist(c.Request().Context(), id)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return respond.OK(c, t)
}

func (h *Handler) ListTherapists(c echo.Context) error {
	pg := pagination.FromContext(c)
	activeOnly := c.QueryParam("active") == "true"
	items, total, err := h.svc.ListTherapists(c.Request().Context(), activeOnly, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return respond.OK(c, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateTherapist(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Respond(c, apperr.Validation("invalid id"))
	}
	var t Therapist
	if err := c.Bind(&t); err != nil {
		return apperr.Respond(c, apperr.Validation(err.Error()))
	}
	t.ID = id
	if err := h.svc.UpdateTherapist(c.Request().Context(), &t); err != nil {
		return apperr.Respond(c, err)
	}
	return respond.OK(c, t)
}

func (h *Handler) DeleteTherapist(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Respond(c, apperr.Validation("invalid id"))
	}
	if err := h.svc.DeleteTherapist(c.Request().Context(), id); err != nil {
		return apperr.Respond(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
