package scheduling

import (
	"net/http"
	"time"

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
	availRead := api.Group("", auth.RequireCapability(auth.CapAvailabilityRead))
	availRead.GET("/availability", h.ListAvailability)
	availRead.GET("/slots", h.GetSlots)

	availWrite := api.Group("", auth.RequireCapability(auth.CapAvailabilityWrite))
	availWrite.POST("/availability", h.CreateAvailability)
	availWrite.PUT("/availability/:id", h.UpdateAvailability)
	availWrite.DELETE("/availability/:id", h.DeleteAvailability)

	sessionsRead := api.Group("", auth.RequireCapability(auth.CapSessionsRead))
	sessionsRead.GET("/sessions", h.ListSessions)
	sessionsRead.GET("/sessions/:id", h.GetSession)

	sessionsWrite := api.Group("", auth.RequireCapability(auth.CapSessionsWrite))
	sessionsWrite.POST("/sessions", h.CreateSession)
	sessionsWrite.PUT("/sessions/:id", h.RescheduleSession)

	transitions := api.Group("", auth.RequireCapability(auth.CapSessionsTransition))
	transitions.POST("/sessions/:id/cancel", h.CancelSession)
	transitions.POST("/sessions/:id/complete", h.CompleteSession)
	transitions.POST("/sessions/:id/no-show", h.MarkNoShow)
}

// -- Availability --

func (h *Handler) CreateAvailability(c echo.Context) error {
	var a Availability
	if err := c.Bind(&a); err != nil {
		return apperr.Respond(c, apperr.Validation(err.Error()))
	}
	if err := h.svc.CreateAvailability(c.Request().Context(), &a); err != nil {
		return apperr.Respond(c, err)
	}
	return respond.Created(c, a)
}

func (h *Handler) UpdateAvailability(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Respond(c, apperr.Validation("invalid id"))
	}
	var a Availability
	if err := c.Bind(&a); err != nil {
		return apperr.Respond(c, apperr.Validation(err.Error()))
	}
	a.ID = id
	if err := h.svc.UpdateAvailability(c.Request().Context(), &a); err != nil {
		return apperr.Respond(c, err)
	}
	return respond.OK(c, a)
}

func (h *Handler) DeleteAvailability(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Respond(c, apperr.Validation("invalid id"))
	}
	if err := h.svc.DeleteAvailability(c.Request().Context(), id); err != nil {
		return apperr.Respond(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListAvailability(c echo.Context) error {
	therapistID, err := uuid.Parse(c.QueryParam("therapist_id"))
	if err != nil {
		return apperr.Respond(c, apperr.Validation("therapist_id is required"))
	}

	if day := c.QueryParam("day_of_week"); day != "" {
		dayOfWeek, err := parseDayOfWeek(day)
		if err != nil {
			return apperr.Respond(c, err)
		}
		var therapyTypeID *uuid.UUID
		if tt := c.QueryParam("therapy_type_id"); tt != "" {
			parsed, err := uuid.Parse(tt)
			if err != nil {
				return apperr.Respond(c, apperr.Validation("invalid therapy_type_id"))
			}
			therapyTypeID = &parsed
		}
		windows, err := h.svc.ListOpenWindows(c.Request().Context(), therapistID, dayOfWeek, therapyTypeID)
		if err != nil {
			return apperr.Respond(c, err)
		}
		return respond.OK(c, windows)
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListAvailabilityByTherapist(c.Request().Context(), therapistID, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return respond.OK(c, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// -- Slots --

func (h *Handler) GetSlots(c echo.Context) error {
	therapistID, err := uuid.Parse(c.QueryParam("therapist_id"))
	if err != nil {
		return apperr.Respond(c, apperr.Validation("therapist_id is required"))
	}
	therapyTypeID, err := uuid.Parse(c.QueryParam("therapy_type_id"))
	if err != nil {
		return apperr.Respond(c, apperr.Validation("therapy_type_id is required"))
	}
	date, err := time.Parse("2006-01-02", c.QueryParam("date"))
	if err != nil {
		return apperr.Respond(c, apperr.Validation("date is required as YYYY-MM-DD"))
	}

	slots, err := h.svc.GetSlots(c.Request().Context(), therapistID, therapyTypeID, date)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return respond.OK(c, slots)
}

// -- Sessions --

func (h *Handler) CreateSession(c echo.Context) error {
	var s Session
	if err := c.Bind(&s); err != nil {
		return apperr.Respond(c, apperr.Validation(err.Error()))
	}
	if err := h.svc.CreateSession(c.Request().Context(), &s); err != nil {
		return apperr.Respond(c, err)
	}
	return respond.Created(c, s)
}

func (h *Handler) GetSession(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Respond(c, apperr.Validation("invalid id"))
	}
	s, err := h.svc.GetSession(c.Request().Context(), id)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return respond.OK(c, s)
}

func (h *Handler) RescheduleSession(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Respond(c, apperr.Validation("invalid id"))
	}
	var s Session
	if err := c.Bind(&s); err != nil {
		return apperr.Respond(c, apperr.Validation(err.Error()))
	}
	s.ID = id
	if err := h.svc.RescheduleSession(c.Request().Context(), &s); err != nil {
		return apperr.Respond(c, err)
	}
	return respond.OK(c, s)
}

func (h *Handler) ListSessions(c echo.Context) error {
	var params SessionSearch
	if pid := c.QueryParam("patient_id"); pid != "" {
		parsed, err := uuid.Parse(pid)
		if err != nil {
			return apperr.Respond(c, apperr.Validation("invalid patient_id"))
		}
		params.PatientID = parsed
	}
	if tid := c.QueryParam("therapist_id"); tid != "" {
		parsed, err := uuid.Parse(tid)
		if err != nil {
			return apperr.Respond(c, apperr.Validation("invalid therapist_id"))
		}
		params.TherapistID = parsed
	}
	if d := c.QueryParam("date"); d != "" {
		date, err := time.Parse("2006-01-02", d)
		if err != nil {
			return apperr.Respond(c, apperr.Validation("invalid date, want YYYY-MM-DD"))
		}
		params.Date = &date
	}
	params.Status = c.QueryParam("status")

	pg := pagination.FromContext(c)
	items, total, err := h.svc.SearchSessions(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return respond.OK(c, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) CancelSession(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Respond(c, apperr.Validation("invalid id"))
	}
	var req cancelRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Respond(c, apperr.Validation(err.Error()))
	}
	s, err := h.svc.CancelSession(c.Request().Context(), id, req.Reason)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return respond.OK(c, s)
}

func (h *Handler) CompleteSession(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Respond(c, apperr.Validation("invalid id"))
	}
	s, err := h.svc.CompleteSession(c.Request().Context(), id)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return respond.OK(c, s)
}

func (h *Handler) MarkNoShow(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Respond(c, apperr.Validation("invalid id"))
	}
	s, err := h.svc.MarkNoShow(c.Request().Context(), id)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return respond.OK(c, s)
}

func parseDayOfWeek(s string) (int, error) {
	switch s {
	case "0", "1", "2", "3", "4", "5", "6":
		return int(s[0] - '0'), nil
	}
	return 0, apperr.Validation("day_of_week must be 0 (Sunday) through 6 (Saturday)")
}
