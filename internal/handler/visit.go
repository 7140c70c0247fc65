package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/visit-management/internal/model"
	"github.com/iliyamo/visit-management/internal/policy"
	"github.com/iliyamo/visit-management/internal/service"
)

// VisitHandler serves the visit lifecycle and its audit trail.
type VisitHandler struct {
	lc   *service.Lifecycle
	hist *service.History
	log  *zap.Logger
}

func NewVisitHandler(lc *service.Lifecycle, hist *service.History, log *zap.Logger) *VisitHandler {
	if lc == nil || hist == nil {
		panic("nil service passed to NewVisitHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &VisitHandler{lc: lc, hist: hist, log: log}
}

// outcomeBody renders a transition result.  warning is present only when
// the audit entry could not be written.
func outcomeBody(out service.Outcome) echo.Map {
	body := echo.Map{"visit": out.Visit}
	if out.Audit != nil {
		body["audit"] = out.Audit
	}
	if out.Warning != nil {
		body["warning"] = out.Warning.Error()
	}
	return body
}

// List handles GET /v1/visits?date=&status=&q=.
func (h *VisitHandler) List(c echo.Context) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	f := model.VisitFilter{Date: c.QueryParam("date"), Search: strings.TrimSpace(c.QueryParam("q"))}
	if raw := c.QueryParam("status"); raw != "" {
		st, ok := model.ParseVisitStatus(raw)
		if !ok {
			return respond(c, h.log, model.Invalid("status", "unknown status"))
		}
		f.Status = st
	}
	items, err := h.lc.ListVisits(c.Request().Context(), actor, f)
	if err != nil {
		return respond(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Schedule handles POST /v1/visits.
func (h *VisitHandler) Schedule(c echo.Context) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	var body policy.SchedulePayload
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	out, err := h.lc.Schedule(c.Request().Context(), actor, body)
	if err != nil {
		return respond(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, outcomeBody(out))
}

// Execute handles POST /v1/visits/:id/execute.
func (h *VisitHandler) Execute(c echo.Context) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	out, err := h.lc.Execute(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return respond(c, h.log, err)
	}
	return c.JSON(http.StatusOK, outcomeBody(out))
}

// Cancel handles POST /v1/visits/:id/cancel.
func (h *VisitHandler) Cancel(c echo.Context) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	var body policy.CancelPayload
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	out, err := h.lc.Cancel(c.Request().Context(), actor, c.Param("id"), body)
	if err != nil {
		return respond(c, h.log, err)
	}
	return c.JSON(http.StatusOK, outcomeBody(out))
}

// Reassign handles POST /v1/visits/:id/reassign.
func (h *VisitHandler) Reassign(c echo.Context) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	var body policy.ReassignPayload
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	out, err := h.lc.Reassign(c.Request().Context(), actor, c.Param("id"), body)
	if err != nil {
		return respond(c, h.log, err)
	}
	return c.JSON(http.StatusOK, outcomeBody(out))
}

// Expire handles POST /v1/visits/expire.
func (h *VisitHandler) Expire(c echo.Context) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	n, err := h.lc.TriggerSweep(c.Request().Context(), actor)
	if err != nil {
		return respond(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"expired": n})
}

// Audit handles GET /v1/visits/:id/audit.
func (h *VisitHandler) Audit(c echo.Context) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	items, err := h.hist.VisitHistory(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return respond(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Changes handles GET /v1/visits/history?q=.
func (h *VisitHandler) Changes(c echo.Context) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	items, err := h.hist.ListVisitChanges(c.Request().Context(), actor, c.QueryParam("q"))
	if err != nil {
		return respond(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
