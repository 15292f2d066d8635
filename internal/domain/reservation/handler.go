package reservation

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicbook/slotengine/internal/domain/appointment"
	"github.com/clinicbook/slotengine/internal/platform/auth"
)

const (
	msgUnavailable = "slot no longer available, pick another"
	msgExpired     = "your hold expired, please start over"
)

type Handler struct {
	mgr *Manager
}

func NewHandler(mgr *Manager) *Handler {
	return &Handler{mgr: mgr}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/slots/:id")
	g.POST("/hold", h.Hold, auth.RequireClient())
	g.POST("/confirm", h.Confirm, auth.RequireClient())
	g.POST("/release", h.Release, auth.RequireClient())
	g.POST("/cancel", h.Cancel, auth.RequireRole(auth.RoleStaff))
}

type holdRequest struct {
	ExpectedVersion *int `json:"expected_version"`
	HoldSeconds     int  `json:"hold_seconds"`
}

type cancelRequest struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	Reason        string    `json:"reason"`
}

func slotID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid slot id")
	}
	return id, nil
}

// Hold retries once with the freshly observed version when the caller's
// version went stale.
func (h *Handler) Hold(c echo.Context) error {
	id, err := slotID(c)
	if err != nil {
		return err
	}
	var req holdRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.ExpectedVersion == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "expected_version is required")
	}
	if req.HoldSeconds < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "hold_seconds must not be negative")
	}

	ctx := c.Request().Context()
	clientID := auth.ClientIDFromContext(ctx)
	if clientID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, errorBody("invalid_request", "client identity required"))
	}
	res, err := h.mgr.Hold(ctx, id, clientID, *req.ExpectedVersion, req.HoldSeconds)
	var vc *VersionConflictError
	if errors.As(err, &vc) {
		res, err = h.mgr.Hold(ctx, id, clientID, vc.Current, req.HoldSeconds)
	}
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) Confirm(c echo.Context) error {
	id, err := slotID(c)
	if err != nil {
		return err
	}
	var payload appointment.Payload
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx := c.Request().Context()
	clientID := auth.ClientIDFromContext(ctx)
	apptID, err := h.mgr.Confirm(ctx, id, clientID, payload)
	if errors.Is(err, ErrVersionConflict) {
		apptID, err = h.mgr.Confirm(ctx, id, clientID, payload)
	}
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, map[string]any{"appointment_id": apptID})
}

func (h *Handler) Release(c echo.Context) error {
	id, err := slotID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	clientID := auth.ClientIDFromContext(ctx)
	version, err := h.mgr.Release(ctx, id, clientID)
	if errors.Is(err, ErrVersionConflict) {
		version, err = h.mgr.Release(ctx, id, clientID)
	}
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"slot_id": id, "version": version})
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := slotID(c)
	if err != nil {
		return err
	}
	var req cancelRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.AppointmentID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "appointment_id is required")
	}

	ctx := c.Request().Context()
	actor := auth.ClientIDFromContext(ctx)
	res, err := h.mgr.Cancel(ctx, id, req.AppointmentID, req.Reason, actor)
	if errors.Is(err, ErrVersionConflict) {
		res, err = h.mgr.Cancel(ctx, id, req.AppointmentID, req.Reason, actor)
	}
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func errorBody(code, message string) map[string]any {
	return map[string]any{"error": code, "message": message}
}

// httpError maps reservation failures to their HTTP form.
func httpError(err error) error {
	var (
		vc   *VersionConflictError
		held *AlreadyHeldError
	)
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, errorBody("not_found", "slot not found"))
	case errors.As(err, &vc):
		body := errorBody("version_conflict", msgUnavailable)
		body["current_version"] = vc.Current
		return echo.NewHTTPError(http.StatusConflict, body)
	case errors.As(err, &held):
		body := errorBody("already_held", msgUnavailable)
		body["held_until"] = held.HeldUntil.UTC().Format(time.RFC3339)
		return echo.NewHTTPError(http.StatusConflict, body)
	case errors.Is(err, ErrUnavailable):
		return echo.NewHTTPError(http.StatusConflict, errorBody("slot_unavailable", msgUnavailable))
	case errors.Is(err, ErrInvalidReservation):
		return echo.NewHTTPError(http.StatusConflict, errorBody("invalid_reservation", msgExpired))
	case errors.Is(err, ErrReservationExpired):
		return echo.NewHTTPError(http.StatusGone, errorBody("reservation_expired", msgExpired))
	case errors.Is(err, ErrCancellationWindow):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, errorBody("cancellation_window", err.Error()))
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
