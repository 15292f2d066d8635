package slot

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicbook/slotengine/internal/platform/auth"
	"github.com/clinicbook/slotengine/pkg/pagination"
)

// Screener checks whether an open slot is bookable right now.
type Screener interface {
	Screen(ctx context.Context, s *Slot) (ok bool, reason string, err error)
}

type Handler struct {
	svc    *Service
	screen Screener
}

// NewHandler builds the slot handler. screen may be nil, in which case
// check=true is ignored.
func NewHandler(svc *Service, screen Screener) *Handler {
	return &Handler{svc: svc, screen: screen}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/slots", h.List)
	api.GET("/slots/:id", h.Get)

	write := api.Group("/slots", auth.RequireRole(auth.RoleAdmin, auth.RoleStaff))
	write.POST("", h.Create)
	write.POST("/generate", h.Generate)
}

func queryUUID(c echo.Context, name string) (*uuid.UUID, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return &id, nil
}

func queryTime(c echo.Context, name string) (time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, name+" must be RFC 3339")
	}
	return t, nil
}

// List serves ListAvailableSlots.
func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	var (
		f   = Filter{Limit: pg.Limit, Offset: pg.Offset}
		err error
	)
	if f.ProfessionalID, err = queryUUID(c, "professional_id"); err != nil {
		return err
	}
	if f.ServiceID, err = queryUUID(c, "service_id"); err != nil {
		return err
	}
	if f.ClinicID, err = queryUUID(c, "clinic_id"); err != nil {
		return err
	}
	if f.From, err = queryTime(c, "from"); err != nil {
		return err
	}
	if f.To, err = queryTime(c, "to"); err != nil {
		return err
	}
	if !f.From.IsZero() && !f.To.IsZero() && !f.From.Before(f.To) {
		return echo.NewHTTPError(http.StatusBadRequest, "from must be before to")
	}

	items, total, err := h.svc.ListOpen(c.Request().Context(), f)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	check := h.screen != nil && c.QueryParam("check") == "true"
	summaries := make([]Summary, 0, len(items))
	for _, s := range items {
		sum := s.Summary()
		if check {
			ok, reason, err := h.screen.Screen(c.Request().Context(), s)
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}
			sum.Bookable = &ok
			sum.Reason = reason
		}
		summaries = append(summaries, sum)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(summaries, total, pg.Limit, pg.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	s, err := h.svc.Get(c.Request().Context(), id)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "slot not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) Create(c echo.Context) error {
	var s Slot
	if err := c.Bind(&s); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Create(c.Request().Context(), &s); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, s)
}

func (h *Handler) Generate(c echo.Context) error {
	var req GenerateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	result, err := h.svc.Generate(c.Request().Context(), req)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, result)
}
