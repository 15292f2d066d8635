package schedulerule

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicbook/slotengine/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("/professionals/:id/schedule-rules")
	read.GET("", h.List)
	read.GET("/:weekday", h.Get)

	write := api.Group("/professionals/:id/schedule-rules", auth.RequireRole(auth.RoleAdmin, auth.RoleStaff))
	write.PUT("/:weekday", h.Put)
	write.DELETE("/:weekday", h.Delete)
}

func professionalParam(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid professional id")
	}
	return id, nil
}

func weekdayParam(c echo.Context) (time.Weekday, error) {
	n, err := strconv.Atoi(c.Param("weekday"))
	if err != nil || n < 0 || n > 6 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "weekday must be 0-6")
	}
	return time.Weekday(n), nil
}

func (h *Handler) List(c echo.Context) error {
	profID, err := professionalParam(c)
	if err != nil {
		return err
	}
	items, err := h.svc.List(c.Request().Context(), profID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*ScheduleRule{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Get(c echo.Context) error {
	profID, err := professionalParam(c)
	if err != nil {
		return err
	}
	wd, err := weekdayParam(c)
	if err != nil {
		return err
	}
	rule, err := h.svc.Get(c.Request().Context(), profID, wd)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "schedule rule not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rule)
}

// Put replaces the rule for the weekday in the path. The path wins over any
// professional or weekday in the body.
func (h *Handler) Put(c echo.Context) error {
	profID, err := professionalParam(c)
	if err != nil {
		return err
	}
	wd, err := weekdayParam(c)
	if err != nil {
		return err
	}
	var rule ScheduleRule
	if err := c.Bind(&rule); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rule.ProfessionalID = profID
	rule.Weekday = wd
	if err := h.svc.Put(c.Request().Context(), &rule); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, rule)
}

func (h *Handler) Delete(c echo.Context) error {
	profID, err := professionalParam(c)
	if err != nil {
		return err
	}
	wd, err := weekdayParam(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), profID, wd); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "schedule rule not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
