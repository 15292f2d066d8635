package availability

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	eval *Evaluator
}

func NewHandler(eval *Evaluator) *Handler {
	return &Handler{eval: eval}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/availability", h.Check)
}

// Check serves CheckAvailability. Business-rule failures are a 200 with
// ok=false; only malformed input is rejected.
func (h *Handler) Check(c echo.Context) error {
	var (
		req Request
		err error
	)
	ids := []struct {
		name string
		dst  *uuid.UUID
	}{
		{"professional_id", &req.ProfessionalID},
		{"service_id", &req.ServiceID},
		{"clinic_id", &req.ClinicID},
	}
	for _, p := range ids {
		if *p.dst, err = uuid.Parse(c.QueryParam(p.name)); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid "+p.name)
		}
	}
	if req.Start, err = time.Parse(time.RFC3339, c.QueryParam("start")); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "start must be RFC 3339")
	}
	if req.End, err = time.Parse(time.RFC3339, c.QueryParam("end")); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "end must be RFC 3339")
	}

	d, err := h.eval.IsBookable(c.Request().Context(), req)
	if errors.Is(err, ErrInvalidWindow) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, d)
}
