package servicepolicy

import (
	"errors"
	"net/http"

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
	api.GET("/service-policies", h.List)
	api.GET("/service-policies/:service_id", h.Get)

	write := api.Group("/service-policies", auth.RequireRole(auth.RoleAdmin, auth.RoleStaff))
	write.PUT("/:service_id", h.Put)
	write.DELETE("/:service_id", h.Delete)
}

// keyParams reads the service id from the path and the clinic id from the
// query string.
func keyParams(c echo.Context) (uuid.UUID, uuid.UUID, error) {
	serviceID, err := uuid.Parse(c.Param("service_id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid service_id")
	}
	clinicID, err := uuid.Parse(c.QueryParam("clinic_id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "clinic_id query parameter is required")
	}
	return serviceID, clinicID, nil
}

func (h *Handler) List(c echo.Context) error {
	clinicID, err := uuid.Parse(c.QueryParam("clinic_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "clinic_id query parameter is required")
	}
	items, err := h.svc.List(c.Request().Context(), clinicID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*ServicePolicy{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Get(c echo.Context) error {
	serviceID, clinicID, err := keyParams(c)
	if err != nil {
		return err
	}
	p, err := h.svc.Get(c.Request().Context(), serviceID, clinicID)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "service policy not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Put(c echo.Context) error {
	serviceID, clinicID, err := keyParams(c)
	if err != nil {
		return err
	}
	var p ServicePolicy
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ServiceID = serviceID
	p.ClinicID = clinicID
	if err := h.svc.Put(c.Request().Context(), &p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Delete(c echo.Context) error {
	serviceID, clinicID, err := keyParams(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), serviceID, clinicID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "service policy not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
