package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	ClientIDKey  contextKey = "client_id"
	ClinicIDKey  contextKey = "clinic_id"
	UserRolesKey contextKey = "user_roles"
)

const (
	RoleAdmin  = "admin"
	RoleStaff  = "staff"
	RoleClient = "client"
)

// Claims carries the identity resolved by the upstream authorization layer.
// The subject is the client identity that owns holds.
type Claims struct {
	jwt.RegisteredClaims
	ClinicID string   `json:"clinic_id"`
	Roles    []string `json:"roles"`
}

type JWTConfig struct {
	Issuer     string
	Audience   string
	SigningKey []byte
	Skipper    func(c echo.Context) bool
}

// JWTMiddleware validates HS256 bearer tokens and places the subject, clinic
// and roles on the request context.
func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			scheme, tokenStr, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(tokenStr) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
				return cfg.SigningKey, nil
			}, opts...)
			if err != nil || !token.Valid || claims.Subject == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.SetRequest(c.Request().WithContext(WithIdentity(c.Request().Context(), claims.Subject, claims.ClinicID, claims.Roles)))
			return next(c)
		}
	}
}

// DevAuthMiddleware trusts X-Client-ID and X-Roles headers. Development only.
func DevAuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			clientID := req.Header.Get("X-Client-ID")
			if clientID == "" {
				clientID = "dev-client"
			}
			roles := []string{RoleAdmin}
			if h := req.Header.Get("X-Roles"); h != "" {
				roles = strings.Split(h, ",")
			}
			c.SetRequest(req.WithContext(WithIdentity(req.Context(), clientID, req.Header.Get("X-Clinic-ID"), roles)))
			return next(c)
		}
	}
}

// WithIdentity attaches a resolved identity to ctx.
func WithIdentity(ctx context.Context, clientID, clinicID string, roles []string) context.Context {
	ctx = context.WithValue(ctx, ClientIDKey, clientID)
	ctx = context.WithValue(ctx, ClinicIDKey, clinicID)
	return context.WithValue(ctx, UserRolesKey, roles)
}

func ClientIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ClientIDKey).(string)
	return id
}

func ClinicIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ClinicIDKey).(string)
	return id
}

func RolesFromContext(ctx context.Context) []string {
	roles, _ := ctx.Value(UserRolesKey).([]string)
	return roles
}
