package middleware

import (
	"strings"

	"github.com/cicotti/reportfy-api/internal/apperr"
	"github.com/cicotti/reportfy-api/internal/service"
	"github.com/cicotti/reportfy-api/pkg/jwtutil"
	"github.com/cicotti/reportfy-api/pkg/logger"
	"github.com/cicotti/reportfy-api/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Context keys populated by Authenticate.
const (
	CtxUserID    = "user_id"
	CtxEmail     = "email"
	CtxRole      = "role"
	CtxCompanyID = "company_id"
	CtxAuthToken = "auth_token"
)

// Auth bundles the two gates every protected route runs before any
// handler code: token verification and the per-request tenant check.
type Auth struct {
	jwt     *jwtutil.JWTUtil
	tenants service.TenantChecker
}

func NewAuth(jwt *jwtutil.JWTUtil, tenants service.TenantChecker) *Auth {
	return &Auth{jwt: jwt, tenants: tenants}
}

// Authenticate extracts the bearer token, resolves the identity and
// attaches it to the request context. The handler chain never runs for
// requests that fail here.
func (a *Auth) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromEcho(c)

		token, err := bearerToken(c)
		if err != nil {
			log.Warn("Missing or malformed authorization header")
			prometheus.RecordAuthError("missing_token")
			return respondError(c, err)
		}

		claims, err := a.jwt.ValidateToken(token)
		if err != nil {
			log.Warn("Invalid JWT token", zap.Error(err))
			prometheus.RecordAuthError("invalid_token")
			return respondError(c, apperr.New(apperr.Authentication, "Token inválido ou expirado"))
		}
		if claims.Purpose != "" {
			// Reset tokens only open the password update endpoint.
			log.Warn("Purpose-restricted token on protected route", zap.String("purpose", claims.Purpose))
			prometheus.RecordAuthError("restricted_token")
			return respondError(c, apperr.New(apperr.Authentication, "Token inválido ou expirado"))
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxEmail, claims.Email)
		c.Set(CtxRole, claims.Role)
		c.Set(CtxCompanyID, claims.CompanyID)
		c.Set(CtxAuthToken, token)

		return next(c)
	}
}

// AuthenticateWithReset is Authenticate for the password update
// endpoint, the one route a reset-purpose token may open.
func (a *Auth) AuthenticateWithReset(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromEcho(c)

		token, err := bearerToken(c)
		if err != nil {
			prometheus.RecordAuthError("missing_token")
			return respondError(c, err)
		}

		claims, err := a.jwt.ValidateToken(token)
		if err != nil {
			log.Warn("Invalid JWT token", zap.Error(err))
			prometheus.RecordAuthError("invalid_token")
			return respondError(c, apperr.New(apperr.Authentication, "Token inválido ou expirado"))
		}
		if claims.Purpose != "" && claims.Purpose != jwtutil.PurposeReset {
			prometheus.RecordAuthError("restricted_token")
			return respondError(c, apperr.New(apperr.Authentication, "Token inválido ou expirado"))
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxEmail, claims.Email)
		c.Set(CtxRole, claims.Role)
		c.Set(CtxCompanyID, claims.CompanyID)
		c.Set(CtxAuthToken, token)

		return next(c)
	}
}

// AuthenticateSSE is Authenticate for EventSource clients, which
// cannot set headers: the token travels in the "token" query
// parameter, falling back to the Authorization header.
func (a *Auth) AuthenticateSSE(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if token := c.QueryParam("token"); token != "" {
			c.Request().Header.Set("Authorization", "Bearer "+token)
		}
		return a.Authenticate(next)(c)
	}
}

// RequireActiveTenant consults the tenant checker with the resolved
// identity. It must be layered after Authenticate. No handler, and
// therefore no mutation, runs for a blocked tenant.
func (a *Auth) RequireActiveTenant(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromEcho(c)

		userID, _ := c.Get(CtxUserID).(string)
		if userID == "" {
			return respondError(c, apperr.New(apperr.Authentication, "Token de autenticação não fornecido"))
		}

		if err := a.tenants.CheckTenant(c.Request().Context(), userID); err != nil {
			if apperr.KindOf(err) == apperr.TenantInactive {
				log.Warn("Request blocked: tenant inactive", zap.String("user_id", userID))
				prometheus.RecordAuthError("tenant_inactive")
			} else {
				log.Error("Tenant check failed", zap.String("user_id", userID), zap.Error(err))
			}
			return respondError(c, err)
		}

		return next(c)
	}
}

func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return "", apperr.New(apperr.Authentication, "Token de autenticação não fornecido")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", apperr.New(apperr.Authentication, "Token de autenticação não fornecido")
	}

	return parts[1], nil
}

func respondError(c echo.Context, err error) error {
	e := apperr.From(err)
	return c.JSON(e.Kind.Status(), apperr.ToEnvelope(e))
}
