package handler

import (
	"net/http"

	"github.com/cicotti/reportfy-api/internal/apperr"
	"github.com/cicotti/reportfy-api/internal/service"
	"github.com/cicotti/reportfy-api/pkg/logger"
	"github.com/cicotti/reportfy-api/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AuthHandler exposes the credential endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func (h *AuthHandler) Login(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.LoginCounter.Inc()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, apperr.New(apperr.Validation, "Requisição inválida"))
	}
	if req.Email == "" || req.Password == "" {
		return fail(c, apperr.New(apperr.Validation, "Email e senha são obrigatórios"))
	}

	user, session, err := h.auth.Login(reqCtx(c), req.Email, req.Password)
	if err != nil {
		log.Warn("Login failed", zap.String("email", req.Email), zap.Error(err))
		prometheus.RecordAuthError("login_failure")
		return fail(c, err)
	}

	log.Info("User logged in", zap.String("email", user.Email), zap.String("role", user.Role))
	return c.JSON(http.StatusOK, echo.Map{
		"user":    user,
		"session": session,
	})
}

func (h *AuthHandler) Signup(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.SignupCounter.Inc()

	var req struct {
		Email    string                `json:"email"`
		Password string                `json:"password"`
		FullName string                `json:"full_name"`
		Company  service.SignupCompany `json:"company"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, apperr.New(apperr.Validation, "Requisição inválida"))
	}

	id, err := h.auth.Signup(reqCtx(c), req.Email, req.Password, req.FullName, req.Company)
	if err != nil {
		log.Warn("Signup failed", zap.String("email", req.Email), zap.Error(err))
		return fail(c, err)
	}

	log.Info("Account created", zap.String("user_id", id), zap.String("email", req.Email))
	return c.JSON(http.StatusCreated, idMessage(id, "Conta criada com sucesso"))
}

// Logout acknowledges the session end. Tokens are stateless, so the
// client discards its copy; nothing is revoked server-side.
func (h *AuthHandler) Logout(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"message": "Logout realizado com sucesso"})
}

func (h *AuthHandler) Me(c echo.Context) error {
	user, err := h.auth.CurrentUser(reqCtx(c), userID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req struct {
		Email      string `json:"email"`
		RedirectTo string `json:"redirectTo"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, apperr.New(apperr.Validation, "Requisição inválida"))
	}
	if req.Email == "" {
		return fail(c, apperr.New(apperr.Validation, "Email é obrigatório"))
	}

	if err := h.auth.ResetPassword(reqCtx(c), req.Email, req.RedirectTo); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Email de recuperação enviado"})
}

func (h *AuthHandler) UpdatePassword(c echo.Context) error {
	var req struct {
		NewPassword string `json:"newPassword"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, apperr.New(apperr.Validation, "Requisição inválida"))
	}

	if err := h.auth.UpdatePassword(reqCtx(c), userID(c), req.NewPassword); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Senha atualizada com sucesso"})
}
