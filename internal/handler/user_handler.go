package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/cicotti/reportfy-api/internal/apperr"
	"github.com/cicotti/reportfy-api/internal/model"
	"github.com/cicotti/reportfy-api/internal/service"
	"github.com/cicotti/reportfy-api/pkg/logger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserHandler manages profiles, roles, settings and avatars.
type UserHandler struct {
	db     *gorm.DB
	auth   *service.AuthService
	photos *service.PhotoService
}

func NewUserHandler(db *gorm.DB, auth *service.AuthService, photos *service.PhotoService) *UserHandler {
	return &UserHandler{db: db, auth: auth, photos: photos}
}

type userListItem struct {
	model.Profile
	Role string `json:"role"`
}

// List returns every profile with its company and role attached,
// optionally filtered by company_id.
func (h *UserHandler) List(c echo.Context) error {
	query := h.db.WithContext(reqCtx(c)).
		Preload("Company").
		Order("name ASC")

	if companyID := c.QueryParam("company_id"); companyID != "" {
		query = query.Where("company_id = ?", companyID)
	}

	var profiles []model.Profile
	if err := query.Find(&profiles).Error; err != nil {
		return fail(c, apperr.Wrap(apperr.Query, "Erro ao carregar usuários", err))
	}

	ids := make([]string, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p.ID)
	}

	roles := map[string]string{}
	if len(ids) > 0 {
		var rows []model.UserRole
		if err := h.db.WithContext(reqCtx(c)).Where("user_id IN ?", ids).Find(&rows).Error; err != nil {
			return fail(c, apperr.Wrap(apperr.Query, "Erro ao carregar usuários", err))
		}
		for _, r := range rows {
			roles[r.UserID] = r.Role
		}
	}

	out := make([]userListItem, 0, len(profiles))
	for _, p := range profiles {
		role := roles[p.ID]
		if role == "" {
			role = model.RoleUser
		}
		out = append(out, userListItem{Profile: p, Role: role})
	}
	return c.JSON(http.StatusOK, out)
}

// UpdateProfile changes name/email on the caller's own profile unless
// an explicit id targets another user.
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	var req struct {
		ID    string  `json:"id,omitempty"`
		Name  *string `json:"name,omitempty"`
		Email *string `json:"email,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, apperr.New(apperr.Validation, "Requisição inválida"))
	}

	target := req.ID
	if target == "" {
		target = userID(c)
	}
	if _, err := uuid.Parse(target); err != nil {
		return fail(c, apperr.New(apperr.Validation, "id inválido"))
	}

	fields := map[string]interface{}{}
	if req.Name != nil {
		fields["name"] = *req.Name
	}
	if req.Email != nil {
		fields["email"] = *req.Email
	}
	if len(fields) == 0 {
		return fail(c, apperr.New(apperr.Validation, "Nenhum campo para atualizar"))
	}

	if err := h.db.WithContext(reqCtx(c)).Model(&model.Profile{}).
		Where("id = ?", target).
		Updates(fields).Error; err != nil {
		return fail(c, apperr.Wrap(apperr.Query, "Erro ao atualizar usuário", err))
	}
	return c.JSON(http.StatusOK, idMessage(target, "Usuário atualizado com sucesso"))
}

// SetRole upserts the role row of a user.
func (h *UserHandler) SetRole(c echo.Context) error {
	log := logger.FromEcho(c)

	var req struct {
		UserID string `json:"user_id"`
		Role   string `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, apperr.New(apperr.Validation, "Requisição inválida"))
	}
	if _, err := uuid.Parse(req.UserID); err != nil {
		return fail(c, apperr.New(apperr.Validation, "user_id inválido"))
	}
	switch req.Role {
	case model.RoleAdmin, model.RoleUser, model.RoleSuperUser:
	default:
		return fail(c, apperr.New(apperr.Validation, "Função inválida"))
	}

	err := h.db.WithContext(reqCtx(c)).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.UserRole{}).
			Where("user_id = ?", req.UserID).
			Update("role", req.Role)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return tx.Create(&model.UserRole{UserID: req.UserID, Role: req.Role}).Error
		}
		return nil
	})
	if err != nil {
		return fail(c, apperr.Wrap(apperr.Query, "Erro ao atualizar o perfil de acesso", err))
	}

	log.Info("Role updated", zap.String("user_id", req.UserID), zap.String("role", req.Role))
	return c.JSON(http.StatusOK, idMessage(req.UserID, "Função atualizada com sucesso"))
}

// GetSettings returns the caller's settings, creating the default row
// when none exists yet.
func (h *UserHandler) GetSettings(c echo.Context) error {
	uid := userID(c)

	var settings model.UserSettings
	err := h.db.WithContext(reqCtx(c)).Where("user_id = ?", uid).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		settings = model.UserSettings{
			UserID:             uid,
			EmailNotifications: true,
			Theme:              "system",
			Language:           "pt",
		}
		if err := h.db.WithContext(reqCtx(c)).Create(&settings).Error; err != nil {
			return fail(c, apperr.Wrap(apperr.Query, "Erro ao carregar configurações", err))
		}
	} else if err != nil {
		return fail(c, apperr.Wrap(apperr.Query, "Erro ao carregar configurações", err))
	}
	return c.JSON(http.StatusOK, settings)
}

func (h *UserHandler) UpdateSettings(c echo.Context) error {
	var req struct {
		EmailNotifications *bool   `json:"email_notifications,omitempty"`
		MarketingEmails    *bool   `json:"marketing_emails,omitempty"`
		Theme              *string `json:"theme,omitempty"`
		Language           *string `json:"language,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, apperr.New(apperr.Validation, "Requisição inválida"))
	}

	fields := map[string]interface{}{}
	if req.EmailNotifications != nil {
		fields["email_notifications"] = *req.EmailNotifications
	}
	if req.MarketingEmails != nil {
		fields["marketing_emails"] = *req.MarketingEmails
	}
	if req.Theme != nil {
		fields["theme"] = *req.Theme
	}
	if req.Language != nil {
		fields["language"] = *req.Language
	}
	if len(fields) == 0 {
		return fail(c, apperr.New(apperr.Validation, "Nenhum campo para atualizar"))
	}

	if err := h.db.WithContext(reqCtx(c)).Model(&model.UserSettings{}).
		Where("user_id = ?", userID(c)).
		Updates(fields).Error; err != nil {
		return fail(c, apperr.Wrap(apperr.Query, "Erro ao atualizar configurações", err))
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Configurações atualizadas com sucesso"})
}

// UploadAvatar replaces the caller's avatar with the multipart file
// named "file".
func (h *UserHandler) UploadAvatar(c echo.Context) error {
	up, err := uploadFromForm(c)
	if err != nil {
		return fail(c, err)
	}

	url, err := h.photos.UploadAvatar(reqCtx(c), userID(c), *up)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"avatar_url": url,
		"message":    "Avatar atualizado com sucesso",
	})
}

// DeleteIdentity removes the caller's account permanently.
func (h *UserHandler) DeleteIdentity(c echo.Context) error {
	log := logger.FromEcho(c)
	uid := userID(c)

	if err := h.auth.DeleteIdentity(reqCtx(c), uid); err != nil {
		return fail(c, err)
	}

	log.Info("Identity deleted", zap.String("user_id", uid))
	return c.JSON(http.StatusOK, echo.Map{"message": "Usuário excluído com sucesso"})
}

// uploadFromForm reads the multipart part named "file" plus the
// optional description field into a service.Upload.
func uploadFromForm(c echo.Context) (*service.Upload, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return nil, apperr.New(apperr.Validation, "Arquivo não fornecido")
	}

	src, err := fileHeader.Open()
	if err != nil {
		return nil, apperr.Wrap(apperr.Critical, "Erro ao ler o arquivo enviado", err)
	}
	defer src.Close()

	// One byte past the cap is enough to detect oversized files
	// without buffering arbitrarily large bodies.
	data, err := io.ReadAll(io.LimitReader(src, service.MaxUploadSize+1))
	if err != nil {
		return nil, apperr.Wrap(apperr.Critical, "Erro ao ler o arquivo enviado", err)
	}

	return &service.Upload{
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
		Description: c.FormValue("description"),
	}, nil
}
