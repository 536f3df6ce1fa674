package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cicotti/reportfy-api/internal/apperr"
	"github.com/cicotti/reportfy-api/internal/model"
	"github.com/cicotti/reportfy-api/pkg/jwtutil"
	"github.com/cicotti/reportfy-api/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Session is the credential pair returned on login.
type Session struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// AuthUser is the identity shape returned by login and /auth/me.
type AuthUser struct {
	ID        string  `json:"id"`
	CompanyID *string `json:"company_id,omitempty"`
	Email     string  `json:"email"`
	Name      string  `json:"name"`
	Role      string  `json:"role"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// SignupCompany is the company bootstrap data sent with a signup.
type SignupCompany struct {
	Name      string `json:"name"`
	Document  string `json:"document"`
	Telephone string `json:"telephone"`
}

// AuthService implements the credential gateway: signup with company
// bootstrap, login, password lifecycle and identity deletion.
type AuthService struct {
	db      *gorm.DB
	jwt     *jwtutil.JWTUtil
	tenants TenantChecker
}

func NewAuthService(db *gorm.DB, jwt *jwtutil.JWTUtil, tenants TenantChecker) *AuthService {
	return &AuthService{db: db, jwt: jwt, tenants: tenants}
}

// Signup creates the company, profile, default role and default
// settings in one transaction. Existing e-mails and company documents
// are rejected before anything is written.
func (s *AuthService) Signup(ctx context.Context, email, password, fullName string, company SignupCompany) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if email == "" || password == "" || fullName == "" || company.Name == "" || company.Document == "" {
		return "", apperr.New(apperr.Validation, "Dados incompletos")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Profile{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return "", apperr.Wrap(apperr.Query, "Erro ao verificar conta existente", err)
	}
	if count > 0 {
		return "", apperr.New(apperr.Validation, "Email já cadastrado. Entre com a conta existente ou reinicie sua senha!")
	}

	if err := s.db.WithContext(ctx).Model(&model.Company{}).Where("document = ?", company.Document).Count(&count).Error; err != nil {
		return "", apperr.Wrap(apperr.Query, "Erro ao verificar conta existente", err)
	}
	if count > 0 {
		return "", apperr.New(apperr.Validation, "Empresa já cadastrada. Fale com o responsável em sua empresa para atualizar sua conta de usuário!")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", apperr.Wrap(apperr.Critical, "Erro ao criar conta", err)
	}

	var userID string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		newCompany := model.Company{
			Name:      company.Name,
			Document:  company.Document,
			Telephone: company.Telephone,
		}
		if err := tx.Create(&newCompany).Error; err != nil {
			return err
		}

		profile := model.Profile{
			CompanyID:    &newCompany.ID,
			Email:        email,
			Name:         fullName,
			PasswordHash: string(hash),
		}
		if err := tx.Create(&profile).Error; err != nil {
			return err
		}
		userID = profile.ID

		role := model.UserRole{UserID: profile.ID, Role: model.RoleUser}
		if err := tx.Create(&role).Error; err != nil {
			return err
		}

		settings := model.UserSettings{
			UserID:             profile.ID,
			EmailNotifications: true,
			Theme:              "system",
			Language:           "pt",
		}
		return tx.Create(&settings).Error
	})
	if err != nil {
		return "", apperr.Wrap(apperr.Query, "Erro ao criar conta", err)
	}

	return userID, nil
}

// Login verifies the credentials, applies the tenant gate for
// non-admin users and issues the session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthUser, *Session, error) {
	log := logger.FromContext(ctx)
	email = strings.ToLower(strings.TrimSpace(email))

	var profile model.Profile
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.New(apperr.Authentication, "Credenciais inválidas")
		}
		return nil, nil, apperr.Wrap(apperr.Query, "Erro ao consultar a conta do usuário", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password)); err != nil {
		log.Warn("Invalid password", zap.String("email", email))
		return nil, nil, apperr.New(apperr.Authentication, "Credenciais inválidas")
	}

	role := s.roleOf(ctx, profile.ID)

	if role != model.RoleAdmin {
		if err := s.tenants.CheckTenant(ctx, profile.ID); err != nil {
			return nil, nil, err
		}
	}

	companyID := ""
	if profile.CompanyID != nil {
		companyID = *profile.CompanyID
	}

	token, expiresAt, err := s.jwt.GenerateToken(profile.Email, profile.ID, companyID, role)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.Critical, "Erro ao gerar o token de acesso", err)
	}

	user := &AuthUser{
		ID:        profile.ID,
		CompanyID: profile.CompanyID,
		Email:     profile.Email,
		Name:      profile.Name,
		Role:      role,
		AvatarURL: profile.AvatarURL,
	}
	return user, &Session{AccessToken: token, ExpiresAt: expiresAt}, nil
}

// CurrentUser resolves the profile, role and company link of userID.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*AuthUser, error) {
	var profile model.Profile
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.Authentication, "Usuário não encontrado")
		}
		return nil, apperr.Wrap(apperr.Query, "Erro ao buscar usuário", err)
	}

	return &AuthUser{
		ID:        profile.ID,
		CompanyID: profile.CompanyID,
		Email:     profile.Email,
		Name:      profile.Name,
		Role:      s.roleOf(ctx, profile.ID),
		AvatarURL: profile.AvatarURL,
	}, nil
}

// ResetPassword issues a reset-purpose token for the account. Mail
// delivery is delegated to the frontend/infrastructure; the token and
// redirect target are logged for the dispatcher.
func (s *AuthService) ResetPassword(ctx context.Context, email, redirectTo string) error {
	log := logger.FromContext(ctx)
	email = strings.ToLower(strings.TrimSpace(email))

	var profile model.Profile
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Same answer for unknown accounts; existence is not leaked.
			return nil
		}
		return apperr.Wrap(apperr.Query, "Erro ao redefinir senha", err)
	}

	token, err := s.jwt.GenerateResetToken(profile.Email, profile.ID)
	if err != nil {
		return apperr.Wrap(apperr.Critical, "Erro ao redefinir senha", err)
	}

	log.Info("Password reset token issued",
		zap.String("user_id", profile.ID),
		zap.String("redirect_to", redirectTo),
		zap.String("reset_token", token))
	return nil
}

// UpdatePassword rehashes and stores the new password for userID.
func (s *AuthService) UpdatePassword(ctx context.Context, userID, newPassword string) error {
	if newPassword == "" {
		return apperr.New(apperr.Validation, "Nova senha é obrigatória")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Wrap(apperr.Critical, "Erro ao atualizar senha", err)
	}

	result := s.db.WithContext(ctx).Model(&model.Profile{}).
		Where("id = ?", userID).
		Update("password_hash", string(hash))
	if result.Error != nil {
		return apperr.Wrap(apperr.Query, "Erro ao atualizar senha", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.New(apperr.Authentication, "Usuário não autenticado")
	}
	return nil
}

// DeleteIdentity removes the profile irreversibly; role and settings
// rows go with it through the schema cascade.
func (s *AuthService) DeleteIdentity(ctx context.Context, userID string) error {
	if err := s.db.WithContext(ctx).Where("id = ?", userID).Delete(&model.Profile{}).Error; err != nil {
		return apperr.Wrap(apperr.Query, "Erro ao excluir usuário", err)
	}
	return nil
}

func (s *AuthService) roleOf(ctx context.Context, userID string) string {
	var role model.UserRole
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&role).Error; err != nil {
		return model.RoleUser
	}
	return role.Role
}
