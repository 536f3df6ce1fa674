package service

import (
	"context"
	"errors"

	"github.com/cicotti/reportfy-api/internal/apperr"
	"github.com/cicotti/reportfy-api/internal/model"
	"gorm.io/gorm"
)

// MsgTenantInactive is the user-facing message for blocked tenants.
const MsgTenantInactive = "A sua conta está inativa. Favor entrar em contato com o suporte."

// TenantChecker answers whether a user's company is allowed to use the
// API. It is re-evaluated on every protected request: tokens stay
// valid after an administrator deactivates a company, so the gate can
// never be cached on the token.
type TenantChecker interface {
	CheckTenant(ctx context.Context, userID string) error
}

// TenantService resolves tenant activation from the profiles and
// companies tables.
type TenantService struct {
	db *gorm.DB
}

func NewTenantService(db *gorm.DB) *TenantService {
	return &TenantService{db: db}
}

// CheckTenant returns nil when the user may proceed. Admins bypass the
// gate; everyone else needs a company that is active and not
// soft-deleted. Lookup failures are Query errors, a blocked company is
// TenantInactive.
func (s *TenantService) CheckTenant(ctx context.Context, userID string) error {
	var role model.UserRole
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&role).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Wrap(apperr.Query, "Erro ao consultar a conta do usuário", err)
	}
	if role.Role == model.RoleAdmin {
		return nil
	}

	var profile model.Profile
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.TenantInactive, MsgTenantInactive)
		}
		return apperr.Wrap(apperr.Query, "Erro ao consultar a conta do usuário", err)
	}
	if profile.CompanyID == nil {
		return apperr.New(apperr.TenantInactive, MsgTenantInactive)
	}

	var company model.Company
	if err := s.db.WithContext(ctx).Where("id = ?", *profile.CompanyID).First(&company).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.TenantInactive, MsgTenantInactive)
		}
		return apperr.Wrap(apperr.Query, "Erro ao consultar a empresa do usuário", err)
	}
	if !company.IsActive || company.IsSoftDeleted {
		return apperr.New(apperr.TenantInactive, MsgTenantInactive)
	}

	return nil
}
