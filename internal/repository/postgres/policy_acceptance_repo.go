package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yourusername/policy-api/internal/domain/entity"
	apperrors "github.com/yourusername/policy-api/internal/pkg/errors"
	"gorm.io/gorm"
)

// PolicyAcceptanceRepo реализует PolicyAcceptanceRepository
type PolicyAcceptanceRepo struct {
	db *gorm.DB
}

// NewPolicyAcceptanceRepo создает новый экземпляр
func NewPolicyAcceptanceRepo(db *gorm.DB) *PolicyAcceptanceRepo {
	return &PolicyAcceptanceRepo{db: db}
}

// Create сохраняет новое согласие (чистая вставка, без upsert)
func (r *PolicyAcceptanceRepo) Create(ctx context.Context, acceptance *entity.UserPolicyAcceptance) error {
	if err := r.db.WithContext(ctx).Create(acceptance).Error; err != nil {
		return fmt.Errorf("%w: failed to create policy acceptance: %w", apperrors.ErrStorage, err)
	}
	return nil
}

// FindLatest возвращает последнее обязательное согласие пользователя
func (r *PolicyAcceptanceRepo) FindLatest(ctx context.Context, userID, tenantID string, intent entity.AcceptanceIntent) (*entity.UserPolicyAcceptance, error) {
	var acceptance entity.UserPolicyAcceptance
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND tenant_id = ? AND intent = ? AND accepted_required = ?", userID, tenantID, intent, true).
		Order("accepted_at DESC").
		First(&acceptance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("%w: failed to get latest policy acceptance: %w", apperrors.ErrStorage, err)
	}
	return &acceptance, nil
}

// ListByUser возвращает все согласия пользователя
func (r *PolicyAcceptanceRepo) ListByUser(ctx context.Context, userID, tenantID string) ([]entity.UserPolicyAcceptance, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if tenantID != "" {
		query = query.Where("tenant_id = ?", tenantID)
	}

	var acceptances []entity.UserPolicyAcceptance
	if err := query.Order("accepted_at DESC").Find(&acceptances).Error; err != nil {
		return nil, fmt.Errorf("%w: failed to list policy acceptances: %w", apperrors.ErrStorage, err)
	}
	return acceptances, nil
}

// ListByTenant возвращает согласия тенанта для аудиторской выгрузки
func (r *PolicyAcceptanceRepo) ListByTenant(ctx context.Context, tenantID string, since *time.Time) ([]entity.UserPolicyAcceptance, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if since != nil {
		query = query.Where("accepted_at >= ?", *since)
	}

	var acceptances []entity.UserPolicyAcceptance
	if err := query.Order("accepted_at DESC").Find(&acceptances).Error; err != nil {
		return nil, fmt.Errorf("%w: failed to list tenant policy acceptances: %w", apperrors.ErrStorage, err)
	}
	return acceptances, nil
}
