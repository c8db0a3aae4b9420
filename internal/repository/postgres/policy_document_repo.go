package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/yourusername/policy-api/internal/domain/entity"
	"github.com/yourusername/policy-api/internal/domain/repository"
	apperrors "github.com/yourusername/policy-api/internal/pkg/errors"
	"gorm.io/gorm"
)

// PolicyDocumentRepo реализует PolicyDocumentRepository поверх GORM
type PolicyDocumentRepo struct {
	db *gorm.DB
}

// NewPolicyDocumentRepo создает новый экземпляр
func NewPolicyDocumentRepo(db *gorm.DB) *PolicyDocumentRepo {
	return &PolicyDocumentRepo{db: db}
}

// FindActiveByScope возвращает активные документы платформы или указанного тенанта
func (r *PolicyDocumentRepo) FindActiveByScope(ctx context.Context, scope entity.PolicyScope, tenantID *string) ([]entity.PolicyDocument, error) {
	query := r.db.WithContext(ctx).
		Where("scope = ? AND is_active = ?", scope, true)

	if scope == entity.PolicyScopeTenant {
		if tenantID == nil {
			return nil, fmt.Errorf("%w: tenant scope requires tenant id", apperrors.ErrValidation)
		}
		query = query.Where("tenant_id = ?", *tenantID)
	} else {
		query = query.Where("tenant_id IS NULL")
	}

	var docs []entity.PolicyDocument
	if err := query.Order("created_at ASC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("%w: failed to find policy documents: %w", apperrors.ErrStorage, err)
	}
	return docs, nil
}

// FindVersionsByDocument возвращает версии документа, новые по дате вступления первыми
func (r *PolicyDocumentRepo) FindVersionsByDocument(ctx context.Context, documentID string) ([]entity.PolicyVersion, error) {
	var versions []entity.PolicyVersion
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("effective_date DESC, created_at DESC").
		Find(&versions).Error
	if err != nil {
		return nil, fmt.Errorf("%w: failed to find policy versions: %w", apperrors.ErrStorage, err)
	}
	return versions, nil
}

// Create сохраняет новый документ
func (r *PolicyDocumentRepo) Create(ctx context.Context, doc *entity.PolicyDocument) error {
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		return fmt.Errorf("%w: failed to create policy document: %w", apperrors.ErrStorage, err)
	}
	return nil
}

// GetByID возвращает документ по идентификатору без версий
func (r *PolicyDocumentRepo) GetByID(ctx context.Context, id string) (*entity.PolicyDocument, error) {
	var doc entity.PolicyDocument
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("%w: failed to get policy document: %w", apperrors.ErrStorage, err)
	}
	return &doc, nil
}

// List возвращает документы по фильтру
func (r *PolicyDocumentRepo) List(ctx context.Context, filter repository.PolicyDocumentFilter) ([]entity.PolicyDocument, error) {
	query := r.db.WithContext(ctx).Model(&entity.PolicyDocument{})

	if filter.Scope != nil {
		query = query.Where("scope = ?", *filter.Scope)
	}
	if filter.TenantID != nil {
		query = query.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.PolicyKey != nil {
		query = query.Where("policy_key = ?", *filter.PolicyKey)
	}
	if !filter.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}

	var docs []entity.PolicyDocument
	if err := query.Order("scope ASC, policy_key ASC, created_at DESC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("%w: failed to list policy documents: %w", apperrors.ErrStorage, err)
	}
	return docs, nil
}

// UpdateMeta изменяет заголовок и/или флаг активности документа
func (r *PolicyDocumentRepo) UpdateMeta(ctx context.Context, id string, update repository.PolicyDocumentUpdate) error {
	updates := map[string]interface{}{}
	if update.Title != nil {
		updates["title"] = *update.Title
	}
	if update.IsActive != nil {
		updates["is_active"] = *update.IsActive
	}
	if len(updates) == 0 {
		return nil
	}

	result := r.db.WithContext(ctx).
		Model(&entity.PolicyDocument{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("%w: failed to update policy document: %w", apperrors.ErrStorage, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// CreateVersion сохраняет новую версию документа
func (r *PolicyDocumentRepo) CreateVersion(ctx context.Context, version *entity.PolicyVersion) error {
	if err := r.db.WithContext(ctx).Create(version).Error; err != nil {
		return fmt.Errorf("%w: failed to create policy version: %w", apperrors.ErrStorage, err)
	}
	return nil
}
