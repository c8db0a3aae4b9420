package repository

import (
	"context"

	"github.com/yourusername/policy-api/internal/domain/entity"
)

// PolicyDocumentFilter задаёт условия выборки документов для административного списка
type PolicyDocumentFilter struct {
	Scope           *entity.PolicyScope
	TenantID        *string
	PolicyKey       *entity.PolicyKey
	IncludeInactive bool
}

// PolicyDocumentUpdate содержит изменяемые поля документа; nil означает "не менять"
type PolicyDocumentUpdate struct {
	Title    *string
	IsActive *bool
}

// PolicyDocumentRepository интерфейс для работы с документами политик и их версиями
type PolicyDocumentRepository interface {
	// FindActiveByScope возвращает активные документы заданной области.
	// Для PolicyScopeTenant tenantID обязателен, для платформы игнорируется.
	FindActiveByScope(ctx context.Context, scope entity.PolicyScope, tenantID *string) ([]entity.PolicyDocument, error)

	// FindVersionsByDocument возвращает все версии документа
	FindVersionsByDocument(ctx context.Context, documentID string) ([]entity.PolicyVersion, error)

	Create(ctx context.Context, doc *entity.PolicyDocument) error
	GetByID(ctx context.Context, id string) (*entity.PolicyDocument, error)
	List(ctx context.Context, filter PolicyDocumentFilter) ([]entity.PolicyDocument, error)
	UpdateMeta(ctx context.Context, id string, update PolicyDocumentUpdate) error
	CreateVersion(ctx context.Context, version *entity.PolicyVersion) error
}
