package repository

import (
	"context"
	"time"

	"github.com/yourusername/policy-api/internal/domain/entity"
)

// PolicyAcceptanceRepository интерфейс журнала согласий.
// Методов изменения и удаления нет: журнал только пополняется.
type PolicyAcceptanceRepository interface {
	// Create добавляет новую запись согласия
	Create(ctx context.Context, acceptance *entity.UserPolicyAcceptance) error

	// FindLatest возвращает последнюю (по accepted_at) запись с accepted_required = true
	// для пары пользователь/тенант и намерения. Возвращает ErrNotFound, если записей нет.
	FindLatest(ctx context.Context, userID, tenantID string, intent entity.AcceptanceIntent) (*entity.UserPolicyAcceptance, error)

	// ListByUser возвращает историю согласий пользователя, новые первыми.
	// tenantID может быть пустым - тогда по всем тенантам.
	ListByUser(ctx context.Context, userID, tenantID string) ([]entity.UserPolicyAcceptance, error)

	// ListByTenant возвращает все согласия тенанта начиная с since (если задано)
	ListByTenant(ctx context.Context, tenantID string, since *time.Time) ([]entity.UserPolicyAcceptance, error)
}
