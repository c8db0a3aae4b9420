package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/policy-api/internal/domain/entity"
	"github.com/yourusername/policy-api/internal/domain/repository"
	"github.com/yourusername/policy-api/internal/handler/dto"
	"github.com/yourusername/policy-api/internal/metrics"
	apperrors "github.com/yourusername/policy-api/internal/pkg/errors"
)

const (
	effectivePoliciesGenKey    = "policies:effective:gen"
	effectivePoliciesKeyFormat = "policies:effective:%d:%s"
	platformCacheSegment       = "platform"

	// DefaultEffectivePolicyCacheTTL используется, если TTL не задан в конфигурации
	DefaultEffectivePolicyCacheTTL = 5 * time.Minute
)

// RecordAcceptanceInput - данные одной отправки согласия
type RecordAcceptanceInput struct {
	UserID    string
	TenantID  string
	Intent    entity.AcceptanceIntent
	Role      string
	IPAddress string
	UserAgent string
	Consents  *dto.ConsentPayload
}

// PolicyService разрешает действующие политики и ведёт журнал согласий
type PolicyService struct {
	docRepo        repository.PolicyDocumentRepository
	acceptanceRepo repository.PolicyAcceptanceRepository
	cacheRepo      repository.CacheRepository // nil - без кеша
	cacheTTL       time.Duration
	metrics        *metrics.Metrics
	logger         *zap.Logger
	now            func() time.Time
}

// NewPolicyService создает сервис политик. cacheRepo и m могут быть nil.
func NewPolicyService(
	docRepo repository.PolicyDocumentRepository,
	acceptanceRepo repository.PolicyAcceptanceRepository,
	cacheRepo repository.CacheRepository,
	cacheTTL time.Duration,
	m *metrics.Metrics,
	logger *zap.Logger,
) *PolicyService {
	if cacheTTL <= 0 {
		cacheTTL = DefaultEffectivePolicyCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PolicyService{
		docRepo:        docRepo,
		acceptanceRepo: acceptanceRepo,
		cacheRepo:      cacheRepo,
		cacheTTL:       cacheTTL,
		metrics:        m,
		logger:         logger.Named("PolicyService"),
		now:            time.Now,
	}
}

// ResolveEffectivePolicies возвращает по одной действующей политике на ключ:
// версия тенанта, если она есть, иначе версия платформы.
// Пустой tenantID означает разрешение только по платформе. Порядок результата не гарантируется.
func (s *PolicyService) ResolveEffectivePolicies(ctx context.Context, tenantID string) ([]dto.EffectivePolicy, error) {
	cacheKey, cacheable := s.effectiveCacheKey(ctx, tenantID)
	if cacheable {
		var cached []dto.EffectivePolicy
		err := s.cacheRepo.GetJSON(ctx, cacheKey, &cached)
		switch {
		case err == nil:
			s.metrics.ResolveCache(metrics.CacheHit)
			return cached, nil
		case errors.Is(err, apperrors.ErrNotFound):
			s.metrics.ResolveCache(metrics.CacheMiss)
		default:
			s.metrics.ResolveCache(metrics.CacheError)
			s.logger.Warn("effective policy cache read failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}

	platformDocs, err := s.loadScope(ctx, entity.PolicyScopePlatform, nil)
	if err != nil {
		return nil, err
	}

	var tenantDocs []DocumentWithVersions
	if tenantID != "" {
		tenantDocs, err = s.loadScope(ctx, entity.PolicyScopeTenant, &tenantID)
		if err != nil {
			return nil, err
		}
	}

	result := MergeEffectivePolicies(platformDocs, tenantDocs)

	if cacheable {
		if err := s.cacheRepo.SetJSON(ctx, cacheKey, result, s.cacheTTL); err != nil {
			s.logger.Warn("effective policy cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return result, nil
}

// loadScope загружает активные документы области вместе с их версиями
func (s *PolicyService) loadScope(ctx context.Context, scope entity.PolicyScope, tenantID *string) ([]DocumentWithVersions, error) {
	docs, err := s.docRepo.FindActiveByScope(ctx, scope, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load %s policy documents: %w", scope, err)
	}

	out := make([]DocumentWithVersions, 0, len(docs))
	for _, doc := range docs {
		versions, err := s.docRepo.FindVersionsByDocument(ctx, doc.ID)
		if err != nil {
			return nil, fmt.Errorf("load versions of policy document %s: %w", doc.ID, err)
		}
		out = append(out, DocumentWithVersions{Document: doc, Versions: versions})
	}
	return out, nil
}

// effectiveCacheKey строит ключ кеша с текущим поколением.
// Если кеш недоступен, второй результат false и кеш не используется.
func (s *PolicyService) effectiveCacheKey(ctx context.Context, tenantID string) (string, bool) {
	if s.cacheRepo == nil {
		return "", false
	}

	var gen int64
	raw, err := s.cacheRepo.Get(ctx, effectivePoliciesGenKey)
	switch {
	case err == nil:
		if _, scanErr := fmt.Sscan(raw, &gen); scanErr != nil {
			gen = 0
		}
	case errors.Is(err, apperrors.ErrNotFound):
		gen = 0
	default:
		s.metrics.ResolveCache(metrics.CacheError)
		s.logger.Warn("effective policy cache generation read failed", zap.Error(err))
		return "", false
	}

	segment := platformCacheSegment
	if tenantID != "" {
		segment = "tenant:" + tenantID
	}
	return fmt.Sprintf(effectivePoliciesKeyFormat, gen, segment), true
}

// InvalidateEffectivePolicies сбрасывает все закешированные наборы политик
func (s *PolicyService) InvalidateEffectivePolicies(ctx context.Context) {
	if s.cacheRepo == nil {
		return
	}
	if _, err := s.cacheRepo.Increment(ctx, effectivePoliciesGenKey); err != nil {
		s.logger.Warn("effective policy cache invalidation failed", zap.Error(err))
	}
}

// HasAccepted проверяет, есть ли у пользователя хотя бы одно обязательное согласие
// для тенанта и намерения. Версии не сравниваются с действующими: однажды принятое
// согласие продолжает действовать после публикации новых версий.
func (s *PolicyService) HasAccepted(ctx context.Context, userID, tenantID string, intent entity.AcceptanceIntent) (bool, error) {
	if userID == "" || tenantID == "" {
		return false, nil
	}

	_, err := s.acceptanceRepo.FindLatest(ctx, userID, tenantID, intent)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// RecordAcceptance добавляет одну запись в журнал согласий.
// Повторный вызов с теми же данными создаёт новую запись.
func (s *PolicyService) RecordAcceptance(ctx context.Context, input RecordAcceptanceInput) (*entity.UserPolicyAcceptance, error) {
	if input.UserID == "" || input.TenantID == "" || input.Consents.IsEmpty() {
		return nil, fmt.Errorf("%w: userId, tenantId and consents are required", apperrors.ErrValidation)
	}

	acceptance := entity.NewUserPolicyAcceptance(
		input.UserID,
		input.TenantID,
		input.Intent,
		input.Role,
		input.IPAddress,
		input.UserAgent,
		input.Consents.Snapshot(),
		s.now().UTC(),
	)

	if err := s.acceptanceRepo.Create(ctx, acceptance); err != nil {
		s.logger.Error("failed to record policy acceptance",
			zap.String("user_id", input.UserID),
			zap.String("tenant_id", input.TenantID),
			zap.String("intent", string(input.Intent)),
			zap.Error(err),
		)
		return nil, err
	}

	s.metrics.ConsentRecorded(string(input.Intent))
	s.logger.Info("policy acceptance recorded",
		zap.String("acceptance_id", acceptance.ID),
		zap.String("user_id", input.UserID),
		zap.String("tenant_id", input.TenantID),
		zap.String("intent", string(input.Intent)),
	)
	return acceptance, nil
}
