package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/yourusername/policy-api/internal/domain/entity"
	"github.com/yourusername/policy-api/internal/domain/repository"
	"github.com/yourusername/policy-api/internal/handler/dto"
	apperrors "github.com/yourusername/policy-api/internal/pkg/errors"
	"github.com/yourusername/policy-api/pkg/auth"
)

const acceptanceExportSheet = "Acceptances"

// CacheInvalidator сбрасывает кеш действующих политик после изменений
type CacheInvalidator interface {
	InvalidateEffectivePolicies(ctx context.Context)
}

// PolicyAdminService управляет документами политик и предоставляет аудит согласий
type PolicyAdminService struct {
	docRepo        repository.PolicyDocumentRepository
	acceptanceRepo repository.PolicyAcceptanceRepository
	invalidator    CacheInvalidator
	logger         *zap.Logger
}

// NewPolicyAdminService создает административный сервис политик
func NewPolicyAdminService(
	docRepo repository.PolicyDocumentRepository,
	acceptanceRepo repository.PolicyAcceptanceRepository,
	invalidator CacheInvalidator,
	logger *zap.Logger,
) *PolicyAdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PolicyAdminService{
		docRepo:        docRepo,
		acceptanceRepo: acceptanceRepo,
		invalidator:    invalidator,
		logger:         logger.Named("PolicyAdminService"),
	}
}

// authorizeDocument проверяет, что администратор может управлять документом данной области
func authorizeDocument(actor *auth.AdminClaims, scope entity.PolicyScope, tenantID *string) error {
	if actor == nil {
		return apperrors.ErrUnauthorized
	}
	if actor.IsPlatformAdmin() {
		return nil
	}
	if scope != entity.PolicyScopeTenant || tenantID == nil || !actor.CanManageTenant(*tenantID) {
		return apperrors.ErrForbidden
	}
	return nil
}

// CreateDocument создает документ политики.
// Для TENANT обязателен tenantId, для PLATFORM он запрещён.
// Второй активный документ с теми же (scope, tenant, key) отклоняется с ErrConflict.
func (s *PolicyAdminService) CreateDocument(ctx context.Context, actor *auth.AdminClaims, req dto.CreatePolicyDocumentRequest) (*entity.PolicyDocument, error) {
	scope := entity.PolicyScope(req.Scope)
	key := entity.PolicyKey(strings.ToUpper(req.PolicyKey))

	if !scope.IsValid() {
		return nil, fmt.Errorf("%w: unknown scope %q", apperrors.ErrValidation, req.Scope)
	}
	if !key.IsValid() {
		return nil, fmt.Errorf("%w: unknown policy key %q", apperrors.ErrValidation, req.PolicyKey)
	}

	var tenantID *string
	if req.TenantID != nil {
		if trimmed := strings.TrimSpace(*req.TenantID); trimmed != "" {
			tenantID = &trimmed
		}
	}
	switch scope {
	case entity.PolicyScopeTenant:
		if tenantID == nil {
			return nil, fmt.Errorf("%w: tenantId is required for TENANT scope", apperrors.ErrValidation)
		}
	case entity.PolicyScopePlatform:
		if tenantID != nil {
			return nil, fmt.Errorf("%w: tenantId must be empty for PLATFORM scope", apperrors.ErrValidation)
		}
	}

	if err := authorizeDocument(actor, scope, tenantID); err != nil {
		return nil, err
	}

	existing, err := s.docRepo.FindActiveByScope(ctx, scope, tenantID)
	if err != nil {
		return nil, err
	}
	for _, doc := range existing {
		if doc.PolicyKey == key {
			return nil, fmt.Errorf("%w: active %s document already exists (id %s)", apperrors.ErrConflict, key, doc.ID)
		}
	}

	doc := &entity.PolicyDocument{
		Scope:     scope,
		TenantID:  tenantID,
		PolicyKey: key,
		Title:     strings.TrimSpace(req.Title),
		IsActive:  true,
	}
	if err := s.docRepo.Create(ctx, doc); err != nil {
		return nil, err
	}

	s.invalidator.InvalidateEffectivePolicies(ctx)
	s.logger.Info("policy document created",
		zap.String("document_id", doc.ID),
		zap.String("scope", string(scope)),
		zap.String("policy_key", string(key)),
		zap.String("actor", actor.Subject),
	)
	return doc, nil
}

// ListDocuments возвращает документы по фильтру.
// Администратор тенанта видит только документы своего тенанта.
func (s *PolicyAdminService) ListDocuments(ctx context.Context, actor *auth.AdminClaims, filter repository.PolicyDocumentFilter) ([]dto.PolicyDocumentDTO, error) {
	if actor == nil {
		return nil, apperrors.ErrUnauthorized
	}
	if !actor.IsPlatformAdmin() {
		tenantScope := entity.PolicyScopeTenant
		tenantID := actor.TenantID
		if filter.TenantID != nil && *filter.TenantID != tenantID {
			return nil, apperrors.ErrForbidden
		}
		filter.Scope = &tenantScope
		filter.TenantID = &tenantID
	}

	docs, err := s.docRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	out := make([]dto.PolicyDocumentDTO, len(docs))
	for i, doc := range docs {
		out[i] = dto.NewPolicyDocumentDTO(doc, nil)
	}
	return out, nil
}

// GetDocument возвращает документ со всеми версиями (новые первыми)
func (s *PolicyAdminService) GetDocument(ctx context.Context, actor *auth.AdminClaims, id string) (*dto.PolicyDocumentDTO, error) {
	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeDocument(actor, doc.Scope, doc.TenantID); err != nil {
		return nil, err
	}

	versions, err := s.docRepo.FindVersionsByDocument(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	out := dto.NewPolicyDocumentDTO(*doc, versions)
	return &out, nil
}

// UpdateDocument меняет заголовок и/или активность документа.
// Документы не удаляются - вместо этого они деактивируются.
func (s *PolicyAdminService) UpdateDocument(ctx context.Context, actor *auth.AdminClaims, id string, req dto.UpdatePolicyDocumentRequest) (*dto.PolicyDocumentDTO, error) {
	if req.Title == nil && req.IsActive == nil {
		return nil, fmt.Errorf("%w: nothing to update", apperrors.ErrValidation)
	}

	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeDocument(actor, doc.Scope, doc.TenantID); err != nil {
		return nil, err
	}

	update := repository.PolicyDocumentUpdate{IsActive: req.IsActive}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title must not be blank", apperrors.ErrValidation)
		}
		update.Title = &title
	}

	// Повторная активация не должна создавать второй активный документ для ключа
	if req.IsActive != nil && *req.IsActive && !doc.IsActive {
		active, err := s.docRepo.FindActiveByScope(ctx, doc.Scope, doc.TenantID)
		if err != nil {
			return nil, err
		}
		for _, other := range active {
			if other.PolicyKey == doc.PolicyKey && other.ID != doc.ID {
				return nil, fmt.Errorf("%w: active %s document already exists (id %s)", apperrors.ErrConflict, doc.PolicyKey, other.ID)
			}
		}
	}

	if err := s.docRepo.UpdateMeta(ctx, id, update); err != nil {
		return nil, err
	}
	s.invalidator.InvalidateEffectivePolicies(ctx)

	return s.GetDocument(ctx, actor, id)
}

// AddVersion публикует новую версию документа
func (s *PolicyAdminService) AddVersion(ctx context.Context, actor *auth.AdminClaims, documentID string, req dto.CreatePolicyVersionRequest) (*dto.PolicyVersionDTO, error) {
	effective, err := time.Parse(entity.EffectiveDateLayout, strings.TrimSpace(req.EffectiveDate))
	if err != nil {
		return nil, fmt.Errorf("%w: effectiveDate must be YYYY-MM-DD", apperrors.ErrValidation)
	}
	label := strings.TrimSpace(req.Version)
	if label == "" || strings.TrimSpace(req.ContentMarkdown) == "" {
		return nil, fmt.Errorf("%w: version and contentMarkdown are required", apperrors.ErrValidation)
	}

	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := authorizeDocument(actor, doc.Scope, doc.TenantID); err != nil {
		return nil, err
	}

	version := &entity.PolicyVersion{
		DocumentID:      doc.ID,
		Version:         label,
		EffectiveDate:   datatypes.Date(effective),
		ContentMarkdown: req.ContentMarkdown,
	}
	if err := s.docRepo.CreateVersion(ctx, version); err != nil {
		return nil, err
	}

	s.invalidator.InvalidateEffectivePolicies(ctx)
	s.logger.Info("policy version published",
		zap.String("document_id", doc.ID),
		zap.String("version", label),
		zap.String("effective_date", req.EffectiveDate),
		zap.String("actor", actor.Subject),
	)

	out := dto.NewPolicyVersionDTO(*version)
	return &out, nil
}

// ListAcceptances возвращает историю согласий пользователя, новые первыми
func (s *PolicyAdminService) ListAcceptances(ctx context.Context, actor *auth.AdminClaims, userID, tenantID string) ([]entity.UserPolicyAcceptance, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userId is required", apperrors.ErrValidation)
	}
	if actor == nil {
		return nil, apperrors.ErrUnauthorized
	}
	if !actor.IsPlatformAdmin() {
		if tenantID != "" && tenantID != actor.TenantID {
			return nil, apperrors.ErrForbidden
		}
		tenantID = actor.TenantID
	}
	return s.acceptanceRepo.ListByUser(ctx, userID, tenantID)
}

// ExportAcceptances строит XLSX-выгрузку журнала согласий тенанта
func (s *PolicyAdminService) ExportAcceptances(ctx context.Context, actor *auth.AdminClaims, tenantID string, since *time.Time) ([]byte, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantId is required", apperrors.ErrValidation)
	}
	if actor == nil {
		return nil, apperrors.ErrUnauthorized
	}
	if !actor.CanManageTenant(tenantID) {
		return nil, apperrors.ErrForbidden
	}

	rows, err := s.acceptanceRepo.ListByTenant(ctx, tenantID, since)
	if err != nil {
		return nil, err
	}
	return buildAcceptanceWorkbook(rows)
}

// acceptanceExportHeader - колонки аудиторской выгрузки
var acceptanceExportHeader = []interface{}{
	"ID", "Accepted At (UTC)", "Tenant", "User", "Intent", "Role",
	"Terms", "Privacy", "Child Safety", "Communications", "Application Terms",
	"Notifications", "Email", "SMS", "IP Address", "User Agent",
}

func buildAcceptanceWorkbook(rows []entity.UserPolicyAcceptance) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", acceptanceExportSheet); err != nil {
		return nil, fmt.Errorf("failed to name export sheet: %w", err)
	}
	if err := f.SetSheetRow(acceptanceExportSheet, "A1", &acceptanceExportHeader); err != nil {
		return nil, fmt.Errorf("failed to write export header: %w", err)
	}

	for i, a := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{
			a.ID,
			a.AcceptedAt.UTC().Format(time.RFC3339),
			a.TenantID,
			a.UserID,
			string(a.Intent),
			a.Role,
			derefOrEmpty(a.TermsVersion),
			derefOrEmpty(a.PrivacyVersion),
			derefOrEmpty(a.ChildSafetyVersion),
			derefOrEmpty(a.CommunicationsVersion),
			derefOrEmpty(a.ApplicationTermsVersion),
			a.NotificationsOptIn,
			a.EmailOptIn,
			a.SMSOptIn,
			a.IPAddress,
			a.UserAgent,
		}
		if err := f.SetSheetRow(acceptanceExportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write export row %d: %w", i+1, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to render export workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
