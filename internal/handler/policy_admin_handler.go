package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/policy-api/internal/domain/entity"
	"github.com/yourusername/policy-api/internal/domain/repository"
	"github.com/yourusername/policy-api/internal/handler/dto"
	"github.com/yourusername/policy-api/internal/middleware"
	"github.com/yourusername/policy-api/pkg/auth"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// PolicyAdminService - административные операции над политиками
type PolicyAdminService interface {
	CreateDocument(ctx context.Context, actor *auth.AdminClaims, req dto.CreatePolicyDocumentRequest) (*entity.PolicyDocument, error)
	ListDocuments(ctx context.Context, actor *auth.AdminClaims, filter repository.PolicyDocumentFilter) ([]dto.PolicyDocumentDTO, error)
	GetDocument(ctx context.Context, actor *auth.AdminClaims, id string) (*dto.PolicyDocumentDTO, error)
	UpdateDocument(ctx context.Context, actor *auth.AdminClaims, id string, req dto.UpdatePolicyDocumentRequest) (*dto.PolicyDocumentDTO, error)
	AddVersion(ctx context.Context, actor *auth.AdminClaims, documentID string, req dto.CreatePolicyVersionRequest) (*dto.PolicyVersionDTO, error)
	ListAcceptances(ctx context.Context, actor *auth.AdminClaims, userID, tenantID string) ([]entity.UserPolicyAcceptance, error)
	ExportAcceptances(ctx context.Context, actor *auth.AdminClaims, tenantID string, since *time.Time) ([]byte, error)
}

// PolicyAdminHandler обрабатывает запросы администрирования политик
type PolicyAdminHandler struct {
	adminService PolicyAdminService
	logger       *zap.Logger
}

// NewPolicyAdminHandler создает новый обработчик администрирования
func NewPolicyAdminHandler(adminService PolicyAdminService, logger *zap.Logger) *PolicyAdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PolicyAdminHandler{
		adminService: adminService,
		logger:       logger.Named("PolicyAdminHandler"),
	}
}

// ListDocuments возвращает список документов
// GET /v1/admin/policies/documents?scope=&tenantId=&policyKey=&includeInactive=
func (h *PolicyAdminHandler) ListDocuments(c *gin.Context) {
	var filter repository.PolicyDocumentFilter

	if raw := strings.ToUpper(strings.TrimSpace(c.Query("scope"))); raw != "" {
		scope := entity.PolicyScope(raw)
		if !scope.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "scope must be PLATFORM or TENANT", "error_type": "validation_error"})
			return
		}
		filter.Scope = &scope
	}
	if raw := strings.TrimSpace(c.Query("tenantId")); raw != "" {
		filter.TenantID = &raw
	}
	if raw := strings.ToUpper(strings.TrimSpace(c.Query("policyKey"))); raw != "" {
		key := entity.PolicyKey(raw)
		if !key.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown policyKey %q", raw), "error_type": "validation_error"})
			return
		}
		filter.PolicyKey = &key
	}
	if raw := c.Query("includeInactive"); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "includeInactive must be a boolean", "error_type": "validation_error"})
			return
		}
		filter.IncludeInactive = include
	}

	docs, err := h.adminService.ListDocuments(c.Request.Context(), middleware.AdminClaimsFromContext(c), filter)
	if err != nil {
		respondError(c, err, "Failed to list policy documents")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": docs})
}

// CreateDocument создает документ политики
// POST /v1/admin/policies/documents
func (h *PolicyAdminHandler) CreateDocument(c *gin.Context) {
	var req dto.CreatePolicyDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingErrorMessage(err), "error_type": "validation_error"})
		return
	}

	doc, err := h.adminService.CreateDocument(c.Request.Context(), middleware.AdminClaimsFromContext(c), req)
	if err != nil {
		respondError(c, err, "Failed to create policy document")
		return
	}
	c.JSON(http.StatusCreated, dto.NewPolicyDocumentDTO(*doc, nil))
}

// GetDocument возвращает документ с версиями
// GET /v1/admin/policies/documents/:id
func (h *PolicyAdminHandler) GetDocument(c *gin.Context) {
	doc, err := h.adminService.GetDocument(c.Request.Context(), middleware.AdminClaimsFromContext(c), c.GetString(middleware.DocumentIDKey))
	if err != nil {
		respondError(c, err, "Failed to get policy document")
		return
	}
	c.JSON(http.StatusOK, doc)
}

// UpdateDocument меняет заголовок или активность документа
// PATCH /v1/admin/policies/documents/:id
func (h *PolicyAdminHandler) UpdateDocument(c *gin.Context) {
	var req dto.UpdatePolicyDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingErrorMessage(err), "error_type": "validation_error"})
		return
	}

	doc, err := h.adminService.UpdateDocument(c.Request.Context(), middleware.AdminClaimsFromContext(c), c.GetString(middleware.DocumentIDKey), req)
	if err != nil {
		respondError(c, err, "Failed to update policy document")
		return
	}
	c.JSON(http.StatusOK, doc)
}

// AddVersion публикует новую версию документа
// POST /v1/admin/policies/documents/:id/versions
func (h *PolicyAdminHandler) AddVersion(c *gin.Context) {
	var req dto.CreatePolicyVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingErrorMessage(err), "error_type": "validation_error"})
		return
	}

	version, err := h.adminService.AddVersion(c.Request.Context(), middleware.AdminClaimsFromContext(c), c.GetString(middleware.DocumentIDKey), req)
	if err != nil {
		respondError(c, err, "Failed to publish policy version")
		return
	}
	c.JSON(http.StatusCreated, version)
}

// ListAcceptances возвращает историю согласий пользователя
// GET /v1/admin/policies/acceptances?userId=&tenantId=
func (h *PolicyAdminHandler) ListAcceptances(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("userId"))
	tenantID := strings.TrimSpace(c.Query("tenantId"))

	items, err := h.adminService.ListAcceptances(c.Request.Context(), middleware.AdminClaimsFromContext(c), userID, tenantID)
	if err != nil {
		respondError(c, err, "Failed to list acceptances")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// ExportAcceptances отдаёт XLSX-выгрузку журнала согласий тенанта
// GET /v1/admin/policies/acceptances/export?tenantId=&since=YYYY-MM-DD
func (h *PolicyAdminHandler) ExportAcceptances(c *gin.Context) {
	tenantID := strings.TrimSpace(c.Query("tenantId"))

	var since *time.Time
	if raw := strings.TrimSpace(c.Query("since")); raw != "" {
		t, err := time.Parse(entity.EffectiveDateLayout, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be YYYY-MM-DD", "error_type": "validation_error"})
			return
		}
		since = &t
	}

	data, err := h.adminService.ExportAcceptances(c.Request.Context(), middleware.AdminClaimsFromContext(c), tenantID, since)
	if err != nil {
		respondError(c, err, "Failed to export acceptances")
		return
	}

	filename := fmt.Sprintf("policy-acceptances-%s-%s.xlsx", tenantID, time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}
