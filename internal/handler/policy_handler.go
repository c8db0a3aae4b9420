package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/policy-api/internal/domain/entity"
	"github.com/yourusername/policy-api/internal/handler/dto"
	"github.com/yourusername/policy-api/internal/metrics"
	"github.com/yourusername/policy-api/internal/service"
)

// PolicyService - операции сервиса политик, нужные публичным эндпоинтам
type PolicyService interface {
	ResolveEffectivePolicies(ctx context.Context, tenantID string) ([]dto.EffectivePolicy, error)
	HasAccepted(ctx context.Context, userID, tenantID string, intent entity.AcceptanceIntent) (bool, error)
	RecordAcceptance(ctx context.Context, input service.RecordAcceptanceInput) (*entity.UserPolicyAcceptance, error)
}

// PolicyHandler обрабатывает публичные запросы политик и согласий
type PolicyHandler struct {
	policyService PolicyService
	metrics       *metrics.Metrics
	logger        *zap.Logger
}

// NewPolicyHandler создает новый обработчик политик
func NewPolicyHandler(policyService PolicyService, m *metrics.Metrics, logger *zap.Logger) *PolicyHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PolicyHandler{
		policyService: policyService,
		metrics:       m,
		logger:        logger.Named("PolicyHandler"),
	}
}

// GetPublicPolicies возвращает действующие политики платформы с переопределениями тенанта
// GET /v1/policies/public?tenantId=
func (h *PolicyHandler) GetPublicPolicies(c *gin.Context) {
	tenantID := strings.TrimSpace(c.Query("tenantId"))

	policies, err := h.policyService.ResolveEffectivePolicies(c.Request.Context(), tenantID)
	if err != nil {
		h.logger.Error("failed to resolve effective policies", zap.String("tenant_id", tenantID), zap.Error(err))
		respondError(c, err, "Policies are currently unavailable")
		return
	}

	c.JSON(http.StatusOK, policies)
}

// CheckStatus сообщает, принимал ли пользователь обязательные политики.
// Отсутствие userId/tenantId и любые ошибки хранилища дают {accepted: false}.
// GET /v1/policies/check-status?userId=&tenantId=&intent=
func (h *PolicyHandler) CheckStatus(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("userId"))
	tenantID := strings.TrimSpace(c.Query("tenantId"))
	if userID == "" || tenantID == "" {
		c.JSON(http.StatusOK, dto.CheckStatusResponse{Accepted: false})
		return
	}

	intent := entity.ParseIntent(c.Query("intent"))
	accepted, err := h.policyService.HasAccepted(c.Request.Context(), userID, tenantID, intent)
	if err != nil {
		h.logger.Warn("consent check failed, treating as not accepted",
			zap.String("user_id", userID),
			zap.String("tenant_id", tenantID),
			zap.String("intent", string(intent)),
			zap.Error(err),
		)
		accepted = false
	}

	h.metrics.CheckStatus(accepted)
	c.JSON(http.StatusOK, dto.CheckStatusResponse{Accepted: accepted})
}

// SubmitConsent записывает согласие пользователя.
// IP и User-Agent берутся из самого запроса, а не из тела.
// POST /v1/policies/consent
func (h *PolicyHandler) SubmitConsent(c *gin.Context) {
	var req dto.ConsentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingErrorMessage(err), "error_type": "validation_error"})
		return
	}

	req.UserID = strings.TrimSpace(req.UserID)
	req.TenantID = strings.TrimSpace(req.TenantID)
	if req.UserID == "" || req.TenantID == "" || req.Consents.IsEmpty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId, tenantId and consents are required", "error_type": "validation_error"})
		return
	}
	if err := req.Consents.Validate(); err != nil {
		respondError(c, err, "Invalid consents")
		return
	}

	record, err := h.policyService.RecordAcceptance(c.Request.Context(), service.RecordAcceptanceInput{
		UserID:    req.UserID,
		TenantID:  req.TenantID,
		Intent:    entity.ParseIntent(req.Intent),
		Role:      req.Role,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Consents:  req.Consents,
	})
	if err != nil {
		respondError(c, err, "Failed to record consent")
		return
	}

	c.JSON(http.StatusCreated, record)
}
