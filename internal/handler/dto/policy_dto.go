package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/yourusername/policy-api/internal/domain/entity"
	apperrors "github.com/yourusername/policy-api/internal/pkg/errors"
)

// MaxVersionLabelLength совпадает с шириной колонок *_version в user_policy_acceptances
const MaxVersionLabelLength = 50

// EffectivePolicy - действующая редакция политики для отображения клиенту
type EffectivePolicy struct {
	PolicyKey        entity.PolicyKey `json:"policy_key"`
	Title            string           `json:"title"`
	VersionLabel     string           `json:"version_label"`
	Content          string           `json:"content"`
	EffectiveDate    string           `json:"effective_date"` // YYYY-MM-DD
	IsTenantSpecific bool             `json:"is_tenant_specific"`
}

// CheckStatusResponse - ответ на проверку наличия согласия
type CheckStatusResponse struct {
	Accepted bool `json:"accepted"`
}

// ConsentRequest - тело запроса POST /v1/policies/consent
type ConsentRequest struct {
	UserID   string          `json:"userId" binding:"required,max=128"`
	TenantID string          `json:"tenantId" binding:"required,max=64"`
	Intent   string          `json:"intent"`
	Role     string          `json:"role" binding:"omitempty,max=64"`
	Consents *ConsentPayload `json:"consents" binding:"required"`
}

// ConsentPayload - набор согласий из запроса.
// Известные ключи разбираются, неизвестные игнорируются:
// notifications/email/sms приводятся к bool по правилам "truthy",
// *_version копируются как есть (отсутствующий или null ключ даёт nil).
type ConsentPayload struct {
	Notifications bool
	Email         bool
	SMS           bool

	TermsVersion            *string
	PrivacyVersion          *string
	ChildSafetyVersion      *string
	CommunicationsVersion   *string
	ApplicationTermsVersion *string

	keys int
}

// UnmarshalJSON разбирает объект согласий
func (p *ConsentPayload) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("consents must be an object: %w", err)
	}

	*p = ConsentPayload{keys: len(raw)}
	p.Notifications = isTruthy(raw["notifications"])
	p.Email = isTruthy(raw["email"])
	p.SMS = isTruthy(raw["sms"])

	p.TermsVersion = versionLabel(raw["terms_version"])
	p.PrivacyVersion = versionLabel(raw["privacy_version"])
	p.ChildSafetyVersion = versionLabel(raw["child_safety_version"])
	p.CommunicationsVersion = versionLabel(raw["communications_version"])
	p.ApplicationTermsVersion = versionLabel(raw["application_terms_version"])
	return nil
}

// IsEmpty сообщает, что объект согласий не содержал ни одного ключа
func (p *ConsentPayload) IsEmpty() bool {
	return p == nil || p.keys == 0
}

// Validate проверяет, что метки версий помещаются в журнал
func (p *ConsentPayload) Validate() error {
	labels := []struct {
		name  string
		value *string
	}{
		{"terms_version", p.TermsVersion},
		{"privacy_version", p.PrivacyVersion},
		{"child_safety_version", p.ChildSafetyVersion},
		{"communications_version", p.CommunicationsVersion},
		{"application_terms_version", p.ApplicationTermsVersion},
	}
	for _, l := range labels {
		if l.value != nil && utf8.RuneCountInString(*l.value) > MaxVersionLabelLength {
			return fmt.Errorf("%w: consents.%s must be at most %d characters", apperrors.ErrValidation, l.name, MaxVersionLabelLength)
		}
	}
	return nil
}

// Snapshot переводит согласия в снимок для записи журнала
func (p *ConsentPayload) Snapshot() entity.AcceptanceSnapshot {
	return entity.AcceptanceSnapshot{
		TermsVersion:            p.TermsVersion,
		PrivacyVersion:          p.PrivacyVersion,
		ChildSafetyVersion:      p.ChildSafetyVersion,
		CommunicationsVersion:   p.CommunicationsVersion,
		ApplicationTermsVersion: p.ApplicationTermsVersion,
		NotificationsOptIn:      p.Notifications,
		EmailOptIn:              p.Email,
		SMSOptIn:                p.SMS,
	}
}

// isTruthy: false, 0, "", null и отсутствие ключа - ложь; всё остальное - истина
func isTruthy(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return false
	}
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case json.Number:
		// Переполнение даёт ±Inf (истина), исчезновение порядка - 0 (ложь)
		f, _ := strconv.ParseFloat(t.String(), 64)
		return f != 0
	case string:
		return t != ""
	default:
		return true
	}
}

// versionLabel копирует метку версии; нестроковые значения сохраняются их JSON-текстом
func versionLabel(raw json.RawMessage) *string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &s
	}
	text := string(raw)
	return &text
}

// --- Администрирование ---

// CreatePolicyDocumentRequest - создание документа политики
type CreatePolicyDocumentRequest struct {
	Scope     string  `json:"scope" binding:"required,oneof=PLATFORM TENANT"`
	TenantID  *string `json:"tenantId"`
	PolicyKey string  `json:"policyKey" binding:"required"`
	Title     string  `json:"title" binding:"required,max=255"`
}

// UpdatePolicyDocumentRequest - частичное обновление документа
type UpdatePolicyDocumentRequest struct {
	Title    *string `json:"title" binding:"omitempty,min=1,max=255"`
	IsActive *bool   `json:"isActive"`
}

// CreatePolicyVersionRequest - публикация новой версии документа
type CreatePolicyVersionRequest struct {
	Version         string `json:"version" binding:"required,max=50"`
	EffectiveDate   string `json:"effectiveDate" binding:"required"`
	ContentMarkdown string `json:"contentMarkdown" binding:"required"`
}

// PolicyVersionDTO - версия документа в административном ответе
type PolicyVersionDTO struct {
	ID              string    `json:"id"`
	Version         string    `json:"version"`
	EffectiveDate   string    `json:"effective_date"`
	ContentMarkdown string    `json:"content_markdown"`
	CreatedAt       time.Time `json:"created_at"`
}

// PolicyDocumentDTO - документ с версиями (новые первыми)
type PolicyDocumentDTO struct {
	ID        string             `json:"id"`
	Scope     entity.PolicyScope `json:"scope"`
	TenantID  *string            `json:"tenant_id,omitempty"`
	PolicyKey entity.PolicyKey   `json:"policy_key"`
	Title     string             `json:"title"`
	IsActive  bool               `json:"is_active"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
	Versions  []PolicyVersionDTO `json:"versions,omitempty"`
}

// NewPolicyVersionDTO конвертирует сущность версии
func NewPolicyVersionDTO(v entity.PolicyVersion) PolicyVersionDTO {
	return PolicyVersionDTO{
		ID:              v.ID,
		Version:         v.Version,
		EffectiveDate:   v.EffectiveTime().Format(entity.EffectiveDateLayout),
		ContentMarkdown: v.ContentMarkdown,
		CreatedAt:       v.CreatedAt,
	}
}

// NewPolicyDocumentDTO конвертирует сущность документа вместе с переданными версиями
func NewPolicyDocumentDTO(doc entity.PolicyDocument, versions []entity.PolicyVersion) PolicyDocumentDTO {
	out := PolicyDocumentDTO{
		ID:        doc.ID,
		Scope:     doc.Scope,
		TenantID:  doc.TenantID,
		PolicyKey: doc.PolicyKey,
		Title:     doc.Title,
		IsActive:  doc.IsActive,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
	if len(versions) > 0 {
		out.Versions = make([]PolicyVersionDTO, len(versions))
		for i, v := range versions {
			out.Versions[i] = NewPolicyVersionDTO(v)
		}
	}
	return out
}
