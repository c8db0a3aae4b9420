package entity

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UnknownUserAgent сохраняется, когда клиент не передал User-Agent
const UnknownUserAgent = "unknown"

// ErrAcceptanceImmutable возвращается при попытке изменить или удалить запись согласия
var ErrAcceptanceImmutable = errors.New("policy acceptance records are append-only")

// UserPolicyAcceptance хранит факт принятия политик пользователем (журнал только на добавление).
// Версии хранятся текстовыми снимками без внешних ключей на policy_versions,
// поэтому последующие правки документов не меняют смысл прошлых согласий.
type UserPolicyAcceptance struct {
	ID       string           `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID string           `gorm:"type:varchar(64);not null;index:idx_policy_acceptances_lookup" json:"tenant_id"`
	UserID   string           `gorm:"type:varchar(128);not null;index:idx_policy_acceptances_lookup" json:"user_id"`
	Intent   AcceptanceIntent `gorm:"type:varchar(16);not null;index:idx_policy_acceptances_lookup" json:"intent"`
	Role     string           `gorm:"size:64" json:"role"`

	TermsVersion            *string `gorm:"size:50" json:"terms_version"`
	PrivacyVersion          *string `gorm:"size:50" json:"privacy_version"`
	ChildSafetyVersion      *string `gorm:"size:50" json:"child_safety_version"`
	CommunicationsVersion   *string `gorm:"size:50" json:"communications_version"`
	ApplicationTermsVersion *string `gorm:"size:50" json:"application_terms_version"`

	AcceptedRequired   bool `gorm:"not null;default:true" json:"accepted_required"`
	NotificationsOptIn bool `gorm:"not null;default:false" json:"notifications_opt_in"`
	EmailOptIn         bool `gorm:"not null;default:false" json:"email_opt_in"`
	SMSOptIn           bool `gorm:"column:sms_opt_in;not null;default:false" json:"sms_opt_in"`

	AcceptedAt time.Time `gorm:"not null" json:"accepted_at"`
	IPAddress  string    `gorm:"size:64" json:"ip_address"`
	UserAgent  string    `gorm:"type:text;not null" json:"user_agent"`
}

// AcceptanceSnapshot - версии и предпочтения, зафиксированные в момент согласия
type AcceptanceSnapshot struct {
	TermsVersion            *string
	PrivacyVersion          *string
	ChildSafetyVersion      *string
	CommunicationsVersion   *string
	ApplicationTermsVersion *string

	NotificationsOptIn bool
	EmailOptIn         bool
	SMSOptIn           bool
}

// NewUserPolicyAcceptance создаёт новую запись журнала согласий.
// Это единственный способ получить запись: accepted_required всегда true,
// время фиксируется при создании, пустой userAgent заменяется на "unknown".
func NewUserPolicyAcceptance(
	userID, tenantID string,
	intent AcceptanceIntent,
	role, ipAddress, userAgent string,
	snapshot AcceptanceSnapshot,
	acceptedAt time.Time,
) *UserPolicyAcceptance {
	if userAgent == "" {
		userAgent = UnknownUserAgent
	}
	return &UserPolicyAcceptance{
		ID:                      uuid.NewString(),
		TenantID:                tenantID,
		UserID:                  userID,
		Intent:                  intent,
		Role:                    role,
		TermsVersion:            snapshot.TermsVersion,
		PrivacyVersion:          snapshot.PrivacyVersion,
		ChildSafetyVersion:      snapshot.ChildSafetyVersion,
		CommunicationsVersion:   snapshot.CommunicationsVersion,
		ApplicationTermsVersion: snapshot.ApplicationTermsVersion,
		AcceptedRequired:        true,
		NotificationsOptIn:      snapshot.NotificationsOptIn,
		EmailOptIn:              snapshot.EmailOptIn,
		SMSOptIn:                snapshot.SMSOptIn,
		AcceptedAt:              acceptedAt,
		IPAddress:               ipAddress,
		UserAgent:               userAgent,
	}
}

// TableName определяет имя таблицы для GORM
func (UserPolicyAcceptance) TableName() string {
	return "user_policy_acceptances"
}

// BeforeUpdate запрещает изменение записей журнала
func (*UserPolicyAcceptance) BeforeUpdate(tx *gorm.DB) error {
	return ErrAcceptanceImmutable
}

// BeforeDelete запрещает удаление записей журнала
func (*UserPolicyAcceptance) BeforeDelete(tx *gorm.DB) error {
	return ErrAcceptanceImmutable
}
