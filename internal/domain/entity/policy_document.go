package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PolicyDocument - именованная политика на уровне платформы или конкретного тенанта
type PolicyDocument struct {
	ID        string      `gorm:"type:uuid;primaryKey" json:"id"`
	Scope     PolicyScope `gorm:"type:varchar(16);not null;index:idx_policy_documents_lookup" json:"scope"`
	TenantID  *string     `gorm:"type:varchar(64);index:idx_policy_documents_lookup" json:"tenant_id,omitempty"`
	PolicyKey PolicyKey   `gorm:"type:varchar(32);not null" json:"policy_key"`
	Title     string      `gorm:"size:255;not null" json:"title"`
	IsActive  bool        `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`

	// Versions заполняется только явным запросом репозитория
	Versions []PolicyVersion `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"versions,omitempty"`
}

// TableName определяет имя таблицы для GORM
func (PolicyDocument) TableName() string {
	return "policy_documents"
}

// BeforeCreate присваивает идентификатор, если он не задан
func (d *PolicyDocument) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

// IsTenantSpecific сообщает, принадлежит ли документ тенанту
func (d *PolicyDocument) IsTenantSpecific() bool {
	return d.Scope == PolicyScopeTenant
}
