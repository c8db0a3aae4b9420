package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EffectiveDateLayout - формат даты вступления в силу в API
const EffectiveDateLayout = "2006-01-02"

// PolicyVersion - датированная редакция документа политики.
// Version - произвольная метка (например "2026.02"), порядок определяется только EffectiveDate.
type PolicyVersion struct {
	ID              string         `gorm:"type:uuid;primaryKey" json:"id"`
	DocumentID      string         `gorm:"type:uuid;not null;index" json:"document_id"`
	Version         string         `gorm:"size:50;not null" json:"version"`
	EffectiveDate   datatypes.Date `gorm:"type:date;not null" json:"effective_date"`
	ContentMarkdown string         `gorm:"type:text;not null" json:"content_markdown"`
	CreatedAt       time.Time      `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (PolicyVersion) TableName() string {
	return "policy_versions"
}

// BeforeCreate присваивает идентификатор, если он не задан
func (v *PolicyVersion) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}

// EffectiveTime возвращает дату вступления в силу как time.Time
func (v *PolicyVersion) EffectiveTime() time.Time {
	return time.Time(v.EffectiveDate)
}
