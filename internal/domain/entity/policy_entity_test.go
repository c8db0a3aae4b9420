package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var noTx *gorm.DB = nil

func TestParseIntent(t *testing.T) {
	tests := []struct {
		raw  string
		want AcceptanceIntent
	}{
		{"apply", IntentApply},
		{"app", IntentApp},
		{"", IntentApp},
		{"APPLY", IntentApp},
		{"admin", IntentApp},
		{"something-else", IntentApp},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseIntent(tt.raw))
		})
	}
}

func TestPolicyKey_IsValid(t *testing.T) {
	for _, key := range AllPolicyKeys {
		assert.True(t, key.IsValid(), "ключ %s должен быть допустим", key)
	}
	assert.Len(t, AllPolicyKeys, 8)
	assert.False(t, PolicyKey("terms").IsValid(), "ключи чувствительны к регистру")
	assert.False(t, PolicyKey("REFUNDS").IsValid())
	assert.False(t, PolicyKey("").IsValid())
}

func TestPolicyScope_IsValid(t *testing.T) {
	assert.True(t, PolicyScopePlatform.IsValid())
	assert.True(t, PolicyScopeTenant.IsValid())
	assert.False(t, PolicyScope("GLOBAL").IsValid())
}

func TestPolicyDocument_BeforeCreate_AssignsID(t *testing.T) {
	doc := &PolicyDocument{Scope: PolicyScopePlatform, PolicyKey: PolicyKeyTerms, Title: "Terms"}
	require.NoError(t, doc.BeforeCreate(noTx))
	assert.Len(t, doc.ID, 36)

	// Заданный идентификатор не перезаписывается
	doc = &PolicyDocument{ID: "fixed-id"}
	require.NoError(t, doc.BeforeCreate(noTx))
	assert.Equal(t, "fixed-id", doc.ID)
}

func TestPolicyDocument_IsTenantSpecific(t *testing.T) {
	assert.False(t, (&PolicyDocument{Scope: PolicyScopePlatform}).IsTenantSpecific())
	assert.True(t, (&PolicyDocument{Scope: PolicyScopeTenant}).IsTenantSpecific())
}

func TestPolicyVersion_EffectiveTime(t *testing.T) {
	day := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	v := &PolicyVersion{EffectiveDate: datatypes.Date(day)}
	assert.Equal(t, "2026-02-01", v.EffectiveTime().Format(EffectiveDateLayout))

	require.NoError(t, v.BeforeCreate(noTx))
	assert.NotEmpty(t, v.ID)
}

func TestNewUserPolicyAcceptance_Defaults(t *testing.T) {
	terms := "2026.02"
	acceptedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	a := NewUserPolicyAcceptance("u1", "t1", IntentApply, "student", "10.0.0.1", "",
		AcceptanceSnapshot{TermsVersion: &terms, EmailOptIn: true}, acceptedAt)

	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "u1", a.UserID)
	assert.Equal(t, "t1", a.TenantID)
	assert.Equal(t, IntentApply, a.Intent)
	assert.Equal(t, "student", a.Role)
	assert.True(t, a.AcceptedRequired, "обязательное согласие всегда true")
	assert.Equal(t, UnknownUserAgent, a.UserAgent)
	assert.Equal(t, acceptedAt, a.AcceptedAt)
	assert.Equal(t, "10.0.0.1", a.IPAddress)
	require.NotNil(t, a.TermsVersion)
	assert.Equal(t, "2026.02", *a.TermsVersion)
	assert.Nil(t, a.PrivacyVersion)
	assert.True(t, a.EmailOptIn)
	assert.False(t, a.NotificationsOptIn)
	assert.False(t, a.SMSOptIn)
}

func TestNewUserPolicyAcceptance_KeepsUserAgentAndDistinctIDs(t *testing.T) {
	now := time.Now()
	first := NewUserPolicyAcceptance("u1", "t1", IntentApp, "", "", "Mozilla/5.0", AcceptanceSnapshot{}, now)
	second := NewUserPolicyAcceptance("u1", "t1", IntentApp, "", "", "Mozilla/5.0", AcceptanceSnapshot{}, now)

	assert.Equal(t, "Mozilla/5.0", first.UserAgent)
	assert.NotEqual(t, first.ID, second.ID, "повторная отправка создаёт отдельную запись")
}

func TestUserPolicyAcceptance_IsImmutable(t *testing.T) {
	a := NewUserPolicyAcceptance("u1", "t1", IntentApp, "", "", "", AcceptanceSnapshot{}, time.Now())

	assert.ErrorIs(t, a.BeforeUpdate(noTx), ErrAcceptanceImmutable)
	assert.ErrorIs(t, a.BeforeDelete(noTx), ErrAcceptanceImmutable)
	assert.Equal(t, "user_policy_acceptances", a.TableName())
}
