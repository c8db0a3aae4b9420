package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/yourusername/policy-api/internal/domain/entity"
	"github.com/yourusername/policy-api/internal/domain/repository"
)

// ============================================================================
// Моки репозиториев
// ============================================================================

// MockPolicyDocumentRepo реализует repository.PolicyDocumentRepository
type MockPolicyDocumentRepo struct {
	mock.Mock
}

func (m *MockPolicyDocumentRepo) FindActiveByScope(ctx context.Context, scope entity.PolicyScope, tenantID *string) ([]entity.PolicyDocument, error) {
	args := m.Called(ctx, scope, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.PolicyDocument), args.Error(1)
}

func (m *MockPolicyDocumentRepo) FindVersionsByDocument(ctx context.Context, documentID string) ([]entity.PolicyVersion, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.PolicyVersion), args.Error(1)
}

func (m *MockPolicyDocumentRepo) Create(ctx context.Context, doc *entity.PolicyDocument) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockPolicyDocumentRepo) GetByID(ctx context.Context, id string) (*entity.PolicyDocument, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.PolicyDocument), args.Error(1)
}

func (m *MockPolicyDocumentRepo) List(ctx context.Context, filter repository.PolicyDocumentFilter) ([]entity.PolicyDocument, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.PolicyDocument), args.Error(1)
}

func (m *MockPolicyDocumentRepo) UpdateMeta(ctx context.Context, id string, update repository.PolicyDocumentUpdate) error {
	args := m.Called(ctx, id, update)
	return args.Error(0)
}

func (m *MockPolicyDocumentRepo) CreateVersion(ctx context.Context, v *entity.PolicyVersion) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

// MockPolicyAcceptanceRepo реализует repository.PolicyAcceptanceRepository
type MockPolicyAcceptanceRepo struct {
	mock.Mock
}

func (m *MockPolicyAcceptanceRepo) Create(ctx context.Context, acceptance *entity.UserPolicyAcceptance) error {
	args := m.Called(ctx, acceptance)
	return args.Error(0)
}

func (m *MockPolicyAcceptanceRepo) FindLatest(ctx context.Context, userID, tenantID string, intent entity.AcceptanceIntent) (*entity.UserPolicyAcceptance, error) {
	args := m.Called(ctx, userID, tenantID, intent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.UserPolicyAcceptance), args.Error(1)
}

func (m *MockPolicyAcceptanceRepo) ListByUser(ctx context.Context, userID, tenantID string) ([]entity.UserPolicyAcceptance, error) {
	args := m.Called(ctx, userID, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.UserPolicyAcceptance), args.Error(1)
}

func (m *MockPolicyAcceptanceRepo) ListByTenant(ctx context.Context, tenantID string, since *time.Time) ([]entity.UserPolicyAcceptance, error) {
	args := m.Called(ctx, tenantID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.UserPolicyAcceptance), args.Error(1)
}

// MockCacheRepo реализует repository.CacheRepository
type MockCacheRepo struct {
	mock.Mock
}

func (m *MockCacheRepo) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockCacheRepo) Increment(ctx context.Context, key string) (int64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCacheRepo) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepo) GetJSON(ctx context.Context, key string, dest interface{}) error {
	args := m.Called(ctx, key, dest)
	return args.Error(0)
}

// MockInvalidator реализует CacheInvalidator
type MockInvalidator struct {
	mock.Mock
}

func (m *MockInvalidator) InvalidateEffectivePolicies(ctx context.Context) {
	m.Called(ctx)
}
