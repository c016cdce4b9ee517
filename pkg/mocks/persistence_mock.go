package mocks

import (
	"context"

	"github.com/dukex/automations/pkg/models"
	"github.com/dukex/automations/pkg/persistence"
	"github.com/dukex/automations/pkg/runtime"
	"github.com/stretchr/testify/mock"
)

// MockStore is a mock implementation of persistence.Store.
type MockStore struct {
	mock.Mock
}

var _ persistence.Store = (*MockStore)(nil)

func (m *MockStore) Create(ctx context.Context, def models.WorkflowDefinition) (persistence.CreateResult, error) {
	args := m.Called(ctx, def)

	return args.Get(0).(persistence.CreateResult), args.Error(1)
}

func (m *MockStore) Update(ctx context.Context, id string, def models.WorkflowDefinition) error {
	args := m.Called(ctx, id, def)

	return args.Error(0)
}

func (m *MockStore) UpdateStepsOnly(ctx context.Context, id string, steps []models.Step) error {
	args := m.Called(ctx, id, steps)

	return args.Error(0)
}

func (m *MockStore) AutomationByID(ctx context.Context, id string) (models.WorkflowDefinition, error) {
	args := m.Called(ctx, id)

	return args.Get(0).(models.WorkflowDefinition), args.Error(1)
}

func (m *MockStore) Template(ctx context.Context, id string) (models.Template, error) {
	args := m.Called(ctx, id)

	return args.Get(0).(models.Template), args.Error(1)
}

func (m *MockStore) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockStore) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

// MockTester is a mock implementation of runtime.Tester.
type MockTester struct {
	mock.Mock
}

var _ runtime.Tester = (*MockTester)(nil)

func (m *MockTester) TestStep(ctx context.Context, req runtime.TestRequest) (runtime.TestResult, error) {
	args := m.Called(ctx, req)

	return args.Get(0).(runtime.TestResult), args.Error(1)
}
