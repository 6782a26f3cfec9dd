// Package mocks provides testify mocks of the engine and event bus.
package mocks

import (
	"context"

	"github.com/dukex/operion-forms/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockEngine is a mock implementation of engine.Client interface.
type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) GetWorkflowInitialInfo(ctx context.Context, workflowType string) (*models.InitialInfo, error) {
	args := m.Called(ctx, workflowType)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.InitialInfo), args.Error(1)
}

func (m *MockEngine) GetWorkflowInfo(ctx context.Context, id string) (*models.WorkflowInstance, error) {
	args := m.Called(ctx, id)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.WorkflowInstance), args.Error(1)
}

func (m *MockEngine) CreateWorkflowInstance(ctx context.Context, workflowType string, params map[string]string) (*models.WorkflowInstance, error) {
	args := m.Called(ctx, workflowType, params)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.WorkflowInstance), args.Error(1)
}

func (m *MockEngine) ExecuteWorkflowActivity(ctx context.Context, workflowType, id, action string, params map[string]string) (*models.WorkflowInstance, error) {
	args := m.Called(ctx, workflowType, id, action, params)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.WorkflowInstance), args.Error(1)
}
