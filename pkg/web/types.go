package web

import "github.com/dukex/operion-forms/pkg/models"

// TypeSummary describes a workflow type the caller may start.
type TypeSummary struct {
	Type        string `json:"type"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

type TypesResponse struct {
	Types []TypeSummary `json:"types"`
}

type indexRequest struct {
	Type string `validate:"required,max=128"`
}

type loadRequest struct {
	ID string `validate:"required,max=64,printascii"`
}

// Catalog lists the workflow types served.
type Catalog interface {
	Types() []string
	Get(workflowType string) (*models.WorkflowDefinition, error)
}
