package models

// RenderResult is the descriptor handed to the view layer. Exactly one of
// Sections/Output or Redirect is meaningful.
type RenderResult struct {
	PageLabel       string            `json:"page_label,omitempty"`
	PageDescription string            `json:"page_description,omitempty"`
	Sections        []Section         `json:"sections,omitempty"`
	Output          []FieldDescriptor `json:"output,omitempty"`
	Redirect        *Redirect         `json:"redirect,omitempty"`
}

// Section is one form with a single submit button.
type Section struct {
	FormAction  string            `json:"form_action"`
	SubmitLabel string            `json:"submit_label"`
	Fields      []FieldDescriptor `json:"fields"`
}

// Redirect points the client somewhere else. Instance loads carry the
// workflow id; other targets are passed through.
type Redirect struct {
	Action     string `json:"action,omitempty"`
	WorkflowID string `json:"workflow_id,omitempty"`
	Target     string `json:"target"`
}

// IsRedirect reports whether the result sends the client elsewhere.
func (r *RenderResult) IsRedirect() bool {
	return r != nil && r.Redirect != nil
}
