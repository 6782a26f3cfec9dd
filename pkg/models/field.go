package models

// FieldType is the display type of a rendered field.
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeHidden   FieldType = "hidden"
	FieldTypePassword FieldType = "password"
	FieldTypeTextarea FieldType = "textarea"
	FieldTypeSelect   FieldType = "select"
	FieldTypeCheckbox FieldType = "checkbox"
	FieldTypeRedirect FieldType = "redirect"
)

// Reserved request parameters used for bookkeeping. They are never forwarded
// to the engine as action input.
const (
	ParamToken   = "wf_token"
	ParamType    = "wf_type"
	ParamID      = "wf_id"
	ParamAction  = "wf_action"
	ParamHandler = "wf_handler"
)

// ReservedParams lists every bookkeeping parameter name.
var ReservedParams = []string{ParamToken, ParamType, ParamID, ParamAction, ParamHandler}

// IsReservedParam checks if name is used for internal bookkeeping.
func IsReservedParam(name string) bool {
	for _, reserved := range ReservedParams {
		if name == reserved {
			return true
		}
	}

	return false
}

// FieldDescriptor is a field as offered to, or shown on, the client.
type FieldDescriptor struct {
	Name        string    `json:"name"`
	Type        FieldType `json:"type"`
	Label       string    `json:"label,omitempty"`
	Description string    `json:"description,omitempty"`
	Value       any       `json:"value,omitempty"`
	Options     []Option  `json:"options,omitempty"`
	Required    bool      `json:"required,omitempty"`
	Validate    string    `json:"validate,omitempty"`
}

// Describe builds the descriptor of a declared field without a value.
func (f *Field) Describe() FieldDescriptor {
	return FieldDescriptor{
		Name:        f.Name,
		Type:        f.Type,
		Label:       f.Label,
		Description: f.Description,
		Options:     f.Options,
		Required:    f.Required,
		Validate:    f.Validate,
	}
}

// HiddenField builds a hidden descriptor carrying a bookkeeping value.
func HiddenField(name, value string) FieldDescriptor {
	return FieldDescriptor{Name: name, Type: FieldTypeHidden, Value: value}
}
