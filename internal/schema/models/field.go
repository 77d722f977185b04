package models

import (
	"strings"
	"time"

	"persondb/pkg/domain"
	dErrors "persondb/pkg/domain-errors"
)

// FieldType is the declared type of a field. The set is closed;
// "hidden" fields are stored but never rendered by consumers.
type FieldType string

const (
	FieldText        FieldType = "text"
	FieldLongText    FieldType = "longtext"
	FieldNumber      FieldType = "number"
	FieldEmail       FieldType = "email"
	FieldPhone       FieldType = "phone"
	FieldDate        FieldType = "date"
	FieldDateTime    FieldType = "datetime"
	FieldSelect      FieldType = "select"
	FieldMultiSelect FieldType = "multiselect"
	FieldBoolean     FieldType = "boolean"
	FieldRadio       FieldType = "radio"
	FieldFile        FieldType = "file"
	FieldImage       FieldType = "image"
	FieldURL         FieldType = "url"
	FieldHidden      FieldType = "hidden"
)

var fieldTypes = map[FieldType]struct{}{
	FieldText: {}, FieldLongText: {}, FieldNumber: {}, FieldEmail: {},
	FieldPhone: {}, FieldDate: {}, FieldDateTime: {}, FieldSelect: {},
	FieldMultiSelect: {}, FieldBoolean: {}, FieldRadio: {}, FieldFile: {},
	FieldImage: {}, FieldURL: {}, FieldHidden: {},
}

// Valid reports whether t is one of the closed set.
func (t FieldType) Valid() bool {
	_, ok := fieldTypes[t]
	return ok
}

// RuleKind names a validation-rule family. Consistency with the field
// type is checked at validation time, not definition time: an
// operator may attach a length rule before switching the type.
type RuleKind string

const (
	RuleNone   RuleKind = ""
	RuleLength RuleKind = "length"
	RuleRange  RuleKind = "range"
	RuleRegex  RuleKind = "regex"
)

// ValidationRule is a declarative constraint attached to a field.
type ValidationRule struct {
	Kind    RuleKind `json:"kind"`
	MinLen  *int     `json:"min_len,omitempty"`
	MaxLen  *int     `json:"max_len,omitempty"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Pattern string   `json:"pattern,omitempty"`
}

// Field is a typed, validated attribute definition scoped to one
// database. Name is unique within that database.
type Field struct {
	ID          domain.FieldID    `json:"id"`
	DatabaseID  domain.DatabaseID `json:"database_id"`
	Name        string            `json:"name"`
	Label       string            `json:"label"`
	Type        FieldType         `json:"type"`
	Required    bool              `json:"required"`
	Searchable  bool              `json:"searchable"`
	Filterable  bool              `json:"filterable"`
	Default     string            `json:"default,omitempty"`
	Help        string            `json:"help,omitempty"`
	Placeholder string            `json:"placeholder,omitempty"`
	Options     []string          `json:"options,omitempty"`
	Rule        ValidationRule    `json:"rule"`
	Position    int               `json:"position"`
	CreatedAt   time.Time         `json:"created_at"`
}

// NewField validates and constructs a field definition.
func NewField(id domain.FieldID, dbID domain.DatabaseID, name, label string, fieldType FieldType, now time.Time) (*Field, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "field name cannot be empty")
	}
	if !fieldType.Valid() {
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "unknown field type %q", fieldType)
	}
	if label == "" {
		label = name
	}
	return &Field{
		ID:         id,
		DatabaseID: dbID,
		Name:       name,
		Label:      label,
		Type:       fieldType,
		CreatedAt:  now,
	}, nil
}

// DisplayLabel is what validation messages call the field.
func (f *Field) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}
