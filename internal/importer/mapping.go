package importer

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	schemamodels "persondb/internal/schema/models"
	schemaservice "persondb/internal/schema/service"
	"persondb/pkg/domain"
	"persondb/pkg/textmatch"
)

// MappingKind classifies where a column's values land.
type MappingKind string

const (
	// MappingStandard targets an identity field (full_name, first_name,
	// middle_name, last_name, email, phone).
	MappingStandard MappingKind = "standard"
	// MappingExistingField targets a declared field of the database.
	MappingExistingField MappingKind = "existing_field"
	// MappingNewField declares a fresh text field for the column at
	// commit time.
	MappingNewField MappingKind = "new_field"
)

// Standard identity targets.
const (
	TargetFullName   = "full_name"
	TargetFirstName  = "first_name"
	TargetMiddleName = "middle_name"
	TargetLastName   = "last_name"
	TargetEmail      = "email"
	TargetPhone      = "phone"
)

// Mapping is one operator-confirmed column assignment in a commit
// request.
type Mapping struct {
	Type      MappingKind `json:"type"`
	Field     string      `json:"field"`
	ParseHint string      `json:"parse_hint,omitempty"`
}

// Suggestion is one proposed column assignment, carrying a confidence
// for operator review. Operators may override any suggestion before
// committing.
type Suggestion struct {
	Column     string      `json:"column"`
	Target     string      `json:"target"`
	Kind       MappingKind `json:"kind"`
	ParseHint  string      `json:"parse_hint,omitempty"`
	Confidence float64     `json:"confidence"`
}

// The rule table lives as data so new heuristics are added by
// appending rows, not by growing conditionals.
//
//go:embed mapping_rules.yaml
var mappingRulesYAML []byte

type mappingRule struct {
	Target     string   `yaml:"target"`
	ParseHint  string   `yaml:"parse_hint"`
	Confidence float64  `yaml:"confidence"`
	Patterns   []string `yaml:"patterns"`
}

type ruleTable struct {
	Compound []mappingRule `yaml:"compound"`
	Discrete []mappingRule `yaml:"discrete"`
}

func loadRuleTable() ruleTable {
	var table ruleTable
	if err := yaml.Unmarshal(mappingRulesYAML, &table); err != nil {
		// The table is embedded; a parse failure is a build defect.
		panic(fmt.Sprintf("importer: bad mapping_rules.yaml: %v", err))
	}
	return table
}

var rules = loadRuleTable()

// matchRules runs the heuristic rule table against one column name.
// Compound full-name patterns win over discrete ones.
func matchRules(column string) (Suggestion, bool) {
	normalized := textmatch.NormalizeColumn(column)
	for _, rule := range rules.Compound {
		for _, pattern := range rule.Patterns {
			if normalized == pattern {
				return Suggestion{
					Column:     column,
					Target:     rule.Target,
					Kind:       MappingStandard,
					ParseHint:  rule.ParseHint,
					Confidence: rule.Confidence,
				}, true
			}
		}
	}
	for _, rule := range rules.Discrete {
		for _, pattern := range rule.Patterns {
			if normalized == pattern {
				return Suggestion{
					Column:     column,
					Target:     rule.Target,
					Kind:       MappingStandard,
					Confidence: rule.Confidence,
				}, true
			}
		}
	}
	return Suggestion{}, false
}

// FieldProvider is the schema-registry surface the pipeline needs:
// declared fields for mapping suggestions, and field definition so
// new_field columns become declared before their values are committed.
type FieldProvider interface {
	Fields(ctx context.Context, dbID domain.DatabaseID) ([]*schemamodels.Field, error)
	DefineField(ctx context.Context, dbID domain.DatabaseID, name, label string, fieldType schemamodels.FieldType, opts schemaservice.FieldOptions) (*schemamodels.Field, error)
}

// SuggestMappings proposes a target for every source column, in
// priority order: compound name patterns, discrete identity patterns,
// declared-field match (near-certain), then unmapped custom column.
func (s *Service) SuggestMappings(ctx context.Context, dbID domain.DatabaseID, columns []string) ([]Suggestion, error) {
	declared, err := s.fields.Fields(ctx, dbID)
	if err != nil {
		return nil, err
	}

	out := make([]Suggestion, 0, len(columns))
	for _, column := range columns {
		if suggestion, ok := matchRules(column); ok {
			out = append(out, suggestion)
			continue
		}
		if field, confidence := matchDeclaredField(column, declared); field != "" {
			out = append(out, Suggestion{
				Column:     column,
				Target:     field,
				Kind:       MappingExistingField,
				Confidence: confidence,
			})
			continue
		}
		out = append(out, Suggestion{
			Column:     column,
			Target:     column,
			Kind:       MappingNewField,
			Confidence: 0,
		})
	}
	return out, nil
}

func matchDeclaredField(column string, declared []*schemamodels.Field) (string, float64) {
	normalized := textmatch.NormalizeColumn(column)
	for _, field := range declared {
		if textmatch.NormalizeColumn(field.Name) == normalized {
			return field.Name, 0.99
		}
	}
	for _, field := range declared {
		fieldNorm := textmatch.NormalizeColumn(field.Name)
		if strings.Contains(fieldNorm, normalized) || strings.Contains(normalized, fieldNorm) {
			return field.Name, 0.8
		}
	}
	return "", 0
}
