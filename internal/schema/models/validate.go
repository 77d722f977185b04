package models

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	dErrors "persondb/pkg/domain-errors"
)

// validate backs the structural checks for email and url fields.
// validator/v10 already encodes the RFC shapes; no point re-rolling them.
var validate = validator.New()

var phoneRe = regexp.MustCompile(`^\+?[0-9()\-. ]{4,31}$`)

var dateLayouts = []string{"2006-01-02", "01/02/2006", "2006/01/02"}

var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Validate checks a raw value against the field's type and attached
// rule. Order matters: required first, then the type's structural
// check, then the rule. An empty value on a non-required field is
// always valid and short-circuits everything else. Messages reference
// the field's label so operators can act on them.
func (f *Field) Validate(raw string) error {
	value := strings.TrimSpace(raw)
	if value == "" {
		if f.Required {
			return dErrors.Newf(dErrors.CodeValidation, "%s is required", f.DisplayLabel())
		}
		return nil
	}

	if err := f.validateShape(value); err != nil {
		return err
	}
	return f.validateRule(value)
}

func (f *Field) validateShape(value string) error {
	switch f.Type {
	case FieldEmail:
		if validate.Var(value, "email") != nil {
			return dErrors.Newf(dErrors.CodeValidation, "%s must be a valid email address", f.DisplayLabel())
		}
	case FieldURL:
		if validate.Var(value, "url") != nil {
			return dErrors.Newf(dErrors.CodeValidation, "%s must be a valid URL", f.DisplayLabel())
		}
	case FieldNumber:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return dErrors.Newf(dErrors.CodeValidation, "%s must be a number", f.DisplayLabel())
		}
	case FieldPhone:
		if !phoneRe.MatchString(value) {
			return dErrors.Newf(dErrors.CodeValidation, "%s must be a valid phone number", f.DisplayLabel())
		}
	case FieldDate:
		if !parsesAny(value, dateLayouts) {
			return dErrors.Newf(dErrors.CodeValidation, "%s must be a date (YYYY-MM-DD)", f.DisplayLabel())
		}
	case FieldDateTime:
		if !parsesAny(value, dateTimeLayouts) {
			return dErrors.Newf(dErrors.CodeValidation, "%s must be a date and time", f.DisplayLabel())
		}
	case FieldBoolean:
		if _, err := strconv.ParseBool(value); err != nil {
			return dErrors.Newf(dErrors.CodeValidation, "%s must be true or false", f.DisplayLabel())
		}
	case FieldSelect, FieldRadio:
		if len(f.Options) > 0 && !slices.Contains(f.Options, value) {
			return dErrors.Newf(dErrors.CodeValidation, "%s must be one of its configured options", f.DisplayLabel())
		}
	case FieldMultiSelect:
		if len(f.Options) > 0 {
			for part := range strings.SplitSeq(value, ",") {
				if part = strings.TrimSpace(part); part != "" && !slices.Contains(f.Options, part) {
					return dErrors.Newf(dErrors.CodeValidation, "%s contains a value outside its configured options", f.DisplayLabel())
				}
			}
		}
	}
	return nil
}

func (f *Field) validateRule(value string) error {
	rule := f.Rule
	switch rule.Kind {
	case RuleLength:
		if rule.MinLen != nil && len(value) < *rule.MinLen {
			return dErrors.Newf(dErrors.CodeValidation, "%s must be at least %d characters", f.DisplayLabel(), *rule.MinLen)
		}
		if rule.MaxLen != nil && len(value) > *rule.MaxLen {
			return dErrors.Newf(dErrors.CodeValidation, "%s must be at most %d characters", f.DisplayLabel(), *rule.MaxLen)
		}
	case RuleRange:
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return dErrors.Newf(dErrors.CodeValidation, "%s must be a number", f.DisplayLabel())
		}
		if rule.Min != nil && n < *rule.Min {
			return dErrors.Newf(dErrors.CodeValidation, "%s must be at least %v", f.DisplayLabel(), *rule.Min)
		}
		if rule.Max != nil && n > *rule.Max {
			return dErrors.Newf(dErrors.CodeValidation, "%s must be at most %v", f.DisplayLabel(), *rule.Max)
		}
	case RuleRegex:
		if rule.Pattern == "" {
			return nil
		}
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return dErrors.Newf(dErrors.CodeValidation, "%s has an invalid validation pattern", f.DisplayLabel())
		}
		if !re.MatchString(value) {
			return dErrors.Newf(dErrors.CodeValidation, "%s does not match the required format", f.DisplayLabel())
		}
	}
	return nil
}

func parsesAny(value string, layouts []string) bool {
	for _, layout := range layouts {
		if _, err := time.Parse(layout, value); err == nil {
			return true
		}
	}
	return false
}
