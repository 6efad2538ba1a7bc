package service

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/fleetcore/fleet-api/internal/core/domain"
)

// payloadValidator checks schemaless payloads against a Definition using
// go-playground/validator map rules.
type payloadValidator struct {
	v *validator.Validate
}

func newPayloadValidator() *payloadValidator {
	v := validator.New()
	_ = v.RegisterValidation("present", present)
	return &payloadValidator{v: v}
}

// present accepts any non-null value except blank strings; zero numbers and
// false are legitimate values for required fields.
func present(fl validator.FieldLevel) bool {
	if fl.Field().Kind() == reflect.String {
		return strings.TrimSpace(fl.Field().String()) != ""
	}
	return true
}

// missing returns the required fields absent from doc, sorted.
func (pv *payloadValidator) missing(def domain.Definition, doc domain.Document) []string {
	if len(def.RequiredFields) == 0 {
		return nil
	}
	rules := make(map[string]any, len(def.RequiredFields))
	for _, f := range def.RequiredFields {
		rules[f] = "present"
	}
	return pv.failed(doc, rules)
}

// invalid returns the present fields violating def.FieldRules, sorted.
func (pv *payloadValidator) invalid(def domain.Definition, doc domain.Document) []string {
	rules := make(map[string]any, len(def.FieldRules))
	for field, rule := range def.FieldRules {
		if v, ok := doc[field]; ok && v != nil {
			rules[field] = rule
		}
	}
	if len(rules) == 0 {
		return nil
	}
	return pv.failed(doc, rules)
}

func (pv *payloadValidator) failed(doc domain.Document, rules map[string]any) (fields []string) {
	defer func() {
		// validator panics on tags that do not apply to the value's kind
		// (e.g. oneof on a number); treat that as a failed field.
		if r := recover(); r != nil {
			fields = pv.failedOneByOne(doc, rules)
		}
	}()

	errs := pv.v.ValidateMap(doc, rules)
	for field := range errs {
		fields = append(fields, field)
	}
	slices.Sort(fields)
	return fields
}

func (pv *payloadValidator) failedOneByOne(doc domain.Document, rules map[string]any) []string {
	var fields []string
	for field, rule := range rules {
		if !pv.valid(doc[field], rule.(string)) {
			fields = append(fields, field)
		}
	}
	slices.Sort(fields)
	return fields
}

func (pv *payloadValidator) valid(value any, rule string) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return pv.v.Var(value, rule) == nil
}

// check runs the key and required-field checks (the latter on create only)
// and the field rules.
func (pv *payloadValidator) check(def domain.Definition, doc domain.Document, creating bool) error {
	if bad := illegalKeys(doc, ""); len(bad) > 0 {
		slices.Sort(bad)
		return domain.Invalid("FIELDS", "field names must not start with '$' or contain '.': "+strings.Join(bad, ", "), bad...)
	}
	if def.Rateable {
		if bad := ratingFields(doc); len(bad) > 0 {
			return domain.Invalid("FIELDS", "rating fields are maintained by ratings: "+strings.Join(bad, ", "), bad...)
		}
	}
	if creating {
		if missing := pv.missing(def, doc); len(missing) > 0 {
			return domain.MissingFields(missing)
		}
	}
	if bad := pv.invalid(def, doc); len(bad) > 0 {
		return domain.Invalid("FIELDS", "invalid values for: "+strings.Join(bad, ", "), bad...)
	}
	if status, ok := doc[domain.FieldStatus]; ok && len(def.Statuses) > 0 {
		s, _ := status.(string)
		if !def.AllowsStatus(s) {
			return invalidStatus(def)
		}
	}
	return normalizeMoney(def, doc)
}

// illegalKeys returns the keys, at any depth, that a document store would
// read as an operator or a path.
func illegalKeys(v any, prefix string) []string {
	var bad []string
	switch t := v.(type) {
	case domain.Document:
		return illegalKeys(map[string]any(t), prefix)
	case map[string]any:
		for k, child := range t {
			path := k
			if prefix != "" {
				path = prefix + "." + k
			}
			if strings.HasPrefix(k, "$") || strings.Contains(k, ".") {
				bad = append(bad, path)
				continue
			}
			bad = append(bad, illegalKeys(child, path)...)
		}
	case []any:
		for i, child := range t {
			bad = append(bad, illegalKeys(child, fmt.Sprintf("%s[%d]", prefix, i))...)
		}
	}
	return bad
}

func ratingFields(doc domain.Document) []string {
	var bad []string
	for _, f := range []string{domain.FieldRating, domain.FieldRatingCount, domain.FieldRatingTotal} {
		if _, ok := doc[f]; ok {
			bad = append(bad, f)
		}
	}
	return bad
}

func invalidStatus(def domain.Definition) error {
	return domain.Invalid("STATUS", "status must be one of: "+strings.Join(def.Statuses, ", "), domain.FieldStatus)
}

// normalizeMoney rounds money fields to cents in place.
func normalizeMoney(def domain.Definition, doc domain.Document) error {
	for _, field := range def.MoneyFields {
		raw, ok := doc[field]
		if !ok || raw == nil {
			continue
		}
		amount, err := toDecimal(raw)
		if err != nil {
			return domain.Invalid("FIELDS", field+" must be a monetary amount", field)
		}
		doc[field] = amount.Round(2).InexactFloat64()
	}
	return nil
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n), nil
	case float32:
		return decimal.NewFromFloat32(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int32:
		return decimal.NewFromInt32(n), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case string:
		return decimal.NewFromString(strings.TrimSpace(n))
	default:
		return decimal.Decimal{}, fmt.Errorf("unsupported amount type %T", v)
	}
}

// applyDefaults fills keys the payload omitted. Slice and map defaults are
// copied so documents never share backing storage.
func applyDefaults(def domain.Definition, doc domain.Document) {
	for k, v := range def.Defaults {
		if _, ok := doc[k]; ok {
			continue
		}
		switch dv := v.(type) {
		case []any:
			doc[k] = append([]any{}, dv...)
		case map[string]any:
			m := make(map[string]any, len(dv))
			for mk, mv := range dv {
				m[mk] = mv
			}
			doc[k] = m
		default:
			doc[k] = v
		}
	}
}
