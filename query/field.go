package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tempestlab/hl/record"
)

// Operator is a field-filter comparison kind (§4.G "Field filter").
type Operator uint8

const (
	OpEq Operator = iota
	OpNe
	OpSubstr
	OpNotSubstr
	OpRegex
	OpNotRegex
	OpIn
	OpNotIn
)

// ParseOperator maps a -f flag's operator token to an Operator.
func ParseOperator(s string) (Operator, error) {
	switch s {
	case "=":
		return OpEq, nil
	case "!=":
		return OpNe, nil
	case "~=":
		return OpSubstr, nil
	case "!~=":
		return OpNotSubstr, nil
	case "~~=":
		return OpRegex, nil
	case "!~~=":
		return OpNotRegex, nil
	case "in":
		return OpIn, nil
	case "not in":
		return OpNotIn, nil
	default:
		return 0, fmt.Errorf("unknown field filter operator %q", s)
	}
}

// FieldFilter implements one -f predicate: Name op Values, with an
// optional include-absent modifier.
type FieldFilter struct {
	Name          string
	Op            Operator
	Values        []string
	Regex         *regexp.Regexp // set for OpRegex/OpNotRegex
	IncludeAbsent bool           // the '?' modifier
}

// NewFieldFilter validates and compiles a FieldFilter. For OpRegex and
// OpNotRegex, values[0] is compiled as the pattern.
func NewFieldFilter(name string, op Operator, values []string, includeAbsent bool) (FieldFilter, error) {
	ff := FieldFilter{Name: name, Op: op, Values: values, IncludeAbsent: includeAbsent}
	if op == OpRegex || op == OpNotRegex {
		if len(values) != 1 {
			return FieldFilter{}, fmt.Errorf("regex field filter on %q requires exactly one pattern", name)
		}
		re, err := regexp.Compile(values[0])
		if err != nil {
			return FieldFilter{}, fmt.Errorf("compiling regex for field %q: %w", name, err)
		}
		ff.Regex = re
	}
	return ff, nil
}

// Resolver looks up a field's Value by name, descending into dotted
// nested paths (semantic.ValueFor provides this in practice); returns
// ok=false when the field is entirely absent.
type Resolver func(name string) (record.Value, bool)

// Eval applies the filter against rec via resolve.
func (f FieldFilter) Eval(resolve Resolver) bool {
	v, ok := resolve(f.Name)
	if !ok {
		return f.IncludeAbsent
	}
	switch f.Op {
	case OpEq:
		return containsString(f.Values, v.String())
	case OpNe:
		return !containsString(f.Values, v.String())
	case OpSubstr:
		return anySubstr(f.Values, v.String())
	case OpNotSubstr:
		return !anySubstr(f.Values, v.String())
	case OpRegex:
		return f.Regex.MatchString(v.String())
	case OpNotRegex:
		return !f.Regex.MatchString(v.String())
	case OpIn:
		return containsString(f.Values, v.String())
	case OpNotIn:
		return !containsString(f.Values, v.String())
	default:
		return false
	}
}

func containsString(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
		if numericEqual(v, s) {
			return true
		}
	}
	return false
}

// numericEqual allows "200" to match a numeric field value rendered
// with different formatting (e.g. "200.0") by comparing parsed floats
// when both sides parse cleanly; falls back to string-only equality
// otherwise.
func numericEqual(a, b string) bool {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	return errA == nil && errB == nil && fa == fb
}

func anySubstr(values []string, s string) bool {
	for _, v := range values {
		if strings.Contains(s, v) {
			return true
		}
	}
	return false
}
