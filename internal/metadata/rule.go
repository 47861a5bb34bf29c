package metadata

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

type Rule struct {
	Type       string         `json:"type"` // field or expression
	Definition RuleDefinition `json:"definition"`

	program *vm.Program
}

type RuleDefinition struct {
	Field      string `json:"field,omitempty"`
	Operator   string `json:"operator,omitempty"`
	Value      any    `json:"value,omitempty"`
	Expression string `json:"expression,omitempty"`
	Message    string `json:"message,omitempty"`
	StopOnFail bool   `json:"stop_on_fail,omitempty"`
}

// Violation describes a failed rule. Field is empty for record-level rules.
type Violation struct {
	Field   string
	Rule    string
	Message string
}

// Compile prepares an expression rule. Field rules need no compilation.
func (r *Rule) Compile() error {
	if r.Type != "expression" {
		return nil
	}
	prog, err := expr.Compile(r.Definition.Expression, expr.AsBool())
	if err != nil {
		return fmt.Errorf("compile expression: %w", err)
	}
	r.program = prog
	return nil
}

// EvaluateRules runs field rules first, then expression rules, against the
// validated values of a write. The env exposes record and action.
func EvaluateRules(rules []*Rule, record map[string]any, isCreate bool) []Violation {
	action := "update"
	if isCreate {
		action = "create"
	}
	env := map[string]any{
		"record": record,
		"action": action,
	}

	var out []Violation
	for _, r := range rules {
		if r.Type != "field" {
			continue
		}
		if v := EvaluateFieldRule(r, record); v != nil {
			out = append(out, *v)
			if r.Definition.StopOnFail {
				return out
			}
		}
	}
	for _, r := range rules {
		if r.Type != "expression" {
			continue
		}
		if v := EvaluateExpressionRule(r, env); v != nil {
			out = append(out, *v)
			if r.Definition.StopOnFail {
				return out
			}
		}
	}
	return out
}

// EvaluateFieldRule evaluates a single field rule against a record.
// Returns nil if the rule passes.
func EvaluateFieldRule(rule *Rule, record map[string]any) *Violation {
	fieldName := rule.Definition.Field
	val, exists := record[fieldName]
	if !exists || val == nil {
		return nil
	}

	op := rule.Definition.Operator
	msg := rule.Definition.Message
	if msg == "" {
		msg = fmt.Sprintf("field %s failed %s validation", fieldName, op)
	}
	fail := &Violation{Field: fieldName, Rule: op, Message: msg}

	switch op {
	case "min", "max":
		num, ok := toFloat64(val)
		if !ok {
			return nil
		}
		threshold, ok := toFloat64(rule.Definition.Value)
		if !ok {
			return nil
		}
		if (op == "min" && num < threshold) || (op == "max" && num > threshold) {
			return fail
		}

	case "min_length", "max_length":
		s, ok := val.(string)
		if !ok {
			return nil
		}
		threshold, ok := toFloat64(rule.Definition.Value)
		if !ok {
			return nil
		}
		n := utf8.RuneCountInString(s)
		if (op == "min_length" && n < int(threshold)) || (op == "max_length" && n > int(threshold)) {
			return fail
		}

	case "pattern":
		s, ok := val.(string)
		if !ok {
			return nil
		}
		pattern, ok := rule.Definition.Value.(string)
		if !ok {
			return nil
		}
		matched, err := regexp.MatchString(pattern, s)
		if err != nil || !matched {
			return fail
		}
	}

	return nil
}

// EvaluateExpressionRule runs an expression rule. The rule is violated when
// the expression evaluates to true.
func EvaluateExpressionRule(rule *Rule, env map[string]any) *Violation {
	prog := rule.program
	if prog == nil {
		if err := rule.Compile(); err != nil {
			return &Violation{Field: rule.Definition.Field, Rule: "expression", Message: err.Error()}
		}
		prog = rule.program
	}

	result, err := expr.Run(prog, env)
	if err != nil {
		return &Violation{Field: rule.Definition.Field, Rule: "expression", Message: fmt.Sprintf("rule evaluation error: %v", err)}
	}

	violated, ok := result.(bool)
	if !ok || !violated {
		return nil
	}

	msg := rule.Definition.Message
	if msg == "" {
		msg = "Expression rule violated"
	}
	return &Violation{Field: rule.Definition.Field, Rule: "expression", Message: msg}
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}
