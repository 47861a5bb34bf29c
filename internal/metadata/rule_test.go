package metadata

import "testing"

func TestEvaluateFieldRule_Min(t *testing.T) {
	rule := &Rule{
		Type: "field",
		Definition: RuleDefinition{
			Field: "cena", Operator: "min", Value: float64(0),
			Message: "Price must be non-negative",
		},
	}

	v := EvaluateFieldRule(rule, map[string]any{"cena": float64(-5)})
	if v == nil {
		t.Fatal("expected violation for cena=-5")
	}
	if v.Field != "cena" || v.Rule != "min" {
		t.Fatalf("unexpected violation: %+v", v)
	}

	if v := EvaluateFieldRule(rule, map[string]any{"cena": float64(0)}); v != nil {
		t.Fatalf("expected pass for cena=0, got %v", v)
	}
	if v := EvaluateFieldRule(rule, map[string]any{"cena": 10}); v != nil {
		t.Fatalf("expected pass for cena=10 (int), got %v", v)
	}
	// absent fields are not checked
	if v := EvaluateFieldRule(rule, map[string]any{}); v != nil {
		t.Fatalf("expected pass for absent field, got %v", v)
	}
}

func TestEvaluateFieldRule_Max(t *testing.T) {
	rule := &Rule{
		Type:       "field",
		Definition: RuleDefinition{Field: "qty", Operator: "max", Value: float64(100)},
	}
	if v := EvaluateFieldRule(rule, map[string]any{"qty": float64(150)}); v == nil {
		t.Fatal("expected violation for qty=150")
	} else if v.Message != "field qty failed max validation" {
		t.Fatalf("unexpected default message: %s", v.Message)
	}
	if v := EvaluateFieldRule(rule, map[string]any{"qty": float64(50)}); v != nil {
		t.Fatalf("expected pass for qty=50, got %v", v)
	}
}

func TestEvaluateFieldRule_LengthCountsRunes(t *testing.T) {
	rule := maxLength("nazev", 5)

	if v := EvaluateFieldRule(rule, map[string]any{"nazev": "Židle"}); v != nil {
		t.Fatalf("expected pass for a 5-rune value, got %v", v)
	}
	v := EvaluateFieldRule(rule, map[string]any{"nazev": "Lednička"})
	if v == nil {
		t.Fatal("expected violation for an 8-rune value")
	}
	if v.Message != "Ensure this field has no more than 5 characters." {
		t.Fatalf("unexpected message: %s", v.Message)
	}

	minRule := &Rule{Type: "field", Definition: RuleDefinition{Field: "nazev", Operator: "min_length", Value: float64(3)}}
	if v := EvaluateFieldRule(minRule, map[string]any{"nazev": "AB"}); v == nil {
		t.Fatal("expected violation for nazev=AB")
	}
}

func TestEvaluateFieldRule_Pattern(t *testing.T) {
	rule := &Rule{
		Type: "field",
		Definition: RuleDefinition{
			Field: "kod", Operator: "pattern", Value: `^[a-z0-9-]+$`,
			Message: "Invalid code",
		},
	}
	if v := EvaluateFieldRule(rule, map[string]any{"kod": "Not A Slug"}); v == nil || v.Rule != "pattern" {
		t.Fatalf("expected pattern violation, got %v", v)
	}
	if v := EvaluateFieldRule(rule, map[string]any{"kod": "barva-1"}); v != nil {
		t.Fatalf("expected pass, got %v", v)
	}
}

func TestEvaluateExpressionRule(t *testing.T) {
	rule := &Rule{
		Type: "expression",
		Definition: RuleDefinition{
			Field:      "published_on",
			Expression: "record.is_published == true && record.published_on == nil",
			Message:    "Published products need a publication date",
		},
	}
	if err := rule.Compile(); err != nil {
		t.Fatalf("compile: %v", err)
	}

	env := map[string]any{
		"record": map[string]any{"is_published": true, "published_on": nil},
		"action": "create",
	}
	v := EvaluateExpressionRule(rule, env)
	if v == nil {
		t.Fatal("expected violation")
	}
	if v.Field != "published_on" || v.Message != "Published products need a publication date" {
		t.Fatalf("unexpected violation: %+v", v)
	}

	env["record"] = map[string]any{"is_published": true, "published_on": "2024-01-01"}
	if v := EvaluateExpressionRule(rule, env); v != nil {
		t.Fatalf("expected pass, got %v", v)
	}
}

func TestEvaluateExpressionRule_LazyCompileAndErrors(t *testing.T) {
	rule := &Rule{
		Type:       "expression",
		Definition: RuleDefinition{Expression: "action == 'update'"},
	}
	v := EvaluateExpressionRule(rule, map[string]any{"record": map[string]any{}, "action": "update"})
	if v == nil || v.Message != "Expression rule violated" {
		t.Fatalf("expected default violation message, got %v", v)
	}

	bad := &Rule{Type: "expression", Definition: RuleDefinition{Expression: "record.("}}
	if err := bad.Compile(); err == nil {
		t.Fatal("expected compile error")
	}
}

func TestEvaluateRules_StopOnFail(t *testing.T) {
	rules := []*Rule{
		{Type: "field", Definition: RuleDefinition{Field: "a", Operator: "max_length", Value: float64(1), StopOnFail: true}},
		{Type: "field", Definition: RuleDefinition{Field: "b", Operator: "max_length", Value: float64(1)}},
	}
	out := EvaluateRules(rules, map[string]any{"a": "xx", "b": "yy"}, true)
	if len(out) != 1 || out[0].Field != "a" {
		t.Fatalf("expected only the first violation, got %+v", out)
	}
}
