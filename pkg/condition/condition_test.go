package condition

import (
	"errors"
	"testing"
)

func leaf(field, op string, value interface{}) map[string]interface{} {
	m := map[string]interface{}{
		"field_name":          field,
		"comparison_operator": op,
	}
	if value != nil {
		m["compare_value"] = value
	}
	return m
}

func compound(op string, conditions ...map[string]interface{}) map[string]interface{} {
	list := make([]interface{}, len(conditions))
	for i, c := range conditions {
		list[i] = c
	}
	return map[string]interface{}{"operator": op, "conditions": list}
}

func mustEval(t *testing.T, doc map[string]interface{}, data map[string]interface{}) bool {
	t.Helper()
	node, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	got, err := Evaluate(node, data)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	return got
}

func TestEvaluateLeafOperators(t *testing.T) {
	data := map[string]interface{}{
		"amount":  500.0,
		"region":  "north-west",
		"ticket":  "REQ-1042",
		"email":   "ops@example.com",
		"rating":  3,
		"comment": nil,
	}

	tests := []struct {
		name string
		doc  map[string]interface{}
		want bool
	}{
		{"eq number", leaf("amount", "eq", 500), true},
		{"eq number json float", leaf("amount", "eq", 500.0), true},
		{"eq mismatch", leaf("amount", "eq", 501), false},
		{"ne", leaf("region", "ne", "south"), true},
		{"contains", leaf("region", "contains", "h-e"), false},
		{"contains hit", leaf("region", "contains", "north"), true},
		{"!contains", leaf("region", "!contains", "south"), true},
		{"starts", leaf("ticket", "starts", "REQ-"), true},
		{"!starts", leaf("ticket", "!starts", "INC-"), true},
		{"ends", leaf("email", "ends", "@example.com"), true},
		{"!ends", leaf("email", "!ends", "@corp.com"), true},
		{"gt", leaf("amount", "gt", 100), true},
		{"gt false", leaf("amount", "gt", 500), false},
		{"gte boundary", leaf("amount", "gte", 500), true},
		{"lt", leaf("rating", "lt", 4), true},
		{"lte boundary", leaf("rating", "lte", 3), true},
		{"range inside", leaf("amount", "range", []interface{}{100, 1000}), true},
		{"range boundary", leaf("amount", "range", []interface{}{500, 1000}), true},
		{"range outside", leaf("amount", "range", []interface{}{501, 1000}), false},
		{"!between", leaf("amount", "!between", []interface{}{501, 1000}), true},
		{"isnull true", leaf("comment", "isnull", true), true},
		{"isnull false", leaf("region", "isnull", true), false},
		{"isnull negated", leaf("region", "isnull", false), true},
		{"isnull default value", leaf("comment", "isnull", nil), true},
		{"regex", leaf("ticket", "regex", `^REQ-\d+$`), true},
		{"iregex", leaf("ticket", "iregex", `^req-\d+$`), true},
		{"in hit", leaf("region", "in", []interface{}{"north-west", "north-east"}), true},
		{"in miss", leaf("region", "in", []interface{}{"south"}), false},
		{"nil actual non-isnull", leaf("comment", "eq", "anything"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mustEval(t, tt.doc, data); got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateCompound(t *testing.T) {
	data := map[string]interface{}{
		"amount": 500.0,
		"region": "north",
	}

	x := leaf("amount", "gt", 100)
	y := leaf("region", "eq", "south")

	if !mustEval(t, compound("AND", x, leaf("region", "eq", "north")), data) {
		t.Error("AND of two true leaves should be true")
	}
	if mustEval(t, compound("AND", x, y), data) {
		t.Error("AND with one false leaf should be false")
	}
	if !mustEval(t, compound("OR", x, y), data) {
		t.Error("OR with one true leaf should be true")
	}
	if mustEval(t, compound("OR", y), data) {
		t.Error("OR of a single false leaf should be false")
	}

	// NOT(x) == !x whenever every field in x is present
	for _, sub := range []map[string]interface{}{x, y} {
		inner := mustEval(t, sub, data)
		negated := mustEval(t, compound("NOT", sub), data)
		if negated == inner {
			t.Errorf("NOT(%v) = %v, want %v", sub, negated, !inner)
		}
	}

	// Distribution: AND(x,y) == x && y, OR(x,y) == x || y
	ex, ey := mustEval(t, x, data), mustEval(t, y, data)
	if got := mustEval(t, compound("AND", x, y), data); got != (ex && ey) {
		t.Errorf("AND mismatch: got %v want %v", got, ex && ey)
	}
	if got := mustEval(t, compound("OR", x, y), data); got != (ex || ey) {
		t.Errorf("OR mismatch: got %v want %v", got, ex || ey)
	}
}

func TestEvaluateFailClosed(t *testing.T) {
	data := map[string]interface{}{"amount": 500.0}

	// region is referenced but absent: the whole tree is false, even
	// though the amount leaf alone would match.
	doc := compound("OR",
		leaf("amount", "gt", 100),
		leaf("region", "eq", "north"),
	)
	if mustEval(t, doc, data) {
		t.Error("evaluation must fail closed when a referenced field is missing")
	}

	// Same for a lone leaf.
	if mustEval(t, leaf("region", "eq", "north"), data) {
		t.Error("missing field leaf must be false")
	}
}

func TestEvaluateNilCondition(t *testing.T) {
	node, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse(nil) error = %v", err)
	}
	if node != nil {
		t.Fatalf("Parse(nil) = %v, want nil node", node)
	}
	got, err := Evaluate(node, map[string]interface{}{})
	if err != nil || !got {
		t.Errorf("Evaluate(nil) = (%v, %v), want (true, nil)", got, err)
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  map[string]interface{}
	}{
		{"missing field_name", map[string]interface{}{"comparison_operator": "eq"}},
		{"missing comparison_operator", map[string]interface{}{"field_name": "amount"}},
		{"unknown shape", map[string]interface{}{"foo": "bar"}},
		{"unknown compound operator", compound("XOR", leaf("a", "eq", 1))},
		{"conditions not a list", map[string]interface{}{"operator": "AND", "conditions": "nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.doc); !errors.Is(err, ErrInvalidCondition) {
				t.Errorf("Parse() error = %v, want ErrInvalidCondition", err)
			}
		})
	}
}

func TestEvaluateInvalid(t *testing.T) {
	data := map[string]interface{}{"amount": 500.0}

	tests := []struct {
		name string
		doc  map[string]interface{}
	}{
		{"unknown leaf operator", leaf("amount", "almost", 1)},
		{"in without list", leaf("amount", "in", "not-a-list")},
		{"range wrong arity", leaf("amount", "range", []interface{}{1})},
		{"bad regex", leaf("amount", "regex", "(")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := Parse(tt.doc)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if _, err := Evaluate(node, data); !errors.Is(err, ErrInvalidCondition) {
				t.Errorf("Evaluate() error = %v, want ErrInvalidCondition", err)
			}
		})
	}
}

func TestParseJSON(t *testing.T) {
	node, err := ParseJSON([]byte(`{"operator":"AND","conditions":[{"field_name":"amount","comparison_operator":"gt","compare_value":100}]}`))
	if err != nil {
		t.Fatalf("ParseJSON() error = %v", err)
	}
	got, err := Evaluate(node, map[string]interface{}{"amount": 500.0})
	if err != nil || !got {
		t.Errorf("Evaluate() = (%v, %v), want (true, nil)", got, err)
	}

	if _, err := ParseJSON([]byte(`{not json`)); !errors.Is(err, ErrInvalidCondition) {
		t.Errorf("ParseJSON() error = %v, want ErrInvalidCondition", err)
	}
}

func TestFields(t *testing.T) {
	doc := compound("AND",
		leaf("amount", "gt", 100),
		leaf("region", "eq", "north"),
		leaf("amount", "lt", 1000),
	)
	node, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	fields := Fields(node)
	if len(fields) != 2 {
		t.Fatalf("Fields() = %v, want 2 unique names", fields)
	}
	seen := map[string]bool{}
	for _, f := range fields {
		seen[f] = true
	}
	if !seen["amount"] || !seen["region"] {
		t.Errorf("Fields() = %v, want amount and region", fields)
	}
}
