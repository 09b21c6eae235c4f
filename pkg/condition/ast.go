package condition

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrInvalidCondition marks a malformed or unparseable condition document.
// Callers attach the wrapped detail as a comment on whatever audit record
// is in flight before propagating.
var ErrInvalidCondition = errors.New("invalid condition")

// Node is one node of a condition tree: a Leaf comparison or a
// compound And/Or/Not. A nil Node always evaluates to true.
type Node interface {
	fields(into map[string]struct{})
	String() string
}

// Leaf is a single field comparison.
type Leaf struct {
	Field    string
	Operator string
	Value    interface{}
}

func (l *Leaf) fields(into map[string]struct{}) {
	into[l.Field] = struct{}{}
}

func (l *Leaf) String() string {
	return fmt.Sprintf("%s %s %v", l.Field, l.Operator, l.Value)
}

type And struct {
	Conditions []Node
}

func (n *And) fields(into map[string]struct{}) {
	for _, c := range n.Conditions {
		c.fields(into)
	}
}

func (n *And) String() string { return joinConditions("AND", n.Conditions) }

type Or struct {
	Conditions []Node
}

func (n *Or) fields(into map[string]struct{}) {
	for _, c := range n.Conditions {
		c.fields(into)
	}
}

func (n *Or) String() string { return joinConditions("OR", n.Conditions) }

// Not negates the conjunction of its children.
type Not struct {
	Conditions []Node
}

func (n *Not) fields(into map[string]struct{}) {
	for _, c := range n.Conditions {
		c.fields(into)
	}
}

func (n *Not) String() string { return "NOT " + joinConditions("AND", n.Conditions) }

func joinConditions(op string, conditions []Node) string {
	parts := make([]string, len(conditions))
	for i, c := range conditions {
		parts[i] = c.String()
	}
	return "(" + strings.Join(parts, " "+op+" ") + ")"
}

// Fields returns every field name referenced anywhere in the tree.
func Fields(n Node) []string {
	if n == nil {
		return nil
	}
	set := make(map[string]struct{})
	n.fields(set)
	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	return out
}

// ParseJSON decodes a persisted condition document. Empty input parses to
// a nil Node (always true).
func ParseJSON(raw []byte) (Node, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCondition, err)
	}
	return Parse(doc)
}

// Parse builds a Node from an already-decoded condition document
// (bson.M or JSON map). Nil/empty documents parse to a nil Node.
func Parse(doc map[string]interface{}) (Node, error) {
	if len(doc) == 0 {
		return nil, nil
	}

	if _, ok := doc["field_name"]; ok {
		return parseLeaf(doc)
	}

	opRaw, ok := doc["operator"]
	if !ok {
		return nil, fmt.Errorf("%w: document is neither a leaf nor a compound", ErrInvalidCondition)
	}
	op, ok := opRaw.(string)
	if !ok {
		return nil, fmt.Errorf("%w: operator must be a string", ErrInvalidCondition)
	}

	children, err := parseConditionList(doc["conditions"])
	if err != nil {
		return nil, err
	}

	switch strings.ToUpper(op) {
	case "AND":
		return &And{Conditions: children}, nil
	case "OR":
		return &Or{Conditions: children}, nil
	case "NOT":
		return &Not{Conditions: children}, nil
	default:
		return nil, fmt.Errorf("%w: unknown compound operator %q", ErrInvalidCondition, op)
	}
}

func parseConditionList(raw interface{}) ([]Node, error) {
	list, ok := toSlice(raw)
	if !ok {
		return nil, fmt.Errorf("%w: compound node requires a conditions list", ErrInvalidCondition)
	}

	nodes := make([]Node, 0, len(list))
	for _, item := range list {
		child, ok := toMap(item)
		if !ok {
			return nil, fmt.Errorf("%w: condition list entries must be documents", ErrInvalidCondition)
		}
		node, err := Parse(child)
		if err != nil {
			return nil, err
		}
		if node != nil {
			nodes = append(nodes, node)
		}
	}
	return nodes, nil
}

func parseLeaf(doc map[string]interface{}) (Node, error) {
	field, _ := doc["field_name"].(string)
	if field == "" {
		return nil, fmt.Errorf("%w: leaf missing field_name", ErrInvalidCondition)
	}
	op, _ := doc["comparison_operator"].(string)
	if op == "" {
		return nil, fmt.Errorf("%w: leaf %q missing comparison_operator", ErrInvalidCondition, field)
	}
	return &Leaf{Field: field, Operator: op, Value: doc["compare_value"]}, nil
}

// Decoded BSON surfaces nested documents as primitive.M/primitive.A,
// decoded JSON as plain maps and slices; both shapes are accepted.
func toSlice(v interface{}) ([]interface{}, bool) {
	switch s := v.(type) {
	case []interface{}:
		return s, true
	case primitive.A:
		return []interface{}(s), true
	}
	return nil, false
}

func toMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case primitive.M:
		return map[string]interface{}(m), true
	}
	return nil, false
}
