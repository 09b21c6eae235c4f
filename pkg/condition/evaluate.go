package condition

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Evaluate runs a condition tree against a flat snapshot of field values.
//
// Fail-closed: if any field referenced anywhere in the tree is absent from
// data, the result is false without error. A leaf over a present-but-nil
// value is false unless its operator is isnull. Structural problems
// (unknown operator, bad list shapes) are ErrInvalidCondition.
func Evaluate(n Node, data map[string]interface{}) (bool, error) {
	if n == nil {
		return true, nil
	}

	for _, f := range Fields(n) {
		if _, ok := data[f]; !ok {
			return false, nil
		}
	}

	return eval(n, data)
}

func eval(n Node, data map[string]interface{}) (bool, error) {
	switch node := n.(type) {
	case *Leaf:
		return evalLeaf(node, data)
	case *And:
		for _, c := range node.Conditions {
			ok, err := eval(c, data)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case *Or:
		for _, c := range node.Conditions {
			ok, err := eval(c, data)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case *Not:
		for _, c := range node.Conditions {
			ok, err := eval(c, data)
			if err != nil {
				return false, err
			}
			if !ok {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("%w: unknown node type %T", ErrInvalidCondition, n)
	}
}

func evalLeaf(l *Leaf, data map[string]interface{}) (bool, error) {
	actual := data[l.Field]

	if l.Operator == "isnull" {
		want := true
		if b, ok := l.Value.(bool); ok {
			want = b
		}
		return (actual == nil) == want, nil
	}

	if actual == nil {
		return false, nil
	}

	switch l.Operator {
	case "eq":
		return looseEqual(actual, l.Value), nil
	case "ne":
		return !looseEqual(actual, l.Value), nil
	case "contains":
		return strings.Contains(str(actual), str(l.Value)), nil
	case "!contains":
		return !strings.Contains(str(actual), str(l.Value)), nil
	case "starts":
		return strings.HasPrefix(str(actual), str(l.Value)), nil
	case "!starts":
		return !strings.HasPrefix(str(actual), str(l.Value)), nil
	case "ends":
		return strings.HasSuffix(str(actual), str(l.Value)), nil
	case "!ends":
		return !strings.HasSuffix(str(actual), str(l.Value)), nil
	case "gt", "gte", "lt", "lte":
		return compareOrdered(l.Operator, actual, l.Value), nil
	case "range", "!between":
		lo, hi, err := rangeBounds(l)
		if err != nil {
			return false, err
		}
		inside := compareOrdered("gte", actual, lo) && compareOrdered("lte", actual, hi)
		if l.Operator == "range" {
			return inside, nil
		}
		return !inside, nil
	case "regex", "iregex":
		pattern := str(l.Value)
		if l.Operator == "iregex" {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, fmt.Errorf("%w: bad pattern for %q: %v", ErrInvalidCondition, l.Field, err)
		}
		return re.MatchString(str(actual)), nil
	case "in":
		list, ok := toSlice(l.Value)
		if !ok {
			return false, fmt.Errorf("%w: operator in requires a list for %q", ErrInvalidCondition, l.Field)
		}
		for _, candidate := range list {
			if looseEqual(actual, candidate) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("%w: unknown operator %q", ErrInvalidCondition, l.Operator)
	}
}

func rangeBounds(l *Leaf) (interface{}, interface{}, error) {
	list, ok := toSlice(l.Value)
	if !ok || len(list) != 2 {
		return nil, nil, fmt.Errorf("%w: operator %s requires a 2-element list for %q", ErrInvalidCondition, l.Operator, l.Field)
	}
	return list[0], list[1], nil
}

// looseEqual compares numerically when both sides are numbers, otherwise
// by string rendering. JSON decoding hands us float64 for every number,
// BSON int32/int64; the coercion keeps 500 == 500.0.
func looseEqual(a, b interface{}) bool {
	fa, aNum := toFloat(a)
	fb, bNum := toFloat(b)
	if aNum && bNum {
		return fa == fb
	}
	return str(a) == str(b)
}

func compareOrdered(op string, a, b interface{}) bool {
	fa, aNum := toFloat(a)
	fb, bNum := toFloat(b)
	if aNum && bNum {
		switch op {
		case "gt":
			return fa > fb
		case "gte":
			return fa >= fb
		case "lt":
			return fa < fb
		case "lte":
			return fa <= fb
		}
		return false
	}

	sa, sb := str(a), str(b)
	switch op {
	case "gt":
		return sa > sb
	case "gte":
		return sa >= sb
	case "lt":
		return sa < sb
	case "lte":
		return sa <= sb
	}
	return false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case primitive.Decimal128:
		if f, err := strconv.ParseFloat(n.String(), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func str(v interface{}) string {
	return fmt.Sprintf("%v", v)
}
