package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2/ast"
)

func requiredString(args map[string]any, name string) (string, error) {
	s, err := optionalString(args, name)
	if err != nil {
		return "", err
	}
	if s == nil {
		return "", fmt.Errorf("argument %s is required", name)
	}
	return *s, nil
}

func optionalString(args map[string]any, name string) (*string, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return nil, nil
	}
	s, err := graphql.UnmarshalString(v)
	if err != nil {
		return nil, fmt.Errorf("argument %s: %w", name, err)
	}
	return &s, nil
}

func requiredInt(args map[string]any, name string) (int, error) {
	n, err := optionalInt(args, name)
	if err != nil {
		return 0, err
	}
	if n == nil {
		return 0, fmt.Errorf("argument %s is required", name)
	}
	return *n, nil
}

func optionalInt(args map[string]any, name string) (*int, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return nil, nil
	}
	n, err := coerceInt(v)
	if err != nil {
		return nil, fmt.Errorf("argument %s: %w", name, err)
	}
	return &n, nil
}

func optionalStrings(args map[string]any, name string) ([]string, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return nil, nil
	}

	var items []any
	switch list := v.(type) {
	case []any:
		items = list
	case []string:
		return list, nil
	default:
		// A single value is accepted where a list is expected.
		items = []any{list}
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		s, err := graphql.UnmarshalString(item)
		if err != nil {
			return nil, fmt.Errorf("argument %s: %w", name, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func optionalBool(args map[string]any, name string) bool {
	b, _ := args[name].(bool)
	return b
}

// coerceInt accepts every numeric shape a decoded variable or literal
// may take.
func coerceInt(v any) (int, error) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%v is not an int", n)
		}
		return int(n), nil
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), nil
		}
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%s is not an int", n)
		}
		return coerceInt(f)
	default:
		return graphql.UnmarshalInt(v)
	}
}

// suppliedArgs lists the arguments the caller actually gave the current
// field, in document order. An argument bound to a variable that was not
// sent is left out.
func suppliedArgs(ctx context.Context) []string {
	fc := graphql.GetFieldContext(ctx)
	if fc == nil || fc.Field.Field == nil {
		return []string{}
	}

	vars := graphql.GetOperationContext(ctx).Variables

	names := make([]string, 0, len(fc.Field.Arguments))
	for _, arg := range fc.Field.Arguments {
		if arg.Value != nil && arg.Value.Kind == ast.Variable {
			if _, ok := vars[arg.Value.Raw]; !ok {
				continue
			}
		}
		names = append(names, arg.Name)
	}
	return names
}
