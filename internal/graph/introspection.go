package graph

import (
	"context"
	"errors"

	"github.com/99designs/gqlgen/graphql"
	"github.com/99designs/gqlgen/graphql/introspection"
)

var errIntrospectionDisabled = errors.New("introspection disabled")

// introspectionFields resolves __schema, __type and the meta types they
// return, reading everything from the parsed schema.
func introspectionFields() fieldTable {
	return fieldTable{
		"Query.__schema": func(ctx context.Context, _ any, _ map[string]any) (any, error) {
			if graphql.GetOperationContext(ctx).DisableIntrospection {
				return nil, errIntrospectionDisabled
			}
			return introspection.WrapSchema(parsedSchema), nil
		},
		"Query.__type": func(ctx context.Context, _ any, args map[string]any) (any, error) {
			if graphql.GetOperationContext(ctx).DisableIntrospection {
				return nil, errIntrospectionDisabled
			}
			name, err := requiredString(args, "name")
			if err != nil {
				return nil, err
			}
			def := parsedSchema.Types[name]
			if def == nil {
				return nil, nil
			}
			return introspection.WrapTypeFromDef(parsedSchema, def), nil
		},

		"__Schema.description": schemaField(func(s *introspection.Schema, _ map[string]any) any { return s.Description() }),
		"__Schema.types":       schemaField(func(s *introspection.Schema, _ map[string]any) any { return s.Types() }),
		"__Schema.queryType":   schemaField(func(s *introspection.Schema, _ map[string]any) any { return s.QueryType() }),
		"__Schema.mutationType": schemaField(func(s *introspection.Schema, _ map[string]any) any {
			return s.MutationType()
		}),
		"__Schema.subscriptionType": schemaField(func(s *introspection.Schema, _ map[string]any) any {
			return s.SubscriptionType()
		}),
		"__Schema.directives": schemaField(func(s *introspection.Schema, _ map[string]any) any { return s.Directives() }),

		"__Type.kind":        typeField(func(t *introspection.Type, _ map[string]any) any { return t.Kind() }),
		"__Type.name":        typeField(func(t *introspection.Type, _ map[string]any) any { return t.Name() }),
		"__Type.description": typeField(func(t *introspection.Type, _ map[string]any) any { return t.Description() }),
		"__Type.fields": typeField(func(t *introspection.Type, args map[string]any) any {
			return t.Fields(optionalBool(args, "includeDeprecated"))
		}),
		"__Type.interfaces":    typeField(func(t *introspection.Type, _ map[string]any) any { return t.Interfaces() }),
		"__Type.possibleTypes": typeField(func(t *introspection.Type, _ map[string]any) any { return t.PossibleTypes() }),
		"__Type.enumValues": typeField(func(t *introspection.Type, args map[string]any) any {
			return t.EnumValues(optionalBool(args, "includeDeprecated"))
		}),
		"__Type.inputFields":    typeField(func(t *introspection.Type, _ map[string]any) any { return t.InputFields() }),
		"__Type.ofType":         typeField(func(t *introspection.Type, _ map[string]any) any { return t.OfType() }),
		"__Type.specifiedByURL": typeField(func(*introspection.Type, map[string]any) any { return nil }),

		"__Field.name":              metaField(func(f *introspection.Field) any { return f.Name }),
		"__Field.description":       metaField(func(f *introspection.Field) any { return f.Description() }),
		"__Field.args":              metaField(func(f *introspection.Field) any { return f.Args }),
		"__Field.type":              metaField(func(f *introspection.Field) any { return f.Type }),
		"__Field.isDeprecated":      metaField(func(f *introspection.Field) any { return f.IsDeprecated() }),
		"__Field.deprecationReason": metaField(func(f *introspection.Field) any { return f.DeprecationReason() }),

		"__InputValue.name":         metaField(func(v *introspection.InputValue) any { return v.Name }),
		"__InputValue.description":  metaField(func(v *introspection.InputValue) any { return v.Description() }),
		"__InputValue.type":         metaField(func(v *introspection.InputValue) any { return v.Type }),
		"__InputValue.defaultValue": metaField(func(v *introspection.InputValue) any { return v.DefaultValue }),

		"__EnumValue.name":              metaField(func(v *introspection.EnumValue) any { return v.Name }),
		"__EnumValue.description":       metaField(func(v *introspection.EnumValue) any { return v.Description() }),
		"__EnumValue.isDeprecated":      metaField(func(v *introspection.EnumValue) any { return v.IsDeprecated() }),
		"__EnumValue.deprecationReason": metaField(func(v *introspection.EnumValue) any { return v.DeprecationReason() }),

		"__Directive.name":         metaField(func(d *introspection.Directive) any { return d.Name }),
		"__Directive.description":  metaField(func(d *introspection.Directive) any { return d.Description() }),
		"__Directive.locations":    metaField(func(d *introspection.Directive) any { return d.Locations }),
		"__Directive.args":         metaField(func(d *introspection.Directive) any { return d.Args }),
		"__Directive.isRepeatable": metaField(func(d *introspection.Directive) any { return d.IsRepeatable }),
	}
}

// meta accepts a meta object by value or by pointer. List fields of the
// introspection types hold values, single fields hold pointers.
func meta[T any](obj any) (*T, error) {
	switch v := obj.(type) {
	case *T:
		return v, nil
	case T:
		return &v, nil
	}
	var zero T
	return nil, errors.New("unexpected introspection object for " + typeName(zero))
}

func typeName(v any) string {
	switch v.(type) {
	case introspection.Schema:
		return "__Schema"
	case introspection.Type:
		return "__Type"
	case introspection.Field:
		return "__Field"
	case introspection.InputValue:
		return "__InputValue"
	case introspection.EnumValue:
		return "__EnumValue"
	case introspection.Directive:
		return "__Directive"
	}
	return "unknown"
}

func schemaField(get func(*introspection.Schema, map[string]any) any) fieldFunc {
	return func(_ context.Context, obj any, args map[string]any) (any, error) {
		s, err := meta[introspection.Schema](obj)
		if err != nil {
			return nil, err
		}
		return get(s, args), nil
	}
}

func typeField(get func(*introspection.Type, map[string]any) any) fieldFunc {
	return func(_ context.Context, obj any, args map[string]any) (any, error) {
		t, err := meta[introspection.Type](obj)
		if err != nil {
			return nil, err
		}
		return get(t, args), nil
	}
}

func metaField[T any](get func(*T) any) fieldFunc {
	return func(_ context.Context, obj any, _ map[string]any) (any, error) {
		v, err := meta[T](obj)
		if err != nil {
			return nil, err
		}
		return get(v), nil
	}
}
