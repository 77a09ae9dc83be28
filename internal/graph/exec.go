// Package graph serves the catalog schema: it parses the SDL, executes
// operations against the resolvers and renders results in selection order.
package graph

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"reflect"

	"github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

//go:embed schema.graphqls
var sourceSchema string

var parsedSchema = gqlparser.MustLoadSchema(&ast.Source{Name: "schema.graphqls", Input: sourceSchema})

// listWeight is the assumed fan-out of a list field when estimating
// operation complexity.
const listWeight = 10

// Config wires an executable schema to its resolvers.
type Config struct {
	Resolvers ResolverRoot
}

type executableSchema struct {
	schema *ast.Schema
	fields fieldTable
	stream ResolverRoot
}

// NewExecutableSchema builds the schema executed by the gqlgen handler.
func NewExecutableSchema(cfg Config) graphql.ExecutableSchema {
	return &executableSchema{
		schema: parsedSchema,
		fields: newFieldTable(cfg.Resolvers),
		stream: cfg.Resolvers,
	}
}

func (e *executableSchema) Schema() *ast.Schema {
	return e.schema
}

func (e *executableSchema) Complexity(typeName, field string, childComplexity int, _ map[string]any) (int, bool) {
	switch typeName + "." + field {
	case "Query.allBooks", "Query.allAuthors", "Query.allGenres":
		return 1 + childComplexity*listWeight, true
	case "Author.bookCount":
		return 2, true
	}
	return 0, false
}

func (e *executableSchema) Exec(ctx context.Context) graphql.ResponseHandler {
	oc := graphql.GetOperationContext(ctx)
	ec := &executionContext{OperationContext: oc, executableSchema: e}

	switch oc.Operation.Operation {
	case ast.Query:
		return ec.once(func(ctx context.Context) graphql.Marshaler {
			return ec.object(ctx, "Query", nil, oc.Operation.SelectionSet)
		})

	case ast.Mutation:
		return ec.once(func(ctx context.Context) graphql.Marshaler {
			return ec.object(ctx, "Mutation", nil, oc.Operation.SelectionSet)
		})

	case ast.Subscription:
		next := ec.subscription(ctx, oc.Operation.SelectionSet)
		if next == nil {
			return graphql.OneShot(graphql.ErrorResponse(ctx, "subscription could not be started"))
		}

		var buf bytes.Buffer
		return func(ctx context.Context) *graphql.Response {
			buf.Reset()
			data := next(ctx)
			if data == nil {
				return nil
			}
			data.MarshalGQL(&buf)
			return &graphql.Response{Data: append([]byte(nil), buf.Bytes()...)}
		}

	default:
		return graphql.OneShot(graphql.ErrorResponse(ctx, "unsupported GraphQL operation"))
	}
}

type executionContext struct {
	*graphql.OperationContext
	*executableSchema
}

// once returns a handler that produces a single response and then reports
// the end of the stream.
func (ec *executionContext) once(run func(ctx context.Context) graphql.Marshaler) graphql.ResponseHandler {
	var done bool
	return func(ctx context.Context) *graphql.Response {
		if done {
			return nil
		}
		done = true

		var buf bytes.Buffer
		run(ctx).MarshalGQL(&buf)
		return &graphql.Response{Data: buf.Bytes()}
	}
}

// object resolves the selections on one value of typeName. Fields run in
// document order, one at a time, which also gives mutations their
// required serial execution. A null in a non-null field nulls the object.
func (ec *executionContext) object(ctx context.Context, typeName string, obj any, sel ast.SelectionSet) graphql.Marshaler {
	def := ec.schema.Types[typeName]
	fields := graphql.CollectFields(ec.OperationContext, sel, []string{typeName})
	out := graphql.NewFieldSet(fields)

	invalid := false
	for i, field := range fields {
		if field.Name == "__typename" {
			out.Values[i] = graphql.MarshalString(typeName)
			continue
		}

		fieldDef := def.Fields.ForName(field.Name)
		if fieldDef == nil {
			out.Values[i] = graphql.Null
			continue
		}

		out.Values[i] = ec.field(ctx, typeName, obj, field, fieldDef)
		if out.Values[i] == graphql.Null && fieldDef.Type.NonNull {
			invalid = true
		}
	}

	if invalid {
		return graphql.Null
	}
	return out
}

func (ec *executionContext) field(ctx context.Context, typeName string, obj any, field graphql.CollectedField, def *ast.FieldDefinition) (ret graphql.Marshaler) {
	fc := &graphql.FieldContext{
		Object:     typeName,
		Field:      field,
		Args:       field.ArgumentMap(ec.Variables),
		IsMethod:   true,
		IsResolver: true,
	}
	ctx = graphql.WithFieldContext(ctx, fc)

	defer func() {
		if r := recover(); r != nil {
			ec.Error(ctx, ec.Recover(ctx, r))
			ret = graphql.Null
		}
	}()

	resolve, ok := ec.fields[typeName+"."+field.Name]
	if !ok {
		ec.Errorf(ctx, "no resolver for %s.%s", typeName, field.Name)
		return graphql.Null
	}

	res, err := resolve(ctx, obj, fc.Args)
	if err != nil {
		ec.Error(ctx, err)
		return graphql.Null
	}
	fc.Result = res

	return ec.complete(ctx, def.Type, field.Selections, res)
}

// complete renders v as a value of typ.
func (ec *executionContext) complete(ctx context.Context, typ *ast.Type, sel ast.SelectionSet, v any) graphql.Marshaler {
	if isNil(v) {
		if typ.NonNull {
			if fc := graphql.GetFieldContext(ctx); fc != nil && !graphql.HasFieldError(ctx, fc) {
				ec.Errorf(ctx, "must not be null")
			}
		}
		return graphql.Null
	}

	if typ.Elem != nil {
		return ec.list(ctx, typ, sel, v)
	}

	def := ec.schema.Types[typ.NamedType]
	if def == nil {
		ec.Errorf(ctx, "unknown type %s", typ.NamedType)
		return graphql.Null
	}

	switch def.Kind {
	case ast.Scalar, ast.Enum:
		m, err := marshalLeaf(def.Name, v)
		if err != nil {
			ec.Error(ctx, err)
			return graphql.Null
		}
		return m
	case ast.Object:
		return ec.object(ctx, def.Name, v, sel)
	default:
		ec.Errorf(ctx, "cannot render %s of kind %s", def.Name, def.Kind)
		return graphql.Null
	}
}

func (ec *executionContext) list(ctx context.Context, typ *ast.Type, sel ast.SelectionSet, v any) graphql.Marshaler {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		ec.Errorf(ctx, "expected a list, got %T", v)
		return graphql.Null
	}

	ret := make(graphql.Array, rv.Len())
	for i := range ret {
		idx := i
		item := rv.Index(i).Interface()
		ictx := graphql.WithFieldContext(ctx, &graphql.FieldContext{Index: &idx, Result: item})

		ret[i] = ec.complete(ictx, typ.Elem, sel, item)
		if ret[i] == graphql.Null && typ.Elem.NonNull {
			return graphql.Null
		}
	}
	return ret
}

// subscription starts the single root stream of a subscription operation
// and returns a function yielding one rendered payload per event, or nil
// once the stream ends.
func (ec *executionContext) subscription(ctx context.Context, sel ast.SelectionSet) func(ctx context.Context) graphql.Marshaler {
	fields := graphql.CollectFields(ec.OperationContext, sel, []string{"Subscription"})
	if len(fields) != 1 {
		ec.Errorf(ctx, "must subscribe to exactly one stream")
		return nil
	}

	field := fields[0]
	def := ec.schema.Subscription.Fields.ForName(field.Name)
	ctx = graphql.WithFieldContext(ctx, &graphql.FieldContext{
		Object:     "Subscription",
		Field:      field,
		Args:       field.ArgumentMap(ec.Variables),
		IsMethod:   true,
		IsResolver: true,
	})

	var books <-chan any
	switch field.Name {
	case "bookAdded":
		ch, err := ec.stream.Subscription().BookAdded(ctx)
		if err != nil {
			ec.Error(ctx, err)
			return nil
		}
		books = relay(ctx, ch)
	default:
		ec.Errorf(ctx, "unknown subscription %s", field.Name)
		return nil
	}

	return func(ctx context.Context) graphql.Marshaler {
		select {
		case item, ok := <-books:
			if !ok {
				return nil
			}

			fctx := graphql.WithFieldContext(ctx, &graphql.FieldContext{
				Object:     "Subscription",
				Field:      field,
				IsMethod:   true,
				IsResolver: true,
				Result:     item,
			})
			value := ec.complete(fctx, def.Type, field.Selections, item)
			if value == graphql.Null && def.Type.NonNull {
				return graphql.Null
			}

			return graphql.WriterFunc(func(w io.Writer) {
				_, _ = io.WriteString(w, "{")
				graphql.MarshalString(field.Alias).MarshalGQL(w)
				_, _ = io.WriteString(w, ":")
				value.MarshalGQL(w)
				_, _ = io.WriteString(w, "}")
			})

		case <-ctx.Done():
			return nil
		}
	}
}

// relay widens a typed stream so the executor can treat every
// subscription field alike.
func relay[T any](ctx context.Context, in <-chan T) <-chan any {
	out := make(chan any)
	go func() {
		defer close(out)
		for {
			select {
			case v, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func marshalLeaf(typeName string, v any) (graphql.Marshaler, error) {
	switch val := v.(type) {
	case *int:
		return marshalLeaf(typeName, *val)
	case *string:
		return marshalLeaf(typeName, *val)
	case *bool:
		return marshalLeaf(typeName, *val)
	}

	switch typeName {
	case "Int":
		if n, ok := v.(int); ok {
			return graphql.MarshalInt(n), nil
		}
	case "ID":
		if s, ok := v.(string); ok {
			return graphql.MarshalID(s), nil
		}
	case "Boolean":
		if b, ok := v.(bool); ok {
			return graphql.MarshalBoolean(b), nil
		}
	default:
		// String and every enum render as strings.
		if s, ok := v.(string); ok {
			return graphql.MarshalString(s), nil
		}
	}
	return nil, fmt.Errorf("cannot render %T as %s", v, typeName)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Chan, reflect.Interface, reflect.Func:
		return rv.IsNil()
	}
	return false
}
