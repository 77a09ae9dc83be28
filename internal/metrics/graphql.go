package metrics

import (
	"context"
	"time"

	"github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2/ast"
)

// GraphQL is a gqlgen handler extension that counts operations, their
// errors and their latency.
type GraphQL struct {
	m *Metrics
}

var (
	_ graphql.HandlerExtension     = GraphQL{}
	_ graphql.OperationInterceptor = GraphQL{}
)

// GraphQL returns the handler extension bound to m.
func (m *Metrics) GraphQL() GraphQL {
	return GraphQL{m: m}
}

// ExtensionName implements graphql.HandlerExtension.
func (GraphQL) ExtensionName() string {
	return "Metrics"
}

// Validate implements graphql.HandlerExtension.
func (GraphQL) Validate(graphql.ExecutableSchema) error {
	return nil
}

// InterceptOperation implements graphql.OperationInterceptor.
func (g GraphQL) InterceptOperation(ctx context.Context, next graphql.OperationHandler) graphql.ResponseHandler {
	opType := string(ast.Query)
	if op := graphql.GetOperationContext(ctx).Operation; op != nil {
		opType = string(op.Operation)
	}
	g.m.operations.WithLabelValues(opType).Inc()

	start := time.Now()
	first := true
	handler := next(ctx)

	return func(ctx context.Context) *graphql.Response {
		resp := handler(ctx)
		if resp == nil {
			return nil
		}
		if first && opType != string(ast.Subscription) {
			g.m.operationDuration.WithLabelValues(opType).Observe(time.Since(start).Seconds())
		}
		first = false
		for _, err := range resp.Errors {
			code, _ := err.Extensions["code"].(string)
			if code == "" {
				code = "UNKNOWN"
			}
			g.m.operationErrors.WithLabelValues(opType, code).Inc()
		}
		return resp
	}
}
