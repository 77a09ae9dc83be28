package graph

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"

	"github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2/gqlerror"

	domainerrors "github.com/libraryapp/library-server/internal/errors"
)

const extCode = "code"

// ErrorPresenter renders resolver errors for clients. A domain error
// contributes its message, its code and its extensions; anything else is
// reported as an internal error.
func ErrorPresenter(logger *slog.Logger) graphql.ErrorPresenterFunc {
	return func(ctx context.Context, err error) *gqlerror.Error {
		gqlErr := graphql.DefaultErrorPresenter(ctx, err)

		var de *domainerrors.Error
		if errors.As(err, &de) {
			ext := make(map[string]any, len(de.Extensions)+1)
			for k, v := range de.Extensions {
				ext[k] = v
			}
			ext[extCode] = string(de.Code)

			gqlErr.Message = de.Message
			gqlErr.Extensions = ext

			if de.Code == domainerrors.CodeDatabase || de.Code == domainerrors.CodeInternal {
				logger.Error("operation failed",
					slog.String("path", gqlErr.Path.String()),
					slog.String("error", err.Error()))
			}
			return gqlErr
		}

		if _, ok := gqlErr.Extensions[extCode]; !ok {
			if gqlErr.Extensions == nil {
				gqlErr.Extensions = make(map[string]any, 1)
			}
			gqlErr.Extensions[extCode] = string(domainerrors.CodeInternal)
		}
		return gqlErr
	}
}

// RecoverFunc turns a resolver panic into a generic internal error.
func RecoverFunc(logger *slog.Logger) graphql.RecoverFunc {
	return func(_ context.Context, p any) error {
		logger.Error("resolver panic",
			slog.Any("panic", p),
			slog.String("stack", string(debug.Stack())))
		return domainerrors.Internal("Internal server error")
	}
}
