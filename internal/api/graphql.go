package api

import (
	"context"
	"net/http"
	"time"

	"github.com/99designs/gqlgen/graphql"
	"github.com/99designs/gqlgen/graphql/handler"
	"github.com/99designs/gqlgen/graphql/handler/extension"
	"github.com/99designs/gqlgen/graphql/handler/lru"
	"github.com/99designs/gqlgen/graphql/handler/transport"
	"github.com/gorilla/websocket"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/libraryapp/library-server/internal/auth"
	"github.com/libraryapp/library-server/internal/graph"
)

const (
	queryCacheSize          = 1000
	persistedQueryCacheSize = 100
	keepAlivePingInterval   = 10 * time.Second
)

func (s *Server) newGraphQLHandler() *handler.Server {
	resolver := graph.NewResolver(s.services.Catalog, s.services.Accounts, s.services.Bus, s.logger)
	srv := handler.New(graph.NewExecutableSchema(graph.Config{Resolvers: resolver}))

	srv.AddTransport(transport.Websocket{
		KeepAlivePingInterval: keepAlivePingInterval,
		Upgrader: websocket.Upgrader{
			CheckOrigin: s.checkOrigin,
		},
	})
	srv.AddTransport(transport.Options{})
	srv.AddTransport(transport.GET{})
	srv.AddTransport(transport.POST{})

	srv.SetQueryCache(lru.New(queryCacheSize))

	srv.Use(extension.Introspection{})
	srv.Use(extension.AutomaticPersistedQuery{
		Cache: lru.New(persistedQueryCacheSize),
	})
	if s.opts.ComplexityLimit > 0 {
		srv.Use(extension.FixedComplexityLimit(s.opts.ComplexityLimit))
	}

	presenter := graph.ErrorPresenter(s.logger)
	srv.Use(credentialGuard{present: presenter})
	if s.services.Metrics != nil {
		srv.Use(s.services.Metrics.GraphQL())
	}

	srv.SetErrorPresenter(presenter)
	srv.SetRecoverFunc(graph.RecoverFunc(s.logger))
	return srv
}

// checkOrigin applies the CORS origin list to websocket upgrades, which the
// CORS middleware does not cover.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.opts.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range s.opts.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// authenticate resolves the Authorization header once per HTTP request.
// The result travels in the request context, so every operation on a
// websocket connection sees the user of its upgrade request.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := auth.WithClientAddr(r.Context(), getClientIP(r))

		user, err := s.services.Auth.Build(ctx, r.Header.Get("Authorization"))
		if err != nil {
			ctx = auth.WithFailure(ctx, err)
		} else {
			ctx = auth.WithCurrentUser(ctx, user)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// credentialGuard fails every operation whose credential was rejected,
// before any resolver runs.
type credentialGuard struct {
	present graphql.ErrorPresenterFunc
}

var (
	_ graphql.HandlerExtension     = credentialGuard{}
	_ graphql.OperationInterceptor = credentialGuard{}
)

func (credentialGuard) ExtensionName() string {
	return "CredentialGuard"
}

func (credentialGuard) Validate(graphql.ExecutableSchema) error {
	return nil
}

func (g credentialGuard) InterceptOperation(ctx context.Context, next graphql.OperationHandler) graphql.ResponseHandler {
	if err := auth.Failure(ctx); err != nil {
		return graphql.OneShot(&graphql.Response{
			Errors: gqlerror.List{g.present(ctx, err)},
		})
	}
	return next(ctx)
}

// getClientIP extracts the client IP from request, considering proxies.
func getClientIP(r *http.Request) string {
	// X-Forwarded-For may hold a chain; the first entry is the client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for i := 0; i < len(xff); i++ {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip := r.RemoteAddr
	for i := len(ip) - 1; i >= 0; i-- {
		if ip[i] == ':' {
			return ip[:i]
		}
	}
	return ip
}
