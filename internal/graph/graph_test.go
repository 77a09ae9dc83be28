package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/99designs/gqlgen/graphql/handler"
	"github.com/99designs/gqlgen/graphql/handler/extension"
	"github.com/99designs/gqlgen/graphql/handler/transport"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/libraryapp/library-server/internal/auth"
	"github.com/libraryapp/library-server/internal/domain"
	"github.com/libraryapp/library-server/internal/logger"
	"github.com/libraryapp/library-server/internal/pubsub"
	"github.com/libraryapp/library-server/internal/ratelimit"
	"github.com/libraryapp/library-server/internal/service"
	"github.com/libraryapp/library-server/internal/store"
	"github.com/libraryapp/library-server/internal/validation"
)

type testEnv struct {
	store    *store.Store
	bus      *pubsub.Bus
	catalog  *service.CatalogService
	accounts *service.AccountService
	issuer   auth.TokenIssuer
	server   *handler.Server
}

type gqlError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path"`
	Extensions map[string]any `json:"extensions"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
	raw    string
}

func setupGraphTest(t *testing.T) *testEnv {
	t.Helper()

	s, err := store.New(t.TempDir(), logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	bus := pubsub.New(logger.Discard(), 8)
	t.Cleanup(bus.Close)

	password, err := auth.NewSharedPassword("secret")
	require.NoError(t, err)
	issuer := auth.NewJWTIssuer([]byte("graph-test-secret"))
	limiter := ratelimit.New(100, 100)
	t.Cleanup(limiter.Stop)

	v := validation.New()
	catalog := service.NewCatalogService(s, bus, v, logger.Discard())
	accounts := service.NewAccountService(s, issuer, password, limiter, v, logger.Discard())

	srv := handler.New(NewExecutableSchema(Config{
		Resolvers: NewResolver(catalog, accounts, bus, logger.Discard()),
	}))
	srv.AddTransport(transport.Websocket{
		Upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	})
	srv.AddTransport(transport.POST{})
	srv.Use(extension.Introspection{})
	srv.SetErrorPresenter(ErrorPresenter(logger.Discard()))
	srv.SetRecoverFunc(RecoverFunc(logger.Discard()))

	return &testEnv{
		store:    s,
		bus:      bus,
		catalog:  catalog,
		accounts: accounts,
		issuer:   issuer,
		server:   srv,
	}
}

// withUser attaches user to every request, standing in for the HTTP auth
// middleware.
func (e *testEnv) withUser(user *domain.User) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e.server.ServeHTTP(w, r.WithContext(auth.WithCurrentUser(r.Context(), user)))
	})
}

func (e *testEnv) exec(t *testing.T, user *domain.User, query string, vars map[string]any) gqlResponse {
	t.Helper()

	body, err := json.Marshal(map[string]any{"query": query, "variables": vars})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.withUser(user).ServeHTTP(rec, req)

	var resp gqlResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	resp.raw = rec.Body.String()
	return resp
}

func (e *testEnv) signUp(t *testing.T, username string) *domain.User {
	t.Helper()
	u, err := e.accounts.CreateUser(context.Background(), username, "refactoring", nil)
	require.NoError(t, err)
	return u
}

func decode[T any](t *testing.T, resp gqlResponse) T {
	t.Helper()
	require.Empty(t, resp.Errors, resp.raw)
	var out T
	require.NoError(t, json.Unmarshal(resp.Data, &out), resp.raw)
	return out
}
