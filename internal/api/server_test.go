package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libraryapp/library-server/internal/auth"
	"github.com/libraryapp/library-server/internal/domain"
	"github.com/libraryapp/library-server/internal/logger"
	"github.com/libraryapp/library-server/internal/metrics"
	"github.com/libraryapp/library-server/internal/pubsub"
	"github.com/libraryapp/library-server/internal/ratelimit"
	"github.com/libraryapp/library-server/internal/search"
	"github.com/libraryapp/library-server/internal/service"
	"github.com/libraryapp/library-server/internal/sse"
	"github.com/libraryapp/library-server/internal/store"
	"github.com/libraryapp/library-server/internal/validation"
)

type testServer struct {
	*Server
	api      humatest.TestAPI
	store    *store.Store
	bus      *pubsub.Bus
	index    *search.SearchIndex
	issuer   auth.TokenIssuer
	services *Services
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message    string         `json:"message"`
		Extensions map[string]any `json:"extensions"`
	} `json:"errors"`
}

// setupTestServer creates a test server with all dependencies. tweak may
// adjust the services and options before the router is built.
func setupTestServer(t *testing.T, tweak func(*Services, *Options)) *testServer {
	t.Helper()

	log := logger.Discard()

	st, err := store.New(t.TempDir(), log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	bus := pubsub.New(log, 8)
	t.Cleanup(bus.Close)

	index, err := search.NewSearchIndex(search.Options{DataPath: t.TempDir(), Logger: log})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	password, err := auth.NewSharedPassword("secret")
	require.NoError(t, err)
	issuer := auth.NewJWTIssuer([]byte("api-test-secret"))
	limiter := ratelimit.New(100, 100)
	t.Cleanup(limiter.Stop)

	v := validation.New()
	m := metrics.New()
	bus.SetObserver(m)

	services := &Services{
		Store:    st,
		Bus:      bus,
		Catalog:  service.NewCatalogService(st, bus, v, log),
		Accounts: service.NewAccountService(st, issuer, password, limiter, v, log),
		Auth:     auth.NewContextBuilder(issuer, st, log),
		Search:   index,
		Streams:  sse.NewManager(bus, log),
		Metrics:  m,
	}
	opts := Options{ComplexityLimit: 200, Playground: true}
	if tweak != nil {
		tweak(services, &opts)
	}

	srv := NewServer(services, opts, log)

	return &testServer{
		Server:   srv,
		api:      humatest.Wrap(t, srv.API()),
		store:    st,
		bus:      bus,
		index:    index,
		issuer:   issuer,
		services: services,
	}
}

func (ts *testServer) signUp(t *testing.T, username string) (*domain.User, string) {
	t.Helper()
	ctx := context.Background()

	user, err := ts.services.Accounts.CreateUser(ctx, username, "refactoring", nil)
	require.NoError(t, err)
	token, err := ts.services.Accounts.Login(ctx, username, "secret", "test")
	require.NoError(t, err)
	return user, token.Value
}

func (ts *testServer) graphql(t *testing.T, token, query string) gqlResponse {
	t.Helper()

	args := []any{map[string]any{"query": query}}
	if token != "" {
		args = append([]any{"Authorization: Bearer " + token}, args...)
	}
	resp := ts.api.Post("/graphql", args...)

	var out gqlResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out), resp.Body.String())
	return out
}

func TestGraphQL_AnonymousQuery(t *testing.T) {
	ts := setupTestServer(t, nil)

	out := ts.graphql(t, "", `{ bookCount authorCount }`)

	require.Empty(t, out.Errors)
	assert.JSONEq(t, `{"bookCount":0,"authorCount":0}`, string(out.Data))
}

func TestGraphQL_TokenIdentifiesUser(t *testing.T) {
	ts := setupTestServer(t, nil)
	_, token := ts.signUp(t, "mluukkai")

	out := ts.graphql(t, token, `{ me { username favoriteGenre } }`)

	require.Empty(t, out.Errors)
	assert.JSONEq(t, `{"me":{"username":"mluukkai","favoriteGenre":"refactoring"}}`, string(out.Data))
}

func TestGraphQL_InvalidTokenFailsOperation(t *testing.T) {
	ts := setupTestServer(t, nil)

	out := ts.graphql(t, "not-a-token", `{ bookCount }`)

	require.Len(t, out.Errors, 1)
	assert.Equal(t, "INVALID_TOKEN", out.Errors[0].Extensions["code"])
	assert.Equal(t, "null", string(out.Data))
}

func TestGraphQL_TokenForDeletedUserIsAnonymous(t *testing.T) {
	ts := setupTestServer(t, nil)

	token, err := ts.issuer.Issue(domain.Identity{ID: "user-gone", Username: "ghost"})
	require.NoError(t, err)

	out := ts.graphql(t, token, `{ me { username } }`)

	require.Len(t, out.Errors, 1)
	assert.Equal(t, "UNAUTHENTICATED", out.Errors[0].Extensions["code"])
}

func TestGraphQL_AddBookOverHTTP(t *testing.T) {
	ts := setupTestServer(t, nil)
	_, token := ts.signUp(t, "mluukkai")

	out := ts.graphql(t, token, `mutation {
		addBook(title: "Refactoring, edition 2", author: "Martin Fowler", published: 2018, genres: ["refactoring"]) {
			title author { name bookCount }
		}
	}`)

	require.Empty(t, out.Errors)
	assert.JSONEq(t,
		`{"addBook":{"title":"Refactoring, edition 2","author":{"name":"Martin Fowler","bookCount":1}}}`,
		string(out.Data))
}

func TestGraphQL_ComplexityLimit(t *testing.T) {
	ts := setupTestServer(t, func(_ *Services, opts *Options) { opts.ComplexityLimit = 5 })

	out := ts.graphql(t, "", `{ allBooks { title } }`)

	require.Len(t, out.Errors, 1)
	assert.Contains(t, out.Errors[0].Message, "exceeds the limit")
}

func TestGraphQL_AutomaticPersistedQuery(t *testing.T) {
	ts := setupTestServer(t, nil)

	query := `{ bookCount }`
	sum := sha256.Sum256([]byte(query))
	persisted := map[string]any{
		"persistedQuery": map[string]any{"version": 1, "sha256Hash": hex.EncodeToString(sum[:])},
	}

	decode := func(body []byte) gqlResponse {
		var out gqlResponse
		require.NoError(t, json.Unmarshal(body, &out), string(body))
		return out
	}

	miss := decode(ts.api.Post("/graphql", map[string]any{"extensions": persisted}).Body.Bytes())
	require.Len(t, miss.Errors, 1)
	assert.Equal(t, "PersistedQueryNotFound", miss.Errors[0].Message)

	first := decode(ts.api.Post("/graphql", map[string]any{"query": query, "extensions": persisted}).Body.Bytes())
	require.Empty(t, first.Errors)

	cached := decode(ts.api.Post("/graphql", map[string]any{"extensions": persisted}).Body.Bytes())
	require.Empty(t, cached.Errors)
	assert.JSONEq(t, `{"bookCount":0}`, string(cached.Data))
}

func TestGraphQL_GetTransport(t *testing.T) {
	ts := setupTestServer(t, nil)

	resp := ts.api.Get("/graphql?query=%7BbookCount%7D")

	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"data":{"bookCount":0}}`, resp.Body.String())
}

func TestPlayground(t *testing.T) {
	t.Run("served when enabled", func(t *testing.T) {
		ts := setupTestServer(t, nil)
		resp := ts.api.Get("/")
		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Body.String(), "/graphql")
	})

	t.Run("absent when disabled", func(t *testing.T) {
		ts := setupTestServer(t, func(_ *Services, opts *Options) { opts.Playground = false })
		resp := ts.api.Get("/")
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	ts := setupTestServer(t, nil)
	ts.graphql(t, "", `{ bookCount }`)

	resp := ts.api.Get("/metrics")

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `library_graphql_operations_total{type="query"} 1`)
}

func TestCORS(t *testing.T) {
	ts := setupTestServer(t, func(_ *Services, opts *Options) {
		opts.AllowedOrigins = []string{"https://library.example"}
	})

	req := httptest.NewRequest(http.MethodOptions, "/graphql", nil)
	req.Header.Set("Origin", "https://library.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)

	assert.Equal(t, "https://library.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCheckOrigin(t *testing.T) {
	s := &Server{opts: Options{AllowedOrigins: []string{"https://library.example"}}}

	tests := []struct {
		name   string
		origin string
		want   bool
	}{
		{"no origin", "", true},
		{"allowed", "https://library.example", true},
		{"other", "https://evil.example", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/graphql", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, s.checkOrigin(r))
		})
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "10.0.0.1,10.0.0.2"}, "1.2.3.4:5", "10.0.0.1"},
		{"forwarded single", map[string]string{"X-Forwarded-For": "10.0.0.9"}, "1.2.3.4:5", "10.0.0.9"},
		{"real ip", map[string]string{"X-Real-IP": "10.0.0.3"}, "1.2.3.4:5", "10.0.0.3"},
		{"remote addr", nil, "192.168.1.7:51234", "192.168.1.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(r))
		})
	}
}
