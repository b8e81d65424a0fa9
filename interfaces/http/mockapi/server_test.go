package mockapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"ideaclient/application/ports/mocks"
	"ideaclient/application/services"
	"ideaclient/application/store"
	"ideaclient/application/stores"
	"ideaclient/domain/resources"
	"ideaclient/domain/session"
	"ideaclient/infrastructure/gateway"
	msgmemory "ideaclient/infrastructure/messaging/memory"
	"ideaclient/infrastructure/persistence/memory"
	"ideaclient/interfaces/http/mockapi"
	apperrors "ideaclient/pkg/errors"
)

func newServer(t *testing.T, secret string) *mockapi.Server {
	t.Helper()
	srv, err := mockapi.NewServer(mockapi.Config{JWTSecret: secret, PasswordCost: bcrypt.MinCost}, nil)
	require.NoError(t, err)
	return srv
}

// client is one signed-in user talking to the mock API through the real stack
type client struct {
	session   *services.SessionService
	registry  *stores.Registry
	navigator *mocks.RecordingNavigator
}

func newClient(t *testing.T, baseURL string, httpClient *http.Client) *client {
	t.Helper()
	gw, err := gateway.New(gateway.Config{BaseURL: baseURL + "/api/"}, httpClient, nil, nil)
	require.NoError(t, err)

	bus := msgmemory.NewBus(nil)
	navigator := &mocks.RecordingNavigator{}
	svc := services.NewSessionService(gw, memory.NewSessionStorage(), bus, nil, navigator, nil, nil, services.DefaultSessionConfig())

	registry := stores.NewRegistry(store.Deps{
		Gateway: gw,
		Session: svc,
		Bus:     bus,
	})
	t.Cleanup(registry.BindSessionLifecycle(bus))

	return &client{session: svc, registry: registry, navigator: navigator}
}

// swappable lets a test replace the API behind a running listener
type swappable struct {
	current atomic.Pointer[http.Handler]
}

func (s *swappable) set(h http.Handler) { s.current.Store(&h) }

func (s *swappable) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	(*s.current.Load()).ServeHTTP(w, r)
}

func TestEndToEnd_IdeasTagsAndScripts(t *testing.T) {
	ts := httptest.NewServer(newServer(t, "e2e-secret").Handler())
	t.Cleanup(ts.Close)
	ctx := context.Background()

	alice := newClient(t, ts.URL, ts.Client())
	sess, err := alice.session.Register(ctx, session.Profile{Username: "alice", Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "alice", sess.Identity.Username)
	assert.Equal(t, []string{"/dashboard"}, alice.navigator.Routes())

	idea, err := alice.registry.Ideas.Create(ctx, resources.IdeaInput{Name: "Podcast", Description: "weekly"})
	require.NoError(t, err)
	assert.NotZero(t, idea.ID)

	page, err := alice.registry.Ideas.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Podcast", page.Items[0].Name)

	comment, err := alice.registry.Ideas.AddComment(ctx, idea.ID, resources.CommentInput{Content: "first"})
	require.NoError(t, err)
	assert.Equal(t, idea.ID, comment.IdeaID)

	script, err := alice.registry.Scripts.Create(ctx, resources.ScriptInput{IdeaID: idea.ID, Title: "Pilot", ScriptContent: "Hello"})
	require.NoError(t, err)

	tag, err := alice.registry.Tags.Create(ctx, resources.TagInput{Name: "audio", Description: "sound"})
	require.NoError(t, err)

	bob := newClient(t, ts.URL, ts.Client())
	_, err = bob.session.Register(ctx, session.Profile{Username: "bob", Email: "bob@example.com", Password: "secret2"})
	require.NoError(t, err)

	shared, err := bob.registry.Ideas.Shared(ctx, 1)
	require.NoError(t, err)
	require.Len(t, shared.Items, 1)
	assert.Equal(t, idea.ID, shared.Items[0].ID)

	_, err = bob.registry.Scripts.Get(ctx, script.Key())
	assert.True(t, apperrors.IsNotFound(err))

	err = bob.registry.Tags.Delete(ctx, tag.Key())
	assert.Equal(t, apperrors.ErrorTypeForbidden, apperrors.TypeOf(err))
	assert.Equal(t, stores.MessageTagDeleteDenied, bob.registry.Tags.Feedback().Error)

	require.NoError(t, alice.registry.Tags.Delete(ctx, tag.Key()))
	_, err = alice.registry.Tags.List(ctx, 1)
	assert.True(t, apperrors.IsNotFound(err))
	assert.Equal(t, stores.MessageTagsNotFound, alice.registry.Tags.Feedback().Error)

	require.NoError(t, alice.registry.Ideas.Delete(ctx, idea.Key()))
	_, err = alice.registry.Scripts.Get(ctx, script.Key())
	assert.True(t, apperrors.IsNotFound(err), "deleting an idea removes its scripts")

	alice.session.Logout(ctx)
	assert.False(t, alice.session.IsAuthenticated())
	assert.Nil(t, alice.registry.Ideas.Collection())
}

func TestEndToEnd_RejectedTokenClearsSession(t *testing.T) {
	first := newServer(t, "first-secret")
	handler := &swappable{}
	handler.set(first.Handler())
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	ctx := context.Background()

	c := newClient(t, ts.URL, ts.Client())
	_, err := c.session.Register(ctx, session.Profile{Username: "carol", Email: "carol@example.com", Password: "secret3"})
	require.NoError(t, err)
	idea, err := c.registry.Ideas.Create(ctx, resources.IdeaInput{Name: "Radio", Description: "late night"})
	require.NoError(t, err)
	_, err = c.registry.Ideas.List(ctx, 1)
	require.NoError(t, err)
	_, err = c.registry.Ideas.Get(ctx, idea.Key())
	require.NoError(t, err)

	// A restarted API with a new signing key rejects the old token
	handler.set(newServer(t, "second-secret").Handler())

	_, err = c.registry.Ideas.Get(ctx, idea.Key())
	assert.Equal(t, apperrors.ErrorTypeUnauthorized, apperrors.TypeOf(err))
	assert.Nil(t, c.session.Current())
	assert.Equal(t, services.StateLoggedOut, c.session.RecoveryState())
	assert.Equal(t, []string{"/dashboard", "/login"}, c.navigator.Routes())

	current := c.registry.Ideas.Current()
	require.NotNil(t, current, "a 401 leaves the cached idea in place")
	assert.Equal(t, "Radio", current.Name)
	require.NotNil(t, c.registry.Ideas.Collection())
	assert.Len(t, c.registry.Ideas.Collection().Items, 1)

	_, err = c.registry.Ideas.List(ctx, 1)
	assert.Equal(t, apperrors.ErrorTypeUnauthenticated, apperrors.TypeOf(err))
}

func TestEndToEnd_DifferentUserAfterRejectionStartsEmpty(t *testing.T) {
	first := newServer(t, "first-secret")
	handler := &swappable{}
	handler.set(first.Handler())
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	ctx := context.Background()

	c := newClient(t, ts.URL, ts.Client())
	_, err := c.session.Register(ctx, session.Profile{Username: "erin", Email: "erin@example.com", Password: "secret5"})
	require.NoError(t, err)
	_, err = c.registry.Ideas.Create(ctx, resources.IdeaInput{Name: "Mural", Description: "north wall"})
	require.NoError(t, err)
	_, err = c.registry.Ideas.List(ctx, 1)
	require.NoError(t, err)

	handler.set(newServer(t, "second-secret").Handler())
	_, err = c.registry.Ideas.List(ctx, 1)
	require.Equal(t, apperrors.ErrorTypeUnauthorized, apperrors.TypeOf(err))
	require.NotNil(t, c.registry.Ideas.Collection())

	// Take user id 1 on the new API so the next account gets a different id
	other := newClient(t, ts.URL, ts.Client())
	_, err = other.session.Register(ctx, session.Profile{Username: "gus", Email: "gus@example.com", Password: "secret9"})
	require.NoError(t, err)

	_, err = c.session.Register(ctx, session.Profile{Username: "fred", Email: "fred@example.com", Password: "secret6"})
	require.NoError(t, err)
	assert.Nil(t, c.registry.Ideas.Collection(), "another user's cache is dropped")
	assert.Nil(t, c.registry.Ideas.Current())
}

func TestLogin_WrongPassword(t *testing.T) {
	ts := httptest.NewServer(newServer(t, "s").Handler())
	t.Cleanup(ts.Close)
	ctx := context.Background()

	c := newClient(t, ts.URL, ts.Client())
	_, err := c.session.Register(ctx, session.Profile{Username: "dave", Email: "dave@example.com", Password: "secret4"})
	require.NoError(t, err)
	c.session.Logout(ctx)

	_, err = c.session.Login(ctx, session.Credentials{Email: "dave@example.com", Password: "wrong!"})
	require.Error(t, err)
	assert.Equal(t, "Incorrect email or password", c.session.Feedback().Error)

	sess, err := c.session.Login(ctx, session.Credentials{Email: "dave@example.com", Password: "secret4"})
	require.NoError(t, err)
	assert.Equal(t, "dave", sess.Identity.Username)
}

func TestServer_RawResponses(t *testing.T) {
	ts := httptest.NewServer(newServer(t, "s").Handler())
	t.Cleanup(ts.Close)

	post := func(path, body string) *http.Response {
		resp, err := ts.Client().Post(ts.URL+path, "application/json", strings.NewReader(body))
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	t.Run("health", func(t *testing.T) {
		resp, err := ts.Client().Get(ts.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("register validation", func(t *testing.T) {
		resp := post("/api/auth/register", `{"username":"x","email":"not-an-email","password":"123"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

		var body struct {
			Detail []struct {
				Loc []string `json:"loc"`
				Msg string   `json:"msg"`
			} `json:"detail"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.NotEmpty(t, body.Detail)
		assert.Equal(t, "body", body.Detail[0].Loc[0])
	})

	t.Run("malformed body", func(t *testing.T) {
		resp := post("/api/auth/login", `{`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("duplicate email", func(t *testing.T) {
		profile := `{"username":"erin","email":"erin@example.com","password":"secret5"}`
		assert.Equal(t, http.StatusCreated, post("/api/auth/register", profile).StatusCode)
		assert.Equal(t, http.StatusBadRequest, post("/api/auth/register", profile).StatusCode)
	})

	t.Run("missing token", func(t *testing.T) {
		resp, err := ts.Client().Get(ts.URL + "/api/ideas")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("cors preflight", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/ideas", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		resp, err := ts.Client().Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Origin"))
	})
}
