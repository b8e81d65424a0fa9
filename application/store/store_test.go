package store

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ideaclient/application/ports"
	"ideaclient/application/ports/mocks"
	"ideaclient/domain/events"
	apperrors "ideaclient/pkg/errors"
)

type widget struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type widgetInput struct {
	Name string `json:"name" validate:"required"`
}

type note struct {
	Content string `json:"content"`
}

var widgetDefinition = Definition[widget]{
	Kind:       "widget",
	Label:      "Widget",
	Endpoint:   "widgets",
	ResourceID: func(w widget) string { return strconv.FormatInt(w.ID, 10) },
}

type fixture struct {
	store    *Store[widget]
	gateway  *mocks.MockGateway
	session  *mocks.MockSessionProvider
	bus      *mocks.MockEventBus
	notifier *mocks.RecordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		gateway:  &mocks.MockGateway{},
		session:  &mocks.MockSessionProvider{},
		bus:      &mocks.MockEventBus{},
		notifier: &mocks.RecordingNotifier{},
	}
	f.session.On("AuthHeaders").Return(http.Header{"Authorization": []string{"Bearer tok"}}, nil).Maybe()
	f.bus.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()

	f.store = New(widgetDefinition, Deps{
		Gateway:       f.gateway,
		Session:       f.session,
		Bus:           f.bus,
		Notifier:      f.notifier,
		FeedbackDelay: time.Hour,
	})
	return f
}

func ok(status int, body string) *ports.Response {
	return &ports.Response{Status: status, Body: []byte(body)}
}

func onPage(page string) interface{} {
	return mock.MatchedBy(func(r ports.Request) bool {
		return r.Method == http.MethodGet && r.Query.Get("page") == page
	})
}

func onPath(method, path string) interface{} {
	return mock.MatchedBy(func(r ports.Request) bool {
		return r.Method == method && r.Path == path
	})
}

func TestList_StoresPageAndSendsAuthHeader(t *testing.T) {
	f := newFixture(t)
	f.gateway.On("Do", mock.Anything, mock.MatchedBy(func(r ports.Request) bool {
		return r.Path == "widgets" && r.Query.Get("page") == "1" && r.Header.Get("Authorization") == "Bearer tok"
	})).Return(ok(200, `{"items":[{"id":1,"name":"a"}],"total":1,"page":1,"size":50,"pages":1}`), nil)

	page, err := f.store.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Len())
	assert.Equal(t, "a", f.store.Collection().Items[0].Name)
	assert.False(t, f.store.Loading())
	f.gateway.AssertExpectations(t)
}

func TestList_RejectsNegativePage(t *testing.T) {
	f := newFixture(t)

	_, err := f.store.List(context.Background(), -1)
	assert.True(t, apperrors.IsValidation(err))
	f.gateway.AssertNotCalled(t, "Do", mock.Anything, mock.Anything)
}

func TestReset_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.gateway.On("Do", mock.Anything, onPage("1")).Return(ok(200, `[{"id":1,"name":"a"}]`), nil)
	f.gateway.On("Do", mock.Anything, onPath(http.MethodGet, "widgets/1")).Return(ok(200, `{"id":1,"name":"a"}`), nil)

	ctx := context.Background()
	_, err := f.store.List(ctx, 1)
	require.NoError(t, err)
	_, err = f.store.Get(ctx, "1")
	require.NoError(t, err)
	f.store.Reporter().Failure("stale error")

	f.store.Reset()
	once := f.store.State()
	f.store.Reset()
	twice := f.store.State()

	assert.Equal(t, once, twice)
	assert.Nil(t, twice.Current)
	assert.Nil(t, twice.Collection)
	assert.Empty(t, twice.Named)
	assert.True(t, twice.Feedback.Empty())
}

func TestCreate_LoadingBracketsActionOnce(t *testing.T) {
	f := newFixture(t)
	f.gateway.On("Do", mock.Anything, onPath(http.MethodPost, "widgets")).Return(ok(201, `{"id":7,"name":"kite"}`), nil)

	var mu sync.Mutex
	var seen []bool
	f.store.Subscribe(func(st State[widget]) {
		mu.Lock()
		seen = append(seen, st.Loading)
		mu.Unlock()
	})

	item, err := f.store.Create(context.Background(), widgetInput{Name: "kite"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), item.ID)

	mu.Lock()
	defer mu.Unlock()
	rises, falls := 0, 0
	prev := false
	for _, loading := range seen {
		if loading && !prev {
			rises++
		}
		if !loading && prev {
			falls++
		}
		prev = loading
	}
	assert.Equal(t, 1, rises)
	assert.Equal(t, 1, falls)
	assert.False(t, prev)
}

func TestCreate_SuccessSetsCurrentFeedbackAndEvent(t *testing.T) {
	f := newFixture(t)
	f.gateway.On("Do", mock.Anything, onPath(http.MethodPost, "widgets")).Return(ok(201, `{"id":7,"name":"kite"}`), nil)

	_, err := f.store.Create(context.Background(), widgetInput{Name: "kite"})
	require.NoError(t, err)

	assert.Equal(t, "kite", f.store.Current().Name)
	assert.Nil(t, f.store.Collection(), "no optimistic insert")
	assert.Equal(t, FeedbackState{Message: "Widget added successfully!"}, f.store.Feedback())
	f.bus.AssertCalled(t, "Publish", mock.Anything, mock.MatchedBy(func(e events.Event) bool {
		created, ok := e.(events.ResourceCreated)
		return ok && created.Kind == "widget" && created.ResourceID == "7"
	}))
}

func TestCreate_PrefersServerMessage(t *testing.T) {
	f := newFixture(t)
	f.gateway.On("Do", mock.Anything, mock.Anything).Return(ok(201, `{"id":7,"name":"kite","message":"Kite flown"}`), nil)

	_, err := f.store.Create(context.Background(), widgetInput{Name: "kite"})
	require.NoError(t, err)
	assert.Equal(t, "Kite flown", f.store.Feedback().Message)
}

func TestCreate_BadRequestSurfacesDetail(t *testing.T) {
	f := newFixture(t)
	f.gateway.On("Do", mock.Anything, onPage("1")).Return(ok(200, `[{"id":1,"name":"a"}]`), nil)
	f.gateway.On("Do", mock.Anything, onPath(http.MethodPost, "widgets")).
		Return(nil, apperrors.FromResponse(400, []byte(`{"detail":"Name already exists"}`)))

	ctx := context.Background()
	_, err := f.store.List(ctx, 1)
	require.NoError(t, err)
	before := f.store.Collection()

	_, err = f.store.Create(ctx, widgetInput{Name: "a"})
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, FeedbackState{Error: "Name already exists"}, f.store.Feedback())
	assert.Equal(t, before, f.store.Collection())
	f.bus.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestCreate_InvalidPayloadNeverSent(t *testing.T) {
	f := newFixture(t)

	_, err := f.store.Create(context.Background(), widgetInput{})
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "name is required", f.store.Feedback().Error)
	f.gateway.AssertNotCalled(t, "Do", mock.Anything, mock.Anything)
}

func TestCreate_UnexpectedStatus(t *testing.T) {
	f := newFixture(t)
	f.gateway.On("Do", mock.Anything, mock.Anything).Return(ok(200, `{"id":7}`), nil)

	_, err := f.store.Create(context.Background(), widgetInput{Name: "kite"})
	assert.Equal(t, apperrors.ErrorTypeUnknown, apperrors.TypeOf(err))
	assert.Equal(t, MessageUnexpected, f.store.Feedback().Error)
	assert.Nil(t, f.store.Current())
}

func TestGet_UnauthorizedLeavesCurrentAndRecoversSession(t *testing.T) {
	f := newFixture(t)
	f.gateway.On("Do", mock.Anything, onPath(http.MethodGet, "widgets/1")).Return(ok(200, `{"id":1,"name":"a"}`), nil).Once()
	f.gateway.On("Do", mock.Anything, onPath(http.MethodGet, "widgets/2")).
		Return(nil, apperrors.FromResponse(401, []byte(`{"detail":"Could not validate credentials"}`)))
	f.session.On("HandleUnauthorized", mock.Anything, mock.Anything).Return(true).Once()

	ctx := context.Background()
	_, err := f.store.Get(ctx, "1")
	require.NoError(t, err)

	_, err = f.store.Get(ctx, "2")
	assert.True(t, apperrors.IsUnauthorized(err))
	assert.Equal(t, "a", f.store.Current().Name)
	assert.Equal(t, apperrors.MessageUnauthorized, f.store.Feedback().Error)
	f.session.AssertNumberOfCalls(t, "HandleUnauthorized", 1)
}

func TestGet_NoSessionSendsNothing(t *testing.T) {
	gateway := &mocks.MockGateway{}
	session := &mocks.MockSessionProvider{}
	session.On("AuthHeaders").Return(nil, apperrors.NewUnauthenticatedError(""))
	s := New(widgetDefinition, Deps{Gateway: gateway, Session: session, FeedbackDelay: time.Hour})

	_, err := s.Get(context.Background(), "1")
	assert.True(t, apperrors.IsUnauthenticated(err))
	assert.Equal(t, apperrors.MessageUnauthorized, s.Feedback().Error)
	gateway.AssertNotCalled(t, "Do", mock.Anything, mock.Anything)
}

func TestGet_FailureTextOverridesDetail(t *testing.T) {
	f := newFixture(t)
	def := widgetDefinition
	def.FailureText = func(verb Verb, errType apperrors.ErrorType) string {
		if errType == apperrors.ErrorTypeNotFound {
			return "Widget not found."
		}
		return ""
	}
	s := New(def, Deps{Gateway: f.gateway, Session: f.session, FeedbackDelay: time.Hour})
	f.gateway.On("Do", mock.Anything, mock.Anything).Return(nil, apperrors.FromResponse(404, []byte(`{"detail":"Not Found"}`)))

	_, err := s.Get(context.Background(), "9")
	assert.True(t, apperrors.IsNotFound(err))
	assert.Equal(t, "Widget not found.", s.Feedback().Error)
}

func TestDelete_NoContentKeepsCollection(t *testing.T) {
	f := newFixture(t)
	f.gateway.On("Do", mock.Anything, onPath(http.MethodGet, "widgets")).Return(ok(200, `[{"id":1,"name":"a"},{"id":2,"name":"b"}]`), nil)
	f.gateway.On("Do", mock.Anything, onPath(http.MethodDelete, "widgets/1")).Return(ok(204, ""), nil)

	ctx := context.Background()
	_, err := f.store.List(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, f.store.Delete(ctx, "1"))
	assert.Equal(t, 2, f.store.Collection().Len(), "deletes are not applied optimistically")
	assert.Equal(t, "Widget deleted successfully!", f.store.Feedback().Message)
	f.bus.AssertCalled(t, "Publish", mock.Anything, mock.AnythingOfType("events.ResourceDeleted"))
}

func TestUpdate_BroadcastsBody(t *testing.T) {
	f := newFixture(t)
	f.gateway.On("Do", mock.Anything, onPath(http.MethodPut, "widgets/3")).Return(ok(200, `{"id":3,"name":"renamed"}`), nil)

	item, err := f.store.Update(context.Background(), "3", widgetInput{Name: "renamed"})
	require.NoError(t, err)
	assert.Equal(t, "renamed", item.Name)
	assert.Equal(t, "Widget updated successfully!", f.store.Feedback().Message)

	f.bus.AssertCalled(t, "Publish", mock.Anything, mock.MatchedBy(func(e events.Event) bool {
		updated, ok := e.(events.ResourceUpdated)
		if !ok {
			return false
		}
		var w widget
		return updated.Decode(&w) == nil && w.Name == "renamed"
	}))
}

func TestUpdate_RequiresID(t *testing.T) {
	f := newFixture(t)

	_, err := f.store.Update(context.Background(), " ", widgetInput{Name: "x"})
	assert.True(t, apperrors.IsValidation(err))
	f.gateway.AssertNotCalled(t, "Do", mock.Anything, mock.Anything)
}

func TestList_OutOfOrderCompletionIsDiscarded(t *testing.T) {
	f := newFixture(t)
	release := make(chan struct{})
	f.gateway.On("Do", mock.Anything, onPage("1")).
		Run(func(mock.Arguments) { <-release }).
		Return(ok(200, `{"items":[{"id":1,"name":"first"}],"total":1,"page":1,"size":50,"pages":2}`), nil)
	f.gateway.On("Do", mock.Anything, onPage("2")).
		Return(ok(200, `{"items":[{"id":2,"name":"second"}],"total":1,"page":2,"size":50,"pages":2}`), nil)

	ctx := context.Background()
	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = f.store.List(ctx, 1)
	}()
	require.Eventually(t, f.store.Loading, time.Second, time.Millisecond)

	_, err := f.store.List(ctx, 2)
	require.NoError(t, err)
	close(release)
	wg.Wait()

	assert.True(t, apperrors.IsStale(firstErr))
	assert.Equal(t, 2, f.store.Collection().Page)
	assert.Equal(t, "second", f.store.Collection().Items[0].Name)
	assert.False(t, f.store.Loading())
}

func TestReset_DiscardsInFlightResult(t *testing.T) {
	f := newFixture(t)
	release := make(chan struct{})
	f.gateway.On("Do", mock.Anything, onPage("1")).
		Run(func(mock.Arguments) { <-release }).
		Return(ok(200, `[{"id":1,"name":"a"}]`), nil)

	done := make(chan error, 1)
	go func() {
		_, err := f.store.List(context.Background(), 1)
		done <- err
	}()
	require.Eventually(t, f.store.Loading, time.Second, time.Millisecond)

	f.store.Reset()
	close(release)

	assert.True(t, apperrors.IsStale(<-done))
	assert.Nil(t, f.store.Collection())
}

func TestGet_CanceledResultIsDiscarded(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	f.gateway.On("Do", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(ok(200, `{"id":1,"name":"a"}`), nil)

	_, err := f.store.Get(ctx, "1")
	assert.True(t, apperrors.IsCanceled(err))
	assert.Nil(t, f.store.Current())
	assert.True(t, f.store.Feedback().Empty())
	assert.Empty(t, f.notifier.Notifications())
}

func TestInvoke_DecodesSubResource(t *testing.T) {
	f := newFixture(t)
	f.gateway.On("Do", mock.Anything, onPath(http.MethodPost, "widgets/1/notes")).Return(ok(201, `{"content":"hi"}`), nil)

	n, err := Invoke[widget, note](context.Background(), f.store, Action{
		Verb:     "note",
		Method:   http.MethodPost,
		Path:     "widgets/1/notes",
		Body:     note{Content: "hi"},
		Accept:   Exactly(http.StatusCreated),
		Success:  "Note added!",
		Mutation: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "hi", n.Content)
	assert.Equal(t, "Note added!", f.store.Feedback().Message)
}

func TestListNamed_KeepsSeparateCollection(t *testing.T) {
	f := newFixture(t)
	f.gateway.On("Do", mock.Anything, onPath(http.MethodGet, "widgets/shared")).Return(ok(200, `[{"id":5,"name":"s"}]`), nil)

	_, err := f.store.ListNamed(context.Background(), "shared", "widgets/shared", 1)
	require.NoError(t, err)
	assert.Nil(t, f.store.Collection())
	assert.Equal(t, "s", f.store.Named("shared").Items[0].Name)
}

func TestState_CopiesDoNotAliasCache(t *testing.T) {
	f := newFixture(t)
	f.gateway.On("Do", mock.Anything, onPath(http.MethodGet, "widgets")).Return(ok(200, `[{"id":1,"name":"a"},{"id":2,"name":"b"}]`), nil)
	f.gateway.On("Do", mock.Anything, onPath(http.MethodGet, "widgets/shared")).Return(ok(200, `[{"id":5,"name":"s"}]`), nil)

	var seen []State[widget]
	unsubscribe := f.store.Subscribe(func(st State[widget]) {
		if st.Collection != nil && len(st.Collection.Items) > 0 {
			st.Collection.Items[0].Name = "scribbled"
		}
		seen = append(seen, st)
	})

	ctx := context.Background()
	page, err := f.store.List(ctx, 1)
	require.NoError(t, err)
	page.Items[1].Name = "changed by caller"

	shared, err := f.store.ListNamed(ctx, "shared", "widgets/shared", 1)
	require.NoError(t, err)
	shared.Items[0].Name = "changed by caller"

	assert.NotEmpty(t, seen)
	assert.Equal(t, []widget{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}}, f.store.Collection().Items)
	assert.Equal(t, "s", f.store.Named("shared").Items[0].Name)

	unsubscribe()
	calls := len(seen)
	_, err = f.store.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, seen, calls, "no notifications after unsubscribe")
}

func TestFeedbackNeverLeaksAcrossStores(t *testing.T) {
	a := newFixture(t)
	b := newFixture(t)

	a.store.Reporter().Failure("only a")
	assert.True(t, b.store.Feedback().Empty())
}
