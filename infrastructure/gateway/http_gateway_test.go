package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideaclient/application/ports"
	apperrors "ideaclient/pkg/errors"
)

type recordedRequest struct {
	status int
}

type fakeRecorder struct {
	mu       sync.Mutex
	requests []recordedRequest
	states   []int
}

func (r *fakeRecorder) ObserveRequest(_ string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, recordedRequest{status: status})
}

func (r *fakeRecorder) SetBreakerState(_ string, state int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func newTestGateway(t *testing.T, handler http.HandlerFunc) (*HTTPGateway, *fakeRecorder) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	recorder := &fakeRecorder{}
	gw, err := New(Config{BaseURL: server.URL + "/api"}, server.Client(), recorder, nil)
	require.NoError(t, err)
	return gw, recorder
}

func TestNew_RejectsRelativeBaseURL(t *testing.T) {
	_, err := New(Config{BaseURL: "/api/"}, nil, nil, nil)
	assert.Error(t, err)
}

func TestNew_DefaultBaseURL(t *testing.T) {
	gw, err := New(Config{}, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, gw.BaseURL())
}

func TestDo_ResolvesPathAndSendsHeaders(t *testing.T) {
	gw, recorder := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ideas/shared", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.NotEmpty(t, r.Header.Get(HeaderRequestID))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1}]`))
	})

	resp, err := gw.Do(context.Background(), ports.Request{
		Method: http.MethodGet,
		Path:   "ideas/shared",
		Query:  url.Values{"page": {"2"}},
		Header: http.Header{"Authorization": {"Bearer abc"}},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.JSONEq(t, `[{"id":1}]`, string(resp.Body))
	require.Len(t, recorder.requests, 1)
	assert.Equal(t, http.StatusOK, recorder.requests[0].status)
}

func TestDo_EncodesJSONBody(t *testing.T) {
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "go", body["name"])
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":7,"name":"go"}`))
	})

	resp, err := gw.Do(context.Background(), ports.Request{
		Method: http.MethodPost,
		Path:   "/tags/",
		Body:   map[string]string{"name": "go"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Status)
}

func TestDo_ClassifiesClientErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType apperrors.ErrorType
	}{
		{"validation", http.StatusBadRequest, `{"detail":"Title is required"}`, apperrors.ErrorTypeValidation},
		{"unauthorized", http.StatusUnauthorized, `{"detail":"Not authenticated"}`, apperrors.ErrorTypeUnauthorized},
		{"forbidden", http.StatusForbidden, ``, apperrors.ErrorTypeForbidden},
		{"not found", http.StatusNotFound, `{"detail":"Not found"}`, apperrors.ErrorTypeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw, _ := newTestGateway(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			resp, err := gw.Do(context.Background(), ports.Request{Method: http.MethodGet, Path: "ideas/1"})
			assert.Nil(t, resp)
			require.Error(t, err)
			assert.Equal(t, tt.wantType, apperrors.TypeOf(err))
		})
	}
}

func TestDo_ClientErrorsDoNotTripBreaker(t *testing.T) {
	var hits atomic.Int32
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	for i := 0; i < 10; i++ {
		_, err := gw.Do(context.Background(), ports.Request{Method: http.MethodGet, Path: "tags/9"})
		assert.True(t, apperrors.IsNotFound(err))
	}
	assert.Equal(t, int32(10), hits.Load())
}

func TestDo_ServerErrorsOpenBreaker(t *testing.T) {
	var hits atomic.Int32
	gw, recorder := newTestGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	threshold := int(DefaultBreakerConfig().MinRequests)
	for i := 0; i < threshold; i++ {
		_, err := gw.Do(context.Background(), ports.Request{Method: http.MethodGet, Path: "ideas/"})
		assert.Equal(t, apperrors.ErrorTypeUnknown, apperrors.TypeOf(err))
	}

	_, err := gw.Do(context.Background(), ports.Request{Method: http.MethodGet, Path: "ideas/"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeUnavailable, apperrors.TypeOf(err))
	assert.Equal(t, int32(threshold), hits.Load(), "open breaker must not reach the server")

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	assert.Contains(t, recorder.states, 2)
	assert.Equal(t, 0, recorder.requests[len(recorder.requests)-1].status)
}

func TestDo_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	base := server.URL
	server.Close()

	gw, err := New(Config{BaseURL: base}, nil, nil, nil)
	require.NoError(t, err)

	_, err = gw.Do(context.Background(), ports.Request{Method: http.MethodGet, Path: "ideas/"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeNetwork, apperrors.TypeOf(err))
}

func TestDo_RejectsAbsolutePath(t *testing.T) {
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Error("request should not be sent")
	})

	_, err := gw.Do(context.Background(), ports.Request{Method: http.MethodGet, Path: "http://evil.example/"})
	assert.True(t, apperrors.IsValidation(err))
}
