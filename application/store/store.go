// Package store implements the generic resource store: cached current item
// and collections, loading state, authenticated CRUD with uniform failure
// handling, session-expiry recovery and self-clearing feedback.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"ideaclient/application/ports"
	"ideaclient/domain/events"
	"ideaclient/domain/resources"
	"ideaclient/pkg/common"
	apperrors "ideaclient/pkg/errors"
)

// MessageUnexpected is shown when the API answers with a status the action
// does not accept
const MessageUnexpected = "Unexpected response from server."

const (
	slotCurrent    = "current"
	slotCollection = "collection"
	slotNamed      = "named:"
)

// State is a snapshot of a store
type State[T any] struct {
	Current    *T
	Collection *resources.Page[T]
	Named      map[string]*resources.Page[T]
	Loading    bool
	Feedback   FeedbackState
}

// Store caches one resource kind and performs its CRUD actions
type Store[T any] struct {
	def      Definition[T]
	deps     Deps
	logger   *zap.Logger
	feedback *Feedback

	mu          sync.Mutex
	current     *T
	collection  *resources.Page[T]
	named       map[string]*resources.Page[T]
	loading     bool
	actionSeq   uint64
	epoch       uint64
	generations map[string]uint64

	subMu       sync.Mutex
	subscribers map[uint64]func(State[T])
	nextSubID   uint64
}

// New creates a store for def
func New[T any](def Definition[T], deps Deps) *Store[T] {
	deps = deps.withDefaults()

	s := &Store[T]{
		def:         def,
		deps:        deps,
		logger:      deps.Logger.With(zap.String("kind", def.Kind)),
		feedback:    NewFeedback(def.Kind, deps.FeedbackDelay, deps.Notifier),
		named:       make(map[string]*resources.Page[T]),
		generations: make(map[string]uint64),
		subscribers: make(map[uint64]func(State[T])),
	}
	s.feedback.OnChange(s.changed)
	return s
}

// Kind returns the resource kind the store manages
func (s *Store[T]) Kind() string { return s.def.Kind }

// List fetches a page of the collection. Page 0 means the first page.
func (s *Store[T]) List(ctx context.Context, page int) (*resources.Page[T], error) {
	return s.listInto(ctx, VerbList, slotCollection, s.def.Endpoint, page, func(p *resources.Page[T]) {
		s.collection = clonePage(p)
	})
}

// ListNamed fetches a page of a secondary collection kept under name
func (s *Store[T]) ListNamed(ctx context.Context, name, path string, page int) (*resources.Page[T], error) {
	return s.listInto(ctx, VerbList, slotNamed+name, path, page, func(p *resources.Page[T]) {
		s.named[name] = clonePage(p)
	})
}

func (s *Store[T]) listInto(ctx context.Context, verb Verb, slot, path string, page int, apply func(*resources.Page[T])) (*resources.Page[T], error) {
	n, err := common.NormalizePage(page)
	if err != nil {
		s.feedback.Failure(apperrors.UserMessage(err, ""))
		return nil, err
	}

	pg, _, err := execute(ctx, s, Action{
		Verb:   verb,
		Method: http.MethodGet,
		Path:   path,
		Query:  common.PageQuery(n),
		Slot:   slot,
	}, apply)
	return pg, err
}

// Get fetches one item into Current
func (s *Store[T]) Get(ctx context.Context, id string) (*T, error) {
	if err := s.requireID(id); err != nil {
		return nil, err
	}

	item, _, err := execute(ctx, s, Action{
		Verb:   VerbGet,
		Method: http.MethodGet,
		Path:   s.def.itemPath(id),
		Slot:   slotCurrent,
	}, func(v *T) {
		s.current = cloneItem(v)
	})
	return item, err
}

// Create posts payload. The created item becomes Current; the collection is
// left alone until the next List.
func (s *Store[T]) Create(ctx context.Context, payload any) (*T, error) {
	item, body, err := execute(ctx, s, Action{
		Verb:     VerbCreate,
		Method:   http.MethodPost,
		Path:     s.def.Endpoint,
		Body:     payload,
		Slot:     slotCurrent,
		Accept:   s.def.policy(VerbCreate),
		Success:  s.def.messages().Created,
		Mutation: true,
	}, func(v *T) {
		s.current = cloneItem(v)
	})
	if err != nil {
		return nil, err
	}

	s.Publish(ctx, events.NewResourceCreated(s.def.Kind, s.def.id(item), body, s.deps.Now()))
	return item, nil
}

// Update puts payload to the item's path and broadcasts the updated body
func (s *Store[T]) Update(ctx context.Context, id string, payload any) (*T, error) {
	if err := s.requireID(id); err != nil {
		return nil, err
	}

	item, body, err := execute(ctx, s, Action{
		Verb:     VerbUpdate,
		Method:   http.MethodPut,
		Path:     s.def.itemPath(id),
		Body:     payload,
		Slot:     slotCurrent,
		Accept:   s.def.policy(VerbUpdate),
		Success:  s.def.messages().Updated,
		Mutation: true,
	}, func(v *T) {
		s.current = cloneItem(v)
	})
	if err != nil {
		return nil, err
	}

	s.Publish(ctx, events.NewResourceUpdated(s.def.Kind, id, body, s.deps.Now()))
	return item, nil
}

// Delete removes the item on the server. Cached state is not touched.
func (s *Store[T]) Delete(ctx context.Context, id string) error {
	if err := s.requireID(id); err != nil {
		return err
	}

	_, _, err := execute[T, json.RawMessage](ctx, s, Action{
		Verb:       VerbDelete,
		Method:     http.MethodDelete,
		Path:       s.def.itemPath(id),
		Accept:     s.def.policy(VerbDelete),
		Success:    s.def.messages().Deleted,
		Mutation:   true,
		AllowEmpty: true,
	}, nil)
	if err != nil {
		return err
	}

	s.Publish(ctx, events.NewResourceDeleted(s.def.Kind, id, s.deps.Now()))
	return nil
}

// Reset empties the store and discards every in-flight result
func (s *Store[T]) Reset() {
	s.mu.Lock()
	s.current = nil
	s.collection = nil
	s.named = make(map[string]*resources.Page[T])
	s.epoch++
	for slot := range s.generations {
		s.generations[slot]++
	}
	s.mu.Unlock()

	s.feedback.Clear()
	s.changed()
}

// State returns a snapshot of the store
func (s *Store[T]) State() State[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Current returns a copy of the current item, or nil
func (s *Store[T]) Current() *T {
	return s.State().Current
}

// Collection returns the cached page, or nil
func (s *Store[T]) Collection() *resources.Page[T] {
	return s.State().Collection
}

// Named returns the secondary collection kept under name, or nil
func (s *Store[T]) Named(name string) *resources.Page[T] {
	return s.State().Named[name]
}

// Loading reports whether the latest action is still pending
func (s *Store[T]) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Feedback returns what is currently shown for this store
func (s *Store[T]) Feedback() FeedbackState {
	return s.feedback.State()
}

// Reporter exposes the store's feedback slot to specializations
func (s *Store[T]) Reporter() *Feedback {
	return s.feedback
}

// Subscribe calls fn with a fresh snapshot after every change
func (s *Store[T]) Subscribe(fn func(State[T])) (unsubscribe func()) {
	s.subMu.Lock()
	s.nextSubID++
	id := s.nextSubID
	s.subscribers[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subscribers, id)
		s.subMu.Unlock()
	}
}

func (s *Store[T]) snapshotLocked() State[T] {
	st := State[T]{
		Loading:  s.loading,
		Feedback: s.feedback.State(),
	}
	st.Current = cloneItem(s.current)
	st.Collection = clonePage(s.collection)
	if len(s.named) > 0 {
		st.Named = make(map[string]*resources.Page[T], len(s.named))
		for name, p := range s.named {
			st.Named[name] = clonePage(p)
		}
	}
	return st
}

func cloneItem[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// clonePage copies p and its item slice so callers cannot write through to
// the cache
func clonePage[T any](p *resources.Page[T]) *resources.Page[T] {
	if p == nil {
		return nil
	}
	c := *p
	c.Items = slices.Clone(p.Items)
	return &c
}

func (s *Store[T]) changed() {
	s.subMu.Lock()
	if len(s.subscribers) == 0 {
		s.subMu.Unlock()
		return
	}
	subs := make([]func(State[T]), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()

	st := s.State()
	for _, fn := range subs {
		fn(st)
	}
}

// ticket identifies one started action
type ticket struct {
	action uint64
	slot   string
	gen    uint64
	epoch  uint64
}

func (s *Store[T]) begin(slot string) ticket {
	s.mu.Lock()
	s.actionSeq++
	t := ticket{action: s.actionSeq, slot: slot, epoch: s.epoch}
	if slot != "" {
		s.generations[slot]++
		t.gen = s.generations[slot]
	}
	s.loading = true
	s.mu.Unlock()

	s.changed()
	return t
}

// end clears loading only if t is the most recently started action
func (s *Store[T]) end(t ticket) {
	s.mu.Lock()
	settled := t.action == s.actionSeq && s.loading
	if settled {
		s.loading = false
	}
	s.mu.Unlock()

	if settled {
		s.changed()
	}
}

func (s *Store[T]) latestLocked(t ticket) bool {
	if t.epoch != s.epoch {
		return false
	}
	return t.slot == "" || s.generations[t.slot] == t.gen
}

// commit runs apply if t still owns its slot
func (s *Store[T]) commit(t ticket, apply func()) bool {
	s.mu.Lock()
	ok := s.latestLocked(t)
	if ok && apply != nil {
		apply()
	}
	s.mu.Unlock()

	if ok && apply != nil {
		s.changed()
	}
	return ok
}

func (s *Store[T]) sameEpoch(t ticket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return t.epoch == s.epoch
}

func (s *Store[T]) requireID(id string) error {
	if strings.TrimSpace(id) != "" {
		return nil
	}
	err := apperrors.NewValidationError(s.def.Kind + " id is required")
	s.feedback.Failure(err.Message)
	return err
}

func (s *Store[T]) operation(verb Verb) string {
	return s.def.Kind + "." + string(verb)
}

// request sends a through the authenticated path and classifies the outcome.
// Every failure except cancellation is reported as feedback.
func (s *Store[T]) request(ctx context.Context, a Action) (*ports.Response, error) {
	if a.Body != nil {
		if err := s.deps.Validator.Struct(a.Body); err != nil {
			s.feedback.Failure(apperrors.UserMessage(err, ""))
			return nil, err
		}
	}

	header, err := s.deps.Session.AuthHeaders()
	if err != nil {
		if !apperrors.IsUnauthenticated(err) {
			err = apperrors.NewUnauthenticatedError("").WithCause(err)
		}
		s.feedback.Failure(apperrors.MessageUnauthorized)
		return nil, err
	}

	resp, err := s.deps.Gateway.Do(ctx, ports.Request{
		Method: a.Method,
		Path:   a.Path,
		Query:  a.Query,
		Header: header,
		Body:   a.Body,
	})
	if err != nil {
		if apperrors.IsUnauthorized(err) {
			if s.deps.Session.HandleUnauthorized(ctx, header) {
				s.logger.Info("Session invalidated by API", zap.String("verb", string(a.Verb)))
			}
			s.feedback.Failure(apperrors.MessageUnauthorized)
			return nil, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, apperrors.NewCanceledError(s.operation(a.Verb), ctxErr)
		}
		s.feedback.Failure(s.failureText(a.Verb, err))
		return nil, err
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, apperrors.NewCanceledError(s.operation(a.Verb), ctxErr)
	}

	if !a.accepts(resp.Status) {
		s.feedback.Failure(MessageUnexpected)
		return nil, apperrors.NewUnknownError("unexpected response status").WithStatus(resp.Status)
	}

	return resp, nil
}

// failureText picks the feedback for a failed request. Kind-specific texts
// replace server detail except for validation failures, where the detail is
// what the user needs to see.
func (s *Store[T]) failureText(verb Verb, err error) string {
	errType := apperrors.TypeOf(err)

	var text string
	if s.def.FailureText != nil {
		text = s.def.FailureText(verb, errType)
	}
	if text != "" && errType != apperrors.ErrorTypeValidation {
		return text
	}
	return apperrors.UserMessage(err, text)
}

// Now reads the store's clock
func (s *Store[T]) Now() time.Time { return s.deps.Now() }

// Publish sends event on the bus; failures are logged, never returned
func (s *Store[T]) Publish(ctx context.Context, event events.Event) {
	if err := s.deps.Bus.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event",
			zap.String("event_type", event.GetEventType()),
			zap.Error(err))
	}
}

func (s *Store[T]) observe(verb Verb, started time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = strings.ToLower(string(apperrors.TypeOf(err)))
	}
	s.deps.Metrics.ObserveAction(s.def.Kind, string(verb), outcome, time.Since(started))

	switch {
	case err == nil:
	case apperrors.IsStale(err), apperrors.IsCanceled(err):
		s.logger.Debug("Discarded result", zap.String("verb", string(verb)), zap.Error(err))
	default:
		fields := []zap.Field{zap.String("verb", string(verb)), zap.Error(err)}
		if appErr := apperrors.GetAppError(err); appErr != nil && appErr.HTTPStatus != 0 {
			fields = append(fields, zap.Int("status", appErr.HTTPStatus))
		}
		s.logger.Warn("Store action failed", fields...)
	}
}

// Invoke runs a sub-action whose response decodes into R. It shares the
// store's loading state, session handling and feedback; the caller decides
// what to do with the result.
func Invoke[T, R any](ctx context.Context, s *Store[T], a Action) (*R, error) {
	v, _, err := execute[T, R](ctx, s, a, nil)
	return v, err
}

func execute[T, R any](ctx context.Context, s *Store[T], a Action, apply func(*R)) (*R, []byte, error) {
	started := time.Now()
	t := s.begin(a.Slot)
	defer s.end(t)

	value, body, err := exchange[T, R](ctx, s, a)
	if err != nil {
		s.observe(a.Verb, started, err)
		return nil, nil, err
	}

	var commitFn func()
	if apply != nil {
		commitFn = func() { apply(value) }
	}

	if a.Mutation {
		// The server already changed; a superseded write only skips the cache
		s.commit(t, commitFn)
		if s.sameEpoch(t) {
			s.feedback.Success(successText(body, a.Success))
		}
		s.observe(a.Verb, started, nil)
		return value, body, nil
	}

	if !s.commit(t, commitFn) {
		err := apperrors.NewStaleError(s.operation(a.Verb))
		s.observe(a.Verb, started, err)
		return nil, nil, err
	}
	s.feedback.Success(a.Success)
	s.observe(a.Verb, started, nil)
	return value, body, nil
}

func exchange[T, R any](ctx context.Context, s *Store[T], a Action) (*R, []byte, error) {
	resp, err := s.request(ctx, a)
	if err != nil {
		return nil, nil, err
	}

	value := new(R)
	if len(bytes.TrimSpace(resp.Body)) == 0 {
		if a.AllowEmpty {
			return value, nil, nil
		}
		s.feedback.Failure(apperrors.MessageGeneric)
		return nil, nil, apperrors.NewUnknownError("empty response body").WithStatus(resp.Status)
	}

	if err := json.Unmarshal(resp.Body, value); err != nil {
		s.feedback.Failure(apperrors.MessageGeneric)
		return nil, nil, apperrors.NewUnknownError("malformed response body").WithCause(err).WithStatus(resp.Status)
	}
	return value, resp.Body, nil
}

// successText prefers a "message" field in the response body
func successText(body []byte, fallback string) string {
	var envelope struct {
		Message string `json:"message"`
	}
	if len(body) > 0 && json.Unmarshal(body, &envelope) == nil && envelope.Message != "" {
		return envelope.Message
	}
	return fallback
}
