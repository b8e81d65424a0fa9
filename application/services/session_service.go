package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"ideaclient/application/ports"
	"ideaclient/application/store"
	"ideaclient/domain/events"
	"ideaclient/domain/session"
	"ideaclient/pkg/auth"
	apperrors "ideaclient/pkg/errors"
	"ideaclient/pkg/validation"
)

// Feedback texts
const (
	MessageLoginSuccess    = "Login successful!"
	MessageRegisterSuccess = "Registration successful!"
	MessageLogoutSuccess   = "Logout successful!"
)

// RecoveryState tracks the session through 401 recovery
type RecoveryState int

const (
	// StateLoggedOut means there is no session
	StateLoggedOut RecoveryState = iota
	// StateAuthenticated means a session is held
	StateAuthenticated
	// StateSessionCleared means a 401 cleared the session and the redirect is under way
	StateSessionCleared
)

func (s RecoveryState) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateSessionCleared:
		return "session_cleared"
	default:
		return "logged_out"
	}
}

// SessionConfig holds the session service settings
type SessionConfig struct {
	StorageKey    string
	Lifetime      time.Duration
	LandingRoute  string
	LoginRoute    string
	FeedbackDelay time.Duration
}

// DefaultSessionConfig returns the settings the web client used
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		StorageKey:    "user",
		Lifetime:      session.DefaultLifetime,
		LandingRoute:  "/dashboard",
		LoginRoute:    "/login",
		FeedbackDelay: store.DefaultFeedbackDelay,
	}
}

// SessionService owns the authenticated session. It is the only writer of
// the session; resource stores read it through AuthHeaders and report 401s
// through HandleUnauthorized.
type SessionService struct {
	gateway   ports.Gateway
	storage   ports.SessionStorage
	bus       ports.EventBus
	navigator ports.Navigator
	metrics   ports.Metrics
	validator *validation.Validator
	logger    *zap.Logger
	cfg       SessionConfig
	now       func() time.Time
	feedback  *store.Feedback

	mu       sync.Mutex
	session  *session.Session
	recovery RecoveryState
	loading  int
}

// NewSessionService creates a new session service
func NewSessionService(
	gateway ports.Gateway,
	storage ports.SessionStorage,
	bus ports.EventBus,
	notifier ports.Notifier,
	navigator ports.Navigator,
	metrics ports.Metrics,
	logger *zap.Logger,
	cfg SessionConfig,
) *SessionService {
	defaults := DefaultSessionConfig()
	if cfg.StorageKey == "" {
		cfg.StorageKey = defaults.StorageKey
	}
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = defaults.Lifetime
	}
	if cfg.LandingRoute == "" {
		cfg.LandingRoute = defaults.LandingRoute
	}
	if cfg.LoginRoute == "" {
		cfg.LoginRoute = defaults.LoginRoute
	}
	if bus == nil {
		bus = ports.NopEventBus{}
	}
	if navigator == nil {
		navigator = ports.NopNavigator{}
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SessionService{
		gateway:   gateway,
		storage:   storage,
		bus:       bus,
		navigator: navigator,
		metrics:   metrics,
		validator: validation.Default(),
		logger:    logger.With(zap.String("component", "session")),
		cfg:       cfg,
		now:       time.Now,
		feedback:  store.NewFeedback("session", cfg.FeedbackDelay, notifier),
	}
}

// Login authenticates with email and password
func (s *SessionService) Login(ctx context.Context, creds session.Credentials) (*session.Session, error) {
	return s.authenticate(ctx, "auth/login", creds, store.AnySuccess, MessageLoginSuccess)
}

// Register creates an account and signs in with it. Only 201 counts as success.
func (s *SessionService) Register(ctx context.Context, profile session.Profile) (*session.Session, error) {
	return s.authenticate(ctx, "auth/register", profile, store.Exactly(http.StatusCreated), MessageRegisterSuccess)
}

func (s *SessionService) authenticate(ctx context.Context, path string, payload any, accept store.StatusPolicy, success string) (*session.Session, error) {
	if err := s.validator.Struct(payload); err != nil {
		s.feedback.Failure(apperrors.UserMessage(err, ""))
		return nil, err
	}

	s.setLoading(1)
	defer s.setLoading(-1)

	resp, err := s.gateway.Do(ctx, ports.Request{
		Method: http.MethodPost,
		Path:   path,
		Body:   payload,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, apperrors.NewCanceledError(path, ctxErr)
		}
		s.logger.Warn("Authentication failed", zap.String("path", path), zap.Error(err))
		s.feedback.Failure(apperrors.UserMessage(err, apperrors.MessageGeneric))
		return nil, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, apperrors.NewCanceledError(path, ctxErr)
	}
	if !accept(resp.Status) {
		s.feedback.Failure(store.MessageUnexpected)
		return nil, apperrors.NewUnknownError("unexpected response status").WithStatus(resp.Status)
	}

	var token session.TokenResponse
	if err := json.Unmarshal(resp.Body, &token); err != nil {
		s.feedback.Failure(apperrors.MessageGeneric)
		return nil, apperrors.NewUnknownError("malformed authentication response").WithCause(err)
	}

	sess, err := session.New(token, s.now(), s.cfg.Lifetime)
	if err != nil {
		s.feedback.Failure(apperrors.MessageGeneric)
		return nil, apperrors.NewUnknownError("authentication response carried no token").WithCause(err)
	}

	s.persist(ctx, sess)

	s.mu.Lock()
	s.session = sess
	s.recovery = StateAuthenticated
	s.mu.Unlock()

	s.feedback.Success(success)
	s.publish(ctx, events.NewSessionStarted(sess.Identity.UserID, sess.Identity.Username, s.now()))
	s.navigator.Navigate(s.cfg.LandingRoute)

	s.logger.Info("Session started", zap.String("username", sess.Identity.Username))
	return sess.Clone(), nil
}

// Logout ends the session locally. It never fails; storage errors are logged.
func (s *SessionService) Logout(ctx context.Context) {
	s.mu.Lock()
	ended := s.session
	s.mu.Unlock()

	var userID int64
	var username string
	if ended != nil {
		userID, username = ended.Identity.UserID, ended.Identity.Username
	}
	s.publish(ctx, events.NewSessionEnded(userID, username, events.ReasonLogout, s.now()))

	s.mu.Lock()
	s.session = nil
	s.recovery = StateLoggedOut
	s.mu.Unlock()

	s.forget(ctx)
	s.feedback.Success(MessageLogoutSuccess)
	s.navigator.Navigate(s.cfg.LoginRoute)
}

// AuthHeaders returns the bearer header for the current session
func (s *SessionService) AuthHeaders() (http.Header, error) {
	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()

	if sess == nil {
		return nil, apperrors.NewUnauthenticatedError("")
	}
	if sess.Expired(s.now()) {
		return nil, apperrors.NewUnauthenticatedError("session expired")
	}
	return auth.BearerHeader(sess.Token), nil
}

// HandleUnauthorized clears the session after the API rejected header.
// Only the first report for the current token acts, so any number of
// concurrent 401s produce one clear, one event and one redirect.
func (s *SessionService) HandleUnauthorized(ctx context.Context, header http.Header) bool {
	token := auth.TokenFromHeader(header)

	s.mu.Lock()
	if s.session == nil || token == "" || s.session.Token != token {
		s.mu.Unlock()
		return false
	}
	ended := s.session
	s.session = nil
	s.recovery = StateSessionCleared
	s.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	s.logger.Warn("Session rejected by API", zap.String("username", ended.Identity.Username))
	s.metrics.IncSessionInvalidation(string(events.ReasonUnauthorized))

	s.forget(ctx)
	s.publish(ctx, events.NewSessionEnded(ended.Identity.UserID, ended.Identity.Username, events.ReasonUnauthorized, s.now()))
	s.navigator.Navigate(s.cfg.LoginRoute)

	s.mu.Lock()
	if s.recovery == StateSessionCleared {
		s.recovery = StateLoggedOut
	}
	s.mu.Unlock()
	return true
}

// Restore loads the persisted session. Absent, expired or malformed storage
// yields no session rather than an error. When the stored token differs from
// the held one, the held session ends as a logout and the restored one starts.
func (s *SessionService) Restore(ctx context.Context) *session.Session {
	restored := s.load(ctx)

	s.mu.Lock()
	held := s.session
	s.session = restored
	if restored != nil {
		s.recovery = StateAuthenticated
	} else if s.recovery == StateAuthenticated {
		s.recovery = StateLoggedOut
	}
	s.mu.Unlock()

	if sameToken(held, restored) {
		return restored.Clone()
	}
	if held != nil {
		s.logger.Info("Held session replaced from storage", zap.String("username", held.Identity.Username))
		s.publish(ctx, events.NewSessionEnded(held.Identity.UserID, held.Identity.Username, events.ReasonLogout, s.now()))
	}
	if restored != nil {
		s.publish(ctx, events.NewSessionStarted(restored.Identity.UserID, restored.Identity.Username, s.now()))
	}
	return restored.Clone()
}

func sameToken(a, b *session.Session) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Token == b.Token
}

func (s *SessionService) load(ctx context.Context) *session.Session {
	data, ok, err := s.storage.Get(ctx, s.cfg.StorageKey)
	if err != nil {
		s.logger.Warn("Failed to read persisted session", zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}

	sess, err := session.Decode(data)
	if err != nil {
		s.logger.Warn("Discarding malformed persisted session", zap.Error(err))
		s.forget(ctx)
		return nil
	}
	if sess.Expired(s.now()) {
		s.logger.Info("Discarding expired persisted session")
		s.forget(ctx)
		return nil
	}
	return sess
}

// Current returns a copy of the session, or nil
func (s *SessionService) Current() *session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Clone()
}

// IsAuthenticated reports whether a usable session is held
func (s *SessionService) IsAuthenticated() bool {
	_, err := s.AuthHeaders()
	return err == nil
}

// Loading reports whether a login or registration is in flight
func (s *SessionService) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading > 0
}

// Feedback returns the session's current feedback
func (s *SessionService) Feedback() store.FeedbackState {
	return s.feedback.State()
}

// RecoveryState returns where the session is in 401 recovery
func (s *SessionService) RecoveryState() RecoveryState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recovery
}

func (s *SessionService) setLoading(delta int) {
	s.mu.Lock()
	s.loading += delta
	s.mu.Unlock()
}

func (s *SessionService) persist(ctx context.Context, sess *session.Session) {
	blob, err := sess.Encode()
	if err == nil {
		err = s.storage.Set(ctx, s.cfg.StorageKey, blob, sess.ExpiresAt)
	}
	if err != nil {
		s.logger.Warn("Failed to persist session", zap.Error(err))
	}
}

func (s *SessionService) forget(ctx context.Context) {
	if err := s.storage.Delete(ctx, s.cfg.StorageKey); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("Failed to delete persisted session", zap.Error(err))
	}
}

func (s *SessionService) publish(ctx context.Context, event events.Event) {
	if err := s.bus.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event",
			zap.String("event_type", event.GetEventType()),
			zap.Error(err))
	}
}
