// Package mockapi is an in-memory implementation of the ideas API for local
// development and end-to-end tests. It speaks the same wire format as the
// real service: FastAPI style "detail" errors, paginated envelopes and
// HS256 bearer tokens.
package mockapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"ideaclient/pkg/auth"
	apperrors "ideaclient/pkg/errors"
	"ideaclient/pkg/validation"
)

const issuer = "ideaclient-mockapi"

// Config configures the mock server
type Config struct {
	JWTSecret      string
	TokenTTL       time.Duration
	AllowedOrigins []string
	PageSize       int
	// PasswordCost is the bcrypt cost; tests lower it to bcrypt.MinCost
	PasswordCost int
	Now          func() time.Time
}

// Server serves the API from memory
type Server struct {
	db        *database
	signer    *auth.Signer
	validator *validation.Validator
	logger    *zap.Logger
	cfg       Config
}

// NewServer creates a server with an empty database
func NewServer(cfg Config, logger *zap.Logger) (*Server, error) {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}
	if cfg.PasswordCost == 0 {
		cfg.PasswordCost = bcrypt.DefaultCost
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	signer, err := auth.NewSigner(cfg.JWTSecret, issuer, cfg.TokenTTL)
	if err != nil {
		return nil, err
	}

	return &Server{
		db:        newDatabase(),
		signer:    signer,
		validator: validation.New(),
		logger:    logger,
		cfg:       cfg,
	}, nil
}

// Handler builds the router. Every endpoint lives under /api.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(requestLogger(s.logger))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	router.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.login)
		r.Post("/auth/register", s.register)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Route("/users", func(r chi.Router) {
				r.Get("/", s.listUsers)
				r.Get("/profile", s.profile)
				r.Get("/{id}", s.getUser)
			})

			r.Route("/ideas", func(r chi.Router) {
				r.Get("/", s.listIdeas)
				r.Post("/", s.createIdea)
				r.Get("/shared", s.sharedIdeas)
				r.Get("/{id}", s.getIdea)
				r.Put("/{id}", s.updateIdea)
				r.Delete("/{id}", s.deleteIdea)
				r.Post("/{id}/comments", s.addComment)
			})

			r.Route("/tags", func(r chi.Router) {
				r.Get("/", s.listTags)
				r.Post("/", s.createTag)
				r.Get("/{id}", s.getTag)
				r.Put("/{id}", s.updateTag)
				r.Delete("/{id}", s.deleteTag)
			})

			r.Route("/scripts", func(r chi.Router) {
				r.Get("/", s.listScripts)
				r.Post("/", s.createScript)
				r.Get("/{id}", s.getScript)
				r.Put("/{id}", s.updateScript)
				r.Delete("/{id}", s.deleteScript)
			})
		})
	})

	return router
}

// requestLogger creates a logging middleware
func requestLogger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("HTTP Request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("requestID", chimiddleware.GetReqID(r.Context())),
			)
		})
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// respondDetail writes a FastAPI style error body
func respondDetail(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, map[string]string{"detail": detail})
}

// respondError writes err's message as the detail under its status
func respondError(w http.ResponseWriter, err *apperrors.AppError) {
	respondDetail(w, err.HTTPStatus, err.Message)
}

type fieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// respondValidation writes a 422 with one entry per invalid field
func respondValidation(w http.ResponseWriter, err error) {
	details := []fieldError{}
	if appErr := apperrors.GetAppError(err); appErr != nil && len(appErr.Details) > 0 {
		fields := make([]string, 0, len(appErr.Details))
		for field := range appErr.Details {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			details = append(details, fieldError{
				Loc:  []string{"body", field},
				Msg:  fmt.Sprint(appErr.Details[field]),
				Type: "value_error",
			})
		}
	} else {
		details = append(details, fieldError{Loc: []string{"body"}, Msg: err.Error(), Type: "value_error"})
	}
	respondJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": details})
}

// decode reads a JSON body and validates it
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondDetail(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := s.validator.Struct(dst); err != nil {
		respondValidation(w, err)
		return false
	}
	return true
}
