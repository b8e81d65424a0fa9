package mockapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"ideaclient/domain/resources"
	"ideaclient/domain/session"
	"ideaclient/pkg/auth"
	"ideaclient/pkg/common"
	apperrors "ideaclient/pkg/errors"
)

type contextKey struct{}

const (
	detailCredentials     = "Could not validate credentials"
	detailBadLogin        = "Incorrect email or password"
	detailEmailRegistered = "Email already registered"
	detailPermissions     = "Not enough permissions"
)

// authenticate rejects requests without a valid bearer token
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := auth.TokenFromHeader(r.Header)
		if token == "" {
			respondError(w, apperrors.NewUnauthorizedError("Not authenticated"))
			return
		}
		claims, err := s.signer.Validate(token)
		if err != nil {
			respondError(w, apperrors.NewUnauthorizedError(detailCredentials))
			return
		}

		s.db.mu.RLock()
		acct, ok := s.db.users[claims.UserID]
		s.db.mu.RUnlock()
		if !ok {
			respondError(w, apperrors.NewUnauthorizedError(detailCredentials))
			return
		}

		ctx := context.WithValue(r.Context(), contextKey{}, acct.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userID(r *http.Request) int64 {
	id, _ := r.Context().Value(contextKey{}).(int64)
	return id
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func (s *Server) issue(acct *account) (session.TokenResponse, error) {
	token, err := s.signer.Issue(acct.ID, acct.Username, acct.Email, acct.Role, s.cfg.Now())
	if err != nil {
		return session.TokenResponse{}, err
	}
	return session.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		UserID:      acct.ID,
		Username:    acct.Username,
		Email:       acct.Email,
		Role:        acct.Role,
	}, nil
}

// ---- auth ----

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var creds session.Credentials
	if !s.decode(w, r, &creds) {
		return
	}

	s.db.mu.RLock()
	var acct *account
	if id, ok := s.db.byEmail[strings.ToLower(creds.Email)]; ok {
		acct = s.db.users[id]
	}
	s.db.mu.RUnlock()

	if acct == nil || bcrypt.CompareHashAndPassword(acct.PasswordHash, []byte(creds.Password)) != nil {
		respondError(w, apperrors.NewValidationError(detailBadLogin))
		return
	}

	resp, err := s.issue(acct)
	if err != nil {
		respondDetail(w, http.StatusInternalServerError, "Could not issue token")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var profile session.Profile
	if !s.decode(w, r, &profile) {
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(profile.Password), s.cfg.PasswordCost)
	if err != nil {
		respondDetail(w, http.StatusInternalServerError, "Could not store password")
		return
	}

	email := strings.ToLower(profile.Email)
	s.db.mu.Lock()
	if _, taken := s.db.byEmail[email]; taken {
		s.db.mu.Unlock()
		respondError(w, apperrors.NewValidationError(detailEmailRegistered))
		return
	}
	acct := &account{
		User:         resources.User{ID: s.db.id(), Username: profile.Username, Email: email},
		PasswordHash: hash,
		Role:         "user",
	}
	s.db.users[acct.ID] = acct
	s.db.byEmail[email] = acct.ID
	s.db.mu.Unlock()

	resp, err := s.issue(acct)
	if err != nil {
		respondDetail(w, http.StatusInternalServerError, "Could not issue token")
		return
	}
	respondJSON(w, http.StatusCreated, resp)
}

// ---- users ----

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	s.db.mu.RLock()
	users := make([]resources.User, 0, len(s.db.users))
	for _, acct := range s.db.users {
		users = append(users, acct.User)
	}
	s.db.mu.RUnlock()

	respondJSON(w, http.StatusOK, paginate(users, func(u resources.User) int64 { return u.ID }, s.pagination(r)))
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	s.db.mu.RLock()
	acct := s.db.users[userID(r)]
	s.db.mu.RUnlock()
	respondJSON(w, http.StatusOK, acct.User)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, apperrors.NewNotFoundError("User"))
		return
	}
	s.db.mu.RLock()
	acct, ok := s.db.users[id]
	s.db.mu.RUnlock()
	if !ok {
		respondError(w, apperrors.NewNotFoundError("User"))
		return
	}
	respondJSON(w, http.StatusOK, acct.User)
}

func (s *Server) pagination(r *http.Request) common.PaginationParams {
	params := common.ExtractPaginationParams(r)
	if r.URL.Query().Get("size") == "" {
		params.Size = s.cfg.PageSize
	}
	return params
}

// ---- ideas ----

func ideaKey(i resources.Idea) int64 { return i.ID }

func (s *Server) listIdeas(w http.ResponseWriter, r *http.Request) {
	s.listIdeasWhere(w, r, func(i *resources.Idea) bool { return i.UserID == userID(r) })
}

func (s *Server) sharedIdeas(w http.ResponseWriter, r *http.Request) {
	s.listIdeasWhere(w, r, func(i *resources.Idea) bool { return i.UserID != userID(r) })
}

func (s *Server) listIdeasWhere(w http.ResponseWriter, r *http.Request, keep func(*resources.Idea) bool) {
	s.db.mu.RLock()
	ideas := make([]resources.Idea, 0)
	for _, idea := range s.db.ideas {
		if keep(idea) {
			ideas = append(ideas, *idea)
		}
	}
	s.db.mu.RUnlock()

	respondJSON(w, http.StatusOK, paginate(ideas, ideaKey, s.pagination(r)))
}

func (s *Server) createIdea(w http.ResponseWriter, r *http.Request) {
	var in resources.IdeaInput
	if !s.decode(w, r, &in) {
		return
	}

	now := s.cfg.Now().UTC()
	s.db.mu.Lock()
	idea := &resources.Idea{
		ID:          s.db.id(),
		Name:        in.Name,
		Description: in.Description,
		UserID:      userID(r),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.db.ideas[idea.ID] = idea
	out := *idea
	s.db.mu.Unlock()

	respondJSON(w, http.StatusCreated, out)
}

// findIdea loads an idea any user may read; callers hold mu
func (s *Server) findIdea(w http.ResponseWriter, r *http.Request) (*resources.Idea, bool) {
	id, ok := pathID(r)
	if ok {
		if idea, found := s.db.ideas[id]; found {
			return idea, true
		}
	}
	respondError(w, apperrors.NewNotFoundError("Idea"))
	return nil, false
}

func (s *Server) getIdea(w http.ResponseWriter, r *http.Request) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	if idea, ok := s.findIdea(w, r); ok {
		respondJSON(w, http.StatusOK, idea)
	}
}

func (s *Server) updateIdea(w http.ResponseWriter, r *http.Request) {
	var in resources.IdeaUpdate
	if !s.decode(w, r, &in) {
		return
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	idea, ok := s.findIdea(w, r)
	if !ok {
		return
	}
	if idea.UserID != userID(r) {
		respondError(w, apperrors.NewForbiddenError(detailPermissions))
		return
	}
	if in.Name != nil {
		idea.Name = *in.Name
	}
	if in.Description != nil {
		idea.Description = *in.Description
	}
	idea.UpdatedAt = s.cfg.Now().UTC()
	respondJSON(w, http.StatusOK, idea)
}

func (s *Server) deleteIdea(w http.ResponseWriter, r *http.Request) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	idea, ok := s.findIdea(w, r)
	if !ok {
		return
	}
	if idea.UserID != userID(r) {
		respondError(w, apperrors.NewForbiddenError(detailPermissions))
		return
	}
	delete(s.db.ideas, idea.ID)
	for id, script := range s.db.scripts {
		if script.IdeaID == idea.ID {
			delete(s.db.scripts, id)
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Idea deleted successfully!"})
}

func (s *Server) addComment(w http.ResponseWriter, r *http.Request) {
	var in resources.CommentInput
	if !s.decode(w, r, &in) {
		return
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	idea, ok := s.findIdea(w, r)
	if !ok {
		return
	}
	comment := resources.Comment{
		ID:        s.db.id(),
		IdeaID:    idea.ID,
		UserID:    userID(r),
		Content:   in.Content,
		CreatedAt: s.cfg.Now().UTC(),
	}
	idea.Comments = append(idea.Comments, comment)
	respondJSON(w, http.StatusCreated, comment)
}

// ---- tags ----

func (s *Server) listTags(w http.ResponseWriter, r *http.Request) {
	s.db.mu.RLock()
	tags := make([]resources.Tag, 0, len(s.db.tags))
	for _, rec := range s.db.tags {
		tags = append(tags, rec.Tag)
	}
	s.db.mu.RUnlock()

	if len(tags) == 0 {
		respondDetail(w, http.StatusNotFound, "No tags found")
		return
	}
	respondJSON(w, http.StatusOK, paginate(tags, func(t resources.Tag) int64 { return t.ID }, s.pagination(r)))
}

func (s *Server) createTag(w http.ResponseWriter, r *http.Request) {
	var in resources.TagInput
	if !s.decode(w, r, &in) {
		return
	}

	now := s.cfg.Now().UTC()
	s.db.mu.Lock()
	for _, rec := range s.db.tags {
		if strings.EqualFold(rec.Name, in.Name) {
			s.db.mu.Unlock()
			respondError(w, apperrors.NewValidationError("Tag already exists"))
			return
		}
	}
	rec := &tagRecord{
		Tag: resources.Tag{
			ID:          s.db.id(),
			Name:        in.Name,
			Description: in.Description,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		OwnerID: userID(r),
	}
	s.db.tags[rec.ID] = rec
	out := rec.Tag
	s.db.mu.Unlock()

	respondJSON(w, http.StatusCreated, out)
}

func (s *Server) findTag(w http.ResponseWriter, r *http.Request) (*tagRecord, bool) {
	id, ok := pathID(r)
	if ok {
		if rec, found := s.db.tags[id]; found {
			return rec, true
		}
	}
	respondError(w, apperrors.NewNotFoundError("Tag"))
	return nil, false
}

func (s *Server) getTag(w http.ResponseWriter, r *http.Request) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	if rec, ok := s.findTag(w, r); ok {
		respondJSON(w, http.StatusOK, rec.Tag)
	}
}

func (s *Server) updateTag(w http.ResponseWriter, r *http.Request) {
	var in resources.TagUpdate
	if !s.decode(w, r, &in) {
		return
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	rec, ok := s.findTag(w, r)
	if !ok {
		return
	}
	if rec.OwnerID != userID(r) {
		respondError(w, apperrors.NewForbiddenError(detailPermissions))
		return
	}
	if in.Name != nil {
		rec.Name = *in.Name
	}
	if in.Description != nil {
		rec.Description = *in.Description
	}
	rec.UpdatedAt = s.cfg.Now().UTC()
	respondJSON(w, http.StatusOK, rec.Tag)
}

func (s *Server) deleteTag(w http.ResponseWriter, r *http.Request) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	rec, ok := s.findTag(w, r)
	if !ok {
		return
	}
	if rec.OwnerID != userID(r) {
		respondError(w, apperrors.NewForbiddenError(detailPermissions))
		return
	}
	delete(s.db.tags, rec.ID)
	w.WriteHeader(http.StatusNoContent)
}

// ---- scripts ----

func (s *Server) listScripts(w http.ResponseWriter, r *http.Request) {
	s.db.mu.RLock()
	scripts := make([]resources.Script, 0)
	for _, script := range s.db.scripts {
		if script.UserID == userID(r) {
			scripts = append(scripts, *script)
		}
	}
	s.db.mu.RUnlock()

	respondJSON(w, http.StatusOK, paginate(scripts, func(sc resources.Script) int64 { return sc.ID }, s.pagination(r)))
}

func (s *Server) createScript(w http.ResponseWriter, r *http.Request) {
	var in resources.ScriptInput
	if !s.decode(w, r, &in) {
		return
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.ideas[in.IdeaID]; !ok {
		respondError(w, apperrors.NewValidationError("Idea does not exist"))
		return
	}
	script := &resources.Script{
		ID:            s.db.id(),
		IdeaID:        in.IdeaID,
		UserID:        userID(r),
		Title:         in.Title,
		ScriptContent: in.ScriptContent,
	}
	s.db.scripts[script.ID] = script
	respondJSON(w, http.StatusCreated, script)
}

// findScript only returns scripts owned by the caller; others read as missing
func (s *Server) findScript(w http.ResponseWriter, r *http.Request) (*resources.Script, bool) {
	id, ok := pathID(r)
	if ok {
		if script, found := s.db.scripts[id]; found && script.UserID == userID(r) {
			return script, true
		}
	}
	respondError(w, apperrors.NewNotFoundError("Script"))
	return nil, false
}

func (s *Server) getScript(w http.ResponseWriter, r *http.Request) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	if script, ok := s.findScript(w, r); ok {
		respondJSON(w, http.StatusOK, script)
	}
}

func (s *Server) updateScript(w http.ResponseWriter, r *http.Request) {
	var in resources.ScriptInput
	if !s.decode(w, r, &in) {
		return
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	script, ok := s.findScript(w, r)
	if !ok {
		return
	}
	script.IdeaID = in.IdeaID
	script.Title = in.Title
	script.ScriptContent = in.ScriptContent
	respondJSON(w, http.StatusOK, script)
}

func (s *Server) deleteScript(w http.ResponseWriter, r *http.Request) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	script, ok := s.findScript(w, r)
	if !ok {
		return
	}
	delete(s.db.scripts, script.ID)
	respondJSON(w, http.StatusOK, map[string]string{"message": "Script deleted successfully!"})
}
