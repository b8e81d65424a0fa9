package stores

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"ideaclient/application/store"
	"ideaclient/domain/events"
	"ideaclient/domain/resources"
)

const (
	// SharedCollection is the named collection holding ideas shared with the user
	SharedCollection = "shared"

	MessageCommentAdded = "Comment added successfully!"
)

// IdeaDefinition describes the ideas endpoint
func IdeaDefinition() store.Definition[resources.Idea] {
	return store.Definition[resources.Idea]{
		Kind:         "idea",
		Label:        "Idea",
		Endpoint:     "ideas",
		CreateStatus: store.Exactly(http.StatusCreated),
		UpdateStatus: store.Exactly(http.StatusOK),
		DeleteStatus: store.Exactly(http.StatusOK, http.StatusNoContent),
		ResourceID:   resources.Idea.Key,
	}
}

// IdeaStore manages ideas, the ideas shared with the user and idea comments
type IdeaStore struct {
	*store.Store[resources.Idea]
}

// NewIdeaStore creates the idea store
func NewIdeaStore(deps store.Deps) *IdeaStore {
	return &IdeaStore{Store: store.New(IdeaDefinition(), deps)}
}

// Create adds an idea
func (s *IdeaStore) Create(ctx context.Context, in resources.IdeaInput) (*resources.Idea, error) {
	return s.Store.Create(ctx, in)
}

// Update changes an idea
func (s *IdeaStore) Update(ctx context.Context, id int64, in resources.IdeaUpdate) (*resources.Idea, error) {
	return s.Store.Update(ctx, strconv.FormatInt(id, 10), in)
}

// Shared fetches a page of ideas other users shared
func (s *IdeaStore) Shared(ctx context.Context, page int) (*resources.Page[resources.Idea], error) {
	return s.ListNamed(ctx, SharedCollection, "ideas/shared", page)
}

// AddComment posts a comment on an idea. The idea itself is not refetched.
func (s *IdeaStore) AddComment(ctx context.Context, ideaID int64, in resources.CommentInput) (*resources.Comment, error) {
	id := strconv.FormatInt(ideaID, 10)

	comment, err := store.Invoke[resources.Idea, resources.Comment](ctx, s.Store, store.Action{
		Verb:     "comment",
		Method:   http.MethodPost,
		Path:     "ideas/" + url.PathEscape(id) + "/comments",
		Body:     in,
		Accept:   store.Exactly(http.StatusCreated),
		Success:  MessageCommentAdded,
		Mutation: true,
	})
	if err != nil {
		return nil, err
	}

	s.Publish(ctx, events.NewResourceCreated("comment", strconv.FormatInt(comment.ID, 10), nil, s.Now()))
	return comment, nil
}
