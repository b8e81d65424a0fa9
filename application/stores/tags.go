package stores

import (
	"context"
	"net/http"
	"strconv"

	"ideaclient/application/store"
	"ideaclient/domain/resources"
	apperrors "ideaclient/pkg/errors"
)

// Tag failure texts
const (
	MessageTagsNotFound     = "Tags not found."
	MessageTagNotFound      = "Tag not found."
	MessageTagDeleteDenied  = "You do not have permission to delete this tag."
	MessageTagDeleteFailure = "An error occurred while deleting the tag."
)

func tagFailureText(verb store.Verb, errType apperrors.ErrorType) string {
	switch verb {
	case store.VerbList:
		switch errType {
		case apperrors.ErrorTypeNotFound:
			return MessageTagsNotFound
		case apperrors.ErrorTypeForbidden:
			return apperrors.MessageForbidden
		}
	case store.VerbGet, store.VerbUpdate:
		switch errType {
		case apperrors.ErrorTypeNotFound:
			return MessageTagNotFound
		case apperrors.ErrorTypeForbidden:
			return apperrors.MessageForbidden
		}
	case store.VerbDelete:
		switch errType {
		case apperrors.ErrorTypeNotFound:
			return MessageTagNotFound
		case apperrors.ErrorTypeForbidden:
			return MessageTagDeleteDenied
		default:
			return MessageTagDeleteFailure
		}
	}
	return ""
}

// TagDefinition describes the tags endpoint
func TagDefinition() store.Definition[resources.Tag] {
	return store.Definition[resources.Tag]{
		Kind:         "tag",
		Label:        "Tag",
		Endpoint:     "tags",
		CreateStatus: store.Exactly(http.StatusCreated),
		UpdateStatus: store.Exactly(http.StatusOK),
		DeleteStatus: store.Exactly(http.StatusOK, http.StatusNoContent),
		FailureText:  tagFailureText,
		ResourceID:   resources.Tag.Key,
	}
}

// TagStore manages tags
type TagStore struct {
	*store.Store[resources.Tag]
}

// NewTagStore creates the tag store
func NewTagStore(deps store.Deps) *TagStore {
	return &TagStore{Store: store.New(TagDefinition(), deps)}
}

// Create adds a tag
func (s *TagStore) Create(ctx context.Context, in resources.TagInput) (*resources.Tag, error) {
	return s.Store.Create(ctx, in)
}

// Update changes a tag
func (s *TagStore) Update(ctx context.Context, id int64, in resources.TagUpdate) (*resources.Tag, error) {
	return s.Store.Update(ctx, strconv.FormatInt(id, 10), in)
}
