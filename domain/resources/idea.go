package resources

import (
	"strconv"
	"time"
)

// Idea is the central resource of the API
type Idea struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	UserID      int64     `json:"user_id,omitempty"`
	Comments    []Comment `json:"comments,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Key returns the identifier used in resource paths
func (i Idea) Key() string { return strconv.FormatInt(i.ID, 10) }

// IdeaInput is the payload for creating an idea
type IdeaInput struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description,omitempty"`
}

// IdeaUpdate is a partial update; nil fields are left untouched by the API
type IdeaUpdate struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description,omitempty"`
}

// Comment is a note attached to an idea
type Comment struct {
	ID        int64     `json:"id"`
	IdeaID    int64     `json:"idea_id"`
	UserID    int64     `json:"user_id,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// CommentInput is the payload for POST ideas/:id/comments
type CommentInput struct {
	Content string `json:"content" validate:"required"`
}
