package resources

import "strconv"

// Script is a piece of writing derived from an idea
type Script struct {
	ID            int64  `json:"id"`
	IdeaID        int64  `json:"idea_id"`
	UserID        int64  `json:"user_id,omitempty"`
	Title         string `json:"title"`
	ScriptContent string `json:"script_content"`
}

// Key returns the identifier used in resource paths
func (s Script) Key() string { return strconv.FormatInt(s.ID, 10) }

// ScriptInput is used for both create and update; the API replaces scripts wholesale
type ScriptInput struct {
	IdeaID        int64  `json:"idea_id" validate:"required,gt=0"`
	Title         string `json:"title" validate:"required"`
	ScriptContent string `json:"script_content" validate:"required"`
}
