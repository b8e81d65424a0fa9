package resources

import (
	"strconv"
	"time"
)

type Tag struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (t Tag) Key() string { return strconv.FormatInt(t.ID, 10) }

type TagInput struct {
	Name        string `json:"name" validate:"required,max=64"`
	Description string `json:"description" validate:"required"`
}

type TagUpdate struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=64"`
	Description *string `json:"description,omitempty"`
}
