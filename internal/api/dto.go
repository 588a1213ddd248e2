package api

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// notBlank rejects strings that are empty after trimming. Nil pointer values
// pass so partial updates can omit the field.
func notBlank(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return nil
	}
	if strings.TrimSpace(s) == "" {
		return errors.New("must not be blank")
	}
	return nil
}

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Title   string  `json:"title"`
	Content string  `json:"content"`
	TagIDs  []int64 `json:"tagIds"`
}

// Validate checks the request shape.
func (r CreateNoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.By(notBlank)),
		validation.Field(&r.TagIDs, validation.Each(validation.Min(int64(1)))),
	)
}

// UpdateNoteRequest is the request body for updating a note. Pointer fields
// distinguish "absent" from "set": a nil TagIDs leaves associations alone,
// an empty one clears them.
type UpdateNoteRequest struct {
	Title   *string  `json:"title"`
	Content *string  `json:"content"`
	TagIDs  *[]int64 `json:"tagIds"`
}

// Validate checks the request shape. A provided title must be non-empty.
func (r UpdateNoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.NilOrNotEmpty, validation.By(notBlank)),
	)
}

// CreateTagRequest is the request body for creating a tag.
type CreateTagRequest struct {
	Name string `json:"name"`
}

// Validate checks the request shape. Trimming happens in the service.
func (r CreateTagRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required),
	)
}

// CreateLinkRequest is the request body for creating a directed link.
type CreateLinkRequest struct {
	FromID int64 `json:"fromId"`
	ToID   int64 `json:"toId"`
}

// Validate checks the request shape.
func (r CreateLinkRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FromID, validation.Required, validation.Min(int64(1))),
		validation.Field(&r.ToID, validation.Required, validation.Min(int64(1))),
	)
}
