package validation

import (
	"errors"
	"strings"

	"chirp/internal/models"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Rule errors surfaced to clients in the field map.
var (
	ErrEmojiOnly = validation.NewError("validation_emoji_only", "only emojis are allowed")
)

// emojiRule rejects any content containing a non-emoji grapheme cluster.
var emojiRule = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if !IsEmojiOnly(s) {
		return ErrEmojiOnly
	}
	return nil
})

// PostInput is the client payload for creating a post.
type PostInput struct {
	Content string `json:"content"`
}

// Validate implements validation.Validatable.
func (in PostInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Content,
			validation.Required.Error("content is required"),
			validation.RuneLength(models.MinContentLength, models.MaxContentLength).
				Error("content must be between 1 and 280 characters"),
			emojiRule,
		),
	)
}

// EmailInput is the query for a profile lookup by email address.
type EmailInput struct {
	Email string `json:"email"`
}

func (in EmailInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email,
			validation.Required.Error("email is required"),
			validation.Length(3, 320),
			is.EmailFormat,
		),
	)
}

// Content validates post content and returns a VALIDATION_ERROR with field
// detail on failure.
func Content(content string) error {
	return AsAppError(PostInput{Content: content}.Validate())
}

// Email validates and normalizes an email lookup key.
func Email(email string) (string, error) {
	email = strings.TrimSpace(email)
	if err := AsAppError(EmailInput{Email: email}.Validate()); err != nil {
		return "", err
	}
	return strings.ToLower(email), nil
}

// AsAppError converts ozzo validation errors into a models.AppError. Other
// errors are returned unchanged.
func AsAppError(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	fields := make(map[string]string, len(fieldErrs))
	for name, fe := range fieldErrs {
		fields[name] = fe.Error()
	}
	return models.NewFieldValidationError(fields)
}
