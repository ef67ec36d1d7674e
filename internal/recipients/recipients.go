// Package recipients defines alert recipients and validates them at creation
// time, so a recipient without a usable contact channel never reaches the
// dispatch loop.
package recipients

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Recipient is someone who receives game alerts. Recipients are soft-deleted
// (Active=false) so their delivery history stays attributable.
type Recipient struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Phone     *string   `json:"phone,omitempty"`
	Email     *string   `json:"email,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// HasPhone reports whether an SMS can be attempted.
func (r Recipient) HasPhone() bool { return r.Phone != nil && *r.Phone != "" }

// HasEmail reports whether an email can be attempted.
func (r Recipient) HasEmail() bool { return r.Email != nil && *r.Email != "" }

// ValidationError is a typed rejection of recipient input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid recipient: " + e.Reason
	}
	return fmt.Sprintf("invalid recipient %s: %s", e.Field, e.Reason)
}

// IsValidationError reports whether err is (or wraps) a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

type input struct {
	Name  string `validate:"required,max=100"`
	Phone string `validate:"omitempty,e164"`
	Email string `validate:"omitempty,email,max=254"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// New validates raw input and returns an active, unsaved Recipient.
// Blank phone or email values are treated as absent; at least one of the two
// must remain.
func New(name, phone, email string) (Recipient, error) {
	in := input{
		Name:  strings.TrimSpace(name),
		Phone: strings.TrimSpace(phone),
		Email: strings.TrimSpace(email),
	}

	if in.Phone == "" && in.Email == "" {
		return Recipient{}, &ValidationError{Reason: "at least one of phone or email is required"}
	}

	if err := validate.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return Recipient{}, &ValidationError{
				Field:  strings.ToLower(fe.Field()),
				Reason: describeTag(fe.Tag()),
			}
		}
		return Recipient{}, &ValidationError{Reason: err.Error()}
	}

	r := Recipient{Name: in.Name, Active: true}
	if in.Phone != "" {
		r.Phone = &in.Phone
	}
	if in.Email != "" {
		r.Email = &in.Email
	}
	return r, nil
}

func describeTag(tag string) string {
	switch tag {
	case "required":
		return "is required"
	case "e164":
		return "must be an E.164 number such as +18605551234"
	case "email":
		return "must be a valid email address"
	case "max":
		return "is too long"
	default:
		return "failed " + tag + " check"
	}
}

// --------------------------------------------------------------------------
// Log masking
// --------------------------------------------------------------------------

// MaskPhone hides the middle of a phone number, e.g. +1860***1234.
func MaskPhone(phone string) string {
	if len(phone) < 6 {
		return "***"
	}
	return phone[:5] + "***" + phone[len(phone)-4:]
}

// MaskEmail hides most of the local part, e.g. al***@example.com.
func MaskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok {
		return "***"
	}
	if len(local) > 2 {
		return local[:2] + "***@" + domain
	}
	return "***@" + domain
}
