package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrInvalidID is returned when an identifier is not a 24-character hex ObjectID.
var ErrInvalidID = errors.New("invalid ID format")

// ErrInvalidPlatform is returned when platform fields fail validation. The wrapping
// error carries one "<Field> should match <tag> <param>" line per failed field;
// the param slot is empty (but still space-separated) for tags like required.
var ErrInvalidPlatform = errors.New("invalid platform")

var validate = validator.New()

// PlatformFields is the validated subset of a platform write.
type PlatformFields struct {
	Name         string `validate:"required,min=3,max=50"`
	Manufacturer string `validate:"required,min=3,max=50"`
}

// ValidatePlatform checks name and manufacturer. On failure the returned error wraps
// ErrInvalidPlatform and its message lists every failed field, each line ending in "\n".
func ValidatePlatform(name, manufacturer string) error {
	err := validate.Struct(PlatformFields{Name: name, Manufacturer: manufacturer})
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidPlatform, err)
	}
	return &FieldError{Message: formatFieldErrors(verrs)}
}

// FieldError is a validation failure in client-facing form.
type FieldError struct {
	Message string
}

func (e *FieldError) Error() string {
	return e.Message
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidPlatform
}

func formatFieldErrors(verrs validator.ValidationErrors) string {
	var b strings.Builder
	for _, fe := range verrs {
		b.WriteString(fe.Field())
		b.WriteString(" should match ")
		b.WriteString(fe.Tag())
		b.WriteString(" ")
		b.WriteString(fe.Param())
		b.WriteString("\n")
	}
	return b.String()
}

// ParseID validates a hex ObjectID and returns it in canonical lowercase form.
func ParseID(id string) (string, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return "", ErrInvalidID
	}
	return oid.Hex(), nil
}

// NewID returns a fresh ObjectID in hex form.
func NewID() string {
	return primitive.NewObjectID().Hex()
}
