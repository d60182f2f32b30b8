package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"PosterIntake/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type submitRequest struct {
	ImageBase64 string `json:"imageBase64"`
	ImageURL    string `json:"imageUrl" validate:"omitempty,max=2048"`
	SourceURL   string `json:"sourceUrl" validate:"omitempty,max=2048"`
}

type submitResponse struct {
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
	EventID   string `json:"eventId,omitempty"`
	EditToken string `json:"editToken,omitempty"`
	Message   string `json:"message,omitempty"`
}

type reextractRequest struct {
	EventID   string `json:"eventId" validate:"required,uuid"`
	ImageURL  string `json:"imageUrl" validate:"omitempty,max=2048"`
	SourceURL string `json:"sourceUrl" validate:"omitempty,max=2048"`
}

type trackRequest struct {
	EventID string `json:"event_id" validate:"required,uuid"`
	Type    string `json:"type" validate:"required,oneof=view ticket_click"`
}

type moderationRequest struct {
	Status string `json:"status" validate:"required,oneof=approved rejected"`
	Notes  string `json:"notes" validate:"max=2000"`
}

type notifyAdminRequest struct {
	EventID          string `json:"eventId" validate:"required,uuid"`
	EventTitle       string `json:"eventTitle" validate:"max=500"`
	ModerationReason string `json:"moderationReason" validate:"max=2000"`
}

// fieldMessages overrides the generated error text for some JSON fields.
var fieldMessages = map[string]string{
	"event_id": "Invalid event_id",
	"type":     "Invalid type",
	"status":   "status must be approved or rejected",
}

func init() {
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
}

// bindJSON decodes the body into dst and validates it. Failures carry
// domain.ErrInvalidInput with a message naming the first bad field.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return err
		}
		return fmt.Errorf("invalid JSON body: %w", domain.ErrInvalidInput)
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			if msg, ok := fieldMessages[fe.Field()]; ok {
				return invalidInput(msg)
			}
			if fe.Tag() == "required" {
				return invalidInput(fe.Field() + " is required")
			}
			return invalidInput("Invalid " + fe.Field())
		}
		return fmt.Errorf("validate request: %w", domain.ErrInvalidInput)
	}
	return nil
}

// invalidInput builds an ErrInvalidInput whose Error() is exactly msg.
func invalidInput(msg string) error {
	return publicError{msg: msg}
}

type publicError struct{ msg string }

func (e publicError) Error() string { return e.msg }
func (e publicError) Unwrap() error { return domain.ErrInvalidInput }
