package response

import (
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
)

type demoRequest struct {
	Title string `validate:"required"`
	Count int    `validate:"min=1"`
}

func TestValidationErrorMessages(t *testing.T) {
	err := validator.New().Struct(demoRequest{})
	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		t.Fatalf("Expected validation errors, got %v", err)
	}

	resp := ValidationError(ve)
	if resp.Status != StatusError {
		t.Fatalf("Expected error status, got %q", resp.Status)
	}
	if !strings.Contains(resp.Error, "Title is required") {
		t.Fatalf("Unexpected error message: %q", resp.Error)
	}
	if !strings.Contains(resp.Error, "Count failed min validation") {
		t.Fatalf("Unexpected error message: %q", resp.Error)
	}
}
