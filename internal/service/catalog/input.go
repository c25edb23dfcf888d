package catalog

import (
	"fmt"

	"github.com/heartmarshall/chatbot-backend/internal/domain"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// ListCommandsInput holds the parameters for a command listing page.
// Page is 0-based; PerPage 0 means DefaultPerPage.
type ListCommandsInput struct {
	Page    int
	PerPage int
}

// Validate checks all fields and collects all errors.
func (i ListCommandsInput) Validate() error {
	var errs []domain.FieldError

	if i.Page < 0 {
		errs = append(errs, domain.FieldError{Field: "page", Message: "must be >= 0"})
	}
	if i.PerPage < 0 {
		errs = append(errs, domain.FieldError{Field: "per_page", Message: "must be >= 0"})
	}
	if i.PerPage > MaxPerPage {
		errs = append(errs, domain.FieldError{Field: "per_page", Message: fmt.Sprintf("max %d", MaxPerPage)})
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

func (i ListCommandsInput) perPage() int {
	if i.PerPage == 0 {
		return DefaultPerPage
	}
	return i.PerPage
}
