package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/heartmarshall/chatbot-backend/internal/domain"
	"github.com/heartmarshall/chatbot-backend/internal/service/catalog"
)

type commandCatalog interface {
	ListCommands(ctx context.Context, input catalog.ListCommandsInput) (domain.Page[domain.CommandSummary], error)
}

// CommandsHandler serves the read-only command listing.
type CommandsHandler struct {
	catalog commandCatalog
	log     *slog.Logger
}

func NewCommandsHandler(log *slog.Logger, c commandCatalog) *CommandsHandler {
	return &CommandsHandler{catalog: c, log: log.With("handler", "commands")}
}

// ErrorResponse is the JSON body of a failed API request.
type ErrorResponse struct {
	Error  string              `json:"error"`
	Fields []domain.FieldError `json:"fields,omitempty"`
}

// List handles GET /api/commands?page=&per_page=.
func (h *CommandsHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		input catalog.ListCommandsInput
		errs  []domain.FieldError
	)
	q := r.URL.Query()
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, domain.FieldError{Field: "page", Message: "must be an integer"})
		}
		input.Page = n
	}
	if v := q.Get("per_page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, domain.FieldError{Field: "per_page", Message: "must be an integer"})
		}
		input.PerPage = n
	}
	if len(errs) > 0 {
		writeError(w, domain.NewValidationErrors(errs))
		return
	}

	page, err := h.catalog.ListCommands(r.Context(), input)
	if err != nil {
		if !errors.Is(err, domain.ErrValidation) {
			h.log.ErrorContext(r.Context(), "list commands", slog.String("error", err.Error()))
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func writeError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation error", Fields: ve.Errors})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not found"})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "request canceled"})
	default:
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}
