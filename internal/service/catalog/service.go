// Package catalog serves the read-only command listing used by admin views.
package catalog

import (
	"context"
	"log/slog"

	"github.com/heartmarshall/chatbot-backend/internal/domain"
)

type commandRepo interface {
	List(ctx context.Context, limit, offset int) ([]domain.CommandSummary, error)
	Count(ctx context.Context) (int, error)
}

// Service provides command catalog reads.
type Service struct {
	commands commandRepo
	log      *slog.Logger
}

// NewService creates a new catalog service.
func NewService(log *slog.Logger, commands commandRepo) *Service {
	return &Service{
		commands: commands,
		log:      log.With("service", "catalog"),
	}
}
