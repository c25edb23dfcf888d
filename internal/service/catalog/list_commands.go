package catalog

import (
	"context"
	"fmt"

	"github.com/heartmarshall/chatbot-backend/internal/domain"
)

// ListCommands returns one page of commands ordered by id.
func (s *Service) ListCommands(ctx context.Context, input ListCommandsInput) (domain.Page[domain.CommandSummary], error) {
	if err := input.Validate(); err != nil {
		return domain.Page[domain.CommandSummary]{}, err
	}
	perPage := input.perPage()

	total, err := s.commands.Count(ctx)
	if err != nil {
		return domain.Page[domain.CommandSummary]{}, fmt.Errorf("count commands: %w", err)
	}

	var items []domain.CommandSummary
	if offset := input.Page * perPage; offset < total {
		items, err = s.commands.List(ctx, perPage, offset)
		if err != nil {
			return domain.Page[domain.CommandSummary]{}, fmt.Errorf("list commands: %w", err)
		}
	}

	return domain.NewPage(items, input.Page, perPage, total), nil
}
