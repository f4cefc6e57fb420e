package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/inkwell/internal/model"
	"github.com/sakif/inkwell/internal/repository"
)

// CategoryService lists and seeds categories.
type CategoryService struct {
	categories repository.CategoryRepository
	logger     *slog.Logger
}

func NewCategoryService(categories repository.CategoryRepository, logger *slog.Logger) *CategoryService {
	return &CategoryService{categories: categories, logger: logger}
}

// List returns active categories in name order.
func (s *CategoryService) List(ctx context.Context) ([]model.Category, error) {
	categories, err := s.categories.ListActiveCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return categories, nil
}

// Seed makes sure a category exists for every non-blank name. Existing
// categories are left as they are.
func (s *CategoryService) Seed(ctx context.Context, names []string) error {
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		c, err := s.categories.EnsureCategory(ctx, name)
		if err != nil {
			return fmt.Errorf("seeding category %q: %w", name, err)
		}
		s.logger.Debug("category ensured", slog.String("id", c.ID), slog.String("name", c.Name))
	}
	return nil
}
