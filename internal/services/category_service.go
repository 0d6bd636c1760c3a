package services

import (
	"context"
	"fmt"
	"strings"

	"carteira/internal/core"
	"carteira/internal/log"
	"carteira/internal/store"
)

// CategoryService manages the categories visible to a user.
type CategoryService struct {
	cats   store.CategoryCatalog
	logger *log.Logger
}

func NewCategoryService(cats store.CategoryCatalog, logger *log.Logger) *CategoryService {
	if logger == nil {
		logger = log.Discard()
	}
	return &CategoryService{cats: cats, logger: logger.WithComponent(log.ComponentTransaction)}
}

// List returns the default categories plus the user's own, optionally by type.
func (s *CategoryService) List(ctx context.Context, userID string, typ core.TransactionType) ([]core.Category, error) {
	if typ != "" && !typ.IsValid() {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidType, typ)
	}
	return s.cats.ListCategories(ctx, store.CategoryQuery{UserID: userID, Type: typ})
}

// Create adds a user-owned category.
func (s *CategoryService) Create(ctx context.Context, userID string, c core.Category) (core.Category, error) {
	c.ID = ""
	c.UserID = userID
	c.IsDefault = false
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	created, err := s.cats.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	s.logger.InfoContext(ctx, "Category created",
		log.FieldOperation, log.OpCreate,
		log.FieldCategoryID, created.ID)
	return created, nil
}

// Update renames or changes the icon of a user-owned category.
func (s *CategoryService) Update(ctx context.Context, userID, id string, patch core.CategoryPatch) (core.Category, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return core.Category{}, core.ErrEmptyName
	}
	return s.cats.UpdateCategory(ctx, userID, id, patch)
}

// Delete removes a user-owned category. Its transactions become uncategorized.
func (s *CategoryService) Delete(ctx context.Context, userID, id string) error {
	if err := s.cats.DeleteCategory(ctx, userID, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Category deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldCategoryID, id)
	return nil
}
