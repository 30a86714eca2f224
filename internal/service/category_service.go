package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"posadmin/internal/dto"
	"posadmin/internal/model"
	"posadmin/internal/repository"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/rs/zerolog/log"
)

const (
	categoryTreeKey = "categories:tree"
	categoryTreeTTL = time.Hour
)

// CategoryService defines business operations for the product category forest.
type CategoryService interface {
	Index(ctx context.Context, filter dto.ListFilter) (*dto.CategoryIndexProps, error)
	CreateForm(ctx context.Context) (*dto.CategoryFormProps, error)
	Create(ctx context.Context, req dto.CategoryRequest) (*dto.CategoryRow, error)
	EditForm(ctx context.Context, id uuid.UUID) (*dto.CategoryFormProps, error)
	Update(ctx context.Context, id uuid.UUID, req dto.CategoryRequest) (*dto.CategoryRow, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// Options lists active categories for product pickers.
	Options(ctx context.Context) ([]dto.CategoryOption, error)
}

type categoryService struct {
	repo  repository.CategoryRepository
	cache Cache
}

func NewCategoryService(repo repository.CategoryRepository, cache Cache) CategoryService {
	return &categoryService{repo: repo, cache: cache}
}

func (s *categoryService) forest(ctx context.Context) (*categoryForest, error) {
	all, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}
	return newCategoryForest(all), nil
}

func categoryRow(c model.ProductCategory, f *categoryForest) dto.CategoryRow {
	row := dto.CategoryRow{
		ID:        c.ID,
		Name:      c.Name,
		Slug:      c.Slug,
		ParentID:  c.ParentID,
		IsActive:  c.IsActive,
		SortOrder: c.SortOrder,
		Path:      c.Name,
	}
	if f == nil {
		return row
	}
	if c.ParentID != nil {
		if p, ok := f.Get(*c.ParentID); ok {
			name := p.Name
			row.ParentName = &name
		}
	}
	if path := f.Path(c.ID); path != "" {
		row.Path = path
	}
	return row
}

func (s *categoryService) Index(ctx context.Context, filter dto.ListFilter) (*dto.CategoryIndexProps, error) {
	page, limit, offset := filter.Normalize()

	if strings.TrimSpace(filter.Search) != "" {
		list, total, err := s.repo.Search(ctx, filter.Search, limit, offset)
		if err != nil {
			return nil, err
		}
		f, err := s.forest(ctx)
		if err != nil {
			return nil, err
		}
		rows := make([]dto.CategoryRow, 0, len(list))
		for _, c := range list {
			rows = append(rows, categoryRow(c, f))
		}
		results := dto.NewPaginated(rows, total, page, limit)
		return &dto.CategoryIndexProps{Mode: "search", Results: &results, Filters: filter}, nil
	}

	tree, err := s.tree(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.CategoryIndexProps{Mode: "browse", Tree: tree, Filters: filter}, nil
}

// tree serves the browse forest from cache when possible.
func (s *categoryService) tree(ctx context.Context) ([]dto.CategoryNode, error) {
	if s.cache != nil {
		if b, err := s.cache.Get(ctx, categoryTreeKey); err == nil {
			var tree []dto.CategoryNode
			if json.Unmarshal(b, &tree) == nil {
				return tree, nil
			}
		}
	}

	f, err := s.forest(ctx)
	if err != nil {
		return nil, err
	}
	tree := f.Tree()

	if s.cache != nil {
		if b, err := json.Marshal(tree); err == nil {
			if err := s.cache.Set(ctx, categoryTreeKey, b, categoryTreeTTL); err != nil {
				log.Warn().Err(err).Msg("category tree: cache set failed")
			}
		}
	}
	return tree, nil
}

func (s *categoryService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, categoryTreeKey); err != nil {
		log.Warn().Err(err).Msg("category tree: cache invalidation failed")
	}
}

func (s *categoryService) parentOptions(ctx context.Context, exclude *uuid.UUID) ([]dto.Option, error) {
	roots, err := s.repo.ListActiveRoots(ctx)
	if err != nil {
		return nil, err
	}
	opts := make([]dto.Option, 0, len(roots))
	for _, r := range roots {
		if exclude != nil && r.ID == *exclude {
			continue
		}
		opts = append(opts, dto.Option{Value: r.ID.String(), Label: r.Name})
	}
	return opts, nil
}

func (s *categoryService) CreateForm(ctx context.Context) (*dto.CategoryFormProps, error) {
	opts, err := s.parentOptions(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &dto.CategoryFormProps{ParentOptions: opts}, nil
}

func (s *categoryService) checkParentExists(ctx context.Context, parentID *uuid.UUID) error {
	if parentID == nil {
		return nil
	}
	if _, err := s.repo.FindByID(ctx, *parentID); err != nil {
		if errors.Is(notFound(err), ErrNotFound) {
			return fieldError("parent_id", "The selected parent category is invalid.")
		}
		return err
	}
	return nil
}

func slugFor(given *string, name string) string {
	if given != nil && strings.TrimSpace(*given) != "" {
		return slug.Make(*given)
	}
	return slug.Make(name)
}

func (s *categoryService) Create(ctx context.Context, req dto.CategoryRequest) (*dto.CategoryRow, error) {
	if err := s.checkParentExists(ctx, req.ParentID); err != nil {
		return nil, err
	}

	c := &model.ProductCategory{
		Name:     strings.TrimSpace(req.Name),
		ParentID: req.ParentID,
		IsActive: true,
	}
	c.Slug = slugFor(req.Slug, c.Name)
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
	if req.SortOrder != nil {
		c.SortOrder = *req.SortOrder
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	log.Info().Str("category_id", c.ID.String()).Str("name", c.Name).Msg("category created")
	row := categoryRow(*c, nil)
	return &row, nil
}

func (s *categoryService) EditForm(ctx context.Context, id uuid.UUID) (*dto.CategoryFormProps, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	f, err := s.forest(ctx)
	if err != nil {
		return nil, err
	}
	children, err := s.repo.CountChildren(ctx, id)
	if err != nil {
		return nil, err
	}
	products, err := s.repo.CountProducts(ctx, f.Subtree(id))
	if err != nil {
		return nil, err
	}
	opts, err := s.parentOptions(ctx, &id)
	if err != nil {
		return nil, err
	}
	row := categoryRow(*c, f)
	return &dto.CategoryFormProps{
		Category:      &row,
		HasChildren:   children > 0,
		ProductsCount: products,
		ParentOptions: opts,
	}, nil
}

func (s *categoryService) Update(ctx context.Context, id uuid.UUID, req dto.CategoryRequest) (*dto.CategoryRow, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}

	if req.ParentID != nil {
		if *req.ParentID == id {
			return nil, ruleError("Category cannot be its own parent.")
		}
		if err := s.checkParentExists(ctx, req.ParentID); err != nil {
			return nil, err
		}
		f, err := s.forest(ctx)
		if err != nil {
			return nil, err
		}
		if f.IsDescendant(*req.ParentID, id) {
			return nil, ruleError("Cannot set parent to a child category.")
		}
	}

	name := strings.TrimSpace(req.Name)
	switch {
	case req.Slug != nil && strings.TrimSpace(*req.Slug) != "":
		c.Slug = slug.Make(*req.Slug)
	case c.Slug == "":
		c.Slug = slug.Make(name)
	}
	c.Name = name
	c.ParentID = req.ParentID
	c.Parent = nil
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
	if req.SortOrder != nil {
		c.SortOrder = *req.SortOrder
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	row := categoryRow(*c, nil)
	return &row, nil
}

func (s *categoryService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return notFound(err)
	}
	products, err := s.repo.CountProducts(ctx, []uuid.UUID{id})
	if err != nil {
		return err
	}
	if products > 0 {
		return ruleError("Cannot delete category that has products.")
	}
	children, err := s.repo.CountChildren(ctx, id)
	if err != nil {
		return err
	}
	if children > 0 {
		return ruleError("Cannot delete category that has subcategories.")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFound(err)
	}
	s.invalidate(ctx)

	log.Info().Str("category_id", id.String()).Msg("category deleted")
	return nil
}

func (s *categoryService) Options(ctx context.Context) ([]dto.CategoryOption, error) {
	list, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.CategoryOption, 0, len(list))
	for _, c := range list {
		out = append(out, dto.CategoryOption{ID: c.ID, Name: c.Name, ParentID: c.ParentID})
	}
	return out, nil
}
