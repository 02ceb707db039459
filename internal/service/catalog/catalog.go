package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"github.com/phucthaihg/wallpaper-ecommerce/internal/models"
	"github.com/phucthaihg/wallpaper-ecommerce/internal/repo"
)

var (
	ErrValidation = errors.New("validation")
	ErrNotFound   = errors.New("not found")

	// ErrInUse guards against deleting a category that still carries
	// subcategories or products.
	ErrInUse = errors.New("category in use")
)

type Service struct {
	Repo *repo.GormRepo
}

type CategoryInput struct {
	Name         string
	Description  string
	Image        string
	ParentID     *uint
	DisplayOrder int
	IsActive     *bool
}

type ProductInput struct {
	Name          string
	Description   string
	Price         *float64
	StockQuantity *uint
	CategoryID    *uint
	FeaturedImage string
	IsActive      *bool
}

type TemplateInput struct {
	Key          string
	Name         string
	Type         string
	Unit         string
	Options      models.JSONMap
	Required     *bool
	DisplayOrder int
}

// categoryPath is the materialized path of ids from root to the node,
// recomputed on every save so lookups never walk the tree.
func categoryPath(parent *models.Category, id uint) (int, string) {
	if parent == nil {
		return 0, strconv.FormatUint(uint64(id), 10)
	}
	return parent.Level + 1, parent.Path + "/" + strconv.FormatUint(uint64(id), 10)
}

func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("name is required: %w", ErrValidation)
	}

	var parent *models.Category
	if in.ParentID != nil {
		var err error
		parent, err = s.Repo.CategoryByID(ctx, *in.ParentID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("parent category %d: %w", *in.ParentID, ErrNotFound)
		}
		if err != nil {
			return nil, err
		}
	}

	cat := &models.Category{
		Name:         in.Name,
		Slug:         Slugify(in.Name),
		Description:  in.Description,
		Image:        in.Image,
		ParentID:     in.ParentID,
		DisplayOrder: in.DisplayOrder,
		IsActive:     true,
	}
	if in.IsActive != nil {
		cat.IsActive = *in.IsActive
	}

	if err := s.Repo.CreateCategory(ctx, cat); err != nil {
		return nil, err
	}

	// Path needs the generated id, so it lands in a second save.
	cat.Level, cat.Path = categoryPath(parent, cat.ID)
	if err := s.Repo.SaveCategory(ctx, cat); err != nil {
		return nil, err
	}
	return cat, nil
}

func (s *Service) UpdateCategory(ctx context.Context, id uint, in CategoryInput) (*models.Category, error) {
	cat, err := s.Repo.CategoryByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("category %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if in.Name != "" {
		cat.Name = in.Name
		cat.Slug = Slugify(in.Name)
	}
	if in.Description != "" {
		cat.Description = in.Description
	}
	if in.Image != "" {
		cat.Image = in.Image
	}
	if in.IsActive != nil {
		cat.IsActive = *in.IsActive
	}
	cat.DisplayOrder = in.DisplayOrder

	reparented := false
	var parent *models.Category
	if in.ParentID != nil {
		if *in.ParentID == id {
			return nil, fmt.Errorf("category cannot be its own parent: %w", ErrValidation)
		}
		parent, err = s.Repo.CategoryByID(ctx, *in.ParentID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("parent category %d: %w", *in.ParentID, ErrNotFound)
		}
		if err != nil {
			return nil, err
		}
		if cat.Path != "" && pathContains(parent.Path, cat.ID) {
			return nil, fmt.Errorf("cannot move category under its own subtree: %w", ErrValidation)
		}
		cat.ParentID = in.ParentID
		reparented = true
	}

	cat.Level, cat.Path = categoryPath(parent, cat.ID)
	if !reparented && cat.ParentID != nil {
		existing, err := s.Repo.CategoryByID(ctx, *cat.ParentID)
		if err != nil {
			return nil, err
		}
		cat.Level, cat.Path = categoryPath(existing, cat.ID)
	}

	if err := s.Repo.SaveCategory(ctx, cat); err != nil {
		return nil, err
	}

	if err := s.recomputeSubtree(ctx, cat); err != nil {
		return nil, err
	}
	return cat, nil
}

// recomputeSubtree rewrites level and path for every descendant after a
// reparent or rename.
func (s *Service) recomputeSubtree(ctx context.Context, cat *models.Category) error {
	children, err := s.Repo.ChildCategories(ctx, cat.ID)
	if err != nil {
		return err
	}
	for i := range children {
		child := &children[i]
		child.Level, child.Path = categoryPath(cat, child.ID)
		if err := s.Repo.SaveCategory(ctx, child); err != nil {
			return err
		}
		if err := s.recomputeSubtree(ctx, child); err != nil {
			return err
		}
	}
	return nil
}

func pathContains(path string, id uint) bool {
	want := strconv.FormatUint(uint64(id), 10)
	start := 0
	for i := 0; i <= len(path); i++ {
		if i == len(path) || path[i] == '/' {
			if path[start:i] == want {
				return true
			}
			start = i + 1
		}
	}
	return false
}

func (s *Service) DeleteCategory(ctx context.Context, id uint) error {
	if _, err := s.Repo.CategoryByID(ctx, id); errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("category %d: %w", id, ErrNotFound)
	} else if err != nil {
		return err
	}

	children, err := s.Repo.ChildCategoryCount(ctx, id)
	if err != nil {
		return err
	}
	if children > 0 {
		return fmt.Errorf("category %d has subcategories: %w", id, ErrInUse)
	}

	products, err := s.Repo.ProductCountByCategory(ctx, id)
	if err != nil {
		return err
	}
	if products > 0 {
		return fmt.Errorf("category %d has products: %w", id, ErrInUse)
	}

	return s.Repo.DeleteCategory(ctx, id)
}

func (s *Service) Categories(ctx context.Context) ([]models.Category, error) {
	return s.Repo.RootCategories(ctx)
}

func (s *Service) CategoryByID(ctx context.Context, id uint) (*models.Category, error) {
	cat, err := s.Repo.CategoryByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("category %d: %w", id, ErrNotFound)
	}
	return cat, err
}

func (s *Service) CategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	cat, err := s.Repo.CategoryBySlug(ctx, slug)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("category %q: %w", slug, ErrNotFound)
	}
	return cat, err
}

func (s *Service) ProductCount(ctx context.Context, categoryID uint) (int64, error) {
	return s.Repo.ProductCountByCategory(ctx, categoryID)
}

func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("name is required: %w", ErrValidation)
	}
	if in.Price == nil || *in.Price < 0 {
		return nil, fmt.Errorf("price must be non-negative: %w", ErrValidation)
	}

	if in.CategoryID != nil {
		if _, err := s.Repo.CategoryByID(ctx, *in.CategoryID); errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("category %d: %w", *in.CategoryID, ErrNotFound)
		} else if err != nil {
			return nil, err
		}
	}

	p := &models.Product{
		Name:          in.Name,
		Slug:          Slugify(in.Name),
		Description:   in.Description,
		Price:         *in.Price,
		CategoryID:    in.CategoryID,
		FeaturedImage: in.FeaturedImage,
		IsActive:      true,
	}
	if in.StockQuantity != nil {
		p.StockQuantity = *in.StockQuantity
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}

	if err := s.Repo.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id uint, in ProductInput) (*models.Product, error) {
	p, err := s.Repo.ProductByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if in.Name != "" {
		p.Name = in.Name
		p.Slug = Slugify(in.Name)
	}
	if in.Description != "" {
		p.Description = in.Description
	}
	if in.Price != nil {
		if *in.Price < 0 {
			return nil, fmt.Errorf("price must be non-negative: %w", ErrValidation)
		}
		p.Price = *in.Price
	}
	if in.StockQuantity != nil {
		p.StockQuantity = *in.StockQuantity
	}
	if in.CategoryID != nil {
		if _, err := s.Repo.CategoryByID(ctx, *in.CategoryID); errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("category %d: %w", *in.CategoryID, ErrNotFound)
		} else if err != nil {
			return nil, err
		}
		p.CategoryID = in.CategoryID
	}
	if in.FeaturedImage != "" {
		p.FeaturedImage = in.FeaturedImage
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}

	if err := s.Repo.SaveProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id uint) error {
	if _, err := s.Repo.ProductByID(ctx, id); errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("product %d: %w", id, ErrNotFound)
	} else if err != nil {
		return err
	}
	return s.Repo.DeleteProduct(ctx, id)
}

func (s *Service) ProductByID(ctx context.Context, id uint) (*models.Product, error) {
	p, err := s.Repo.ProductByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	return p, err
}

func (s *Service) ProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	p, err := s.Repo.ProductBySlug(ctx, slug)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("product %q: %w", slug, ErrNotFound)
	}
	return p, err
}

func (s *Service) Products(ctx context.Context, offset, limit int, categoryID *uint) (int64, []models.Product, error) {
	return s.Repo.Products(ctx, offset, limit, categoryID)
}

func (s *Service) CreateTemplate(ctx context.Context, categoryID uint, in TemplateInput) (*models.SpecificationTemplate, error) {
	if in.Key == "" || in.Name == "" {
		return nil, fmt.Errorf("key and name are required: %w", ErrValidation)
	}
	if _, err := s.Repo.CategoryByID(ctx, categoryID); errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("category %d: %w", categoryID, ErrNotFound)
	} else if err != nil {
		return nil, err
	}

	tpl := &models.SpecificationTemplate{
		CategoryID:   categoryID,
		Key:          in.Key,
		Name:         in.Name,
		Type:         in.Type,
		Unit:         in.Unit,
		Options:      in.Options,
		DisplayOrder: in.DisplayOrder,
	}
	if tpl.Type == "" {
		tpl.Type = "text"
	}
	if tpl.Options == nil {
		tpl.Options = models.JSONMap{}
	}
	if in.Required != nil {
		tpl.Required = *in.Required
	}

	if err := s.Repo.CreateTemplate(ctx, tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

func (s *Service) UpdateTemplate(ctx context.Context, id uint, in TemplateInput) (*models.SpecificationTemplate, error) {
	tpl, err := s.Repo.TemplateByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("specification template %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if in.Name != "" {
		tpl.Name = in.Name
	}
	if in.Type != "" {
		tpl.Type = in.Type
	}
	if in.Unit != "" {
		tpl.Unit = in.Unit
	}
	if in.Options != nil {
		tpl.Options = in.Options
	}
	if in.Required != nil {
		tpl.Required = *in.Required
	}
	tpl.DisplayOrder = in.DisplayOrder

	if err := s.Repo.SaveTemplate(ctx, tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

func (s *Service) DeleteTemplate(ctx context.Context, id uint) error {
	if _, err := s.Repo.TemplateByID(ctx, id); errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("specification template %d: %w", id, ErrNotFound)
	} else if err != nil {
		return err
	}
	return s.Repo.DeleteTemplate(ctx, id)
}

func (s *Service) TemplatesByCategory(ctx context.Context, categoryID uint) ([]models.SpecificationTemplate, error) {
	return s.Repo.TemplatesByCategory(ctx, categoryID)
}
