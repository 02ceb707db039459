package repo

import (
	"context"

	"github.com/phucthaihg/wallpaper-ecommerce/internal/models"
)

func (r *GormRepo) ProductByID(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := r.DB.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormRepo) ProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var p models.Product
	if err := r.DB.WithContext(ctx).Where("slug = ?", slug).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// Products lists a catalog page, optionally narrowed to one category.
func (r *GormRepo) Products(ctx context.Context, offset, limit int, categoryID *uint) (int64, []models.Product, error) {
	q := r.DB.WithContext(ctx).Model(&models.Product{})
	if categoryID != nil {
		q = q.Where("category_id = ?", *categoryID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var items []models.Product
	if err := q.Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) CreateProduct(ctx context.Context, p *models.Product) error {
	return r.DB.WithContext(ctx).Create(p).Error
}

func (r *GormRepo) SaveProduct(ctx context.Context, p *models.Product) error {
	return r.DB.WithContext(ctx).Save(p).Error
}

func (r *GormRepo) DeleteProduct(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Delete(&models.Product{}, id).Error
}

func (r *GormRepo) ProductCountByCategory(ctx context.Context, categoryID uint) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Product{}).
		Where("category_id = ?", categoryID).Count(&n).Error
	return n, err
}

func (r *GormRepo) CategoryByID(ctx context.Context, id uint) (*models.Category, error) {
	var cat models.Category
	err := r.DB.WithContext(ctx).Preload("Subcategories").First(&cat, id).Error
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

func (r *GormRepo) CategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var cat models.Category
	err := r.DB.WithContext(ctx).Preload("Subcategories").
		Where("slug = ?", slug).First(&cat).Error
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

// RootCategories returns the hierarchy two levels deep, ordered for
// display.
func (r *GormRepo) RootCategories(ctx context.Context) ([]models.Category, error) {
	var cats []models.Category
	err := r.DB.WithContext(ctx).
		Preload("Subcategories").
		Preload("Subcategories.Subcategories").
		Where("parent_id IS NULL").
		Order("display_order ASC, name ASC").
		Find(&cats).Error
	if err != nil {
		return nil, err
	}
	return cats, nil
}

func (r *GormRepo) ChildCategories(ctx context.Context, parentID uint) ([]models.Category, error) {
	var cats []models.Category
	err := r.DB.WithContext(ctx).
		Where("parent_id = ?", parentID).
		Find(&cats).Error
	if err != nil {
		return nil, err
	}
	return cats, nil
}

func (r *GormRepo) ChildCategoryCount(ctx context.Context, parentID uint) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Category{}).
		Where("parent_id = ?", parentID).Count(&n).Error
	return n, err
}

func (r *GormRepo) CreateCategory(ctx context.Context, cat *models.Category) error {
	return r.DB.WithContext(ctx).Create(cat).Error
}

func (r *GormRepo) SaveCategory(ctx context.Context, cat *models.Category) error {
	return r.DB.WithContext(ctx).Save(cat).Error
}

func (r *GormRepo) DeleteCategory(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Delete(&models.Category{}, id).Error
}

func (r *GormRepo) TemplatesByCategory(ctx context.Context, categoryID uint) ([]models.SpecificationTemplate, error) {
	var tpls []models.SpecificationTemplate
	err := r.DB.WithContext(ctx).
		Where("category_id = ?", categoryID).
		Order("display_order ASC, id ASC").
		Find(&tpls).Error
	if err != nil {
		return nil, err
	}
	return tpls, nil
}

func (r *GormRepo) TemplateByID(ctx context.Context, id uint) (*models.SpecificationTemplate, error) {
	var tpl models.SpecificationTemplate
	if err := r.DB.WithContext(ctx).First(&tpl, id).Error; err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *GormRepo) CreateTemplate(ctx context.Context, tpl *models.SpecificationTemplate) error {
	return r.DB.WithContext(ctx).Create(tpl).Error
}

func (r *GormRepo) SaveTemplate(ctx context.Context, tpl *models.SpecificationTemplate) error {
	return r.DB.WithContext(ctx).Save(tpl).Error
}

func (r *GormRepo) DeleteTemplate(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&models.SpecificationTemplate{}, id)
	return res.Error
}
