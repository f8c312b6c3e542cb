package catalog

import (
	"context"
	"fmt"
)

// Service backs the product and category routes, one method per route.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetAllProducts(ctx context.Context) (ProductList, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return ProductList{}, err
	}
	return NewProductList(products), nil
}

func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// GetProductsByCategory returns ErrNotFound when the category itself does
// not exist, so an unknown id is not confused with an empty category.
func (s *Service) GetProductsByCategory(ctx context.Context, categoryID int64) (ProductList, error) {
	if _, err := s.repo.GetCategory(ctx, categoryID); err != nil {
		return ProductList{}, fmt.Errorf("category %d: %w", categoryID, err)
	}
	products, err := s.repo.ListProductsByCategory(ctx, categoryID)
	if err != nil {
		return ProductList{}, err
	}
	return NewProductList(products), nil
}

func (s *Service) GetAllCategories(ctx context.Context) ([]Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) GetCategory(ctx context.Context, id int64) (Category, error) {
	return s.repo.GetCategory(ctx, id)
}
