package catalog

import "time"

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	CategoryID  int64     `json:"category_id"`
	ImageURL    string    `json:"image_url"`
	CreatedAt   time.Time `json:"created_at"`
	Category    *Category `json:"category,omitempty"`
}

// ProductList is the envelope returned by the product listing endpoints.
type ProductList struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
}

func NewProductList(products []Product) ProductList {
	if products == nil {
		products = []Product{}
	}
	return ProductList{Products: products, Total: len(products)}
}
