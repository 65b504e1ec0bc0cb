package catalog

import "context"

// CatalogService abstracts the seller catalog API operations used to list a
// product. This interface allows for easy mocking in tests.
type CatalogService interface {
	// GenerateProductCode issues a new product code.
	GenerateProductCode(ctx context.Context) (*ProductCodeResponse, error)

	// UploadImage uploads one product image.
	UploadImage(ctx context.Context, upload UploadImageRequest) (*UploadImageResponse, error)

	// CreateProduct submits the final product document.
	CreateProduct(ctx context.Context, payload map[string]any) error
}

// Ensure Client implements CatalogService
var _ CatalogService = (*Client)(nil)
