package catalog

import (
	"context"
	"sync"
)

// MockCatalogService is a test double for CatalogService.
// Each method can be overridden with a custom function.
// If not overridden, methods return sensible defaults.
// Thread-safe for use in concurrent tests.
type MockCatalogService struct {
	GenerateProductCodeFunc func(ctx context.Context) (*ProductCodeResponse, error)
	UploadImageFunc         func(ctx context.Context, upload UploadImageRequest) (*UploadImageResponse, error)
	CreateProductFunc       func(ctx context.Context, payload map[string]any) error

	mu sync.Mutex

	// Calls tracks all method invocations for assertions
	Calls []MockCall
}

// MockCall records a method call for test assertions.
type MockCall struct {
	Method string
	Args   []any
}

// Ensure MockCatalogService implements CatalogService
var _ CatalogService = (*MockCatalogService)(nil)

func (m *MockCatalogService) GenerateProductCode(ctx context.Context) (*ProductCodeResponse, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "GenerateProductCode"})
	fn := m.GenerateProductCodeFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	return &ProductCodeResponse{Success: true, Value: "MOCK-00001"}, nil
}

func (m *MockCatalogService) UploadImage(ctx context.Context, upload UploadImageRequest) (*UploadImageResponse, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "UploadImage", Args: []any{upload.FileName, upload.ProductCode, len(upload.Data)}})
	fn := m.UploadImageFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, upload)
	}
	return &UploadImageResponse{Path: upload.FileName, FileName: upload.FileName}, nil
}

func (m *MockCatalogService) CreateProduct(ctx context.Context, payload map[string]any) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "CreateProduct", Args: []any{payload}})
	fn := m.CreateProductFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, payload)
	}
	return nil
}

// Reset clears all recorded calls.
func (m *MockCatalogService) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
}

// CallCount returns the number of times a method was called.
func (m *MockCatalogService) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, call := range m.Calls {
		if call.Method == method {
			count++
		}
	}
	return count
}

// WasCalled returns true if the method was called at least once.
func (m *MockCatalogService) WasCalled(method string) bool {
	return m.CallCount(method) > 0
}

// LastCallArgs returns the arguments from the last call to the specified method.
func (m *MockCatalogService) LastCallArgs(method string) []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.Calls) - 1; i >= 0; i-- {
		if m.Calls[i].Method == method {
			return m.Calls[i].Args
		}
	}
	return nil
}
