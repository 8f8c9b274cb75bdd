package domain

import "context"

type Backend string

const (
	BackendRemote Backend = "remote"
	BackendLocal  Backend = "local"
)

// StoreResult acompaña cada operación del gateway: de qué backend salió el
// dato y si es autoritativo.
type StoreResult struct {
	Backend  Backend `json:"backend"`
	Degraded bool    `json:"degraded"`
}

// CatalogBackend es el contrato común de RemoteStore y LocalStore.
type CatalogBackend interface {
	ListProducts(ctx context.Context) ([]Product, error)
	SaveAllProducts(ctx context.Context, products []Product) error
	FetchProductImages(ctx context.Context, productID string) ([]StoredImage, error)
	DeleteImage(ctx context.Context, ref string) error
	StoreImage(ctx context.Context, filename string, data []byte) (StoredImage, error)
}
