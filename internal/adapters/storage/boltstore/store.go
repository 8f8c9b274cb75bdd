package boltstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/phenrril/catalog-admin/internal/domain"
	"github.com/phenrril/catalog-admin/internal/pkg/clock"
)

var (
	bucketCatalog = []byte("catalog")
	keyProducts   = []byte("admin_products_backup")
)

// Store es el LocalStore: guarda el documento del catálogo bajo una sola
// clave. No aloja imágenes; en modo local viajan embebidas en el producto.
type Store struct {
	db    *bolt.DB
	clock clock.Clock
}

func Open(path string, clk clock.Clock) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "abrir %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCatalog)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "crear bucket")
	}
	if clk == nil {
		clk = clock.NewRealClock()
	}
	return &Store{db: db, clock: clk}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ListProducts devuelve una lista vacía si nunca se guardó nada.
func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var doc domain.CatalogDocument
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketCatalog).Get(keyProducts)
		if raw == nil {
			return nil
		}
		return json.Unmarshal(raw, &doc)
	})
	if err != nil {
		return nil, errors.Wrap(err, "leer catálogo local")
	}
	if doc.Products == nil {
		return []domain.Product{}, nil
	}
	return doc.Products, nil
}

func (s *Store) SaveAllProducts(ctx context.Context, products []domain.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := json.Marshal(domain.NewCatalogDocument(products, s.clock.Now(), ""))
	if err != nil {
		return errors.Wrap(err, "codificar catálogo")
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCatalog).Put(keyProducts, b)
	})
	return errors.Wrap(err, "guardar catálogo local")
}

func (s *Store) FetchProductImages(context.Context, string) ([]domain.StoredImage, error) {
	return []domain.StoredImage{}, nil
}

// DeleteImage no hace nada: no hay blobs locales.
func (s *Store) DeleteImage(context.Context, string) error {
	return nil
}

func (s *Store) StoreImage(context.Context, string, []byte) (domain.StoredImage, error) {
	return domain.StoredImage{}, domain.ErrEmbeddedImages
}
