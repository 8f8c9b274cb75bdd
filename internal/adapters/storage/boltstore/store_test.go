package boltstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/phenrril/catalog-admin/internal/domain"
	"github.com/phenrril/catalog-admin/internal/pkg/clock"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.db")
	s, err := Open(path, clock.NewMockClock(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	return s, path
}

func TestStore_EmptyThenSave(t *testing.T) {
	s, path := openTemp(t)
	ctx := context.Background()

	list, err := s.ListProducts(ctx)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	products := []domain.Product{
		{ID: "p1", Name: "Mate", Images: []domain.ProductImage{{ID: "p1_01", URL: "data:image/jpeg;base64,AAA", Principal: true, Order: 1}}},
		{ID: "p2", Name: "Bombilla"},
	}
	require.NoError(t, s.SaveAllProducts(ctx, products))
	require.NoError(t, s.Close())

	// sobrevive a un reinicio
	s, err = Open(path, nil)
	require.NoError(t, err)
	defer s.Close()
	list, err = s.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "data:image/jpeg;base64,AAA", list[0].Images[0].URL)
}

func TestStore_ReadsAliasKey(t *testing.T) {
	s, _ := openTemp(t)
	defer s.Close()
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCatalog).Put(keyProducts, []byte(`{"products":[{"id":"viejo"}]}`))
	})
	require.NoError(t, err)

	list, err := s.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "viejo", list[0].ID)
}

func TestStore_CorruptDocument(t *testing.T) {
	s, _ := openTemp(t)
	defer s.Close()
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCatalog).Put(keyProducts, []byte(`{no es json`))
	})
	require.NoError(t, err)
	_, err = s.ListProducts(context.Background())
	assert.Error(t, err)
}

func TestStore_NoBlobs(t *testing.T) {
	s, _ := openTemp(t)
	defer s.Close()
	ctx := context.Background()

	_, err := s.StoreImage(ctx, "p1_01.jpg", []byte{1})
	assert.ErrorIs(t, err, domain.ErrEmbeddedImages)
	assert.NoError(t, s.DeleteImage(ctx, "x"))
	imgs, err := s.FetchProductImages(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, imgs)
}

func TestStore_CancelledContext(t *testing.T) {
	s, _ := openTemp(t)
	defer s.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.SaveAllProducts(ctx, nil), context.Canceled)
}

func TestStore_DocumentShape(t *testing.T) {
	s, _ := openTemp(t)
	defer s.Close()
	require.NoError(t, s.SaveAllProducts(context.Background(), []domain.Product{{ID: "p1"}}))

	var raw string
	err := s.db.View(func(tx *bolt.Tx) error {
		raw = string(tx.Bucket(bucketCatalog).Get(keyProducts))
		return nil
	})
	require.NoError(t, err)
	assert.Contains(t, raw, `"productos":[`)
	assert.Contains(t, raw, `"totalProducts":1`)
	assert.Contains(t, raw, `"lastUpdated":"2026-02-01T00:00:00Z"`)
	assert.NotContains(t, raw, `"version"`)
}
