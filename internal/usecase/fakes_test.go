package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/phenrril/catalog-admin/internal/domain"
)

// fakeStore guarda en memoria y registra lo que se le pidió.
type fakeStore struct {
	mu sync.Mutex

	products   []domain.Product
	listErr    error
	saveErr    error
	degraded   bool
	hostImages bool

	saves   int
	stored  []string
	deleted []string

	// si no es nil, SaveAllProducts avisa en entered y espera release.
	entered chan struct{}
	release chan struct{}
}

func (s *fakeStore) result() domain.StoreResult {
	if s.degraded {
		return domain.StoreResult{Backend: domain.BackendLocal, Degraded: true}
	}
	return domain.StoreResult{Backend: domain.BackendRemote}
}

func (s *fakeStore) ListProducts(_ context.Context) ([]domain.Product, domain.StoreResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, domain.StoreResult{}, s.listErr
	}
	return append([]domain.Product(nil), s.products...), s.result(), nil
}

func (s *fakeStore) SaveAllProducts(_ context.Context, products []domain.Product) (domain.StoreResult, error) {
	if s.entered != nil {
		s.entered <- struct{}{}
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return domain.StoreResult{}, &domain.PersistenceError{Op: "guardar", Err: s.saveErr}
	}
	s.saves++
	s.products = append([]domain.Product(nil), products...)
	return s.result(), nil
}

func (s *fakeStore) FetchProductImages(_ context.Context, productID string) ([]domain.StoredImage, domain.StoreResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.StoredImage
	for _, name := range s.stored {
		if strings.HasPrefix(name, productID+"_") {
			out = append(out, domain.StoredImage{Ref: "ref-" + name, Filename: name})
		}
	}
	return out, s.result(), nil
}

func (s *fakeStore) StoreImage(_ context.Context, filename string, _ []byte) (*domain.StoredImage, domain.StoreResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hostImages {
		return nil, domain.StoreResult{Backend: domain.BackendLocal, Degraded: true}
	}
	s.stored = append(s.stored, filename)
	return &domain.StoredImage{
		Ref:      "ref-" + filename,
		Filename: filename,
		URL:      "https://lh3.googleusercontent.com/d/ref-" + filename,
	}, s.result()
}

func (s *fakeStore) DeleteImagesAsync(refs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, refs...)
}

func (s *fakeStore) Deleted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deleted...)
}

// fakeProcessor acepta cualquier archivo image/* y rechaza el resto.
type fakeProcessor struct{}

func (fakeProcessor) Process(ctx context.Context, f domain.RawFile) (domain.UploadedImage, error) {
	if err := ctx.Err(); err != nil {
		return domain.UploadedImage{}, err
	}
	if !strings.HasPrefix(f.ContentType, "image/") {
		return domain.UploadedImage{}, &domain.ImageError{Filename: f.Filename, Kind: domain.ErrUnsupportedType}
	}
	return domain.UploadedImage{
		Filename: f.Filename,
		Data:     f.Data,
		Width:    10,
		Height:   10,
		Preview:  "data:image/jpeg;base64," + f.Filename,
	}, nil
}

func rawImages(n int) []domain.RawFile {
	out := make([]domain.RawFile, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, domain.RawFile{
			Filename:    fmt.Sprintf("foto%d.jpg", i),
			ContentType: "image/jpeg",
			Size:        3,
			Data:        []byte{1, 2, 3},
		})
	}
	return out
}
