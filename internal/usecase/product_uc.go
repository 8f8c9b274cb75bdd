package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/phenrril/catalog-admin/internal/domain"
	"github.com/phenrril/catalog-admin/internal/pkg/clock"
)

// CatalogStore es lo que ProductUC necesita del gateway de persistencia.
type CatalogStore interface {
	ListProducts(ctx context.Context) ([]domain.Product, domain.StoreResult, error)
	SaveAllProducts(ctx context.Context, products []domain.Product) (domain.StoreResult, error)
	FetchProductImages(ctx context.Context, productID string) ([]domain.StoredImage, domain.StoreResult, error)
	StoreImage(ctx context.Context, filename string, data []byte) (*domain.StoredImage, domain.StoreResult)
	DeleteImagesAsync(refs []string)
}

type ImageProcessor interface {
	Process(ctx context.Context, f domain.RawFile) (domain.UploadedImage, error)
}

// SaveReport es el resultado de toda mutación del catálogo.
type SaveReport struct {
	Product  domain.Product       `json:"producto"`
	Degraded bool                 `json:"degraded"`
	Rejected []*domain.ImageError `json:"-"`
}

type LoadReport struct {
	Count    int  `json:"count"`
	Degraded bool `json:"degraded"`
	Demo     bool `json:"demo"`
}

// ProductUC es el dueño exclusivo de la colección en memoria. Las mutaciones
// trabajan sobre una copia y sólo la publican después de que el gateway
// confirmó la escritura.
type ProductUC struct {
	store  CatalogStore
	images ImageProcessor
	clock  clock.Clock

	// DemoCatalog siembra productos de ejemplo si el backend está vacío.
	DemoCatalog bool
	NewID       func(now time.Time) string

	// saving admite una sola escritura del documento; adminBusy marca que la
	// tiene (o la espera) un submit del admin.
	saving    *semaphore.Weighted
	adminBusy atomic.Bool
	mu        sync.RWMutex
	products  []domain.Product
}

func NewProductUC(store CatalogStore, images ImageProcessor, clk clock.Clock) *ProductUC {
	if clk == nil {
		clk = clock.NewRealClock()
	}
	return &ProductUC{
		store:  store,
		images: images,
		clock:  clk,
		NewID:  NewProductID,
		saving: semaphore.NewWeighted(1),
	}
}

// NewProductID genera ids del estilo prod_{millis}_{9 alfanuméricos}.
func NewProductID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("prod_%d_%s", now.UnixMilli(), suffix)
}

func (uc *ProductUC) Load(ctx context.Context) (LoadReport, error) {
	if err := uc.saving.Acquire(ctx, 1); err != nil {
		return LoadReport{}, err
	}
	defer uc.saving.Release(1)

	list, res, err := uc.store.ListProducts(ctx)
	if err != nil {
		return LoadReport{}, err
	}
	rep := LoadReport{Degraded: res.Degraded}
	if len(list) == 0 && uc.DemoCatalog {
		list = SampleProducts(uc.clock.Now())
		rep.Demo = true
	}
	uc.commit(list)
	rep.Count = len(list)
	log.Info().Int("productos", rep.Count).Str("backend", string(res.Backend)).Bool("degraded", res.Degraded).Msg("catálogo cargado")
	return rep, nil
}

func (uc *ProductUC) List() []domain.Product {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	out := make([]domain.Product, 0, len(uc.products))
	for _, p := range uc.products {
		out = append(out, p.Clone())
	}
	return out
}

func (uc *ProductUC) Get(id string) (domain.Product, error) {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	if i := indexOf(uc.products, id); i >= 0 {
		return uc.products[i].Clone(), nil
	}
	return domain.Product{}, domain.ErrNotFound
}

func (uc *ProductUC) Count() int {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return len(uc.products)
}

// Categories devuelve las categorías distintas en orden alfabético.
func (uc *ProductUC) Categories() []string {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	seen := map[string]struct{}{}
	cats := []string{}
	for _, p := range uc.products {
		if p.Category == "" {
			continue
		}
		if _, ok := seen[p.Category]; !ok {
			seen[p.Category] = struct{}{}
			cats = append(cats, p.Category)
		}
	}
	sort.Strings(cats)
	return cats
}

func (uc *ProductUC) Create(ctx context.Context, d domain.ProductDraft, uploads []domain.RawFile) (SaveReport, error) {
	done, err := uc.beginAdminSave(ctx)
	if err != nil {
		return SaveReport{}, err
	}
	defer done()

	priceMin, priceMax, err := ValidateDraft(d, len(uploads))
	if err != nil {
		return SaveReport{}, err
	}
	if err := CheckImageLimit(0, len(uploads)); err != nil {
		return SaveReport{}, err
	}

	now := uc.clock.Now().UTC()
	id := uc.NewID(now)
	processed, rejected, err := uc.processAll(ctx, uploads)
	if err != nil {
		return SaveReport{Rejected: rejected}, err
	}
	images, err := Reconcile(nil, nil, processed, id)
	if err != nil {
		return SaveReport{Rejected: rejected}, err
	}
	refs, imgDegraded := uc.storeUploads(ctx, id, images, processed)

	sold := false
	if d.Sold != nil {
		sold = *d.Sold
	}
	p := domain.Product{
		ID:             id,
		Name:           strings.TrimSpace(d.Name),
		Category:       d.FinalCategory(),
		Description:    strings.TrimSpace(d.Description),
		PriceMin:       priceMin,
		PriceMax:       priceMax,
		Specifications: domain.CleanSpecifications(d.Specifications),
		Sold:           sold,
		PrincipalImage: images[0].URL,
		Images:         images,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	next := append(uc.snapshot(), p)
	res, err := uc.store.SaveAllProducts(ctx, next)
	if err != nil {
		uc.store.DeleteImagesAsync(refs)
		return SaveReport{Rejected: rejected}, err
	}
	uc.commit(next)
	log.Info().Str("id", id).Str("nombre", p.Name).Int("imagenes", len(images)).Bool("degraded", res.Degraded).Msg("producto creado")
	return SaveReport{Product: p.Clone(), Degraded: res.Degraded || imgDegraded, Rejected: rejected}, nil
}

// Update reemplaza los campos mutables del producto; id, fecha de creación y
// contador de consultas se preservan.
func (uc *ProductUC) Update(ctx context.Context, id string, d domain.ProductDraft, uploads []domain.RawFile, keptImageIDs []string) (SaveReport, error) {
	done, err := uc.beginAdminSave(ctx)
	if err != nil {
		return SaveReport{}, err
	}
	defer done()

	current, err := uc.Get(id)
	if err != nil {
		return SaveReport{}, err
	}
	survivors := Survivors(current.Images, keptImageIDs)
	sources := len(survivors) + len(uploads)
	if sources == 0 && KeepsPlaceholder(current.Images, keptImageIDs) {
		sources = 1
	}
	priceMin, priceMax, err := ValidateDraft(d, sources)
	if err != nil {
		return SaveReport{}, err
	}
	if err := CheckImageLimit(len(survivors), len(uploads)); err != nil {
		return SaveReport{}, err
	}

	processed, rejected, err := uc.processAll(ctx, uploads)
	if err != nil {
		return SaveReport{Rejected: rejected}, err
	}
	images, err := Reconcile(current.Images, keptImageIDs, processed, id)
	if err != nil {
		return SaveReport{Rejected: rejected}, err
	}
	refs, imgDegraded := uc.storeUploads(ctx, id, images, processed)

	p := current.Clone()
	p.Name = strings.TrimSpace(d.Name)
	p.Category = d.FinalCategory()
	p.Description = strings.TrimSpace(d.Description)
	p.PriceMin = priceMin
	p.PriceMax = priceMax
	p.Specifications = domain.CleanSpecifications(d.Specifications)
	if d.Sold != nil {
		p.Sold = *d.Sold
	}
	p.Images = images
	p.PrincipalImage = images[0].URL
	p.UpdatedAt = uc.clock.Now().UTC()

	next := uc.snapshot()
	next[indexOf(next, id)] = p
	res, err := uc.store.SaveAllProducts(ctx, next)
	if err != nil {
		uc.store.DeleteImagesAsync(refs)
		return SaveReport{Rejected: rejected}, err
	}
	uc.commit(next)
	uc.store.DeleteImagesAsync(droppedRefs(current.Images, images))
	log.Info().Str("id", id).Int("imagenes", len(images)).Bool("degraded", res.Degraded).Msg("producto actualizado")
	return SaveReport{Product: p.Clone(), Degraded: res.Degraded || imgDegraded, Rejected: rejected}, nil
}

// Delete persiste el catálogo sin el producto y recién entonces pide, sin
// esperar, el borrado de sus blobs remotos.
func (uc *ProductUC) Delete(ctx context.Context, id string) (SaveReport, error) {
	done, err := uc.beginAdminSave(ctx)
	if err != nil {
		return SaveReport{}, err
	}
	defer done()

	current, err := uc.Get(id)
	if err != nil {
		return SaveReport{}, err
	}
	snap := uc.snapshot()
	i := indexOf(snap, id)
	next := append(snap[:i:i], snap[i+1:]...)

	res, err := uc.store.SaveAllProducts(ctx, next)
	if err != nil {
		return SaveReport{}, err
	}
	uc.commit(next)
	uc.store.DeleteImagesAsync(current.ImageRefs())
	log.Info().Str("id", id).Bool("degraded", res.Degraded).Msg("producto eliminado")
	return SaveReport{Product: current, Degraded: res.Degraded}, nil
}

// RecordInquiry suma una consulta al producto. Espera su turno en lugar de
// rechazarse si hay otro guardado en curso.
func (uc *ProductUC) RecordInquiry(ctx context.Context, id string) (SaveReport, error) {
	if err := uc.saving.Acquire(ctx, 1); err != nil {
		return SaveReport{}, err
	}
	defer uc.saving.Release(1)

	current, err := uc.Get(id)
	if err != nil {
		return SaveReport{}, err
	}
	p := current.Clone()
	p.InquiryCount++
	p.UpdatedAt = uc.clock.Now().UTC()

	next := uc.snapshot()
	next[indexOf(next, id)] = p
	res, err := uc.store.SaveAllProducts(ctx, next)
	if err != nil {
		return SaveReport{}, err
	}
	uc.commit(next)
	return SaveReport{Product: p.Clone(), Degraded: res.Degraded}, nil
}

// FetchImages lista los blobs que el backend tiene para el producto.
func (uc *ProductUC) FetchImages(ctx context.Context, id string) ([]domain.StoredImage, domain.StoreResult, error) {
	if _, err := uc.Get(id); err != nil {
		return nil, domain.StoreResult{}, err
	}
	return uc.store.FetchProductImages(ctx, id)
}

// beginAdminSave rechaza un segundo submit del admin mientras otro está en
// curso. Una consulta pública que tiene el turno no cuenta: el admin la
// espera en lugar de recibir ErrSaveInProgress.
func (uc *ProductUC) beginAdminSave(ctx context.Context) (func(), error) {
	if !uc.adminBusy.CompareAndSwap(false, true) {
		return nil, domain.ErrSaveInProgress
	}
	if err := uc.saving.Acquire(ctx, 1); err != nil {
		uc.adminBusy.Store(false)
		return nil, err
	}
	return func() {
		uc.saving.Release(1)
		uc.adminBusy.Store(false)
	}, nil
}

// processAll procesa los archivos de a uno. Un archivo inválido no corta el
// lote; sólo la cancelación del contexto lo hace.
func (uc *ProductUC) processAll(ctx context.Context, uploads []domain.RawFile) ([]domain.UploadedImage, []*domain.ImageError, error) {
	var (
		out      []domain.UploadedImage
		rejected []*domain.ImageError
	)
	for _, f := range uploads {
		img, err := uc.images.Process(ctx, f)
		if err == nil {
			out = append(out, img)
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, rejected, ctxErr
		}
		var imgErr *domain.ImageError
		if !errors.As(err, &imgErr) {
			imgErr = &domain.ImageError{Filename: f.Filename, Kind: err}
		}
		log.Warn().Err(err).Str("file", f.Filename).Msg("imagen rechazada")
		rejected = append(rejected, imgErr)
	}
	return out, rejected, nil
}

// storeUploads sube los blobs de las imágenes nuevas, que Reconcile deja
// siempre al principio de la lista. Si el backend no los aloja, la imagen
// queda embebida con su preview.
func (uc *ProductUC) storeUploads(ctx context.Context, productID string, images []domain.ProductImage, processed []domain.UploadedImage) ([]string, bool) {
	var (
		refs     []string
		degraded bool
	)
	for i, up := range processed {
		stored, res := uc.store.StoreImage(ctx, ImageFilename(productID, images[i].Order), up.Data)
		if res.Degraded {
			degraded = true
		}
		if stored == nil {
			continue
		}
		images[i].URL = stored.URL
		images[i].Ref = stored.Ref
		refs = append(refs, stored.Ref)
	}
	return refs, degraded
}

func (uc *ProductUC) snapshot() []domain.Product {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	out := make([]domain.Product, len(uc.products), len(uc.products)+1)
	copy(out, uc.products)
	return out
}

func (uc *ProductUC) commit(next []domain.Product) {
	uc.mu.Lock()
	uc.products = next
	uc.mu.Unlock()
}

func indexOf(list []domain.Product, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

// droppedRefs devuelve las referencias que estaban antes y ya no están.
func droppedRefs(before, after []domain.ProductImage) []string {
	keep := map[string]struct{}{}
	for _, im := range after {
		if im.Ref != "" {
			keep[im.Ref] = struct{}{}
		}
	}
	var out []string
	for _, im := range before {
		if im.Ref == "" {
			continue
		}
		if _, ok := keep[im.Ref]; !ok {
			out = append(out, im.Ref)
		}
	}
	return out
}
