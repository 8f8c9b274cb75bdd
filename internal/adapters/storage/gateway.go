package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog/log"

	"github.com/phenrril/catalog-admin/internal/domain"
)

// Prober lo implementa un backend que necesita prepararse antes de usarse
// (p. ej. resolver la carpeta compartida).
type Prober interface {
	Probe(ctx context.Context) error
}

// Gateway elige entre RemoteStore y LocalStore. El modo se fija una sola vez
// con Probe; después, cada falla remota cae a LocalStore para esa operación.
type Gateway struct {
	remote domain.CatalogBackend
	local  domain.CatalogBackend

	probeOnce sync.Once
	useRemote atomic.Bool

	pool          *ants.Pool
	pending       sync.WaitGroup
	DeleteTimeout time.Duration
}

// NewGateway acepta remote nil: en ese caso opera sólo en modo local.
func NewGateway(remote, local domain.CatalogBackend, workers int) (*Gateway, error) {
	if local == nil {
		return nil, errors.New("gateway: backend local requerido")
	}
	if workers <= 0 {
		workers = 2 * domain.MaxImagesPerProduct
	}
	pool, err := ants.NewPool(workers, ants.WithExpiryDuration(time.Minute))
	if err != nil {
		return nil, errors.Wrap(err, "crear pool de borrado")
	}
	return &Gateway{remote: remote, local: local, pool: pool, DeleteTimeout: 30 * time.Second}, nil
}

// Probe comprueba una única vez si el backend remoto está listo.
func (g *Gateway) Probe(ctx context.Context) domain.Backend {
	g.probeOnce.Do(func() {
		if g.remote == nil {
			log.Info().Msg("almacenamiento remoto no configurado, modo local")
			return
		}
		if p, ok := g.remote.(Prober); ok {
			if err := p.Probe(ctx); err != nil {
				log.Warn().Err(err).Msg("almacenamiento remoto no disponible, modo local")
				return
			}
		}
		g.useRemote.Store(true)
		log.Info().Msg("almacenamiento remoto listo")
	})
	return g.Mode()
}

func (g *Gateway) Mode() domain.Backend {
	if g.useRemote.Load() {
		return domain.BackendRemote
	}
	return domain.BackendLocal
}

var (
	remoteResult = domain.StoreResult{Backend: domain.BackendRemote}
	localResult  = domain.StoreResult{Backend: domain.BackendLocal, Degraded: true}
)

func (g *Gateway) ListProducts(ctx context.Context) ([]domain.Product, domain.StoreResult, error) {
	if g.useRemote.Load() {
		list, err := g.remote.ListProducts(ctx)
		if err == nil {
			return list, remoteResult, nil
		}
		log.Warn().Err(err).Msg("remoto: listar productos falló, usando copia local")
	}
	list, err := g.local.ListProducts(ctx)
	if err != nil {
		return nil, domain.StoreResult{}, &domain.PersistenceError{Op: "listar", Err: err}
	}
	return list, localResult, nil
}

// SaveAllProducts sobrescribe el documento completo. Tras una escritura remota
// exitosa se refresca la copia local.
func (g *Gateway) SaveAllProducts(ctx context.Context, products []domain.Product) (domain.StoreResult, error) {
	if g.useRemote.Load() {
		err := g.remote.SaveAllProducts(ctx, products)
		if err == nil {
			if lerr := g.local.SaveAllProducts(ctx, products); lerr != nil {
				log.Warn().Err(lerr).Msg("no se pudo refrescar la copia local")
			}
			return remoteResult, nil
		}
		log.Warn().Err(err).Int("productos", len(products)).Msg("remoto: guardar falló, guardando localmente")
	}
	if err := g.local.SaveAllProducts(ctx, products); err != nil {
		log.Error().Err(err).Msg("local: guardar falló")
		return domain.StoreResult{}, &domain.PersistenceError{Op: "guardar", Err: err}
	}
	return localResult, nil
}

func (g *Gateway) FetchProductImages(ctx context.Context, productID string) ([]domain.StoredImage, domain.StoreResult, error) {
	if g.useRemote.Load() {
		list, err := g.remote.FetchProductImages(ctx, productID)
		if err == nil {
			return list, remoteResult, nil
		}
		log.Warn().Err(err).Str("product_id", productID).Msg("remoto: listar imágenes falló")
	}
	list, err := g.local.FetchProductImages(ctx, productID)
	if err != nil {
		return nil, domain.StoreResult{}, &domain.PersistenceError{Op: "imagenes", Err: err}
	}
	return list, localResult, nil
}

func (g *Gateway) DeleteImage(ctx context.Context, ref string) (domain.StoreResult, error) {
	if g.useRemote.Load() {
		err := g.remote.DeleteImage(ctx, ref)
		if err == nil {
			return remoteResult, nil
		}
		log.Warn().Err(err).Str("ref", ref).Msg("remoto: borrar imagen falló")
	}
	if err := g.local.DeleteImage(ctx, ref); err != nil {
		return domain.StoreResult{}, &domain.PersistenceError{Op: "borrar imagen", Err: err}
	}
	return localResult, nil
}

// StoreImage nunca falla: si el remoto no puede alojar el blob devuelve nil y
// la imagen sigue embebida en el producto.
func (g *Gateway) StoreImage(ctx context.Context, filename string, data []byte) (*domain.StoredImage, domain.StoreResult) {
	if g.useRemote.Load() {
		stored, err := g.remote.StoreImage(ctx, filename, data)
		if err == nil {
			return &stored, remoteResult
		}
		log.Warn().Err(err).Str("file", filename).Msg("remoto: subir imagen falló, queda embebida")
	}
	return nil, localResult
}

// DeleteImagesAsync pide el borrado de blobs remotos sin esperar ni
// reintentar. Las fallas sólo se registran.
func (g *Gateway) DeleteImagesAsync(refs []string) {
	if len(refs) == 0 || !g.useRemote.Load() {
		return
	}
	for _, ref := range refs {
		ref := ref
		g.pending.Add(1)
		err := g.pool.Submit(func() {
			defer g.pending.Done()
			ctx, cancel := context.WithTimeout(context.Background(), g.DeleteTimeout)
			defer cancel()
			if err := g.remote.DeleteImage(ctx, ref); err != nil {
				log.Warn().Err(err).Str("ref", ref).Msg("no se pudo borrar imagen remota")
				return
			}
			log.Debug().Str("ref", ref).Msg("imagen remota borrada")
		})
		if err != nil {
			g.pending.Done()
			log.Warn().Err(err).Str("ref", ref).Msg("borrado de imagen descartado")
		}
	}
}

// Close espera los borrados pendientes y libera el pool.
func (g *Gateway) Close() {
	g.pending.Wait()
	g.pool.Release()
}
