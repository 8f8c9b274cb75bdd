package app

import (
	"context"
	"crypto/rand"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
	"github.com/rs/zerolog/log"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/phenrril/catalog-admin/internal/adapters/httpserver"
	"github.com/phenrril/catalog-admin/internal/adapters/imaging"
	"github.com/phenrril/catalog-admin/internal/adapters/repo/postgres"
	"github.com/phenrril/catalog-admin/internal/adapters/sheets"
	"github.com/phenrril/catalog-admin/internal/adapters/storage"
	"github.com/phenrril/catalog-admin/internal/adapters/storage/boltstore"
	"github.com/phenrril/catalog-admin/internal/adapters/storage/drivestore"
	"github.com/phenrril/catalog-admin/internal/domain"
	"github.com/phenrril/catalog-admin/internal/pkg/clock"
	"github.com/phenrril/catalog-admin/internal/usecase"
)

type App struct {
	cfg           *Config
	local         *boltstore.Store
	gateway       *storage.Gateway
	products      *usecase.ProductUC
	notifications *usecase.NotificationUC
	secret        []byte
}

func NewApp(ctx context.Context, cfg *Config) (*App, error) {
	clk := clock.NewRealClock()

	secret := []byte(cfg.Admin.Secret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, errors.Wrap(err, "generar secreto de sesión")
		}
		log.Warn().Msg("CATALOG_ADMIN_SECRET vacío: las sesiones no sobreviven a un reinicio")
	}

	if dir := filepath.Dir(cfg.LocalDBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "crear directorio de datos")
		}
	}
	local, err := boltstore.Open(cfg.LocalDBPath, clk)
	if err != nil {
		return nil, err
	}

	remote := openDrive(ctx, cfg.Drive, clk)
	gw, err := storage.NewGateway(remote, local, cfg.DeleteWorkers)
	if err != nil {
		_ = local.Close()
		return nil, err
	}
	probeCtx, cancel := context.WithTimeout(ctx, cfg.Drive.ProbeTimeout)
	mode := gw.Probe(probeCtx)
	cancel()
	log.Info().Str("backend", string(mode)).Msg("almacenamiento listo")

	products := usecase.NewProductUC(gw, imaging.NewProcessor(), clk)
	products.DemoCatalog = cfg.DemoCatalog
	if _, err := products.Load(ctx); err != nil {
		gw.Close()
		_ = local.Close()
		return nil, errors.Wrap(err, "cargar catálogo")
	}

	notifLog, err := openNotificationLog(ctx, cfg)
	if err != nil {
		gw.Close()
		_ = local.Close()
		return nil, err
	}

	return &App{
		cfg:           cfg,
		local:         local,
		gateway:       gw,
		products:      products,
		notifications: &usecase.NotificationUC{Log: notifLog, Clock: clk},
		secret:        secret,
	}, nil
}

// openDrive devuelve nil cuando Drive no está configurado o no se pudo crear
// el cliente; el gateway queda entonces en modo local.
func openDrive(ctx context.Context, cfg DriveConfig, clk clock.Clock) domain.CatalogBackend {
	if !cfg.Enabled {
		return nil
	}
	var creds []byte
	if cfg.CredentialsFile != "" {
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			log.Warn().Err(err).Str("file", cfg.CredentialsFile).Msg("no se pudieron leer las credenciales de drive")
			return nil
		}
		creds = b
	}
	store, err := drivestore.New(ctx, creds, drivestore.Config{
		SharedFolder: cfg.SharedFolder,
		CatalogFile:  cfg.CatalogFile,
		ImagesFolder: cfg.ImagesFolder,
	}, clk)
	if err != nil {
		log.Warn().Err(err).Msg("drive no disponible")
		return nil
	}
	return store
}

func openNotificationLog(ctx context.Context, cfg *Config) (domain.NotificationLog, error) {
	if cfg.DatabaseURL == "" {
		if dir := filepath.Dir(cfg.NotificationsBook); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errors.Wrap(err, "crear directorio de notificaciones")
			}
		}
		return sheets.NewNotificationBook(cfg.NotificationsBook), nil
	}
	db, err := gorm.Open(pgdriver.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "conectar a la base")
	}
	repo := postgres.NewNotificationRepo(db)
	if err := repo.Migrate(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

func (a *App) HTTPHandler() http.Handler {
	return httpserver.New(httpserver.Options{
		Products:      a.products,
		Notifications: a.notifications,
		Storage:       a.gateway,
		Admin: httpserver.AdminConfig{
			User:   a.cfg.Admin.User,
			Pass:   a.cfg.Admin.Pass,
			Secret: a.secret,
			TTL:    a.cfg.Admin.SessionTTL,
		},
	})
}

// Close espera los borrados pendientes antes de cerrar el almacenamiento local.
func (a *App) Close() error {
	a.gateway.Close()
	return a.local.Close()
}
