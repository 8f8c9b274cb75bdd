package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config se carga de variables CATALOG_* (y .env vía godotenv en main) o de
// config.yaml.
type Config struct {
	Addr              string        `env:"ADDR" default:":8080" usage:"dirección HTTP"`
	LocalDBPath       string        `env:"LOCAL_DB_PATH" default:"data/catalog.db" usage:"archivo bbolt del almacenamiento local"`
	DatabaseURL       string        `env:"DATABASE_URL" usage:"PostgreSQL para notificaciones (opcional)"`
	NotificationsBook string        `env:"NOTIFICATIONS_BOOK" default:"data/notificaciones.xlsx" usage:"planilla de notificaciones si no hay base"`
	DemoCatalog       bool          `env:"DEMO_CATALOG" default:"false" usage:"sembrar productos de ejemplo si el catálogo está vacío"`
	DeleteWorkers     int           `env:"DELETE_WORKERS" default:"10" usage:"workers para borrar imágenes remotas"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" default:"10s"`
	Drive             DriveConfig   `env:"DRIVE"`
	Admin             AdminConfig   `env:"ADMIN"`
	Log               LogConfig     `env:"LOG"`
}

type DriveConfig struct {
	Enabled         bool          `env:"ENABLED" default:"true"`
	CredentialsFile string        `env:"CREDENTIALS_FILE" usage:"JSON de la cuenta de servicio"`
	SharedFolder    string        `env:"SHARED_FOLDER" default:"snoopy"`
	CatalogFile     string        `env:"CATALOG_FILE" default:"products.json"`
	ImagesFolder    string        `env:"IMAGES_FOLDER" default:"productos"`
	ProbeTimeout    time.Duration `env:"PROBE_TIMEOUT" default:"10s"`
}

type AdminConfig struct {
	User       string        `env:"USER" default:"admin"`
	Pass       string        `env:"PASS"`
	Secret     string        `env:"SECRET" usage:"clave HS256 de las sesiones"`
	SessionTTL time.Duration `env:"SESSION_TTL" default:"24h"`
}

type LogConfig struct {
	Level string `env:"LEVEL" default:"info"`
	File  string `env:"FILE" usage:"archivo rotado con lumberjack (opcional)"`
}

func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix:        "CATALOG",
		SkipFlags:        true,
		AllowUnknownEnvs: true,
		Files:            []string{"config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "cargar configuración")
	}
	cfg.applyPlatformDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == ":8080" {
		c.Addr = ":" + port
	}
}

func (c *Config) validate() error {
	if c.Admin.Pass == "" {
		return errors.New("falta CATALOG_ADMIN_PASS")
	}
	if c.Admin.SessionTTL <= 0 {
		return errors.New("CATALOG_ADMIN_SESSION_TTL debe ser positivo")
	}
	return nil
}
