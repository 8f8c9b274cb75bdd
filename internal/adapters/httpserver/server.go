package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/rs/zerolog/log"

	"github.com/phenrril/catalog-admin/internal/domain"
	"github.com/phenrril/catalog-admin/internal/usecase"
)

// StorageStatus informa el backend activo del gateway.
type StorageStatus interface {
	Mode() domain.Backend
}

type Options struct {
	Products      *usecase.ProductUC
	Notifications *usecase.NotificationUC
	Storage       StorageStatus
	Admin         AdminConfig
	// MaxUploadBytes limita el cuerpo de las requests multipart.
	MaxUploadBytes int64
}

type Server struct {
	mux           *http.ServeMux
	products      *usecase.ProductUC
	notifications *usecase.NotificationUC
	storage       StorageStatus
	admin         AdminConfig
	maxUpload     int64
}

func New(opts Options) http.Handler {
	s := &Server{
		mux:           http.NewServeMux(),
		products:      opts.Products,
		notifications: opts.Notifications,
		storage:       opts.Storage,
		admin:         opts.Admin,
		maxUpload:     opts.MaxUploadBytes,
	}
	if s.admin.TTL <= 0 {
		s.admin.TTL = 24 * time.Hour
	}
	if s.maxUpload <= 0 {
		s.maxUpload = (domain.MaxImagesPerProduct + 1) * (5 << 20)
	}
	s.routes()
	return Chain(s.mux,
		SecurityHeaders,
		Recovery,
		Logging,
		RequestID,
	)
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /admin/auth", s.handleAdminAuth)
	s.mux.HandleFunc("POST /admin/logout", s.handleAdminLogout)

	s.mux.HandleFunc("GET /api/status", s.requireAdmin(s.apiStatus))
	s.mux.HandleFunc("GET /api/products", s.requireAdmin(s.apiListProducts))
	s.mux.HandleFunc("POST /api/products", s.requireAdmin(s.apiCreateProduct))
	s.mux.HandleFunc("GET /api/products/{id}", s.requireAdmin(s.apiGetProduct))
	s.mux.HandleFunc("PUT /api/products/{id}", s.requireAdmin(s.apiUpdateProduct))
	s.mux.HandleFunc("DELETE /api/products/{id}", s.requireAdmin(s.apiDeleteProduct))
	s.mux.HandleFunc("GET /api/products/{id}/images", s.requireAdmin(s.apiProductImages))
	s.mux.HandleFunc("GET /api/categories", s.requireAdmin(s.apiCategories))
	s.mux.HandleFunc("GET /api/notifications", s.requireAdmin(s.apiNotifications))
	s.mux.HandleFunc("GET /api/notifications/stats", s.requireAdmin(s.apiNotificationStats))

	s.mux.HandleFunc("GET /admin/export/products.xlsx", s.requireAdmin(s.handleExportProducts))
	s.mux.HandleFunc("GET /admin/export/notifications.xlsx", s.requireAdmin(s.handleExportNotifications))

	// pública: la usa el catálogo para el botón de consulta
	s.mux.HandleFunc("POST /api/products/{id}/inquiries", s.apiInquiry)
}

func (s *Server) apiStatus(w http.ResponseWriter, r *http.Request) {
	mode := domain.BackendLocal
	if s.storage != nil {
		mode = s.storage.Mode()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"backend":   mode,
		"degraded":  mode != domain.BackendRemote,
		"productos": s.products.Count(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"message": msg})
}

// writeError traduce los errores del dominio a un código y un mensaje
// legible para el panel.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *domain.ValidationError
		ierr *domain.ImageError
		perr *domain.PersistenceError
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Faltan datos o hay datos inválidos", "campos": verr.Fields})
	case errors.Is(err, domain.ErrImageLimitExceeded):
		writeMessage(w, http.StatusBadRequest, "Máximo 5 imágenes por producto")
	case errors.As(err, &ierr):
		writeMessage(w, http.StatusBadRequest, ierr.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Producto no encontrado")
	case errors.Is(err, domain.ErrSaveInProgress):
		writeMessage(w, http.StatusConflict, "Ya hay un guardado en curso, esperá a que termine")
	case errors.As(err, &perr):
		log.Error().Err(err).Str("request_id", RequestIDFrom(r.Context())).Msg("persistencia")
		writeMessage(w, http.StatusServiceUnavailable, "No se pudo guardar: Drive y el almacenamiento local fallaron")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeMessage(w, http.StatusRequestTimeout, "La operación se canceló")
	default:
		log.Error().Err(err).Str("request_id", RequestIDFrom(r.Context())).Msg("error no esperado")
		writeMessage(w, http.StatusInternalServerError, "Error interno")
	}
}
