package httpserver

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/phenrril/catalog-admin/internal/adapters/sheets"
	"github.com/phenrril/catalog-admin/internal/domain"
)

const xlsxMime = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) apiNotifications(w http.ResponseWriter, r *http.Request) {
	if s.notifications == nil {
		writeJSON(w, http.StatusOK, map[string]any{"notificaciones": []domain.Notification{}})
		return
	}
	list, err := s.notifications.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notificaciones": list})
}

func (s *Server) apiNotificationStats(w http.ResponseWriter, r *http.Request) {
	if s.notifications == nil {
		writeJSON(w, http.StatusOK, domain.NotificationStats{ByProduct: map[string]domain.ProductNotificationStats{}})
		return
	}
	stats, err := s.notifications.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleExportProducts(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := sheets.WriteCatalog(&buf, s.products.List()); err != nil {
		writeError(w, r, err)
		return
	}
	writeXLSX(w, "productos", buf.Bytes())
}

func (s *Server) handleExportNotifications(w http.ResponseWriter, r *http.Request) {
	var list []domain.Notification
	if s.notifications != nil {
		var err error
		if list, err = s.notifications.List(r.Context()); err != nil {
			writeError(w, r, err)
			return
		}
	}
	var buf bytes.Buffer
	if err := sheets.WriteNotifications(&buf, list); err != nil {
		writeError(w, r, err)
		return
	}
	writeXLSX(w, "notificaciones", buf.Bytes())
}

func writeXLSX(w http.ResponseWriter, name string, data []byte) {
	filename := fmt.Sprintf("%s_%s.xlsx", name, time.Now().Format("20060102"))
	w.Header().Set("Content-Type", xlsxMime)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
