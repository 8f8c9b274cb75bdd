package sheets

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/phenrril/catalog-admin/internal/domain"
)

// NotificationBook es un registro de notificaciones sobre un .xlsx local, para
// cuando no hay base de datos configurada.
type NotificationBook struct {
	path string
	mu   sync.Mutex
}

func NewNotificationBook(path string) *NotificationBook {
	return &NotificationBook{path: path}
}

func (b *NotificationBook) Append(ctx context.Context, n *domain.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	list, err := b.read()
	if err != nil {
		return err
	}
	return b.write(append(list, *n))
}

func (b *NotificationBook) List(ctx context.Context) ([]domain.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.read()
}

func (b *NotificationBook) read() ([]domain.Notification, error) {
	if _, err := os.Stat(b.path); errors.Is(err, os.ErrNotExist) {
		return []domain.Notification{}, nil
	}
	f, err := excelize.OpenFile(b.path)
	if err != nil {
		return nil, errors.Wrap(err, "abrir planilla de notificaciones")
	}
	defer f.Close()
	rows, err := f.GetRows(NotificationsSheet)
	if err != nil {
		return nil, errors.Wrap(err, "leer planilla de notificaciones")
	}
	out := make([]domain.Notification, 0, len(rows))
	for i, row := range rows {
		if i == 0 {
			continue
		}
		n, ok := parseRow(row)
		if !ok {
			log.Warn().Int("fila", i+1).Str("file", b.path).Msg("fila de notificación inválida")
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func col(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func parseRow(row []string) (domain.Notification, bool) {
	id, err := uuid.Parse(col(row, 0))
	if err != nil {
		return domain.Notification{}, false
	}
	ts, err := time.Parse(time.RFC3339, col(row, 1))
	if err != nil {
		return domain.Notification{}, false
	}
	return domain.Notification{
		ID:          id,
		CreatedAt:   ts,
		ProductID:   col(row, 2),
		ProductName: col(row, 3),
		Name:        col(row, 4),
		Contact:     col(row, 5),
		Message:     col(row, 6),
	}, true
}

// write reemplaza el archivo completo vía un temporal en el mismo directorio.
func (b *NotificationBook) write(list []domain.Notification) error {
	f, err := notificationsBook(list)
	if err != nil {
		return err
	}
	defer f.Close()
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "crear directorio")
	}
	tmp, err := os.CreateTemp(dir, ".notificaciones-*.xlsx")
	if err != nil {
		return errors.Wrap(err, "crear temporal")
	}
	if _, err := f.WriteTo(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return errors.Wrap(err, "guardar planilla de notificaciones")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.Wrap(err, "guardar planilla de notificaciones")
	}
	return errors.Wrap(os.Rename(tmp.Name(), b.path), "reemplazar planilla de notificaciones")
}
