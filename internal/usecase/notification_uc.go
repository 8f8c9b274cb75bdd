package usecase

import (
	"context"
	"sort"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/phenrril/catalog-admin/internal/domain"
	"github.com/phenrril/catalog-admin/internal/pkg/clock"
)

type NotificationUC struct {
	Log   domain.NotificationLog
	Clock clock.Clock
}

// Register agrega la consulta al registro de notificaciones.
func (uc *NotificationUC) Register(ctx context.Context, p domain.Product, in domain.Inquiry) (*domain.Notification, error) {
	if p.ID == "" {
		return nil, errors.New("producto sin id")
	}
	n := &domain.Notification{
		ID:          uuid.New(),
		ProductID:   p.ID,
		ProductName: p.Name,
		Name:        strings.TrimSpace(in.Name),
		Contact:     strings.TrimSpace(in.Contact),
		Message:     strings.TrimSpace(in.Message),
		CreatedAt:   uc.Clock.Now().UTC(),
	}
	if err := uc.Log.Append(ctx, n); err != nil {
		return nil, errors.Wrap(err, "registrar notificación")
	}
	return n, nil
}

// List devuelve las notificaciones de la más vieja a la más nueva.
func (uc *NotificationUC) List(ctx context.Context) ([]domain.Notification, error) {
	list, err := uc.Log.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listar notificaciones")
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}

// Stats cuenta el total, las del día (según la zona del reloj) y agrupa por
// producto.
func (uc *NotificationUC) Stats(ctx context.Context) (domain.NotificationStats, error) {
	list, err := uc.List(ctx)
	if err != nil {
		return domain.NotificationStats{}, err
	}
	now := uc.Clock.Now()
	y, m, d := now.Date()
	stats := domain.NotificationStats{Total: len(list), ByProduct: map[string]domain.ProductNotificationStats{}}
	for _, n := range list {
		ny, nm, nd := n.CreatedAt.In(now.Location()).Date()
		if ny == y && nm == m && nd == d {
			stats.Today++
		}
		key := n.ProductID
		if key == "" {
			key = "unknown"
		}
		ps, ok := stats.ByProduct[key]
		if !ok {
			ps.ProductName = n.ProductName
			if ps.ProductName == "" {
				ps.ProductName = "Desconocido"
			}
		}
		ps.Count++
		if n.CreatedAt.After(ps.LastNotification) {
			ps.LastNotification = n.CreatedAt
		}
		stats.ByProduct[key] = ps
	}
	return stats, nil
}
