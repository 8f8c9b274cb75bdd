package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/phenrril/catalog-admin/internal/domain"
)

// NotificationRepo guarda las consultas recibidas en la tabla notifications.
type NotificationRepo struct{ db *gorm.DB }

func NewNotificationRepo(db *gorm.DB) *NotificationRepo { return &NotificationRepo{db: db} }

func (r *NotificationRepo) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&domain.Notification{}); err != nil {
		return errors.Wrap(err, "migrar notifications")
	}
	_ = r.db.WithContext(ctx).Exec("CREATE INDEX IF NOT EXISTS idx_notifications_product_created ON notifications(product_id, created_at)").Error
	return nil
}

func (r *NotificationRepo) Append(ctx context.Context, n *domain.Notification) error {
	if n.ProductID == "" {
		return errors.New("notificación sin producto")
	}
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *NotificationRepo) List(ctx context.Context) ([]domain.Notification, error) {
	var list []domain.Notification
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
