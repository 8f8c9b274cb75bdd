package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Notification registra una consulta recibida sobre un producto.
type Notification struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID   string    `gorm:"size:80;index" json:"productoId"`
	ProductName string    `gorm:"size:180" json:"producto"`
	Name        string    `gorm:"size:140" json:"nombre"`
	Contact     string    `gorm:"size:140" json:"contacto"`
	Message     string    `gorm:"type:text" json:"mensaje"`
	CreatedAt   time.Time `gorm:"index" json:"timestamp"`
}

type Inquiry struct {
	Name    string
	Contact string
	Message string
}

type NotificationLog interface {
	Append(ctx context.Context, n *Notification) error
	List(ctx context.Context) ([]Notification, error)
}

type ProductNotificationStats struct {
	ProductName      string    `json:"producto"`
	Count            int       `json:"count"`
	LastNotification time.Time `json:"lastNotification"`
}

type NotificationStats struct {
	Total     int                                 `json:"total"`
	Today     int                                 `json:"today"`
	ByProduct map[string]ProductNotificationStats `json:"byProduct"`
}
