package store

import (
	"context"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/meinhoongagan/wheel-refurb/models"
)

// Records is the gorm-backed appointments table.
type Records struct {
	db *gorm.DB
}

func NewRecords(db *gorm.DB) *Records {
	return &Records{db: db}
}

func (r *Records) Insert(ctx context.Context, a NewAppointment) (*models.Appointment, error) {
	row := models.Appointment{
		CustomerName:  a.CustomerName,
		CustomerPhone: a.CustomerPhone,
		ImageURLs:     pq.StringArray(a.ImageURLs),
		Status:        models.StatusPending,
		AdminNotes:    "",
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// ListRecent returns the newest appointments first.
func (r *Records) ListRecent(ctx context.Context, limit int) ([]models.Appointment, error) {
	var rows []models.Appointment
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// ListPending returns Pending appointments created after since, oldest first.
func (r *Records) ListPending(ctx context.Context, since time.Time) ([]models.Appointment, error) {
	var rows []models.Appointment
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at > ?", models.StatusPending, since).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}
