package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

type AppointmentStatus string

const (
	StatusPending  AppointmentStatus = "Pending"
	StatusAccepted AppointmentStatus = "Accepted"
	StatusRejected AppointmentStatus = "Rejected"
	StatusDone     AppointmentStatus = "Done"
)

// ErrNoImages is returned when an appointment would be stored without photos.
var ErrNoImages = errors.New("appointment requires at least one image")

// Valid reports whether s is one of the known statuses.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected, StatusDone:
		return true
	}
	return false
}

// Appointment is a refurbishment request captured from the intake form.
// Rows are only ever created here; status changes belong to the workshop's
// own tooling.
type Appointment struct {
	ID            string            `json:"id" gorm:"type:uuid;primaryKey"`
	CustomerName  string            `json:"customer_name" gorm:"not null"`
	CustomerPhone string            `json:"customer_phone" gorm:"not null"`
	ImageURLs     pq.StringArray    `json:"image_urls" gorm:"type:text[];not null"`
	Status        AppointmentStatus `json:"status" gorm:"type:text;not null;index"`
	AdminNotes    string            `json:"admin_notes" gorm:"not null;default:''"`
	CreatedAt     time.Time         `json:"created_at" gorm:"index"`
}

func (Appointment) TableName() string { return "appointments" }

func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if len(a.ImageURLs) == 0 {
		return ErrNoImages
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = StatusPending
	}
	return nil
}
