// Package store wraps the hosted object storage and the appointments table.
//
// The only local logic is object key generation and translating backend
// failures into ErrUpload / ErrInsert so callers can tell the phases apart.
package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meinhoongagan/wheel-refurb/models"
)

var (
	ErrUpload = errors.New("object upload failed")
	ErrInsert = errors.New("appointment insert failed")
)

// ObjectStore stores photo bytes and returns a publicly resolvable URL.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// RecordStore persists appointments.
type RecordStore interface {
	Insert(ctx context.Context, a NewAppointment) (*models.Appointment, error)
	ListRecent(ctx context.Context, limit int) ([]models.Appointment, error)
	ListPending(ctx context.Context, since time.Time) ([]models.Appointment, error)
}

// NewAppointment holds the fields supplied at creation; everything else is
// assigned by the backend.
type NewAppointment struct {
	CustomerName  string
	CustomerPhone string
	ImageURLs     []string
}

type Client struct {
	objects ObjectStore
	records RecordStore
}

func NewClient(objects ObjectStore, records RecordStore) *Client {
	return &Client{objects: objects, records: records}
}

func (c *Client) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	url, err := c.objects.Put(ctx, key, data, contentType)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrUpload, key, err)
	}
	return url, nil
}

// Remove deletes an uploaded object; used to clean up after a failed attempt.
func (c *Client) Remove(ctx context.Context, key string) error {
	return c.objects.Delete(ctx, key)
}

// Insert stores a Pending appointment with empty admin notes.
func (c *Client) Insert(ctx context.Context, a NewAppointment) (*models.Appointment, error) {
	if len(a.ImageURLs) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrInsert, models.ErrNoImages)
	}
	row, err := c.records.Insert(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInsert, err)
	}
	return row, nil
}

// NewObjectKey returns "<uuid>.<ext>". The extension comes from the original
// filename, or from the content type when the name has none.
func NewObjectKey(filename, contentType string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		switch contentType {
		case "image/png":
			ext = "png"
		default:
			ext = "jpg"
		}
	}
	return uuid.NewString() + "." + ext
}
