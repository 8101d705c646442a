// Package mirror copies persisted appointments to a spreadsheet webhook.
// Delivery is best effort; callers treat every error as a warning.
package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/meinhoongagan/wheel-refurb/models"
)

// ErrNetwork marks failures where no HTTP response was received.
var ErrNetwork = errors.New("sheet webhook unreachable")

// StatusError is returned for non-2xx webhook responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("sheet webhook returned %d: %s", e.StatusCode, e.Body)
}

// Syncer mirrors one appointment.
type Syncer interface {
	Sync(ctx context.Context, a *models.Appointment) error
}

// Row is the shape the sheet expects. Image URLs are joined into one cell.
type Row struct {
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	ImageURLs     string `json:"image_urls"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
}

func NewRow(a *models.Appointment) Row {
	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return Row{
		CustomerName:  a.CustomerName,
		CustomerPhone: a.CustomerPhone,
		ImageURLs:     strings.Join(a.ImageURLs, ", "),
		Status:        string(a.Status),
		CreatedAt:     created.UTC().Format(time.RFC3339),
	}
}

type Webhook struct {
	url    string
	client *http.Client
	log    *zap.Logger
}

// New returns nil when url is empty so callers can skip syncing entirely.
func New(url string, timeout time.Duration, log *zap.Logger) *Webhook {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: timeout},
		log:    log,
	}
}

func (w *Webhook) Sync(ctx context.Context, a *models.Appointment) error {
	payload, err := json.Marshal([]Row{NewRow(a)})
	if err != nil {
		return fmt.Errorf("failed to marshal sheet row: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create sheet request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	w.log.Info("Sheet sync successful",
		zap.String("appointment_id", a.ID),
		zap.Int("status", resp.StatusCode))
	return nil
}
