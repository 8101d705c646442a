package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/meinhoongagan/wheel-refurb/models"
)

func testAppointment() *models.Appointment {
	return &models.Appointment{
		ID:            "a1",
		CustomerName:  "Jane Doe",
		CustomerPhone: "5551234567",
		ImageURLs:     []string{"https://cdn.example/1.jpg", "https://cdn.example/2.png"},
		Status:        models.StatusPending,
		CreatedAt:     time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC),
	}
}

func TestWebhookSync(t *testing.T) {
	var rows []map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	if err := New(server.URL, time.Second, zap.NewNop()).Sync(context.Background(), testAppointment()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	if len(rows) != 1 {
		t.Fatalf("expected a single-element array, got %d rows", len(rows))
	}
	want := map[string]string{
		"customer_name":  "Jane Doe",
		"customer_phone": "5551234567",
		"image_urls":     "https://cdn.example/1.jpg, https://cdn.example/2.png",
		"status":         "Pending",
		"created_at":     "2026-03-04T10:30:00Z",
	}
	for k, v := range want {
		if rows[0][k] != v {
			t.Errorf("%s = %q, want %q", k, rows[0][k], v)
		}
	}
	if len(rows[0]) != len(want) {
		t.Errorf("unexpected extra fields: %v", rows[0])
	}
}

func TestWebhookSyncStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("rate limited"))
	}))
	defer server.Close()

	err := New(server.URL, time.Second, zap.NewNop()).Sync(context.Background(), testAppointment())
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusTooManyRequests || statusErr.Body != "rate limited" {
		t.Fatalf("unexpected status error %+v", statusErr)
	}
}

func TestWebhookSyncNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	err := New(url, time.Second, zap.NewNop()).Sync(context.Background(), testAppointment())
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
}

func TestNewWithoutURL(t *testing.T) {
	if New("  ", time.Second, zap.NewNop()) != nil {
		t.Fatal("expected nil webhook for empty url")
	}
}

func TestNewRowDefaultsCreatedAt(t *testing.T) {
	a := testAppointment()
	a.CreatedAt = time.Time{}
	row := NewRow(a)
	if _, err := time.Parse(time.RFC3339, row.CreatedAt); err != nil {
		t.Fatalf("created_at %q is not RFC3339: %v", row.CreatedAt, err)
	}
}
