package models

import (
	"errors"
	"testing"
)

func TestBeforeCreateDefaults(t *testing.T) {
	a := &Appointment{
		CustomerName:  "Jane Doe",
		CustomerPhone: "5551234567",
		ImageURLs:     []string{"https://cdn.example/wheel.jpg"},
	}
	if err := a.BeforeCreate(nil); err != nil {
		t.Fatalf("BeforeCreate returned error: %v", err)
	}
	if a.ID == "" {
		t.Error("expected ID to be assigned")
	}
	if a.Status != StatusPending {
		t.Errorf("expected status %q, got %q", StatusPending, a.Status)
	}
}

func TestBeforeCreateKeepsExplicitValues(t *testing.T) {
	a := &Appointment{ID: "fixed", Status: StatusDone, ImageURLs: []string{"u"}}
	if err := a.BeforeCreate(nil); err != nil {
		t.Fatalf("BeforeCreate returned error: %v", err)
	}
	if a.ID != "fixed" || a.Status != StatusDone {
		t.Errorf("explicit values overwritten: %+v", a)
	}
}

func TestBeforeCreateRejectsEmptyImages(t *testing.T) {
	a := &Appointment{CustomerName: "x", CustomerPhone: "y"}
	if err := a.BeforeCreate(nil); !errors.Is(err, ErrNoImages) {
		t.Fatalf("expected ErrNoImages, got %v", err)
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []AppointmentStatus{StatusPending, StatusAccepted, StatusRejected, StatusDone} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if AppointmentStatus("pending").Valid() {
		t.Error("status values are case sensitive")
	}
}
