package submission

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/meinhoongagan/wheel-refurb/intake"
	"github.com/meinhoongagan/wheel-refurb/mirror"
	"github.com/meinhoongagan/wheel-refurb/models"
	"github.com/meinhoongagan/wheel-refurb/store"
)

type fakePreviewer struct {
	mu       sync.Mutex
	next     int
	released []string
}

func (p *fakePreviewer) Create(*intake.CandidateImage) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next++
	return fmt.Sprintf("preview-%d", p.next)
}

func (p *fakePreviewer) Release(handle string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released = append(p.released, handle)
}

// fakeClassifier answers per filename; unknown files are wheels.
type fakeClassifier struct {
	mu       sync.Mutex
	verdicts map[string]bool
	errs     map[string]error
	calls    []string
}

func (c *fakeClassifier) Classify(ctx context.Context, img *intake.CandidateImage) (bool, error) {
	c.mu.Lock()
	c.calls = append(c.calls, img.Filename)
	c.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := c.errs[img.Filename]; err != nil {
		return false, err
	}
	if v, ok := c.verdicts[img.Filename]; ok {
		return v, nil
	}
	return true, nil
}

func (c *fakeClassifier) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

type fakeStore struct {
	mu        sync.Mutex
	uploads   []string
	removed   []string
	inserts   []store.NewAppointment
	failKeyFn func(key string) bool
	insertErr error
}

func (s *fakeStore) Upload(ctx context.Context, key string, _ []byte, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads = append(s.uploads, key)
	if s.failKeyFn != nil && s.failKeyFn(key) {
		return "", fmt.Errorf("%w: %s", store.ErrUpload, key)
	}
	return "https://cdn.example/" + key, nil
}

func (s *fakeStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, key)
	return nil
}

func (s *fakeStore) Insert(_ context.Context, a store.NewAppointment) (*models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return nil, s.insertErr
	}
	s.inserts = append(s.inserts, a)
	return &models.Appointment{
		ID:            "appt-1",
		CustomerName:  a.CustomerName,
		CustomerPhone: a.CustomerPhone,
		ImageURLs:     a.ImageURLs,
		Status:        models.StatusPending,
		CreatedAt:     time.Now(),
	}, nil
}

type fakeMirror struct {
	mu     sync.Mutex
	err    error
	synced []*models.Appointment
}

func (m *fakeMirror) Sync(_ context.Context, a *models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.synced = append(m.synced, a)
	return m.err
}

type harness struct {
	previewer  *fakePreviewer
	classifier *fakeClassifier
	store      *fakeStore
	mirror     *fakeMirror
	orch       *Orchestrator
}

func newHarness() *harness {
	h := &harness{
		previewer:  &fakePreviewer{},
		classifier: &fakeClassifier{verdicts: map[string]bool{}, errs: map[string]error{}},
		store:      &fakeStore{},
		mirror:     &fakeMirror{},
	}
	h.orch = New(h.classifier, h.store, h.mirror, zap.NewNop())
	return h
}

func (h *harness) attempt(t *testing.T, filenames ...string) *Attempt {
	t.Helper()
	a := NewAttempt(h.previewer)
	var files []intake.RawFile
	for _, name := range filenames {
		files = append(files, intake.RawFile{
			Filename:    name,
			ContentType: "image/jpeg",
			Data:        make([]byte, 50*1024),
		})
	}
	if len(files) > 0 {
		if rejected, err := a.AddImages(files); err != nil || len(rejected) != 0 {
			t.Fatalf("AddImages: rejected=%v err=%v", rejected, err)
		}
	}
	return a
}

func (h *harness) externalCalls() int {
	return h.classifier.callCount() + len(h.store.uploads) + len(h.store.inserts) + len(h.mirror.synced)
}

func TestSubmitHappyPath(t *testing.T) {
	h := newHarness()
	a := h.attempt(t, "rim.jpg")

	if err := h.orch.Submit(context.Background(), a, "Jane Doe", "5551234567"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if len(h.store.uploads) != 1 {
		t.Fatalf("expected 1 upload, got %d", len(h.store.uploads))
	}
	if len(h.store.inserts) != 1 {
		t.Fatalf("expected 1 insert, got %d", len(h.store.inserts))
	}
	ins := h.store.inserts[0]
	if len(ins.ImageURLs) != 1 || ins.ImageURLs[0] != "https://cdn.example/"+h.store.uploads[0] {
		t.Fatalf("unexpected image urls %v", ins.ImageURLs)
	}
	if len(h.mirror.synced) != 1 || h.mirror.synced[0].Status != models.StatusPending {
		t.Fatalf("expected one sync of a Pending appointment, got %v", h.mirror.synced)
	}

	view := a.View()
	if view.State != StateSuccess {
		t.Fatalf("state = %s, want success", view.State)
	}
	if view.Name != "Jane Doe" || view.Phone != "5551234567" {
		t.Fatalf("unexpected confirmation details %q / %q", view.Name, view.Phone)
	}
	if view.Message != "" {
		t.Fatalf("unexpected message %q", view.Message)
	}
	if view.Appointment == nil || view.Appointment.ID != "appt-1" {
		t.Fatalf("appointment not exposed: %+v", view.Appointment)
	}

	want := []State{StateValidating, StateClassifying, StateUploading, StatePersisting, StateSyncing, StateSuccess}
	if got := a.History(); !reflect.DeepEqual(got, want) {
		t.Fatalf("history = %v, want %v", got, want)
	}
}

func TestSubmitValidationMakesNoCalls(t *testing.T) {
	tests := []struct {
		name   string
		cust   string
		phone  string
		images []string
	}{
		{name: "empty name", cust: "", phone: "5551234567", images: []string{"a.jpg"}},
		{name: "blank name", cust: "   ", phone: "5551234567", images: []string{"a.jpg"}},
		{name: "empty phone", cust: "Jane", phone: "", images: []string{"a.jpg"}},
		{name: "no images", cust: "Jane", phone: "5551234567"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			a := h.attempt(t, tt.images...)

			err := h.orch.Submit(context.Background(), a, tt.cust, tt.phone)
			var subErr *Error
			if !errors.As(err, &subErr) || subErr.Kind != KindValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			if calls := h.externalCalls(); calls != 0 {
				t.Fatalf("expected no external calls, got %d", calls)
			}
			view := a.View()
			if view.State != StateError || view.Message != MsgMissingFields || view.Level != LevelError {
				t.Fatalf("unexpected view %+v", view)
			}
		})
	}
}

func TestSubmitOneNonWheelRejectsAll(t *testing.T) {
	h := newHarness()
	h.classifier.verdicts["cat.jpg"] = false
	a := h.attempt(t, "rim1.jpg", "cat.jpg", "rim2.jpg")

	err := h.orch.Submit(context.Background(), a, "Jane", "555")
	var subErr *Error
	if !errors.As(err, &subErr) || subErr.Kind != KindRejected {
		t.Fatalf("expected rejected error, got %v", err)
	}
	if h.classifier.callCount() != 3 {
		t.Fatalf("expected every image classified, got %d calls", h.classifier.callCount())
	}
	if len(h.store.uploads) != 0 || len(h.store.inserts) != 0 {
		t.Fatalf("nothing may be stored after a rejection: uploads=%v inserts=%v", h.store.uploads, h.store.inserts)
	}
	if view := a.View(); view.State != StateError || view.Message != MsgNotWheels {
		t.Fatalf("unexpected view %+v", view)
	}
}

func TestSubmitClassifierErrorIsGeneric(t *testing.T) {
	h := newHarness()
	h.classifier.errs["rim2.jpg"] = errors.New("503 from model")
	h.classifier.verdicts["rim1.jpg"] = false
	a := h.attempt(t, "rim1.jpg", "rim2.jpg")

	err := h.orch.Submit(context.Background(), a, "Jane", "555")
	var subErr *Error
	if !errors.As(err, &subErr) || subErr.Kind != KindClassifier {
		t.Fatalf("expected classifier error, got %v", err)
	}
	if h.classifier.callCount() != 2 {
		t.Fatalf("join must wait for every call, got %d", h.classifier.callCount())
	}
	if view := a.View(); view.Message != MsgClassifierError {
		t.Fatalf("unexpected message %q", view.Message)
	}
	if len(h.store.uploads) != 0 {
		t.Fatal("no uploads after classifier failure")
	}
}

func TestSubmitUploadFailureCleansUp(t *testing.T) {
	h := newHarness()
	var failed string
	var once sync.Once
	h.store.failKeyFn = func(key string) bool {
		fail := false
		once.Do(func() { failed, fail = key, true })
		return fail
	}
	a := h.attempt(t, "a.jpg", "b.jpg", "c.png")

	err := h.orch.Submit(context.Background(), a, "Jane", "555")
	var subErr *Error
	if !errors.As(err, &subErr) || subErr.Kind != KindUpload {
		t.Fatalf("expected upload error, got %v", err)
	}
	if !errors.Is(err, store.ErrUpload) {
		t.Fatalf("cause should be kept, got %v", err)
	}
	if len(h.store.inserts) != 0 {
		t.Fatal("no insert after upload failure")
	}
	if len(h.store.uploads) != 3 {
		t.Fatalf("expected all uploads to settle, got %d", len(h.store.uploads))
	}
	if len(h.store.removed) != 2 {
		t.Fatalf("expected the 2 successful uploads removed, got %v", h.store.removed)
	}
	for _, key := range h.store.removed {
		if key == failed {
			t.Fatalf("failed upload %s should not be removed", key)
		}
	}
	if view := a.View(); view.State != StateError || view.Message != MsgUploadError {
		t.Fatalf("unexpected view %+v", view)
	}
}

func TestSubmitPersistFailureCleansUp(t *testing.T) {
	h := newHarness()
	h.store.insertErr = errors.New("connection refused")
	a := h.attempt(t, "a.jpg", "b.jpg")

	err := h.orch.Submit(context.Background(), a, "Jane", "555")
	var subErr *Error
	if !errors.As(err, &subErr) || subErr.Kind != KindPersist {
		t.Fatalf("expected persist error, got %v", err)
	}
	if len(h.store.removed) != 2 {
		t.Fatalf("expected both uploads removed, got %v", h.store.removed)
	}
	if len(h.mirror.synced) != 0 {
		t.Fatal("nothing to sync after persist failure")
	}
	if view := a.View(); view.Message != MsgPersistError {
		t.Fatalf("unexpected message %q", view.Message)
	}
}

func TestSubmitSyncFailureIsWarning(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{name: "http status", err: &mirror.StatusError{StatusCode: 500}, message: MsgSyncFailed},
		{name: "network", err: fmt.Errorf("%w: dial tcp", mirror.ErrNetwork), message: MsgSyncNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.mirror.err = tt.err
			a := h.attempt(t, "rim.jpg")

			if err := h.orch.Submit(context.Background(), a, "Jane", "555"); err != nil {
				t.Fatalf("sync failure must not fail the submission: %v", err)
			}
			view := a.View()
			if view.State != StateSuccess {
				t.Fatalf("state = %s, want success", view.State)
			}
			if view.Message != tt.message || view.Level != LevelWarning {
				t.Fatalf("unexpected message %q (%s)", view.Message, view.Level)
			}
			if len(h.store.removed) != 0 {
				t.Fatal("stored photos must not be removed after a sync failure")
			}
		})
	}
}

func TestSubmitWithoutMirror(t *testing.T) {
	h := newHarness()
	h.orch = New(h.classifier, h.store, nil, zap.NewNop())
	a := h.attempt(t, "rim.jpg")

	if err := h.orch.Submit(context.Background(), a, "Jane", "555"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if a.State() != StateSuccess {
		t.Fatalf("state = %s", a.State())
	}
}

func TestSubmitCancelled(t *testing.T) {
	h := newHarness()
	a := h.attempt(t, "rim.jpg")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.orch.Submit(ctx, a, "Jane", "555")
	var subErr *Error
	if !errors.As(err, &subErr) || subErr.Kind != KindCancelled {
		t.Fatalf("expected cancelled error, got %v", err)
	}
	if len(h.store.uploads) != 0 {
		t.Fatal("no uploads after cancellation")
	}
	if view := a.View(); view.Message != MsgCancelled {
		t.Fatalf("unexpected message %q", view.Message)
	}
}

func TestSubmitAfterSuccessIsBusy(t *testing.T) {
	h := newHarness()
	a := h.attempt(t, "rim.jpg")
	if err := h.orch.Submit(context.Background(), a, "Jane", "555"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if err := h.orch.Submit(context.Background(), a, "Jane", "555"); !errors.Is(err, ErrAttemptBusy) {
		t.Fatalf("expected ErrAttemptBusy, got %v", err)
	}
	if _, err := a.AddImages(nil); !errors.Is(err, ErrAttemptBusy) {
		t.Fatalf("expected ErrAttemptBusy from AddImages, got %v", err)
	}
	if len(h.store.inserts) != 1 {
		t.Fatalf("expected exactly one insert, got %d", len(h.store.inserts))
	}
}

func TestResubmitAfterError(t *testing.T) {
	h := newHarness()
	h.classifier.verdicts["cat.jpg"] = false
	a := h.attempt(t, "rim.jpg", "cat.jpg")

	if err := h.orch.Submit(context.Background(), a, "Jane", "555"); err == nil {
		t.Fatal("expected rejection")
	}
	if err := a.RemoveImage(1); err != nil {
		t.Fatalf("RemoveImage: %v", err)
	}
	if err := h.orch.Submit(context.Background(), a, "Jane", "555"); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	view := a.View()
	if view.State != StateSuccess || view.Message != "" {
		t.Fatalf("unexpected view %+v", view)
	}
}

func TestResetReleasesPreviews(t *testing.T) {
	h := newHarness()
	a := h.attempt(t, "a.jpg", "b.jpg")
	if err := h.orch.Submit(context.Background(), a, "Jane", "555"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if err := a.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	view := a.View()
	if view.State != StateIdle || len(view.Images) != 0 || view.Message != "" || view.Name != "" {
		t.Fatalf("unexpected view after reset %+v", view)
	}
	if len(h.previewer.released) != 2 {
		t.Fatalf("expected 2 released previews, got %v", h.previewer.released)
	}
	if len(a.History()) != 0 {
		t.Fatal("history should be cleared")
	}
}

func TestAddImagesMessages(t *testing.T) {
	a := NewAttempt(&fakePreviewer{})

	rejected, err := a.AddImages([]intake.RawFile{{Filename: "a.gif", ContentType: "image/gif", Size: 1}})
	if err != nil || len(rejected) != 1 {
		t.Fatalf("AddImages: %v %v", rejected, err)
	}
	if view := a.View(); view.Message != "Unsupported file type. Please upload JPG or PNG images." {
		t.Fatalf("unexpected message %q", view.Message)
	}

	if _, err := a.AddImages([]intake.RawFile{
		{Filename: "b.gif", ContentType: "image/gif", Size: 1},
		{Filename: "ok.jpg", ContentType: "image/jpeg", Size: 1},
	}); err != nil {
		t.Fatalf("AddImages: %v", err)
	}
	if view := a.View(); view.Message != "" || len(view.Images) != 1 {
		t.Fatalf("accepted photo should clear the message: %+v", view)
	}
}

func TestWarnKeepsFirstMessage(t *testing.T) {
	a := NewAttempt(&fakePreviewer{})
	a.warn(MsgSyncFailed)
	a.warn(MsgSyncNetwork)
	if view := a.View(); view.Message != MsgSyncFailed {
		t.Fatalf("first message should win, got %q", view.Message)
	}

	b := NewAttempt(&fakePreviewer{})
	b.fail(&Error{Kind: KindPersist, Message: MsgPersistError})
	b.warn(MsgSyncFailed)
	if view := b.View(); view.Message != MsgPersistError || view.Level != LevelError {
		t.Fatalf("warning overwrote error: %+v", view)
	}
}
