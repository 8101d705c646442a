package submission

import (
	"testing"
	"time"

	"github.com/meinhoongagan/wheel-refurb/intake"
)

func jpegs(names ...string) []intake.RawFile {
	files := make([]intake.RawFile, len(names))
	for i, name := range names {
		files[i] = intake.RawFile{Filename: name, ContentType: "image/jpeg", Size: 1024}
	}
	return files
}

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry(&fakePreviewer{}, time.Hour)

	a := r.Create()
	got, ok := r.Get(a.ID)
	if !ok || got != a {
		t.Fatal("created attempt not found")
	}
	if r.Len() != 1 {
		t.Fatalf("Len = %d", r.Len())
	}
	if !r.Delete(a.ID) {
		t.Fatal("Delete returned false")
	}
	if _, ok := r.Get(a.ID); ok {
		t.Fatal("deleted attempt still present")
	}
	if r.Delete(a.ID) {
		t.Fatal("second Delete should report false")
	}
}

func TestRegistryDeleteReleasesPreviews(t *testing.T) {
	p := &fakePreviewer{}
	r := NewRegistry(p, time.Hour)
	a := r.Create()
	if _, err := a.AddImages(jpegs("a.jpg", "b.jpg")); err != nil {
		t.Fatalf("AddImages: %v", err)
	}

	r.Delete(a.ID)
	if len(p.released) != 2 {
		t.Fatalf("expected 2 released previews, got %v", p.released)
	}
}

func TestRegistryReap(t *testing.T) {
	p := &fakePreviewer{}
	r := NewRegistry(p, time.Hour)
	now := time.Now()
	r.now = func() time.Time { return now }

	stale := r.Create()
	if _, err := stale.AddImages(jpegs("old.jpg")); err != nil {
		t.Fatalf("AddImages: %v", err)
	}
	stale.lastActive = now.Add(-2 * time.Hour)

	busy := r.Create()
	busy.lastActive = now.Add(-2 * time.Hour)
	busy.state = StateUploading

	fresh := r.Create()

	if n := r.Reap(); n != 1 {
		t.Fatalf("Reap removed %d attempts, want 1", n)
	}
	if _, ok := r.Get(stale.ID); ok {
		t.Fatal("stale attempt kept")
	}
	if _, ok := r.Get(busy.ID); !ok {
		t.Fatal("in-flight attempt reaped")
	}
	if _, ok := r.Get(fresh.ID); !ok {
		t.Fatal("fresh attempt reaped")
	}
	if len(p.released) != 1 {
		t.Fatalf("expected stale previews released, got %v", p.released)
	}
}
