package submission

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meinhoongagan/wheel-refurb/intake"
	"github.com/meinhoongagan/wheel-refurb/models"
)

type State string

const (
	StateIdle        State = "idle"
	StateValidating  State = "validating"
	StateClassifying State = "classifying"
	StateUploading   State = "uploading"
	StatePersisting  State = "persisting"
	StateSyncing     State = "syncing"
	StateSuccess     State = "success"
	StateError       State = "error"
)

type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
)

// ErrAttemptBusy is returned when an attempt is asked to change while a
// submission is running or after it succeeded.
var ErrAttemptBusy = errors.New("attempt is not editable in its current state")

// Attempt is one form interaction: its candidate photos, where the
// submission state machine currently is, and the message shown to the user.
type Attempt struct {
	ID string

	mu          sync.Mutex
	images      *intake.Set
	state       State
	history     []State
	message     string
	level       Level
	name        string
	phone       string
	appointment *models.Appointment
	lastActive  time.Time
}

func NewAttempt(p intake.Previewer) *Attempt {
	return &Attempt{
		ID:         uuid.NewString(),
		images:     intake.NewSet(p),
		state:      StateIdle,
		lastActive: time.Now(),
	}
}

// editable reports whether photos may change and a submission may start.
// Errors leave the form editable; Success only exits through Reset.
func (a *Attempt) editable() bool {
	return a.state == StateIdle || a.state == StateError
}

func (a *Attempt) running() bool {
	return !a.editable() && a.state != StateSuccess
}

// AddImages runs intake validation and appends accepted photos. The last
// rejection becomes the form message unless something was accepted.
func (a *Attempt) AddImages(files []intake.RawFile) ([]intake.Rejection, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.editable() {
		return nil, ErrAttemptBusy
	}
	a.lastActive = time.Now()

	accepted, rejected := a.images.Accept(files)
	for _, r := range rejected {
		a.message, a.level = r.Message(), LevelError
	}
	if len(accepted) > 0 {
		a.message, a.level = "", ""
	}
	return rejected, nil
}

func (a *Attempt) RemoveImage(index int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.editable() {
		return ErrAttemptBusy
	}
	a.lastActive = time.Now()
	return a.images.Remove(index)
}

// Reset returns the attempt to Idle, releasing every preview.
func (a *Attempt) Reset() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running() {
		return ErrAttemptBusy
	}
	a.images.Reset()
	a.state = StateIdle
	a.history = nil
	a.message, a.level = "", ""
	a.name, a.phone = "", ""
	a.appointment = nil
	a.lastActive = time.Now()
	return nil
}

// Discard releases previews regardless of state; the attempt is unusable
// afterwards.
func (a *Attempt) Discard() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.images.Reset()
}

func (a *Attempt) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// History lists the states entered by the current submission, in order.
func (a *Attempt) History() []State {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]State, len(a.history))
	copy(out, a.history)
	return out
}

func (a *Attempt) idleSince(now time.Time) (time.Duration, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return now.Sub(a.lastActive), !a.running()
}

// begin moves an editable attempt into Validating and returns the photos to
// submit.
func (a *Attempt) begin(name, phone string) ([]*intake.CandidateImage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.editable() {
		return nil, ErrAttemptBusy
	}
	a.name, a.phone = name, phone
	a.message, a.level = "", ""
	a.appointment = nil
	a.history = nil
	a.lastActive = time.Now()
	a.enter(StateValidating)
	return a.images.Images(), nil
}

func (a *Attempt) transition(s State) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enter(s)
}

func (a *Attempt) enter(s State) {
	a.state = s
	a.history = append(a.history, s)
}

func (a *Attempt) fail(e *Error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.message, a.level = e.Message, LevelError
	a.lastActive = time.Now()
	a.enter(StateError)
}

// warn records a non-fatal message unless one is already showing.
func (a *Attempt) warn(msg string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.message != "" {
		return
	}
	a.message, a.level = msg, LevelWarning
}

func (a *Attempt) succeed(appt *models.Appointment) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.appointment = appt
	a.lastActive = time.Now()
	a.enter(StateSuccess)
}

type ImageView struct {
	Index    int    `json:"index"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Preview  string `json:"preview"`
}

// View is a consistent copy of an attempt for rendering.
type View struct {
	ID          string              `json:"id"`
	State       State               `json:"state"`
	Message     string              `json:"message,omitempty"`
	Level       Level               `json:"level,omitempty"`
	Name        string              `json:"name,omitempty"`
	Phone       string              `json:"phone,omitempty"`
	Images      []ImageView         `json:"images"`
	Appointment *models.Appointment `json:"appointment,omitempty"`
}

func (a *Attempt) View() View {
	a.mu.Lock()
	defer a.mu.Unlock()

	images := a.images.Images()
	views := make([]ImageView, len(images))
	for i, img := range images {
		views[i] = ImageView{Index: i, Filename: img.Filename, Size: img.Size, Preview: img.Preview}
	}
	return View{
		ID:          a.ID,
		State:       a.state,
		Message:     a.message,
		Level:       a.level,
		Name:        a.name,
		Phone:       a.phone,
		Images:      views,
		Appointment: a.appointment,
	}
}
