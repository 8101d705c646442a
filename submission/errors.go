package submission

import "fmt"

// Kind classifies why a submission failed. Kinds are for logs; users only
// see Message.
type Kind string

const (
	KindValidation Kind = "validation"
	KindClassifier Kind = "classifier"
	KindRejected   Kind = "rejected"
	KindUpload     Kind = "upload"
	KindPersist    Kind = "persist"
	KindCancelled  Kind = "cancelled"
)

// User-facing messages.
const (
	MsgMissingFields   = "All fields and at least one image are required."
	MsgClassifierError = "We couldn't check your photos right now. Please try again."
	MsgNotWheels       = "One or more images are not wheels or rims. Please review your selection."
	MsgUploadError     = "We couldn't upload your photos. Please try again."
	MsgPersistError    = "We couldn't save your request. Please try again."
	MsgCancelled       = "Submission was cancelled."
	MsgSyncFailed      = "Appointment saved, but sheet sync failed."
	MsgSyncNetwork     = "Appointment saved, but sheet sync failed (network)."
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
