// Package intake validates user-selected photos before they enter a
// submission and tracks the preview handles created for them.
package intake

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
)

// MaxImageSize is the largest accepted photo, inclusive.
const MaxImageSize = 8 * 1024 * 1024

var allowedTypes = map[string]bool{"image/jpeg": true, "image/png": true}

// Reason explains why a file was refused at intake.
type Reason string

const (
	ReasonUnsupportedType Reason = "unsupported type"
	ReasonTooLarge        Reason = "too large"
)

// ErrIndexOutOfRange is returned by Remove for a position with no candidate.
var ErrIndexOutOfRange = errors.New("image index out of range")

// RawFile is a file as handed over by the picker, before validation.
type RawFile struct {
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}

// CandidateImage is a validated photo waiting to be submitted.
type CandidateImage struct {
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
	Preview     string
}

type Rejection struct {
	Filename string `json:"filename"`
	Reason   Reason `json:"reason"`
}

// Message is the text shown to the customer for this rejection.
func (r Rejection) Message() string {
	switch r.Reason {
	case ReasonUnsupportedType:
		return "Unsupported file type. Please upload JPG or PNG images."
	case ReasonTooLarge:
		return "Image is too large (max 8 MB)."
	default:
		return "This file can't be used."
	}
}

// Check applies the type and size rules to a single file.
func Check(f RawFile) (Reason, bool) {
	if !allowedTypes[f.ContentType] {
		return ReasonUnsupportedType, false
	}
	if f.Size > MaxImageSize {
		return ReasonTooLarge, false
	}
	return "", true
}

// Previewer hands out preview handles for candidates. Handles are a bounded
// resource; every handle returned by Create must be passed to Release once.
type Previewer interface {
	Create(img *CandidateImage) string
	Release(handle string)
}

// Set is an ordered collection of candidates. It is not safe for concurrent
// use; callers serialize access.
type Set struct {
	previewer Previewer
	images    []*CandidateImage
}

func NewSet(p Previewer) *Set {
	return &Set{previewer: p}
}

// Accept validates files and appends the accepted ones in order.
func (s *Set) Accept(files []RawFile) ([]*CandidateImage, []Rejection) {
	var accepted []*CandidateImage
	var rejected []Rejection

	for _, f := range files {
		if f.Size == 0 {
			f.Size = int64(len(f.Data))
		}
		if reason, ok := Check(f); !ok {
			rejected = append(rejected, Rejection{Filename: f.Filename, Reason: reason})
			continue
		}
		img := &CandidateImage{
			Filename:    f.Filename,
			ContentType: f.ContentType,
			Size:        f.Size,
			Data:        f.Data,
		}
		img.Preview = s.previewer.Create(img)
		accepted = append(accepted, img)
	}

	s.images = append(s.images, accepted...)
	return accepted, rejected
}

// Remove drops the candidate at index and releases its preview.
func (s *Set) Remove(index int) error {
	if index < 0 || index >= len(s.images) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	img := s.images[index]
	s.images = append(s.images[:index], s.images[index+1:]...)
	s.previewer.Release(img.Preview)
	return nil
}

// Reset releases every preview and empties the set.
func (s *Set) Reset() {
	for _, img := range s.images {
		s.previewer.Release(img.Preview)
	}
	s.images = nil
}

func (s *Set) Len() int {
	return len(s.images)
}

// Images returns the candidates in submission order.
func (s *Set) Images() []*CandidateImage {
	out := make([]*CandidateImage, len(s.images))
	copy(out, s.images)
	return out
}

// FromMultipart reads an uploaded form file. Bodies larger than MaxImageSize
// are not read past the limit since Check will refuse them anyway.
func FromMultipart(fh *multipart.FileHeader) (RawFile, error) {
	raw := RawFile{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
	}
	if _, ok := Check(raw); !ok {
		return raw, nil
	}

	file, err := fh.Open()
	if err != nil {
		return raw, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxImageSize+1))
	if err != nil {
		return raw, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	raw.Data = data
	raw.Size = int64(len(data))
	return raw, nil
}
