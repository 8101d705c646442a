package intake

import (
	"bytes"
	"image"
	"image/jpeg"
	_ "image/png"
	"sync"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
	"go.uber.org/zap"
)

const thumbnailEdge = 256

type preview struct {
	data        []byte
	contentType string
}

// ThumbnailPreviewer keeps a downsized JPEG per candidate until released.
type ThumbnailPreviewer struct {
	mu       sync.RWMutex
	previews map[string]preview
	log      *zap.Logger
}

func NewThumbnailPreviewer(log *zap.Logger) *ThumbnailPreviewer {
	return &ThumbnailPreviewer{
		previews: make(map[string]preview),
		log:      log,
	}
}

// Create always returns a handle; images that can't be decoded are served
// as uploaded.
func (p *ThumbnailPreviewer) Create(img *CandidateImage) string {
	handle := uuid.NewString()

	pv := preview{data: img.Data, contentType: img.ContentType}
	if thumb, err := thumbnail(img.Data); err != nil {
		p.log.Debug("Serving original bytes as preview",
			zap.String("filename", img.Filename),
			zap.Error(err))
	} else {
		pv = preview{data: thumb, contentType: "image/jpeg"}
	}

	p.mu.Lock()
	p.previews[handle] = pv
	p.mu.Unlock()
	return handle
}

func (p *ThumbnailPreviewer) Release(handle string) {
	p.mu.Lock()
	delete(p.previews, handle)
	p.mu.Unlock()
}

// Get returns the preview bytes and content type for a live handle.
func (p *ThumbnailPreviewer) Get(handle string) ([]byte, string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pv, ok := p.previews[handle]
	return pv.data, pv.contentType, ok
}

// Len is the number of unreleased previews.
func (p *ThumbnailPreviewer) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.previews)
}

func thumbnail(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	thumb := resize.Thumbnail(thumbnailEdge, thumbnailEdge, src, resize.Lanczos3)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 80}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
