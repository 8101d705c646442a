package intake

// NoPreview is used where nobody will look at previews, such as one-shot
// form posts.
type NoPreview struct{}

func (NoPreview) Create(*CandidateImage) string { return "" }

func (NoPreview) Release(string) {}
