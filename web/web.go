// Package web renders the customer-facing request form and its outcome.
package web

import (
	"embed"
	"html/template"
	"io"

	"github.com/meinhoongagan/wheel-refurb/submission"
)

//go:embed templates/*.html
var templates embed.FS

// Variant is the presentation context a form is shown in. Every variant
// submits through the same orchestrator; only the copy differs.
type Variant struct {
	Key     string
	Heading string
	Button  string
}

var (
	Inline = Variant{
		Key:     "inline",
		Heading: "Request an Appointment",
		Button:  "Request Appointment",
	}
	Hero = Variant{
		Key:     "hero",
		Heading: "Send Us Your Wheel/Rim Photos",
		Button:  "Get My Quote",
	}
)

// VariantFor returns the variant named key, defaulting to Inline.
func VariantFor(key string) Variant {
	if key == Hero.Key {
		return Hero
	}
	return Inline
}

// Page is everything a template needs to draw one state of the form.
type Page struct {
	Variant  Variant
	View     submission.View
	Rejected []string
}

func (p Page) Succeeded() bool { return p.View.State == submission.StateSuccess }

func (p Page) IsWarning() bool { return p.View.Level == submission.LevelWarning }

type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(templates, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render draws the form, or the confirmation once the attempt succeeded.
func (r *Renderer) Render(w io.Writer, p Page) error {
	return r.tmpl.ExecuteTemplate(w, "page.html", p)
}
