// Package view renders the HTML pages served by the web server.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	IndexPage  = "index.html"
	ResultPage = "result.html"
	CameraPage = "camera.html"
)

// ResultData fills result.html.
type ResultData struct {
	ResultImage   string
	NumDetections int
	Noun          string
}

// PageData fills the index and camera pages.
type PageData struct {
	Noun string
}

type Renderer struct {
	templates *template.Template
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	tmpl, err := template.New("").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Renderer{templates: tmpl}, nil
}

// Render executes a page into a buffer first so a template error never leaves
// a half-written 200 response behind.
func (r *Renderer) Render(w http.ResponseWriter, name string, data any) error {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := buf.WriteTo(w)
	return err
}
