package app

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/LeonardoBeccarini/agro_advisor/internal/model/entities"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// HistoryEntry is one row of the history service's /history/recent answer.
type HistoryEntry struct {
	Kind        string    `json:"kind"`
	Session     string    `json:"session"`
	Top         string    `json:"top,omitempty"`
	Probability float64   `json:"probability,omitempty"`
	CropType    string    `json:"crop_type,omitempty"`
	Fertilizer  string    `json:"fertilizer,omitempty"`
	Time        time.Time `json:"time"`
}

func (h HistoryEntry) Summary() string {
	if h.Fertilizer != "" {
		if h.CropType != "" {
			return h.Fertilizer + " for " + h.CropType
		}
		return h.Fertilizer
	}
	if h.Top != "" && h.Probability > 0 {
		return fmt.Sprintf("%s (%s)", h.Top, percent(h.Probability))
	}
	return h.Top
}

// PageView is the data of the index page and of its fragments.
type PageView struct {
	WorkspaceView
	Sliders     []Slider
	Catalog     entities.Catalog
	History     []HistoryEntry
	ChartLayout *ChartLayout
}

func newPageView(ws WorkspaceView, cat entities.Catalog, history []HistoryEntry) PageView {
	v := PageView{WorkspaceView: ws, Sliders: CropSliders, Catalog: cat, History: history}
	if ws.Chart != nil {
		l := ws.Chart.Layout()
		v.ChartLayout = &l
	}
	return v
}

// Renderer executes the page templates into a buffer first so a template
// error never leaves a half-written response.
type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() (*Renderer, error) {
	t, err := template.New("").Funcs(template.FuncMap{
		"percent":     percent,
		"sliderValue": SliderValue,
		"half":        func(v int) float64 { return float64(v) / 2 },
		"add":         func(a, b float64) float64 { return a + b },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: t}, nil
}

func (r *Renderer) Render(w http.ResponseWriter, status int, name string, data any) error {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// RenderString renders name without touching a response.
func (r *Renderer) RenderString(name string, data any) (string, error) {
	var sb strings.Builder
	if err := r.tmpl.ExecuteTemplate(&sb, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return sb.String(), nil
}

func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

// percent formats a probability in [0,1] with two decimals.
func percent(p float64) string {
	return fmt.Sprintf("%.2f%%", p*100)
}
