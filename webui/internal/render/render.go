// Package render holds the embedded HTML templates and the echo renderer
// serving them. All record content passes through html/template's
// contextual escaping, so titles like "<script>" come out inert.
package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/bookops/bookshelf-service/webui/internal/model"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

//go:embed templates/*.html
var templateFS embed.FS

type Renderer struct {
	tmpl *template.Template
}

func New() (*Renderer, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"rating": func(v float64) string { return fmt.Sprintf("%.1f", v) },
		"price":  func(v float64) string { return fmt.Sprintf("%.2f", v) },
		"image": func(u string) string {
			if u == "" {
				return model.PlaceholderImage
			}
			return u
		},
		// the state is encoded as a ready-made query string; template.URL
		// keeps the autoescaper from component-escaping the & and =
		"query": func(s model.QueryState) template.URL {
			return template.URL(s.Values().Encode())
		},
		"pageQuery": func(s model.QueryState, page int) template.URL {
			return template.URL(s.WithPage(page).Values().Encode())
		},
		"inc": func(i int) int { return i + 1 },
		"dec": func(i int) int { return i - 1 },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, errors.Wrap(err, "parse templates")
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render implements echo.Renderer.
func (r *Renderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	return r.tmpl.ExecuteTemplate(w, name, data)
}
