package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strconv"

	"github.com/gorilla/csrf"

	"github.com/yuzeguitarist/text2qr/internal/app"
	"github.com/yuzeguitarist/text2qr/internal/qr"
)

//go:embed templates/*.html static/*
var FS embed.FS

var pageNames = []string{"index", "about", "contact"}

type levelOption struct {
	Value    string
	Label    string
	Selected bool
}

type pageData struct {
	Page      string
	AppName   string
	CSRFField template.HTML

	Form          form
	Error         string
	Levels        []levelOption
	MaxLength     int
	MaxModuleSize int
}

func parsePages() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.ParseFS(FS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, err
		}
		pages[name] = t
	}
	return pages, nil
}

func (s *Server) renderIndex(w http.ResponseWriter, r *http.Request, status int, f form, errMsg string) {
	var levels []levelOption
	for _, l := range qr.Levels() {
		levels = append(levels, levelOption{
			Value:    l.String(),
			Label:    l.Letter() + " (" + l.String() + ")",
			Selected: l.String() == f.Level,
		})
	}
	s.render(w, r, status, "index", pageData{
		Page:          "index",
		Form:          f,
		Error:         errMsg,
		Levels:        levels,
		MaxLength:     s.Encoder.MaxLength(),
		MaxModuleSize: qr.MaxModuleSize,
	})
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	t, ok := s.pages[name]
	if !ok {
		http.NotFound(w, r)
		return
	}
	data.AppName = app.Name
	data.CSRFField = csrf.TemplateField(r)

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		s.log.ErrorContext(r.Context(), "render page", "page", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("content-type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
