package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yuzeguitarist/text2qr/internal/app"
	"github.com/yuzeguitarist/text2qr/internal/qr"
)

const sessionName = "text2qr"

type Options struct {
	Encoder      *qr.Encoder
	Logger       *slog.Logger
	CSRFKey      []byte // 32 bytes; random when nil
	SessionKey   []byte // 32 bytes; random when nil
	CookieSecure bool
	Debug        bool
}

type Server struct {
	Encoder *qr.Encoder
	Store   *sessions.CookieStore

	log     *slog.Logger
	debug   bool
	secure  bool
	csrfKey []byte
	pages   map[string]*template.Template
	metrics *metrics
}

func NewServer(o Options) (*Server, error) {
	if o.Encoder == nil {
		o.Encoder = qr.New()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	var err error
	if o.CSRFKey == nil {
		if o.CSRFKey, err = app.Key32("", app.KeyCSRF); err != nil {
			return nil, err
		}
	}
	if o.SessionKey == nil {
		if o.SessionKey, err = app.Key32("", app.KeySession); err != nil {
			return nil, err
		}
	}
	if len(o.CSRFKey) != 32 {
		return nil, fmt.Errorf("csrf key must be 32 bytes, got %d", len(o.CSRFKey))
	}
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	cs := sessions.NewCookieStore(o.SessionKey)
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   3600 * 24 * 30,
		HttpOnly: true,
		Secure:   o.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Server{
		Encoder: o.Encoder,
		Store:   cs,
		log:     o.Logger,
		debug:   o.Debug,
		secure:  o.CookieSecure,
		csrfKey: o.CSRFKey,
		pages:   pages,
		metrics: newMetrics(),
	}, nil
}

func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.instrument)
	r.PathPrefix("/static/").Handler(http.FileServerFS(FS))

	r.HandleFunc("/", s.index).Methods("GET", "HEAD")
	r.HandleFunc("/", s.generate).Methods("POST")
	r.HandleFunc("/qrcode.png", s.qrPNG).Methods("GET")
	r.HandleFunc("/qrcode.svg", s.qrSVG).Methods("GET")
	r.HandleFunc("/about", s.page("about")).Methods("GET")
	r.HandleFunc("/contact", s.page("contact")).Methods("GET")
	r.HandleFunc("/healthz", s.healthz).Methods("GET")
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.reg, promhttp.HandlerOpts{})).Methods("GET")

	// CSRF for all POSTs
	protect := csrf.Protect(s.csrfKey,
		csrf.Secure(s.secure),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(s.csrfFailed)),
	)
	return requestID(s.logRequests(s.recoverPanics(protect(r))))
}

// form is what the index page shows and what POST / accepts.
type form struct {
	Text  string
	Level string
	Size  int
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	s.renderIndex(w, r, http.StatusOK, s.savedForm(r), "")
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	f := form{
		Text:  r.PostFormValue("data"),
		Level: r.PostFormValue("level"),
	}
	enc, f, err := s.encoderFor(f, r.PostFormValue("size"))
	if err != nil {
		s.fail(w, r, err, &f)
		return
	}

	start := time.Now()
	sym, err := enc.Encode(f.Text)
	if err != nil {
		s.fail(w, r, err, &f)
		return
	}
	var buf bytes.Buffer
	if err := sym.WritePNG(&buf); err != nil {
		s.fail(w, r, err, &f)
		return
	}
	s.metrics.generated("png", time.Since(start))

	s.savePrefs(w, r, f)
	s.log.DebugContext(r.Context(), "qr generated",
		"chars", len([]rune(sym.Text)),
		"preview", app.Mask(sym.Text),
		"level", sym.Level.String(),
		"version", sym.Version,
	)

	name := fmt.Sprintf("%s-%s.png", app.DownloadPrefix, uuid.NewString())
	h := w.Header()
	h.Set("Content-Type", "image/png")
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	h.Set("Content-Length", strconv.Itoa(buf.Len()))
	h.Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) qrPNG(w http.ResponseWriter, r *http.Request) {
	sym, ok := s.encodeQuery(w, r)
	if !ok {
		return
	}
	start := time.Now()
	png, err := sym.PNG()
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	s.metrics.generated("png", time.Since(start))
	w.Header().Set("content-type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

func (s *Server) qrSVG(w http.ResponseWriter, r *http.Request) {
	sym, ok := s.encodeQuery(w, r)
	if !ok {
		return
	}
	start := time.Now()
	svg := sym.SVG()
	s.metrics.generated("svg", time.Since(start))
	w.Header().Set("content-type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(svg)
}

// encodeQuery handles ?data=&level=&size=&px= for the inline image routes.
func (s *Server) encodeQuery(w http.ResponseWriter, r *http.Request) (*qr.Symbol, bool) {
	q := r.URL.Query()
	enc, f, err := s.encoderFor(form{Text: q.Get("data"), Level: q.Get("level")}, q.Get("size"))
	if err == nil && q.Get("px") != "" {
		px, perr := strconv.Atoi(q.Get("px"))
		if perr != nil {
			err = fmt.Errorf("%w: px must be a number", qr.ErrValidation)
		} else {
			enc = enc.With(qr.WithSize(px))
		}
	}
	if err != nil {
		s.fail(w, r, err, nil)
		return nil, false
	}
	sym, err := enc.Encode(f.Text)
	if err != nil {
		s.fail(w, r, err, nil)
		return nil, false
	}
	return sym, true
}

// encoderFor applies the per-request level and module size on top of the
// server's encoder. The returned form carries the normalized values.
func (s *Server) encoderFor(f form, size string) (*qr.Encoder, form, error) {
	enc := s.Encoder
	f.Size = enc.ModuleSize()
	if f.Level == "" {
		f.Level = enc.Level().String()
	} else {
		l, err := qr.ParseLevel(f.Level)
		if err != nil {
			return nil, f, err
		}
		f.Level = l.String()
		enc = enc.With(qr.WithLevel(l))
	}
	if size = strings.TrimSpace(size); size != "" {
		n, err := strconv.Atoi(size)
		if err != nil {
			return nil, f, fmt.Errorf("%w: size must be a number", qr.ErrValidation)
		}
		f.Size = n
		enc = enc.With(qr.WithModuleSize(n))
	}
	return enc, f, nil
}

func (s *Server) page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusOK, name, pageData{Page: name})
	}
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "version": app.Version})
}

// fail maps err to a status and reports it. f is non-nil when the error
// belongs to the HTML form, which is then shown again with the message.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, f *form) {
	status, reason := classify(err)
	s.metrics.rejected(reason)
	msg := s.userMessage(err)
	if status >= 500 {
		s.log.ErrorContext(r.Context(), "qr generation failed", "error", err)
	} else {
		s.log.DebugContext(r.Context(), "qr request rejected", "reason", reason, "error", err)
	}

	switch {
	case wantsJSON(r):
		writeJSON(w, status, map[string]any{"error": msg, "request_id": RequestID(r.Context())})
	case f != nil:
		s.renderIndex(w, r, status, *f, msg)
	default:
		http.Error(w, msg, status)
	}
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, qr.ErrEmptyText):
		return http.StatusBadRequest, "empty"
	case errors.Is(err, qr.ErrTextTooLong):
		return http.StatusBadRequest, "too_long"
	case errors.Is(err, qr.ErrValidation):
		return http.StatusBadRequest, "invalid"
	case errors.Is(err, qr.ErrEncoding):
		return http.StatusBadRequest, "capacity"
	}
	return http.StatusInternalServerError, "internal"
}

func (s *Server) userMessage(err error) string {
	switch {
	case errors.Is(err, qr.ErrEmptyText):
		return "No text provided for QR generation."
	case errors.Is(err, qr.ErrTextTooLong):
		return fmt.Sprintf("Input too long. Please limit text to %d characters.", s.Encoder.MaxLength())
	case errors.Is(err, qr.ErrEncoding):
		return "Text is too long to fit in a QR code."
	case errors.Is(err, qr.ErrValidation):
		return err.Error()
	}
	if s.debug {
		return "Failed to generate QR code: " + err.Error()
	}
	return "Failed to generate QR code."
}

func (s *Server) csrfFailed(w http.ResponseWriter, r *http.Request) {
	s.metrics.rejected("csrf")
	s.log.WarnContext(r.Context(), "csrf check failed", "reason", csrf.FailureReason(r))
	msg := "Your form session expired. Reload the page and try again."
	if wantsJSON(r) {
		writeJSON(w, http.StatusForbidden, map[string]any{"error": msg})
		return
	}
	http.Error(w, msg, http.StatusForbidden)
}

func (s *Server) savedForm(r *http.Request) form {
	f := form{Level: s.Encoder.Level().String(), Size: s.Encoder.ModuleSize()}
	sess, _ := s.Store.Get(r, sessionName)
	if v, ok := sess.Values["level"].(string); ok {
		if l, err := qr.ParseLevel(v); err == nil {
			f.Level = l.String()
		}
	}
	if v, ok := sess.Values["size"].(int); ok && v >= 1 && v <= qr.MaxModuleSize {
		f.Size = v
	}
	return f
}

func (s *Server) savePrefs(w http.ResponseWriter, r *http.Request, f form) {
	sess, _ := s.Store.Get(r, sessionName)
	sess.Values["level"] = f.Level
	sess.Values["size"] = f.Size
	if err := sess.Save(r, w); err != nil {
		s.log.WarnContext(r.Context(), "save preferences", "error", err)
	}
}

// ---- helpers ----

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
