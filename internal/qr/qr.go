package qr

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	qrcode "github.com/skip2/go-qrcode"
)

var (
	// ErrValidation marks input the caller can correct: empty text, text over
	// the configured limit, or bad render options.
	ErrValidation = errors.New("invalid input")
	// ErrEncoding is returned when the text does not fit in any symbol version.
	ErrEncoding = errors.New("text exceeds QR symbol capacity")
	// ErrRender wraps unexpected failures while rasterizing a symbol.
	ErrRender = errors.New("failed to render QR code")

	ErrEmptyText         = fmt.Errorf("%w: text is empty", ErrValidation)
	ErrTextTooLong       = fmt.Errorf("%w: text is too long", ErrValidation)
	ErrInvalidModuleSize = fmt.Errorf("%w: module size out of range", ErrValidation)
	ErrInvalidSize       = fmt.Errorf("%w: image size out of range", ErrValidation)
)

const (
	DefaultModuleSize = 10
	MaxModuleSize     = 40
	MaxImageSize      = 4096
)

// Encoder turns text into QR symbols. An Encoder is immutable once built and
// safe for concurrent use.
type Encoder struct {
	level      Level
	moduleSize int
	size       int
	maxLength  int
	fallback   bool
}

type Option func(*Encoder)

// WithLevel sets the preferred error-correction level.
func WithLevel(l Level) Option { return func(e *Encoder) { e.level = l } }

// WithModuleSize sets the edge length of one module in pixels.
func WithModuleSize(px int) Option { return func(e *Encoder) { e.moduleSize = px } }

// WithSize fixes the image width and height in pixels. Zero scales the image
// by module size instead.
func WithSize(px int) Option { return func(e *Encoder) { e.size = px } }

// WithMaxLength rejects text longer than n characters. Zero disables the limit.
func WithMaxLength(n int) Option { return func(e *Encoder) { e.maxLength = n } }

// WithFallback controls whether the encoder steps down to lower
// error-correction levels when the preferred one cannot hold the text.
func WithFallback(on bool) Option { return func(e *Encoder) { e.fallback = on } }

func New(opts ...Option) *Encoder {
	e := &Encoder{
		level:      Medium,
		moduleSize: DefaultModuleSize,
		fallback:   true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// With returns a copy of e with opts applied on top.
func (e *Encoder) With(opts ...Option) *Encoder {
	cp := *e
	for _, opt := range opts {
		opt(&cp)
	}
	return &cp
}

func (e *Encoder) Level() Level   { return e.level }
func (e *Encoder) ModuleSize() int { return e.moduleSize }
func (e *Encoder) MaxLength() int  { return e.maxLength }

func (e *Encoder) validate() error {
	if !e.level.valid() {
		return fmt.Errorf("%w: unknown error correction level %d", ErrValidation, int(e.level))
	}
	if e.moduleSize < 1 || e.moduleSize > MaxModuleSize {
		return fmt.Errorf("%w (%d, want 1..%d)", ErrInvalidModuleSize, e.moduleSize, MaxModuleSize)
	}
	if e.size < 0 || e.size > MaxImageSize {
		return fmt.Errorf("%w (%d, want 0..%d)", ErrInvalidSize, e.size, MaxImageSize)
	}
	return nil
}

// Encode validates text and builds its symbol. Surrounding whitespace is
// stripped before encoding.
func (e *Encoder) Encode(text string) (*Symbol, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	if n := utf8.RuneCountInString(text); e.maxLength > 0 && n > e.maxLength {
		return nil, fmt.Errorf("%w (%d characters, limit %d)", ErrTextTooLong, n, e.maxLength)
	}

	var lastErr error
	for _, l := range e.candidates() {
		code, err := qrcode.New(text, l.recovery())
		if err != nil {
			lastErr = err
			continue
		}
		sym := &Symbol{
			Text:       text,
			Level:      l,
			Version:    code.VersionNumber,
			code:       code,
			moduleSize: e.moduleSize,
			size:       e.size,
		}
		if w := sym.Width(); w > MaxImageSize {
			return nil, fmt.Errorf("%w (%d px at %d px per module, limit %d)", ErrInvalidSize, w, e.moduleSize, MaxImageSize)
		}
		return sym, nil
	}
	return nil, fmt.Errorf("%w: %d bytes: %v", ErrEncoding, len(text), lastErr)
}

func (e *Encoder) candidates() []Level {
	if !e.fallback {
		return []Level{e.level}
	}
	var out []Level
	for _, l := range Levels() {
		if l <= e.level {
			out = append(out, l)
		}
	}
	return out
}

// Generate encodes text and returns the symbol as PNG bytes.
func (e *Encoder) Generate(text string) ([]byte, error) {
	s, err := e.Encode(text)
	if err != nil {
		return nil, err
	}
	return s.PNG()
}

// GenerateSVG encodes text and returns the symbol as an SVG document.
func (e *Encoder) GenerateSVG(text string) ([]byte, error) {
	s, err := e.Encode(text)
	if err != nil {
		return nil, err
	}
	return s.SVG(), nil
}

var defaultEncoder = New()

// Generate encodes text with the default settings (Medium, 10px modules).
func Generate(text string) ([]byte, error) { return defaultEncoder.Generate(text) }

// GenerateSVG encodes text with the default settings as SVG.
func GenerateSVG(text string) ([]byte, error) { return defaultEncoder.GenerateSVG(text) }

// Symbol is an encoded QR matrix ready to be rendered.
type Symbol struct {
	Text    string
	Level   Level
	Version int

	code       *qrcode.QRCode
	moduleSize int
	size       int
}

// skip2 treats a negative size as pixels per module.
func (s *Symbol) imageArg() int {
	if s.size > 0 {
		return s.size
	}
	return -s.moduleSize
}

// Modules returns the module matrix, quiet zone included. True is dark.
func (s *Symbol) Modules() [][]bool { return s.code.Bitmap() }

// Width is the pixel width (and height) of the PNG rendering.
func (s *Symbol) Width() int {
	n := len(s.Modules())
	if s.size > 0 {
		return max(s.size, n)
	}
	return n * s.moduleSize
}

func (s *Symbol) PNG() ([]byte, error) {
	b, err := s.code.PNG(s.imageArg())
	if err != nil {
		return nil, errors.Join(ErrRender, err)
	}
	return b, nil
}

// WritePNG streams the PNG rendering to w.
func (s *Symbol) WritePNG(w io.Writer) error {
	if err := s.code.Write(s.imageArg(), w); err != nil {
		return errors.Join(ErrRender, err)
	}
	return nil
}

// SVG renders the symbol as a standalone SVG document. Adjacent dark modules
// on a row are merged into one rect.
func (s *Symbol) SVG() []byte {
	bitmap := s.Modules()
	n := len(bitmap)
	w := s.Width()
	var buf strings.Builder
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" shape-rendering="crispEdges">`, w, w, n, n)
	buf.WriteString(`<rect width="100%" height="100%" fill="white"/>`)
	for y := 0; y < n; y++ {
		for x := 0; x < n; {
			if !bitmap[y][x] {
				x++
				continue
			}
			start := x
			for x < n && bitmap[y][x] {
				x++
			}
			fmt.Fprintf(&buf, `<rect x="%d" y="%d" width="%d" height="1" fill="black"/>`, start, y, x-start)
		}
	}
	buf.WriteString(`</svg>`)
	return []byte(buf.String())
}

// Terminal renders the symbol for a text console, two module rows per line
// using half-block characters. Inverse swaps dark and light for terminals
// with a light background.
func (s *Symbol) Terminal(inverse bool) string {
	bitmap := s.Modules()
	n := len(bitmap)
	dark := func(y, x int) bool {
		if y >= n {
			return inverse
		}
		return bitmap[y][x] != inverse
	}
	var buf strings.Builder
	for y := 0; y < n; y += 2 {
		for x := 0; x < n; x++ {
			top, bottom := dark(y, x), dark(y+1, x)
			switch {
			case top && bottom:
				buf.WriteString(" ")
			case top:
				buf.WriteString("▄")
			case bottom:
				buf.WriteString("▀")
			default:
				buf.WriteString("█")
			}
		}
		buf.WriteByte('\n')
	}
	return buf.String()
}
