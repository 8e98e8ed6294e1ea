package cmd

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/makiuchi-d/gozxing"
	zxingqr "github.com/makiuchi-d/gozxing/qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuzeguitarist/text2qr/internal/config"
	"github.com/yuzeguitarist/text2qr/internal/logger"
	"github.com/yuzeguitarist/text2qr/internal/qr"
)

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func decodePNG(t *testing.T, b []byte) string {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(b))
	require.NoError(t, err)
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	require.NoError(t, err)
	res, err := zxingqr.NewQRCodeReader().Decode(bmp, nil)
	require.NoError(t, err)
	return res.GetText()
}

func TestEncodeToPNGFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "code.png")
	out, _, err := run(t, "", "encode", "Hello, World!", "--out", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote: "+path+" (version 1, level M)")

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Hello, World!", decodePNG(t, b))
}

func TestEncodeToSVGFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "code.svg")
	_, _, err := run(t, "", "encode", "--text", "hello", "--out", path, "--level", "H", "--size", "3")
	require.NoError(t, err)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("<svg")))
	assert.Contains(t, string(b), `width="87"`)
}

func TestEncodeToStdout(t *testing.T) {
	out, _, err := run(t, "", "encode", "https://www.google.com", "--out", "-")
	require.NoError(t, err)
	assert.Equal(t, "https://www.google.com", decodePNG(t, []byte(out)))

	// redirected stdout without --out also gets PNG
	out, _, err = run(t, "", "encode", "https://www.google.com")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "\x89PNG"))
}

func TestEncodeFromStdin(t *testing.T) {
	out, _, err := run(t, "  piped text\n", "encode", "-o", "-")
	require.NoError(t, err)
	assert.Equal(t, "piped text", decodePNG(t, []byte(out)))
}

func TestEncodeTerminal(t *testing.T) {
	out, _, err := run(t, "", "encode", "hello", "--terminal")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSuffix(out, "\n"), "\n"), 15)
	assert.Contains(t, out, "█")
}

func TestEncodeErrors(t *testing.T) {
	_, _, err := run(t, "", "encode", "   ")
	assert.True(t, errors.Is(err, qr.ErrEmptyText))

	_, _, err = run(t, "", "encode", "x", "--level", "ultra")
	assert.True(t, errors.Is(err, qr.ErrValidation))

	_, _, err = run(t, "", "encode", "x", "--size", "0")
	assert.True(t, errors.Is(err, qr.ErrInvalidModuleSize))

	_, _, err = run(t, "", "encode", strings.Repeat("y", 1001))
	assert.True(t, errors.Is(err, qr.ErrTextTooLong))
}

func TestOTPAuth(t *testing.T) {
	out, errOut, err := run(t, "", "otpauth", "--issuer", "text2qr", "--account", "alice@example.com", "-o", "-")
	require.NoError(t, err)
	assert.Contains(t, errOut, "Secret (shown once):")
	uri := decodePNG(t, []byte(out))
	assert.True(t, strings.HasPrefix(uri, "otpauth://totp/"), uri)
	assert.Contains(t, errOut, "URI: "+uri)

	_, _, err = run(t, "", "otpauth", "--issuer", "x")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "text2qr dev\n", out)
}

func TestServeRejectsBadListen(t *testing.T) {
	_, _, err := run(t, "", "serve", "--listen", "nowhere")
	assert.Error(t, err)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	srv := &http.Server{Addr: addr, Handler: http.NotFoundHandler(), ReadHeaderTimeout: time.Second}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, srv, time.Second, logger.Discard()) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusNotFound
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestServeReportsListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	srv := &http.Server{Addr: ln.Addr().String(), ReadHeaderTimeout: time.Second}
	err = serve(context.Background(), srv, time.Second, logger.Discard())
	assert.Error(t, err)
}

func TestBuildServerSelfSigned(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.SetListen("127.0.0.1:5999"))
	cfg.TLS.SelfSigned = true

	srv, fp, err := buildServer(cfg, logger.Discard())
	require.NoError(t, err)
	require.NotNil(t, srv.TLSConfig)
	assert.Regexp(t, `^([0-9A-F]{2}:){31}[0-9A-F]{2}$`, fp)

	cfg.TLS.SelfSigned = false
	srv, fp, err = buildServer(cfg, logger.Discard())
	require.NoError(t, err)
	assert.Nil(t, srv.TLSConfig)
	assert.Empty(t, fp)
}

func TestServeRejectsHalfTLSPair(t *testing.T) {
	_, _, err := run(t, "", "serve", "--listen", "127.0.0.1:5999", "--tls-cert", "cert.pem")
	assert.True(t, errors.Is(err, config.ErrInvalid))
}
