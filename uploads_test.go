package mudradesk_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/mudradesk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		out  string
	}{
		{"plain name", "logo.png", "logo.png"},
		{"path traversal stripped", "../../etc/passwd", "passwd"},
		{"windows path stripped", `C:\Users\evil\shell.png`, "shell.png"},
		{"spaces become underscores", "my logo.png", "my_logo.png"},
		{"special characters dropped", "lo<go>?.png", "logo.png"},
		{"leading dots trimmed", "...hidden", "hidden"},
		{"empty falls back", "", "file"},
		{"only junk falls back", "###", "file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.out, mudradesk.SanitizeFilename(tt.in))
		})
	}
}

func TestShareTokens(t *testing.T) {
	t.Run("fresh tokens are unique and clean", func(t *testing.T) {
		a := mudradesk.NewShareToken()
		b := mudradesk.NewShareToken()
		assert.NotEqual(t, a, b)
		assert.Equal(t, a, mudradesk.SanitizeShareToken(a))
		assert.NotContains(t, a, "-")
	})

	t.Run("sanitize drops path characters", func(t *testing.T) {
		assert.Equal(t, "etcpasswd", mudradesk.SanitizeShareToken("../etc/passwd"))
		assert.Equal(t, "abc_def-123", mudradesk.SanitizeShareToken("abc_def-123"))
		assert.Equal(t, "", mudradesk.SanitizeShareToken("../.."))
	})
}

func newTestUploadStore(t *testing.T) *mudradesk.UploadStore {
	t.Helper()

	dir := t.TempDir()
	store, err := mudradesk.NewUploadStore(
		filepath.Join(dir, "uploads"),
		filepath.Join(dir, "shared"),
		mudradesk.WithUploadClock(func() time.Time {
			return time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
		}),
	)
	require.NoError(t, err)
	return store
}

// multipartFile builds a *multipart.FileHeader the way fiber would hand
// it to a handler.
func multipartFile(t *testing.T, field, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	app := fiber.New()
	var fh *multipart.FileHeader
	app.Post("/", func(c *fiber.Ctx) error {
		fh, err = c.FormFile(field)
		return err
	})

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	require.NotNil(t, fh)
	return fh
}

func testPNG(t *testing.T) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(40 * x), G: uint8(40 * y), B: 200, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestUploadStoreSaveImage(t *testing.T) {
	store := newTestUploadStore(t)

	fh := multipartFile(t, "file", "my logo.png", testPNG(t))
	name, err := store.SaveImage(fh, "logo")
	require.NoError(t, err)
	assert.Equal(t, "logo_20250203040506_my_logo.png", name)

	path, err := store.ImagePath(name)
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestUploadStoreRejectsUnsupportedType(t *testing.T) {
	store := newTestUploadStore(t)

	fh := multipartFile(t, "file", "shell.php", []byte("<?php"))
	_, err := store.SaveImage(fh, "logo")
	assert.ErrorIs(t, err, mudradesk.ErrUnsupportedFileType)
}

func TestUploadStoreRejectsOversizedFile(t *testing.T) {
	dir := t.TempDir()
	store, err := mudradesk.NewUploadStore(
		filepath.Join(dir, "uploads"),
		filepath.Join(dir, "shared"),
		mudradesk.WithUploadMaxBytes(8),
	)
	require.NoError(t, err)

	fh := multipartFile(t, "file", "logo.png", testPNG(t))
	_, err = store.SaveImage(fh, "logo")
	assert.ErrorIs(t, err, mudradesk.ErrFileTooLarge)
}

func TestUploadStoreRemoveIsIdempotent(t *testing.T) {
	store := newTestUploadStore(t)

	fh := multipartFile(t, "file", "logo.png", testPNG(t))
	name, err := store.SaveImage(fh, "logo")
	require.NoError(t, err)

	require.NoError(t, store.Remove(name))
	require.NoError(t, store.Remove(name))

	_, err = store.ImagePath(name)
	assert.Error(t, err)
}

func TestUploadStoreWatermark(t *testing.T) {
	store := newTestUploadStore(t)

	fh := multipartFile(t, "file", "logo.png", testPNG(t))
	name, err := store.SaveImage(fh, "logo")
	require.NoError(t, err)

	data, err := store.Watermark(name)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	// Every pixel is gray: equal channels.
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			assert.Equal(t, r, g)
			assert.Equal(t, g, b)
		}
	}
}

func TestUploadStoreSharedPDFRoundTrip(t *testing.T) {
	store := newTestUploadStore(t)

	fh := multipartFile(t, "file", "invoice.pdf", []byte("%PDF-1.4 test"))
	token, err := store.SaveSharedPDF(fh, mudradesk.NewShareToken())
	require.NoError(t, err)

	path, err := store.SharedPath(token)
	require.NoError(t, err)
	assert.FileExists(t, path)

	t.Run("rejects non-pdf", func(t *testing.T) {
		bad := multipartFile(t, "file", "invoice.exe", []byte("MZ"))
		_, err := store.SaveSharedPDF(bad, mudradesk.NewShareToken())
		assert.ErrorIs(t, err, mudradesk.ErrUnsupportedFileType)
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := store.SharedPath("doesnotexist")
		assert.Error(t, err)
	})

	t.Run("traversal token", func(t *testing.T) {
		_, err := store.SharedPath("../../etc/passwd")
		assert.Error(t, err)
	})
}
