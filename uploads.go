package mudradesk

import (
	"bytes"
	"image"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// DefaultUploadMaxBytes caps uploaded assets at 16MB, matching the
// server body limit.
const DefaultUploadMaxBytes = 16 << 20

var allowedImageExts = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
}

// ErrUnsupportedFileType rejects uploads outside the allowed set.
var ErrUnsupportedFileType = goerrors.New("unsupported file type", goerrors.CategoryValidation).
	WithTextCode("UNSUPPORTED_FILE_TYPE").
	WithCode(goerrors.CodeBadRequest)

// ErrFileTooLarge rejects uploads above the configured limit.
var ErrFileTooLarge = goerrors.New("file exceeds the upload size limit", goerrors.CategoryValidation).
	WithTextCode("FILE_TOO_LARGE").
	WithCode(goerrors.CodeBadRequest)

// UploadStore owns the asset and shared-PDF directories. All filenames
// and share tokens are sanitized before they touch the filesystem.
type UploadStore struct {
	dir       string
	sharedDir string
	maxBytes  int64
	now       func() time.Time
	logger    Logger
}

type UploadStoreOption func(*UploadStore)

func WithUploadMaxBytes(n int64) UploadStoreOption {
	return func(s *UploadStore) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

func WithUploadClock(clock func() time.Time) UploadStoreOption {
	return func(s *UploadStore) {
		if clock != nil {
			s.now = clock
		}
	}
}

func WithUploadLogger(logger Logger) UploadStoreOption {
	return func(s *UploadStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewUploadStore(dir, sharedDir string, opts ...UploadStoreOption) (*UploadStore, error) {
	s := &UploadStore{
		dir:       dir,
		sharedDir: sharedDir,
		maxBytes:  DefaultUploadMaxBytes,
		now:       time.Now,
		logger:    defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	for _, d := range []string{s.dir, s.sharedDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create upload directory")
		}
	}

	return s, nil
}

// SanitizeFilename strips path components and anything outside
// [A-Za-z0-9._-], so the result is always safe to join onto the
// upload directory.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}

	out := strings.Trim(b.String(), "._")
	if out == "" {
		out = "file"
	}
	return out
}

// SaveImage stores an uploaded logo/signature/stamp. The stored name is
// prefixed with the asset type and a timestamp so repeated uploads never
// collide.
func (s *UploadStore) SaveImage(fh *multipart.FileHeader, prefix string) (string, error) {
	if fh.Size > s.maxBytes {
		return "", ErrFileTooLarge.WithMetadata(map[string]any{
			"size": fh.Size,
			"max":  s.maxBytes,
		})
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if _, ok := allowedImageExts[ext]; !ok {
		return "", ErrUnsupportedFileType.WithMetadata(map[string]any{
			"extension": ext,
		})
	}

	name := prefix + "_" + s.now().Format("20060102150405") + "_" + SanitizeFilename(fh.Filename)
	if err := s.writeMultipart(fh, filepath.Join(s.dir, name)); err != nil {
		return "", err
	}

	return name, nil
}

// ImagePath resolves a stored asset name to its on-disk path.
func (s *UploadStore) ImagePath(filename string) (string, error) {
	clean := SanitizeFilename(filename)
	path := filepath.Join(s.dir, clean)
	if _, err := os.Stat(path); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryNotFound, "asset not found").
			WithCode(goerrors.CodeNotFound)
	}
	return path, nil
}

// Remove deletes a stored asset. Missing files are not an error; the
// client may retry removals.
func (s *UploadStore) Remove(filename string) error {
	clean := SanitizeFilename(filename)
	err := os.Remove(filepath.Join(s.dir, clean))
	if err != nil && !os.IsNotExist(err) {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to remove asset")
	}
	return nil
}

// Watermark returns a grayscale PNG rendition of a stored image,
// preserving the alpha channel so transparent logos stay transparent.
func (s *UploadStore) Watermark(filename string) ([]byte, error) {
	path, err := s.ImagePath(filename)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open asset")
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "asset is not a decodable image")
	}

	bounds := src.Bounds()
	out := image.NewNRGBA(bounds)
	draw.Draw(out, bounds, src, bounds.Min, draw.Src)

	for i := 0; i < len(out.Pix); i += 4 {
		r := out.Pix[i]
		g := out.Pix[i+1]
		b := out.Pix[i+2]
		gray := uint8((299*uint32(r) + 587*uint32(g) + 114*uint32(b)) / 1000)
		out.Pix[i] = gray
		out.Pix[i+1] = gray
		out.Pix[i+2] = gray
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode watermark")
	}

	return buf.Bytes(), nil
}

// NewShareToken mints a random, unguessable, filesystem-safe token.
func NewShareToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// SanitizeShareToken keeps only [A-Za-z0-9_-]; everything else is
// dropped before the token is used as a filename.
func SanitizeShareToken(token string) string {
	var b strings.Builder
	for _, r := range token {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '_' || r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SaveSharedPDF stores an uploaded invoice PDF under the given share token.
func (s *UploadStore) SaveSharedPDF(fh *multipart.FileHeader, token string) (string, error) {
	if fh.Size > s.maxBytes {
		return "", ErrFileTooLarge.WithMetadata(map[string]any{
			"size": fh.Size,
			"max":  s.maxBytes,
		})
	}

	if strings.ToLower(filepath.Ext(fh.Filename)) != ".pdf" {
		return "", ErrUnsupportedFileType.WithMetadata(map[string]any{
			"extension": filepath.Ext(fh.Filename),
		})
	}

	clean := SanitizeShareToken(token)
	if clean == "" {
		return "", ErrUnsupportedFileType.WithMetadata(map[string]any{
			"reason": "empty share token",
		})
	}

	if err := s.writeMultipart(fh, filepath.Join(s.sharedDir, clean+".pdf")); err != nil {
		return "", err
	}

	return clean, nil
}

// SharedPath resolves a share token to the stored PDF.
func (s *UploadStore) SharedPath(token string) (string, error) {
	clean := SanitizeShareToken(token)
	if clean == "" {
		return "", goerrors.New("shared file not found", goerrors.CategoryNotFound).
			WithCode(goerrors.CodeNotFound)
	}

	path := filepath.Join(s.sharedDir, clean+".pdf")
	if _, err := os.Stat(path); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryNotFound, "shared file not found").
			WithCode(goerrors.CodeNotFound)
	}
	return path, nil
}

func (s *UploadStore) writeMultipart(fh *multipart.FileHeader, dst string) error {
	src, err := fh.Open()
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open upload")
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create file")
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to write file")
	}

	return nil
}
