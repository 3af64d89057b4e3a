// Package images validates uploaded images, re-encodes them and hands the
// result to an object store under a random name.
package images

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultMaxBytes is the largest accepted upload (5 MiB).
const DefaultMaxBytes = 5 << 20

// MaxPixels caps the decoded size of an image, whatever its byte size.
const MaxPixels = 89_478_485

// Kind classifies an ingestion failure.
type Kind int

const (
	BadRequest Kind = iota + 1
	Internal
)

// Error is returned by Ingest. Msg is safe to show to the client.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// contentTypes lists the accepted extensions.
var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
}

// ObjectStore persists encoded images.
type ObjectStore interface {
	Put(ctx context.Context, name string, data []byte, contentType string) error
}

// Ingestor turns an uploaded file into a stored image and its public URL.
type Ingestor struct {
	store    ObjectStore
	prefix   string
	maxBytes int64
	log      *logrus.Logger
}

func NewIngestor(store ObjectStore, urlPrefix string, maxBytes int64, log *logrus.Logger) *Ingestor {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Ingestor{
		store:    store,
		prefix:   strings.TrimRight(urlPrefix, "/"),
		maxBytes: maxBytes,
		log:      log,
	}
}

// MaxBytes is the largest payload Ingest accepts.
func (in *Ingestor) MaxBytes() int64 { return in.maxBytes }

// Ingest validates and stores the upload, returning "<prefix>/<uuid><ext>".
func (in *Ingestor) Ingest(ctx context.Context, filename string, r io.Reader) (string, error) {
	if filename == "" {
		return "", &Error{Kind: BadRequest, Msg: "No file provided"}
	}
	ext := strings.ToLower(filepath.Ext(filename))
	contentType, ok := contentTypes[ext]
	if !ok {
		return "", &Error{Kind: BadRequest, Msg: "Invalid image format. Allowed formats: jpg, jpeg, png, gif"}
	}

	data, err := io.ReadAll(io.LimitReader(r, in.maxBytes+1))
	if err != nil {
		return "", uploadFailed(errors.Wrap(err, "read"))
	}
	if int64(len(data)) > in.maxBytes {
		return "", &Error{
			Kind: BadRequest,
			Msg:  "File size exceeds the limit of " + formatSize(in.maxBytes),
		}
	}

	encoded, err := reencode(data, ext)
	if err != nil {
		return "", uploadFailed(err)
	}

	name := uuid.New().String() + ext
	if err := in.store.Put(ctx, name, encoded, contentType); err != nil {
		return "", uploadFailed(errors.Wrap(err, "store"))
	}

	in.log.WithFields(logrus.Fields{
		"file":  name,
		"bytes": len(encoded),
	}).Info("image stored")
	return in.prefix + "/" + name, nil
}

func uploadFailed(err error) *Error {
	return &Error{Kind: Internal, Msg: "Failed to upload image", Err: err}
}

// formatSize renders n in the largest unit that divides it exactly.
func formatSize(n int64) string {
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%dMB", n>>20)
	case n >= 1<<10 && n%(1<<10) == 0:
		return fmt.Sprintf("%dKB", n>>10)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}

// reencode decodes data as any registered codec and encodes it in the
// codec matching ext. Animated GIFs keep all frames.
func reencode(data []byte, ext string) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "decode")
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > MaxPixels {
		return nil, errors.Errorf("image is %dx%d, above the %d pixel limit", cfg.Width, cfg.Height, MaxPixels)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "decode")
	}

	var buf bytes.Buffer
	switch ext {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	case ".png":
		err = png.Encode(&buf, img)
	case ".gif":
		if format == "gif" {
			var anim *gif.GIF
			if anim, err = gif.DecodeAll(bytes.NewReader(data)); err == nil {
				err = gif.EncodeAll(&buf, anim)
			}
		} else {
			err = gif.Encode(&buf, img, nil)
		}
	}
	if err != nil {
		return nil, errors.Wrap(err, "encode")
	}
	return buf.Bytes(), nil
}
