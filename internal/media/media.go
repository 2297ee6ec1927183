// Package media hands user uploads to a hosted media service and returns the
// durable URL it assigns.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

const MaxImageSize = 5 << 20

// MaxRequestSize caps a whole request that may carry one image plus its form
// fields.
const MaxRequestSize = MaxImageSize + 1<<20

var (
	ErrFileTooLarge    = errors.New("file must be under 5 MB")
	ErrUnsupportedType = errors.New("invalid file type")
	ErrEmptyFile       = errors.New("file is empty")

	allowedImageTypes = []string{"image/png", "image/jpeg", "image/webp"}
)

// File is an upload held in memory. ContentType is sniffed from the bytes,
// not taken from the client.
type File struct {
	Filename    string
	ContentType string
	Data        []byte
}

func NewFile(filename string, data []byte) *File {
	return &File{
		Filename:    filename,
		ContentType: mimetype.Detect(data).String(),
		Data:        data,
	}
}

// ReadFile loads a multipart upload, refusing anything over MaxImageSize.
func ReadFile(fh *multipart.FileHeader) (*File, error) {
	if fh.Size > MaxImageSize {
		return nil, ErrFileTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(fh.Filename, f)
}

// Read loads at most MaxImageSize bytes from r.
func Read(filename string, r io.Reader) (*File, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxImageSize {
		return nil, ErrFileTooLarge
	}
	return NewFile(filename, data), nil
}

// CheckImage accepts png, jpeg and webp images up to MaxImageSize.
func CheckImage(f *File) error {
	switch {
	case len(f.Data) == 0:
		return ErrEmptyFile
	case len(f.Data) > MaxImageSize:
		return ErrFileTooLarge
	}
	mt := mimetype.Lookup(f.ContentType)
	for _, allowed := range allowedImageTypes {
		if mt != nil && mt.Is(allowed) {
			return nil
		}
	}
	return ErrUnsupportedType
}

type Uploader interface {
	Upload(ctx context.Context, f *File) (string, error)
}

type timeoutUploader struct {
	next    Uploader
	timeout time.Duration
}

// WithTimeout bounds every upload made through u by d.
func WithTimeout(u Uploader, d time.Duration) Uploader {
	if d <= 0 {
		return u
	}
	return &timeoutUploader{next: u, timeout: d}
}

func (t *timeoutUploader) Upload(ctx context.Context, f *File) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	url, err := t.next.Upload(ctx, f)
	if err != nil {
		return "", fmt.Errorf("upload %q: %w", f.Filename, err)
	}
	if url == "" {
		return "", fmt.Errorf("upload %q: media host returned no url", f.Filename)
	}
	return url, nil
}

type observedUploader struct {
	next    Uploader
	observe func(error)
}

// WithObserver reports the outcome of every upload made through u.
func WithObserver(u Uploader, observe func(error)) Uploader {
	return &observedUploader{next: u, observe: observe}
}

func (o *observedUploader) Upload(ctx context.Context, f *File) (string, error) {
	url, err := o.next.Upload(ctx, f)
	o.observe(err)
	return url, err
}
