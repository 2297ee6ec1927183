package media

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

// smallest valid png signature plus IHDR chunk start
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestCheckImage(t *testing.T) {
	tests := []struct {
		name string
		file *File
		want error
	}{
		{"png", NewFile("a.png", pngHeader), nil},
		{"text", NewFile("a.txt", []byte("hello there")), ErrUnsupportedType},
		{"empty", NewFile("a.png", nil), ErrEmptyFile},
		{"too large", &File{Filename: "big.png", ContentType: "image/png", Data: make([]byte, MaxImageSize+1)}, ErrFileTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := CheckImage(tt.file); !errors.Is(err, tt.want) {
				t.Errorf("CheckImage() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNewFileSniffsContentType(t *testing.T) {
	f := NewFile("spoofed.jpg", pngHeader)
	if f.ContentType != "image/png" {
		t.Errorf("Expected image/png, got %s", f.ContentType)
	}
}

func TestReadRejectsOversized(t *testing.T) {
	_, err := Read("big.png", bytes.NewReader(make([]byte, MaxImageSize+10)))
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("Expected ErrFileTooLarge, got %v", err)
	}
}

type slowUploader struct{}

func (slowUploader) Upload(ctx context.Context, f *File) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(time.Second):
		return "https://cdn.example.com/late.png", nil
	}
}

type emptyUploader struct{}

func (emptyUploader) Upload(context.Context, *File) (string, error) { return "", nil }

func TestWithTimeout(t *testing.T) {
	u := WithTimeout(slowUploader{}, 20*time.Millisecond)
	_, err := u.Upload(context.Background(), NewFile("a.png", pngHeader))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}

	u = WithTimeout(emptyUploader{}, time.Second)
	if _, err := u.Upload(context.Background(), NewFile("a.png", pngHeader)); err == nil {
		t.Error("Expected an error for an empty url")
	}
}

func TestS3PublicURL(t *testing.T) {
	s := &S3{bucket: "chat", region: "eu-west-1", folder: "uploads"}
	if got := s.publicURL("uploads/a b.png"); got != "https://chat.s3.eu-west-1.amazonaws.com/uploads/a%20b.png" {
		t.Errorf("unexpected url %s", got)
	}

	s.publicBaseURL = "https://cdn.example.com"
	if got := s.publicURL("uploads/x.png"); got != "https://cdn.example.com/uploads/x.png" {
		t.Errorf("unexpected url %s", got)
	}
}
