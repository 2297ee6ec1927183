package media

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// S3 stores uploads in a bucket whose objects are publicly readable, either
// directly or behind publicBaseURL (a CDN or MinIO endpoint).
type S3 struct {
	uploader      *manager.Uploader
	bucket        string
	region        string
	folder        string
	publicBaseURL string
}

func NewS3(ctx context.Context, region, bucket, folder, publicBaseURL string) (*S3, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(region))
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg)
	return &S3{
		uploader:      manager.NewUploader(client),
		bucket:        bucket,
		region:        region,
		folder:        folder,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

func (s *S3) Upload(ctx context.Context, f *File) (string, error) {
	key := s.objectKey(f)
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(f.Data),
		ContentType: aws.String(f.ContentType),
	})
	if err != nil {
		return "", err
	}
	return s.publicURL(key), nil
}

func (s *S3) objectKey(f *File) string {
	ext := ""
	if mt := mimetype.Lookup(f.ContentType); mt != nil {
		ext = mt.Extension()
	}
	return s.folder + "/" + uuid.NewString() + ext
}

func (s *S3) publicURL(key string) string {
	escaped := (&url.URL{Path: key}).EscapedPath()
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + escaped
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, escaped)
}
