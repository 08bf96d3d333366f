package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// PhotoStore stores listing photos and their thumbnails.
type PhotoStore interface {
	UploadPhoto(ctx context.Context, propertyID, filename, contentType string, data []byte) (photoURL, thumbURL string, err error)
}

type S3PhotoStore struct {
	uploader   *manager.Uploader
	bucket     string
	region     string
	publicRead bool
}

func NewS3PhotoStore(ctx context.Context, region, bucket string, publicRead bool) (*S3PhotoStore, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	return &S3PhotoStore{
		uploader:   manager.NewUploader(client),
		bucket:     bucket,
		region:     region,
		publicRead: publicRead,
	}, nil
}

// UploadPhoto writes the original under properties/<id>/ and a 320px JPEG next to it.
// A thumbnail that cannot be generated is skipped.
func (s *S3PhotoStore) UploadPhoto(ctx context.Context, propertyID, filename, contentType string, data []byte) (string, string, error) {
	key := fmt.Sprintf("properties/%s/%d_%s_%s", propertyID, time.Now().Unix(), uuid.NewString()[:8], path.Base(filename))
	photoURL, err := s.put(ctx, key, contentType, data)
	if err != nil {
		return "", "", err
	}

	thumb, err := Thumbnail(data)
	if err != nil {
		return photoURL, "", nil
	}
	thumbURL, err := s.put(ctx, key+"_thumb.jpg", "image/jpeg", thumb)
	if err != nil {
		return photoURL, "", nil
	}
	return photoURL, thumbURL, nil
}

func (s *S3PhotoStore) put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	}
	if s.publicRead {
		input.ACL = types.ObjectCannedACLPublicRead
	}
	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return "", fmt.Errorf("s3 upload %s: %w", key, err)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, url.PathEscape(key)), nil
}

type DisabledPhotoStore struct{}

func (DisabledPhotoStore) UploadPhoto(context.Context, string, string, string, []byte) (string, string, error) {
	return "", "", ErrStorageDisabled
}
