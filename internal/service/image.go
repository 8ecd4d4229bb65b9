package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pageza/foodgram/backend/config"
)

const maxImageBytes = 5 << 20

var imageContentTypes = map[string]string{
	"png":  "image/png",
	"jpeg": "image/jpeg",
	"jpg":  "image/jpeg",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// ImageStore persists uploaded recipe images and returns their public URL.
type ImageStore interface {
	Save(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

// DecodedImage is the payload of a data:image/...;base64 URI.
type DecodedImage struct {
	Data        []byte
	Ext         string
	ContentType string
}

// DecodeImage parses a "data:image/<ext>;base64,<payload>" string.
func DecodeImage(dataURI string) (*DecodedImage, error) {
	header, payload, ok := strings.Cut(dataURI, ";base64,")
	if !ok || !strings.HasPrefix(header, "data:image/") {
		return nil, newError(ErrInvalid, "image must be a base64 data URI")
	}

	ext := strings.ToLower(strings.TrimPrefix(header, "data:image/"))
	contentType, ok := imageContentTypes[ext]
	if !ok {
		return nil, newError(ErrInvalid, "unsupported image type %q", ext)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, newError(ErrInvalid, "image is not valid base64")
	}
	if len(data) == 0 || len(data) > maxImageBytes {
		return nil, newError(ErrInvalid, "image must be between 1 byte and %d MB", maxImageBytes>>20)
	}

	if ext == "jpg" {
		ext = "jpeg"
	}
	return &DecodedImage{Data: data, Ext: ext, ContentType: contentType}, nil
}

// ImageService decodes uploaded images and hands them to a store.
type ImageService struct {
	store ImageStore
	log   logrus.FieldLogger
}

func NewImageService(store ImageStore, log logrus.FieldLogger) *ImageService {
	return &ImageService{store: store, log: log}
}

// SaveRecipeImage stores a data URI under a fresh key and returns its URL.
func (s *ImageService) SaveRecipeImage(ctx context.Context, dataURI string) (string, error) {
	img, err := DecodeImage(dataURI)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("recipes/images/%s.%s", uuid.NewString(), img.Ext)
	url, err := s.store.Save(ctx, key, img.Data, img.ContentType)
	if err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}

	s.log.WithFields(logrus.Fields{"key": key, "bytes": len(img.Data)}).Debug("Stored recipe image")
	return url, nil
}

// Remove deletes a previously stored image; failures are logged, not returned.
func (s *ImageService) Remove(ctx context.Context, url string) {
	if url == "" {
		return
	}
	if err := s.store.Delete(ctx, url); err != nil {
		s.log.WithError(err).WithField("url", url).Warn("Failed to delete recipe image")
	}
}

// S3ImageStore keeps images in an S3 bucket.
type S3ImageStore struct {
	cfg *config.S3Config
}

func NewS3ImageStore(cfg *config.S3Config) *S3ImageStore {
	return &S3ImageStore{cfg: cfg}
}

func (s *S3ImageStore) Save(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.cfg.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return s.cfg.ObjectURL(key), nil
}

func (s *S3ImageStore) Delete(ctx context.Context, url string) error {
	key, ok := strings.CutPrefix(url, s.cfg.ObjectURL(""))
	if !ok {
		return fmt.Errorf("url %q is not in bucket %s", url, s.cfg.BucketName)
	}
	_, err := s.cfg.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.BucketName),
		Key:    aws.String(key),
	})
	return err
}

// DiskImageStore writes images below a media root served at baseURL.
type DiskImageStore struct {
	root    string
	baseURL string
}

func NewDiskImageStore(root, baseURL string) *DiskImageStore {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &DiskImageStore{root: root, baseURL: baseURL}
}

func (s *DiskImageStore) Save(_ context.Context, key string, data []byte, _ string) (string, error) {
	dst := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("failed to create media directory: %w", err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	return s.baseURL + path.Clean(key), nil
}

func (s *DiskImageStore) Delete(_ context.Context, url string) error {
	key, ok := strings.CutPrefix(url, s.baseURL)
	if !ok || strings.Contains(key, "..") {
		return fmt.Errorf("url %q is not in the media root", url)
	}
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(key)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
