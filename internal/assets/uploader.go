// Package assets uploads card images to object storage so the upstream can
// reference them by bare file name.
package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	cos "github.com/tencentyun/cos-go-sdk-v5"
)

const (
	DefaultRegion = "ap-hongkong"
	// ObjectPrefix matches the directory the image resolver expands bare names into.
	ObjectPrefix = "images/"
)

var (
	ErrUploadUnavailable = errors.New("image upload is not configured")
	ErrEmptyUpload       = errors.New("image bytes are empty")
)

var fileNamePattern = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

type Config struct {
	SecretID   string
	SecretKey  string
	Region     string
	BucketName string
	// BucketURL overrides the derived https://<bucket>.cos.<region>.myqcloud.com endpoint.
	BucketURL string
	Timeout   time.Duration
}

type Uploader struct {
	client  *cos.Client
	timeout time.Duration
}

// NewUploader returns ErrUploadUnavailable when credentials or the bucket are missing.
func NewUploader(cfg Config) (*Uploader, error) {
	secretID := strings.TrimSpace(cfg.SecretID)
	secretKey := strings.TrimSpace(cfg.SecretKey)
	bucket := strings.TrimSpace(cfg.BucketName)
	if secretID == "" || secretKey == "" || bucket == "" {
		return nil, ErrUploadUnavailable
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = DefaultRegion
	}
	rawBucketURL := strings.TrimSpace(cfg.BucketURL)
	if rawBucketURL == "" {
		rawBucketURL = fmt.Sprintf("https://%s.cos.%s.myqcloud.com", bucket, region)
	}
	bucketURL, err := url.Parse(rawBucketURL)
	if err != nil {
		return nil, fmt.Errorf("invalid bucket url %q: %w", rawBucketURL, err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	client := cos.NewClient(&cos.BaseURL{BucketURL: bucketURL}, &http.Client{
		Transport: &cos.AuthorizationTransport{
			SecretID:  secretID,
			SecretKey: secretKey,
		},
	})
	return &Uploader{client: client, timeout: timeout}, nil
}

// Upload stores data under images/<name> and returns <name>.
func (u *Uploader) Upload(ctx context.Context, data []byte, fileName string) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyUpload
	}
	name := SanitizeFileName(fileName)

	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	if _, err := u.client.Object.Put(ctx, ObjectPrefix+name, bytes.NewReader(data), nil); err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	return name, nil
}

func SanitizeFileName(fileName string) string {
	base := strings.TrimSpace(filepath.Base(fileName))
	if base == "" || base == "." || base == "/" {
		base = "upload.jpg"
	}
	base = fileNamePattern.ReplaceAllString(base, "_")
	if base == "" {
		base = "upload.jpg"
	}
	return base
}
