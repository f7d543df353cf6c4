package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"case_registry_go/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// ErrObjectNotFound is returned when a storage key does not exist
var ErrObjectNotFound = errors.New("stored object not found")

// StorageProvider keeps attachment bytes. Metadata lives in the attachments table.
type StorageProvider interface {
	Put(ctx context.Context, key string, reader io.Reader, contentType string, size int64) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Name() string
}

// NewStorage picks R2 when it is configured and reachable, local disk otherwise
func NewStorage(cfg *config.Config) StorageProvider {
	if !cfg.R2Configured() {
		log.Printf("Storage connection established (Local filesystem - path: %s)", cfg.UploadDir)
		return NewLocalStorage(cfg.UploadDir)
	}

	r2, err := NewR2Storage(cfg)
	if err != nil {
		log.Printf("[WARNING] Failed to initialize R2 storage: %v. Falling back to local storage.", err)
		return NewLocalStorage(cfg.UploadDir)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := r2.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(r2.bucket)}); err != nil {
		log.Printf("[WARNING] R2 bucket connection test failed: %v. Falling back to local storage.", err)
		return NewLocalStorage(cfg.UploadDir)
	}

	log.Printf("Storage connection established (Cloudflare R2 - bucket: %s)", cfg.R2BucketName)
	return r2
}

// R2Storage stores objects in a Cloudflare R2 bucket through the S3 API
type R2Storage struct {
	client *s3.Client
	bucket string
}

// NewR2Storage creates an S3 client for the account's R2 endpoint
func NewR2Storage(cfg *config.Config) (*R2Storage, error) {
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID)

	creds := credentials.NewStaticCredentialsProvider(cfg.R2AccessKeyID, cfg.R2SecretAccessKey, "")
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithCredentialsProvider(creds),
		awsconfig.WithRegion("auto"), // R2 uses "auto" region
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &R2Storage{client: client, bucket: cfg.R2BucketName}, nil
}

// Name identifies the provider in logs
func (r *R2Storage) Name() string {
	return "r2"
}

// Put uploads an object
func (r *R2Storage) Put(ctx context.Context, key string, reader io.Reader, contentType string, size int64) error {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(key),
		Body:          reader,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to R2: %w", err)
	}
	return nil
}

// Open streams an object
func (r *R2Storage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	result, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object from R2: %w", err)
	}
	return result.Body, nil
}

// Delete removes an object
func (r *R2Storage) Delete(ctx context.Context, key string) error {
	_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from R2: %w", err)
	}
	return nil
}

// LocalStorage stores objects under a directory on disk
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage creates a local storage provider rooted at baseDir
func NewLocalStorage(baseDir string) *LocalStorage {
	return &LocalStorage{baseDir: baseDir}
}

// Name identifies the provider in logs
func (l *LocalStorage) Name() string {
	return "local"
}

// resolve maps a key to a path that cannot escape baseDir
func (l *LocalStorage) resolve(key string) (string, error) {
	clean := path.Clean("/" + filepath.ToSlash(key))
	if clean == "/" {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(l.baseDir, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

// Put writes an object to disk, creating directories as needed
func (l *LocalStorage) Put(ctx context.Context, key string, reader io.Reader, contentType string, size int64) error {
	fullPath, err := l.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	dst, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, reader); err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}
	return nil
}

// Open returns a reader for a stored object
func (l *LocalStorage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := l.resolve(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(fullPath)
	if os.IsNotExist(err) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Delete removes a stored object; missing objects are ignored
func (l *LocalStorage) Delete(ctx context.Context, key string) error {
	fullPath, err := l.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// GenerateAttachmentKey creates a unique key for a case attachment, keeping the file extension
// Format: cases/{caseID}/attachments/{uuid}_{unix}{ext}
func GenerateAttachmentKey(caseID, originalFilename string) string {
	ext := strings.ToLower(filepath.Ext(originalFilename))
	return fmt.Sprintf("cases/%s/attachments/%s_%d%s", caseID, uuid.New().String(), time.Now().Unix(), ext)
}
