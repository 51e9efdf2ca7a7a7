package r2

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	conf "github.com/surajkumar4aug/csv-image-compressor/internal/config"
)

type S3 struct {
	AccountID          string
	Bucket             string
	Region             string // usually "auto" for R2
	AwsAccessKeyId     string
	AwsSecretAccessKey string
	PublicBaseURL      string

	MaxRetries     int
	RetryBaseDelay time.Duration

	S3Client *s3.Client
	Uploader *manager.Uploader
}

func NewStorage(cfg *conf.R2Config) (*S3, error) {
	r2c := &S3{
		AccountID:          cfg.AccountID,
		Bucket:             cfg.BucketName,
		Region:             "auto",
		AwsAccessKeyId:     cfg.AccessKeyID,
		AwsSecretAccessKey: cfg.SecretKey,
		PublicBaseURL:      strings.TrimRight(cfg.PublicBaseURL, "/"),
		MaxRetries:         3,
		RetryBaseDelay:     300 * time.Millisecond,
	}
	if err := r2c.Run(); err != nil {
		return nil, err
	}

	return r2c, nil
}

func (s *S3) Run() error {
	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.AwsAccessKeyId, s.AwsSecretAccessKey, "",
		)),
		config.WithRegion(s.Region),
	)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	s.S3Client = s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", s.AccountID))
		o.UsePathStyle = true
	})
	s.Uploader = manager.NewUploader(s.S3Client)

	log.Println("✅ R2 client initialized.")
	return nil
}

// Upload puts payload under key, retrying transient failures with
// exponential backoff, and returns the object's public URL.
func (s *S3) Upload(ctx context.Context, key, contentType string, payload []byte) (string, error) {
	var err error
	for attempt := 1; ; attempt++ {
		_, err = s.Uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.Bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(payload),
			ContentType: aws.String(contentType),
		})
		if err == nil {
			return s.PublicURL(key), nil
		}

		if attempt > s.MaxRetries || ctx.Err() != nil {
			return "", fmt.Errorf("failed to upload %q: %w", key, err)
		}

		backoff := s.backoffDelay(attempt)
		timer := time.NewTimer(backoff)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		}
	}
}

// UploadUnique uploads like Upload but never overwrites: when key is
// already taken a short random suffix is appended until a free key is
// found.
func (s *S3) UploadUnique(ctx context.Context, key, contentType string, payload []byte) (string, error) {
	target := key
	for {
		taken, err := s.exists(ctx, target)
		if err != nil {
			return "", err
		}
		if !taken {
			break
		}
		target = fmt.Sprintf("%s-%s", key, uuid.NewString()[:8])
	}
	return s.Upload(ctx, target, contentType, payload)
}

func (s *S3) exists(ctx context.Context, key string) (bool, error) {
	_, err := s.S3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check %q: %w", key, err)
}

func (s *S3) backoffDelay(attempt int) time.Duration {
	delay := s.RetryBaseDelay << (attempt - 1)
	jitter := time.Duration(int64(delay) / 10)
	return delay - (jitter / 2) + time.Duration(int64(jitter)*time.Now().UnixNano()%2)
}

func (s *S3) Download(ctx context.Context, key string) ([]byte, string, error) {
	out, err := s.S3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to download %q: %w", key, err)
	}
	defer out.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(out.Body); err != nil {
		return nil, "", fmt.Errorf("failed to read body for %q: %w", key, err)
	}

	contentType := ""
	if out.ContentType != nil {
		contentType = *out.ContentType
	}

	return buf.Bytes(), contentType, nil
}

// Delete removes key from the bucket. Deleting an absent key is a no-op
// in S3, which is exactly the idempotence the manifest cleanup wants.
func (s *S3) Delete(ctx context.Context, key string) error {
	_, err := s.S3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

// PublicURL maps an object key to its public address.
func (s *S3) PublicURL(key string) string {
	return s.PublicBaseURL + "/" + key
}
