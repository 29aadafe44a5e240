package audit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"appforge/internal/pipeline"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var ErrNotFound = errors.New("audit: payload not found")

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// S3Store keeps full milestone payloads in object storage, keyed by the
// conversation identifier of the transcript entry the bridge emitted. The
// transcript stays compact; the audit trail stays complete.
type S3Store struct {
	client     *minio.Client
	bucketName string
	region     string
	initOnce   sync.Once
	initErr    error
}

func NewS3Store(cfg S3Config) (*S3Store, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("audit: s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("audit: s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("audit: s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("audit: init s3 client: %w", err)
	}

	return &S3Store{
		client:     client,
		bucketName: bucket,
		region:     region,
	}, nil
}

func (s *S3Store) ensureBucket(ctx context.Context) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("audit: store is nil")
	}
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucketName)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

// Record implements chat.PayloadRecorder.
func (s *S3Store) Record(ctx context.Context, conversationID string, kind pipeline.Kind, payload []byte) error {
	if s == nil {
		return fmt.Errorf("audit: store is nil")
	}
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return fmt.Errorf("audit: conversation_id is required")
	}
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("audit: ensure bucket: %w", err)
	}
	if payload == nil {
		payload = []byte{}
	}

	key := objectKey(conversationID, kind)
	_, err := s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	return err
}

// Fetch returns the payload recorded for a conversation identifier.
func (s *S3Store) Fetch(ctx context.Context, conversationID string, kind pipeline.Kind) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("audit: store is nil")
	}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("audit: ensure bucket: %w", err)
	}

	key := objectKey(strings.TrimSpace(conversationID), kind)
	obj, err := s.client.GetObject(ctx, s.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NoSuchBucket" {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// URL returns a presigned link to a recorded payload, valid for one hour.
func (s *S3Store) URL(ctx context.Context, conversationID string, kind pipeline.Kind) (string, error) {
	if s == nil || s.client == nil {
		return "", fmt.Errorf("audit: store is nil")
	}
	key := objectKey(strings.TrimSpace(conversationID), kind)
	u, err := s.client.PresignedGetObject(ctx, s.bucketName, key, time.Hour, nil)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func objectKey(conversationID string, kind pipeline.Kind) string {
	return conversationID + "/" + string(kind) + ".json"
}
