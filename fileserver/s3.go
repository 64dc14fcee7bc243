package fileserver

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type ObjectStore interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type ObjectPresigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Host uploads files to a bucket and hands out presigned GET URLs. S3 answers
// HEAD and Range requests itself.
type S3Host struct {
	store     ObjectStore
	presigner ObjectPresigner
	bucket    string
	prefix    string
	ttl       time.Duration
}

func NewS3Host(client *s3.Client, bucket string, prefix string, ttl time.Duration) *S3Host {
	return newS3Host(client, s3.NewPresignClient(client), bucket, prefix, ttl)
}

func newS3Host(store ObjectStore, presigner ObjectPresigner, bucket string, prefix string, ttl time.Duration) *S3Host {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &S3Host{
		store:     store,
		presigner: presigner,
		bucket:    bucket,
		prefix:    strings.TrimLeft(prefix, "/"),
		ttl:       ttl,
	}
}

func (h *S3Host) Serve(ctx context.Context, data []byte) (*ServedFile, error) {
	key := h.prefix + uuid.NewString() + ".mp4"
	_, err := h.store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(h.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentTypeMP4),
	})
	if err != nil {
		return nil, fmt.Errorf("uploading %s to s3: %w", key, err)
	}

	presigned, err := h.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(h.ttl))
	if err != nil {
		h.deleteObject(key)
		return nil, fmt.Errorf("presigning %s: %w", key, err)
	}
	log.WithField("bucket", h.bucket).WithField("key", key).Debug("serving file from s3")

	return NewServedFile(presigned.URL, func() error {
		return h.deleteObject(key)
	}), nil
}

func (h *S3Host) deleteObject(key string) error {
	// The publish context may already be cancelled when the file is released
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_, err := h.store.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		log.WithField("bucket", h.bucket).WithField("key", key).Warnf("error deleting served object: %v", err)
	}
	return err
}
