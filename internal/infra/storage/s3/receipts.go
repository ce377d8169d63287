package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"stayledger/internal/app/policies"
	"stayledger/internal/domain/pricing"
)

// objectStore is the part of *minio.Client the archive uses.
type objectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	StatObject(ctx context.Context, bucket, object string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// ReceiptArchive writes each booking's pricing snapshot once to an
// S3-compatible bucket. A receipt that already exists is never overwritten.
type ReceiptArchive struct {
	bucket         string
	prefix         string
	client         objectStore
	logger         *slog.Logger
	now            func() time.Time
	bucketInitOnce sync.Once
	bucketInitErr  error
}

// NewReceiptArchive configures an archive using the provided endpoint and credentials.
func NewReceiptArchive(endpoint string, useSSL bool, accessKey, secretKey, bucket string, logger *slog.Logger) (*ReceiptArchive, error) {
	cleanEndpoint := strings.TrimSpace(endpoint)
	if cleanEndpoint == "" {
		return nil, errors.New("s3: endpoint is required")
	}
	if bucket = strings.TrimSpace(bucket); bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}
	minioClient, err := minio.New(parseEndpoint(cleanEndpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(accessKey), strings.TrimSpace(secretKey), ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: create client: %w", err)
	}
	return newReceiptArchive(minioClient, bucket, logger), nil
}

func newReceiptArchive(client objectStore, bucket string, logger *slog.Logger) *ReceiptArchive {
	return &ReceiptArchive{
		bucket: bucket,
		prefix: "receipts/",
		client: client,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type receiptDocument struct {
	BookingID  string                  `json:"booking_id"`
	ArchivedAt time.Time               `json:"archived_at"`
	Breakdown  pricing.Breakdown       `json:"breakdown"`
	Guest      pricing.GuestReceipt    `json:"guest_receipt"`
	Host       pricing.HostPayout      `json:"host_payout"`
	Platform   pricing.PlatformRevenue `json:"platform_revenue"`
}

func (a *ReceiptArchive) Put(ctx context.Context, bookingID string, breakdown pricing.Breakdown) error {
	bookingID = strings.Trim(strings.TrimSpace(bookingID), "/")
	if bookingID == "" {
		return errors.New("s3: booking id is required")
	}
	if err := a.ensureBucket(ctx); err != nil {
		return err
	}
	key := a.objectKey(bookingID)
	exists, err := a.exists(ctx, key)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	body, err := json.Marshal(receiptDocument{
		BookingID:  bookingID,
		ArchivedAt: a.now(),
		Breakdown:  breakdown,
		Guest:      breakdown.GuestReceipt(),
		Host:       breakdown.HostPayout(),
		Platform:   breakdown.PlatformRevenue(),
	})
	if err != nil {
		return err
	}
	_, err = a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType:  "application/json",
		UserMetadata: map[string]string{"booking-id": bookingID, "rate-version": breakdown.RateVersionID},
	})
	if err != nil {
		return fmt.Errorf("s3: put object: %w", err)
	}
	if a.logger != nil {
		a.logger.Info("receipt archived", "bucket", a.bucket, "key", key)
	}
	return nil
}

func (a *ReceiptArchive) exists(ctx context.Context, key string) (bool, error) {
	_, err := a.client.StatObject(ctx, a.bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return false, nil
	}
	return false, fmt.Errorf("s3: stat object: %w", err)
}

func (a *ReceiptArchive) ensureBucket(ctx context.Context) error {
	a.bucketInitOnce.Do(func() {
		exists, err := a.client.BucketExists(ctx, a.bucket)
		if err != nil {
			a.bucketInitErr = fmt.Errorf("s3: check bucket: %w", err)
			return
		}
		if exists {
			return
		}
		if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
			a.bucketInitErr = fmt.Errorf("s3: create bucket: %w", err)
		}
	})
	return a.bucketInitErr
}

func (a *ReceiptArchive) objectKey(bookingID string) string {
	return a.prefix + bookingID + ".json"
}

func parseEndpoint(endpoint string) string {
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return endpoint
}

var _ policies.ReceiptArchive = (*ReceiptArchive)(nil)
