package s3

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/minio/minio-go/v7"

	"stayledger/internal/domain/pricing"
	"stayledger/internal/domain/shared/money"
)

type fakeStore struct {
	buckets map[string]bool
	objects map[string][]byte
	puts    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{buckets: map[string]bool{}, objects: map[string][]byte{}}
}

func (f *fakeStore) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return f.buckets[bucket], nil
}

func (f *fakeStore) MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error {
	f.buckets[bucket] = true
	return nil
}

func (f *fakeStore) StatObject(ctx context.Context, bucket, object string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	if _, ok := f.objects[bucket+"/"+object]; ok {
		return minio.ObjectInfo{Key: object}, nil
	}
	return minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404}
}

func (f *fakeStore) PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	body, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.objects[bucket+"/"+object] = body
	f.puts++
	return minio.UploadInfo{Bucket: bucket, Key: object, Size: size}, nil
}

func breakdown(total int64) pricing.Breakdown {
	return pricing.Breakdown{
		Currency:      "INR",
		HostSubtotal:  money.Money{Amount: 345000, Currency: "INR"},
		PlatformFee:   money.Money{Amount: 51750, Currency: "INR"},
		HostEarning:   money.Money{Amount: 293250, Currency: "INR"},
		TotalAmount:   money.Money{Amount: total, Currency: "INR"},
		RateVersionID: "v1",
	}
}

func TestReceiptArchiveWritesOnce(t *testing.T) {
	store := newFakeStore()
	archive := newReceiptArchive(store, "receipts", nil)
	ctx := context.Background()

	if err := archive.Put(ctx, "bk-1", breakdown(496035)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if !store.buckets["receipts"] {
		t.Fatalf("bucket was not created")
	}
	if err := archive.Put(ctx, "bk-1", breakdown(1)); err != nil {
		t.Fatalf("second put: %v", err)
	}
	if store.puts != 1 {
		t.Fatalf("receipt overwritten, puts=%d", store.puts)
	}

	var doc receiptDocument
	if err := json.Unmarshal(store.objects["receipts/receipts/bk-1.json"], &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Guest.Total.Amount != 496035 || doc.Host.Earning.Amount != 293250 || doc.Platform.RateVersionID != "v1" {
		t.Fatalf("receipt = %+v", doc)
	}
}

func TestReceiptArchiveRequiresBookingID(t *testing.T) {
	archive := newReceiptArchive(newFakeStore(), "receipts", nil)
	if err := archive.Put(context.Background(), " / ", breakdown(1)); err == nil {
		t.Fatalf("expected error for empty booking id")
	}
}

func TestNewReceiptArchiveValidatesSettings(t *testing.T) {
	if _, err := NewReceiptArchive("", false, "a", "b", "bucket", nil); err == nil {
		t.Fatalf("expected endpoint error")
	}
	if _, err := NewReceiptArchive("http://localhost:9000", false, "a", "b", " ", nil); err == nil {
		t.Fatalf("expected bucket error")
	}
}
