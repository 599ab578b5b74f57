package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"sync"
	"testing"

	"charity-backend-go/internal/models"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/disintegration/imaging"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	inputs  []*s3.PutObjectInput
	err     error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[*params.Key] = data
	f.inputs = append(f.inputs, params)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	delete(f.objects, *params.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func testPNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func TestProcess(t *testing.T) {
	processed, err := Process(bytes.NewReader(testPNG(t, 300, 500)))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if processed.Original.Width != OriginalWidth || processed.Original.Height != OriginalHeight {
		t.Errorf("Unexpected original size %dx%d", processed.Original.Width, processed.Original.Height)
	}
	if processed.Thumb.Width != ThumbWidth || processed.Thumb.Height != ThumbHeight {
		t.Errorf("Unexpected thumb size %dx%d", processed.Thumb.Width, processed.Thumb.Height)
	}

	decoded, err := imaging.Decode(bytes.NewReader(processed.Thumb.Data))
	if err != nil {
		t.Fatalf("Thumb is not a valid image: %v", err)
	}
	if decoded.Bounds().Dx() != ThumbWidth {
		t.Errorf("Expected decoded width %d, got %d", ThumbWidth, decoded.Bounds().Dx())
	}
}

func TestProcess_Invalid(t *testing.T) {
	if _, err := Process(strings.NewReader("definitely not an image")); !errors.Is(err, ErrInvalidImage) {
		t.Errorf("Expected ErrInvalidImage, got %v", err)
	}
}

func TestS3Uploader_Upload(t *testing.T) {
	fake := &fakeS3{}
	uploader := newS3Uploader(fake, models.StorageConfig{Bucket: "bucket", CdnBaseURL: "https://cdn.example.com/"})

	url, err := uploader.Upload(context.Background(), originalsPrefix, extension, contentType, []byte("data"))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if !strings.HasPrefix(url, "https://cdn.example.com/charities/originals/") || !strings.HasSuffix(url, ".jpg") {
		t.Errorf("Unexpected url %s", url)
	}

	if len(fake.inputs) != 1 {
		t.Fatalf("Expected 1 put, got %d", len(fake.inputs))
	}
	input := fake.inputs[0]
	if *input.Bucket != "bucket" || *input.CacheControl != cacheControl || *input.ContentType != contentType {
		t.Errorf("Unexpected put input %+v", input)
	}
	if !strings.HasSuffix(url, *input.Key) {
		t.Errorf("Expected url to end with key %s", *input.Key)
	}
}

func TestS3Uploader_DefaultCdnBase(t *testing.T) {
	uploader := newS3Uploader(&fakeS3{}, models.StorageConfig{Bucket: "images.example.com"})

	url, err := uploader.Upload(context.Background(), thumbsPrefix, extension, contentType, []byte("x"))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if !strings.HasPrefix(url, "https://images.example.com/charities/thumbs/") {
		t.Errorf("Unexpected url %s", url)
	}
}

func TestService_Store(t *testing.T) {
	fake := &fakeS3{}
	svc := NewService(newS3Uploader(fake, models.StorageConfig{Bucket: "bucket"}))

	img, err := svc.Store(context.Background(), bytes.NewReader(testPNG(t, 640, 480)))
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if len(fake.objects) != 2 {
		t.Errorf("Expected 2 stored objects, got %d", len(fake.objects))
	}
	if img.OriginalSize != [2]int{OriginalWidth, OriginalHeight} || img.ThumbSize != [2]int{ThumbWidth, ThumbHeight} {
		t.Errorf("Unexpected sizes %v %v", img.OriginalSize, img.ThumbSize)
	}
	if img.OriginalURL == img.ThumbURL {
		t.Error("Expected distinct urls for variants")
	}
}

func TestService_StoreUploadFailure(t *testing.T) {
	svc := NewService(newS3Uploader(&fakeS3{err: errors.New("bucket unavailable")}, models.StorageConfig{Bucket: "b"}))

	if _, err := svc.Store(context.Background(), bytes.NewReader(testPNG(t, 50, 50))); err == nil {
		t.Error("Expected upload failure")
	}
}

func TestService_Discard(t *testing.T) {
	fake := &fakeS3{}
	svc := NewService(newS3Uploader(fake, models.StorageConfig{Bucket: "bucket", CdnBaseURL: "https://cdn.example.com"}))

	img, err := svc.Store(context.Background(), bytes.NewReader(testPNG(t, 64, 64)))
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := svc.Discard(context.Background(), *img); err != nil {
		t.Fatalf("Discard failed: %v", err)
	}
	if len(fake.objects) != 0 {
		t.Errorf("Expected both renditions deleted, %d left", len(fake.objects))
	}
}

func TestS3Uploader_DeleteForeignURL(t *testing.T) {
	uploader := newS3Uploader(&fakeS3{}, models.StorageConfig{Bucket: "bucket", CdnBaseURL: "https://cdn.example.com"})

	if err := uploader.Delete(context.Background(), "https://elsewhere.example.com/charities/thumbs/a.jpg"); err == nil {
		t.Error("Expected error for url outside the bucket")
	}
}
