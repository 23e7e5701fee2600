package vault

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"pstalker/internal/tracker"
)

// fakeS3 implements the calls S3Vault makes for small objects. Multipart
// methods come from the embedded nil interface and panic if reached.
type fakeS3 struct {
	S3API
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &s3.ListObjectsV2Output{}
	for key := range f.objects {
		if strings.HasPrefix(key, aws.ToString(in.Prefix)) {
			out.Contents = append(out.Contents, types.Object{Key: aws.String(key)})
		}
	}
	return out, nil
}

func (f *fakeS3) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, nil
}

func TestS3Vault_RoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	v := NewS3VaultWithClient("cloud", "bucket", "/backups/", fake)

	if err := v.Put(ctx, "host-1", "a.db", strings.NewReader("snapshot"), 8); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if _, ok := fake.objects["backups/host-1/a.db"]; !ok {
		t.Fatalf("object key not namespaced as backups/host-1/a.db: %v", fake.objects)
	}

	var buf bytes.Buffer
	if err := v.Get(ctx, "host-1", "a.db", &buf); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if buf.String() != "snapshot" {
		t.Errorf("Get() = %q, want %q", buf.String(), "snapshot")
	}

	err := v.Get(ctx, "host-1", "missing.db", &buf)
	if !errors.Is(err, tracker.ErrBackupNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrBackupNotFound", err)
	}

	if err := v.Put(ctx, "host-10", "b.db", strings.NewReader("x"), 1); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	names, err := v.List(ctx, "host-1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(names) != 1 || names[0] != "a.db" {
		t.Errorf("List(host-1) = %v, want [a.db]", names)
	}

	if err := v.ValidateSetup(ctx); err != nil {
		t.Errorf("ValidateSetup() error = %v", err)
	}
}
