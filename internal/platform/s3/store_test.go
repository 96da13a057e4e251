package s3

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/yungbote/dossier-backend/internal/platform/logger"
	"github.com/yungbote/dossier-backend/internal/platform/objectstore"
)

// fakeS3 answers the PUT and DELETE object calls the store makes.
type fakeS3 struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	if req.Body != nil {
		_, _ = io.Copy(io.Discard, req.Body)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	switch req.Method {
	case http.MethodPut:
		f.keys[key] = true
		return &http.Response{StatusCode: 200, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{"ETag": {"\"etag\""}}}, nil
	case http.MethodDelete:
		delete(f.keys, key)
		return &http.Response{StatusCode: 204, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{}}, nil
	}
	return &http.Response{StatusCode: 501, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{}}, nil
}

func newFakeStore(t *testing.T) (*Store, *fakeS3) {
	t.Helper()
	rt := &fakeS3{keys: map[string]bool{}}
	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	if err != nil {
		t.Fatalf("cfg: %v", err)
	}
	client := awss3.NewFromConfig(cfg, func(o *awss3.Options) {
		o.BaseEndpoint = aws.String("https://mock.s3.local")
		o.HTTPClient = &http.Client{Transport: rt}
		o.UsePathStyle = true
	})
	return NewWithClient(logger.Nop(), client, "files"), rt
}

func TestStorePutAndRemove(t *testing.T) {
	store, fake := newFakeStore(t)
	ctx := context.Background()
	key := "org/dossiers/d1/coa_1700000000000_cert.pdf"

	if err := store.Put(ctx, key, bytes.NewReader([]byte("pdf")), "application/pdf"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !fake.keys[key] {
		t.Fatalf("Put: key %q not stored; have %v", key, fake.keys)
	}
	if err := store.Remove(ctx, key); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if fake.keys[key] {
		t.Fatalf("Remove: key %q still stored", key)
	}
}

func TestStoreSignedURL(t *testing.T) {
	store, _ := newFakeStore(t)

	raw, err := store.SignedURL(context.Background(), "org/dossiers/d1/sds_1_a.pdf", 60*time.Second, objectstore.SignOptions{Filename: "a.pdf"})
	if err != nil {
		t.Fatalf("SignedURL: %v", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := u.Query().Get("X-Amz-Expires"); got != "60" {
		t.Fatalf("X-Amz-Expires: want=%q got=%q", "60", got)
	}
	if !strings.HasPrefix(u.Path, "/files/org/dossiers/d1/") {
		t.Fatalf("path: got=%q", u.Path)
	}
	if got := u.Query().Get("response-content-disposition"); !strings.Contains(got, "a.pdf") {
		t.Fatalf("content disposition: got=%q", got)
	}
}
