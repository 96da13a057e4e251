package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/dossier-backend/internal/data/repos"
	"github.com/yungbote/dossier-backend/internal/data/repos/testutil"
	domain "github.com/yungbote/dossier-backend/internal/domain/dossier"
	"github.com/yungbote/dossier-backend/internal/observability"
	"github.com/yungbote/dossier-backend/internal/platform/logger"
	"github.com/yungbote/dossier-backend/internal/platform/objectstore"
)

type failingStore struct{ err error }

func (f failingStore) Provider() string { return "failing" }
func (f failingStore) Put(context.Context, string, io.Reader, string) error {
	return f.err
}
func (f failingStore) SignedURL(context.Context, string, time.Duration, objectstore.SignOptions) (string, error) {
	return "", f.err
}
func (f failingStore) Remove(context.Context, string) error { return f.err }

func newClient(t *testing.T, blobs objectstore.Store) *Client {
	t.Helper()
	db := testutil.DB(t)
	r := repos.New(db, logger.Nop())
	return NewClient(logger.Nop(), r.Dossier, blobs, observability.NewMetrics())
}

func TestClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, objectstore.NewMemory())
	org := "org-" + uuid.NewString()

	created, err := c.Insert(ctx, domain.New(uuid.New(), org, uuid.New(), time.Now()))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	var p domain.Patch
	p.SetName("Isopropanol")
	patched, err := c.Patch(ctx, org, created.ID, p)
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if patched.Name != "Isopropanol" {
		t.Fatalf("name: want=%q got=%q", "Isopropanol", patched.Name)
	}
	list, err := c.ListByOrg(ctx, org)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListByOrg: err=%v len=%d", err, len(list))
	}
	if err := c.Delete(ctx, org, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestClientWrapsNotFound(t *testing.T) {
	c := newClient(t, objectstore.NewMemory())

	var p domain.Patch
	p.SetName("x")
	_, err := c.Patch(context.Background(), "org", uuid.New(), p)
	var se *StorageError
	if !errors.As(err, &se) {
		t.Fatalf("Patch: want *StorageError got %T (%v)", err, err)
	}
	if se.Op != "patch" || se.Reason != ReasonNotFound {
		t.Fatalf("StorageError: op=%q reason=%q", se.Op, se.Reason)
	}
	if !IsNotFound(err) {
		t.Fatalf("IsNotFound: want true")
	}
}

func TestRemoveObjectToleratesMissing(t *testing.T) {
	ctx := context.Background()
	mem := objectstore.NewMemory()
	c := newClient(t, mem)

	if err := c.RemoveObject(ctx, "never/written"); err != nil {
		t.Fatalf("RemoveObject missing: %v", err)
	}
	if err := c.PutObject(ctx, "a/b", strings.NewReader("x"), "text/plain"); err != nil {
		t.Fatalf("PutObject: %v", err)
	}
	if err := c.RemoveObject(ctx, "a/b"); err != nil {
		t.Fatalf("RemoveObject: %v", err)
	}
	if len(mem.Keys()) != 0 {
		t.Fatalf("keys left: %v", mem.Keys())
	}
}

func TestBlobFailuresAreStorageErrors(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, failingStore{err: context.DeadlineExceeded})

	err := c.PutObject(ctx, "k", strings.NewReader("x"), "")
	var se *StorageError
	if !errors.As(err, &se) || se.Reason != ReasonTimeout || se.Op != "put_object" {
		t.Fatalf("PutObject: got %v", err)
	}
	if _, err := c.SignedURL(ctx, "k", time.Minute, objectstore.SignOptions{}); !errors.As(err, &se) {
		t.Fatalf("SignedURL: want *StorageError got %v", err)
	}
	if err := c.RemoveObject(ctx, "k"); !errors.As(err, &se) {
		t.Fatalf("RemoveObject: want *StorageError got %v", err)
	}
}
