package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
	"sync"
	"time"
)

type memObject struct {
	body        []byte
	contentType string
	updated     time.Time
}

// Memory is a process-local Store used for local runs and tests. Signed URLs
// point at BaseURL and are not served by anything.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]memObject
	BaseURL string
	Now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		objects: map[string]memObject{},
		BaseURL: "memory://files",
		Now:     time.Now,
	}
}

func (m *Memory) Provider() string { return string(ModeMemory) }

func (m *Memory) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("object key required")
	}
	buf, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read object body: %w", err)
	}
	m.mu.Lock()
	m.objects[key] = memObject{body: buf, contentType: contentType, updated: m.Now()}
	m.mu.Unlock()
	return nil
}

func (m *Memory) SignedURL(ctx context.Context, key string, ttl time.Duration, opts SignOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.RLock()
	_, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("sign %q: %w", key, ErrNotFound)
	}
	q := url.Values{}
	q.Set("expires", m.Now().Add(ttl).UTC().Format(time.RFC3339))
	if opts.Filename != "" {
		q.Set("filename", opts.Filename)
	}
	return fmt.Sprintf("%s/%s?%s", m.BaseURL, url.PathEscape(key), q.Encode()), nil
}

func (m *Memory) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return fmt.Errorf("remove %q: %w", key, ErrNotFound)
	}
	delete(m.objects, key)
	return nil
}

// Read returns the stored bytes for key.
func (m *Memory) Read(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, false
	}
	return bytes.Clone(obj.body), true
}

// Keys lists stored keys in lexical order.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.objects))
	for k := range m.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
