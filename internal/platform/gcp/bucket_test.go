package gcp

import (
	"testing"

	"github.com/yungbote/dossier-backend/internal/platform/objectstore"
)

func TestResolvePublicBaseURLGCSDefault(t *testing.T) {
	t.Setenv("OBJECT_STORAGE_PUBLIC_BASE_URL", "")

	baseURL, source, err := resolvePublicBaseURL(objectstore.Config{Mode: objectstore.ModeGCS})
	if err != nil {
		t.Fatalf("resolvePublicBaseURL: %v", err)
	}
	if baseURL != "" {
		t.Fatalf("baseURL: want empty got=%q", baseURL)
	}
	if source != "gcs_default" {
		t.Fatalf("source: want=%q got=%q", "gcs_default", source)
	}
}

func TestResolvePublicBaseURLEmulatorFallback(t *testing.T) {
	t.Setenv("OBJECT_STORAGE_PUBLIC_BASE_URL", "")

	baseURL, source, err := resolvePublicBaseURL(objectstore.Config{
		Mode:         objectstore.ModeGCSEmulator,
		EmulatorHost: "http://fake-gcs:4443",
	})
	if err != nil {
		t.Fatalf("resolvePublicBaseURL: %v", err)
	}
	if baseURL != "http://fake-gcs:4443" {
		t.Fatalf("baseURL: want=%q got=%q", "http://fake-gcs:4443", baseURL)
	}
	if source != "storage_emulator_host" {
		t.Fatalf("source: want=%q got=%q", "storage_emulator_host", source)
	}
}

func TestResolvePublicBaseURLRejectsRelative(t *testing.T) {
	t.Setenv("OBJECT_STORAGE_PUBLIC_BASE_URL", "localhost:4443")

	if _, _, err := resolvePublicBaseURL(objectstore.Config{Mode: objectstore.ModeGCS}); err == nil {
		t.Fatalf("resolvePublicBaseURL: expected error for relative URL")
	}
}

func TestEmulatorMediaURLEscapesKey(t *testing.T) {
	got := emulatorMediaURL("http://localhost:4443/", "files", "org/dossiers/d1/sds_1_a b.pdf")
	want := "http://localhost:4443/storage/v1/b/files/o/org%2Fdossiers%2Fd1%2Fsds_1_a%20b.pdf?alt=media"
	if got != want {
		t.Fatalf("emulatorMediaURL: want=%q got=%q", want, got)
	}
}

func TestClientOptionsSource(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS_JSON", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	cases := []struct {
		name   string
		cfg    objectstore.Config
		json   string
		file   string
		source string
	}{
		{"emulator", objectstore.Config{Mode: objectstore.ModeGCSEmulator, EmulatorHost: "http://fake-gcs:4443"}, `{"type":"service_account"}`, "", "none"},
		{"inline json", objectstore.Config{Mode: objectstore.ModeGCS}, `{"type":"service_account"}`, "/keys/sa.json", "inline_json"},
		{"file", objectstore.Config{Mode: objectstore.ModeGCS}, "", "/keys/sa.json", "credentials_file"},
		{"default", objectstore.Config{Mode: objectstore.ModeGCS}, "", "", "application_default"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("GOOGLE_APPLICATION_CREDENTIALS_JSON", tc.json)
			t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", tc.file)
			opts, source := clientOptions(tc.cfg)
			if source != tc.source {
				t.Fatalf("source: want=%q got=%q", tc.source, source)
			}
			if len(opts) == 0 {
				t.Fatalf("opts: want at least one option")
			}
		})
	}
}
