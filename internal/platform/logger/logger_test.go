package logger

import (
	"strings"
	"testing"
)

func TestSanitizeKVsRedactsSensitiveKeys(t *testing.T) {
	got := sanitizeKVs([]interface{}{
		"email", "ops@example.com",
		"access_token", "abc",
		"dossier_id", "d-1",
	})
	if len(got) != 6 {
		t.Fatalf("len: want=6 got=%d", len(got))
	}
	if got[1] != "[REDACTED]" {
		t.Fatalf("email: want=%q got=%v", "[REDACTED]", got[1])
	}
	if got[3] != "[REDACTED]" {
		t.Fatalf("access_token: want=%q got=%v", "[REDACTED]", got[3])
	}
	if got[5] != "d-1" {
		t.Fatalf("dossier_id: want=%q got=%v", "d-1", got[5])
	}
}

func TestSanitizeKVsHashesIdentifiers(t *testing.T) {
	got := sanitizeKVs([]interface{}{"user_id", "7f1c"})
	s, ok := got[1].(string)
	if !ok || !strings.HasPrefix(s, "hash:") {
		t.Fatalf("user_id: want hash prefix got=%v", got[1])
	}
	again := sanitizeKVs([]interface{}{"user_id", "7f1c"})
	if again[1] != got[1] {
		t.Fatalf("hash not stable: %v vs %v", got[1], again[1])
	}
}

func TestSanitizeKVsOddLength(t *testing.T) {
	got := sanitizeKVs([]interface{}{"path", "/api", "dangling"})
	if len(got) != 3 || got[2] != "dangling" {
		t.Fatalf("dangling key lost: %v", got)
	}
}

func TestSanitizeValueNestedJWT(t *testing.T) {
	jwtLike := "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxMjM0NSJ9.sig"
	got := sanitizeValue("payload", map[string]interface{}{"note": jwtLike, "name": "acetone"})
	m := got.(map[string]interface{})
	if m["note"] != "[REDACTED]" {
		t.Fatalf("note: want=%q got=%v", "[REDACTED]", m["note"])
	}
	if m["name"] != "acetone" {
		t.Fatalf("name: want=%q got=%v", "acetone", m["name"])
	}
}
