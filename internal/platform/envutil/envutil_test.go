package envutil

import (
	"testing"
	"time"
)

func TestInt(t *testing.T) {
	t.Setenv("ENVUTIL_INT", "42")
	if got := Int("ENVUTIL_INT", 1); got != 42 {
		t.Fatalf("Int: want=42 got=%d", got)
	}
	t.Setenv("ENVUTIL_INT", "nope")
	if got := Int("ENVUTIL_INT", 1); got != 1 {
		t.Fatalf("Int fallback: want=1 got=%d", got)
	}
}

func TestBool(t *testing.T) {
	t.Setenv("ENVUTIL_BOOL", "yes")
	if !Bool("ENVUTIL_BOOL", false) {
		t.Fatalf("Bool(yes): want=true got=false")
	}
	t.Setenv("ENVUTIL_BOOL", "off")
	if Bool("ENVUTIL_BOOL", true) {
		t.Fatalf("Bool(off): want=false got=true")
	}
	t.Setenv("ENVUTIL_BOOL", "maybe")
	if !Bool("ENVUTIL_BOOL", true) {
		t.Fatalf("Bool(maybe): want default true")
	}
}

func TestDuration(t *testing.T) {
	t.Setenv("ENVUTIL_DUR", "15m")
	if got := Duration("ENVUTIL_DUR", time.Second); got != 15*time.Minute {
		t.Fatalf("Duration: want=15m got=%s", got)
	}
	t.Setenv("ENVUTIL_DUR", "90")
	if got := Duration("ENVUTIL_DUR", time.Second); got != 90*time.Second {
		t.Fatalf("Duration secs: want=90s got=%s", got)
	}
}

func TestList(t *testing.T) {
	t.Setenv("ENVUTIL_LIST", " a, ,b ,")
	got := List("ENVUTIL_LIST")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("List: want=[a b] got=%v", got)
	}
}
