package idgen

import (
	"strings"
	"testing"
)

func TestUUIDv7_SortableAndValid(t *testing.T) {
	gen := UUIDv7()
	a, b := gen(), gen()
	if a >= b {
		t.Fatalf("ids not increasing: %s >= %s", a, b)
	}
	if _, err := Parse(a); err != nil {
		t.Fatal(err)
	}
}

func TestPrefixedSequence(t *testing.T) {
	gen := Prefixed("view_", Sequence("t"))
	if got := gen(); got != "view_t-1" {
		t.Fatalf("got %q", got)
	}
	if got := gen(); got != "view_t-2" {
		t.Fatalf("got %q", got)
	}
}

func TestParse_Rejects(t *testing.T) {
	if _, err := Parse("not-a-uuid"); err == nil || !strings.Contains(err.Error(), "idgen") {
		t.Fatalf("err = %v", err)
	}
	if _, err := Parse(UUIDv4()()); err != nil {
		t.Fatal(err)
	}
}
