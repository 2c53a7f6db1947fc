package keyword

import "testing"

func TestNormalize(t *testing.T) {
	t.Parallel()

	if got := Normalize("  Foo \t  Bar "); got != "foo bar" {
		t.Fatalf("unexpected normalized keyword: %q", got)
	}
	if got := Normalize("민주당"); got != "민주당" {
		t.Fatalf("unexpected normalized keyword: %q", got)
	}
	if got := Normalize(" \n "); got != "" {
		t.Fatalf("expected blank keyword to normalize to empty string, got %q", got)
	}
}

func TestUniqueKeepsFirstSeenOrder(t *testing.T) {
	t.Parallel()

	got := Unique([]string{"B", "a", " b ", "", "c"})
	want := []string{"b", "a", "c"}
	if len(got) != len(want) {
		t.Fatalf("unexpected unique keywords: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected unique keywords: %v", got)
		}
	}
}

func TestSplitSubject(t *testing.T) {
	t.Parallel()

	set := SplitSubject("민주당/정부  여당")
	for _, k := range []string{"민주당", "정부", "여당"} {
		if _, ok := set[k]; !ok {
			t.Fatalf("expected %q in %v", k, set)
		}
	}
	if len(set) != 3 {
		t.Fatalf("unexpected subject keywords: %v", set)
	}
	if SplitSubject("  / ") != nil {
		t.Fatalf("expected nil set for separator-only subject")
	}
}

func TestSharedCount(t *testing.T) {
	t.Parallel()

	left := Set([]string{"a", "b", "c"})
	right := Set([]string{"B", "c", "d"})
	if got := SharedCount(left, right); got != 2 {
		t.Fatalf("expected 2 shared keywords, got %d", got)
	}
	if Intersects(left, Set([]string{"x"})) {
		t.Fatalf("expected no intersection")
	}
}
