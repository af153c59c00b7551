package utils

import "testing"

func TestSlugifyBasic(t *testing.T) {
	got := Slugify("Hello World", 0)
	if got != "hello-world" {
		t.Fatalf("slug: want=%q got=%q", "hello-world", got)
	}
}

func TestSlugifyStripsDiacritics(t *testing.T) {
	got := Slugify("José Álvarez", 0)
	if got != "jose-alvarez" {
		t.Fatalf("slug: want=%q got=%q", "jose-alvarez", got)
	}
}

func TestSlugifyDropsSymbols(t *testing.T) {
	got := Slugify("100% Legit!! (really)", 0)
	if got != "100-legit-really" {
		t.Fatalf("slug: want=%q got=%q", "100-legit-really", got)
	}
}

func TestSlugifyCollapsesSeparators(t *testing.T) {
	got := Slugify("a  --  b___c", 0)
	if got != "a-b-c" {
		t.Fatalf("slug: want=%q got=%q", "a-b-c", got)
	}
}

func TestSlugifyNoEdgeHyphens(t *testing.T) {
	got := Slugify("  -leading and trailing-  ", 0)
	if got != "leading-and-trailing" {
		t.Fatalf("slug: want=%q got=%q", "leading-and-trailing", got)
	}
}

func TestSlugifyIdempotent(t *testing.T) {
	once := Slugify("Crème Brûlée: A Love Story", 0)
	twice := Slugify(once, 0)
	if once != twice {
		t.Fatalf("not idempotent: first=%q second=%q", once, twice)
	}
}

func TestSlugifyTruncates(t *testing.T) {
	got := Slugify("alpha beta gamma", 7)
	if len(got) > 7 {
		t.Fatalf("length: want<=7 got=%d (%q)", len(got), got)
	}
	if got != "alpha-b" && got != "alpha" {
		t.Fatalf("unexpected truncation: %q", got)
	}
}

func TestSlugifyEmptyResult(t *testing.T) {
	if got := Slugify("!!!", 0); got != "" {
		t.Fatalf("want empty slug, got %q", got)
	}
}
