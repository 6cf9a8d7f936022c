package testutil

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/bobg/pile"
)

// Pile runs a pile.Client on top of s through a put, reference, and redaction cycle.
// It uses a fresh random namespace.
func Pile(ctx context.Context, t *testing.T, s pile.Store) {
	c := pile.New(s, pile.Config{Namespace: "pile-test:" + uuid.NewString()})

	if err := c.PutData(ctx, "fred", []byte("yogurt")); err != nil {
		t.Fatal(err)
	}
	if err := c.PutData(ctx, "fred", []byte("ice cream")); pile.KindOf(err) != pile.KindAlreadySet {
		t.Fatalf("got error %v on second put, want already set", err)
	}
	got, err := c.GetData(ctx, "fred")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte("yogurt")) {
		t.Fatalf("got %q, want yogurt", got)
	}

	if _, err = c.GetData(ctx, "bob"); pile.KindOf(err) != pile.KindNotFound {
		t.Fatalf("got error %v for untouched key, want not found", err)
	}

	for _, k := range []string{"fred", "bob"} {
		if err = c.AddReference(ctx, "captain", k); err != nil {
			t.Fatal(err)
		}
	}
	last, err := c.GetLastReference(ctx, "captain")
	if err != nil {
		t.Fatal(err)
	}
	if last != "bob" {
		t.Errorf("got last reference %s, want bob", last)
	}
	history, err := c.GetReferenceHistory(ctx, "captain")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"fred", "bob"}, history); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}

	if err = c.RedactData(ctx, "bob", "never set"); pile.KindOf(err) != pile.KindNotFound {
		t.Fatalf("got error %v redacting untouched key, want not found", err)
	}
	if err = c.RedactData(ctx, "fred", "court order 156"); err != nil {
		t.Fatal(err)
	}
	_, err = c.GetData(ctx, "fred")
	if pile.KindOf(err) != pile.KindRedacted {
		t.Fatalf("got error %v after redaction, want redacted", err)
	}
	if want := "fred was redacted: court order 156"; err.Error() != want {
		t.Errorf("got error message %q, want %q", err, want)
	}
	redactions, err := c.GetRedactions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]pile.Redaction{{Key: "fred", Reason: "court order 156"}}, redactions); diff != "" {
		t.Errorf("redactions mismatch (-want +got):\n%s", diff)
	}

	exists, err := s.Exists(ctx, c.Keys().Data("fred"))
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Error("redacted data is still in the store")
	}
}
