package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/go-kit/log"
	"github.com/pkg/errors"

	"github.com/bobg/pile"
	"github.com/bobg/pile/store/mem"
	"github.com/bobg/pile/testutil"
)

func TestContract(t *testing.T) {
	testutil.Contract(context.Background(), t, New(mem.New(), log.NewNopLogger()))
}

func TestLog(t *testing.T) {
	var (
		ctx = context.Background()
		buf = new(bytes.Buffer)
		s   = New(mem.New(), log.NewLogfmtLogger(buf))
	)

	if _, err := s.SetNX(ctx, "fred", []byte("yogurt")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LRange(ctx, "cooks", 0, -1); err != nil {
		t.Fatal(err)
	}

	want := []string{
		"level=debug op=SetNX key=fred size=6 set=true",
		"level=debug op=LRange key=cooks start=0 end=-1 count=0",
	}
	if got := strings.Split(strings.TrimSpace(buf.String()), "\n"); !equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLogError(t *testing.T) {
	var (
		ctx = context.Background()
		buf = new(bytes.Buffer)
		s   = New(failing{}, log.NewLogfmtLogger(buf))
	)

	if err := s.Del(ctx, "fred"); err == nil {
		t.Fatal("expected an error")
	}
	if got, want := strings.TrimSpace(buf.String()), `level=error op=Del key=fred err="no can do"`; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

type failing struct {
	pile.Store
}

func (failing) Del(context.Context, string) error {
	return errors.New("no can do")
}
