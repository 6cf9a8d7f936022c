package gcs

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"os"
	"testing"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/bobg/pile/testutil"
)

func TestObjNames(t *testing.T) {
	if got := valueObjName("piledb:data:fred"); got != "v:70696c6564623a646174613a66726564" {
		t.Errorf("got %s", got)
	}
	if got := listObjName("piledb:redaction"); got != "l:70696c6564623a726564616374696f6e" {
		t.Errorf("got %s", got)
	}
}

const (
	credsVar = "PILE_GCS_TESTING_CREDS"
	projVar  = "PILE_GCS_TESTING_PROJECT"
)

func TestContract(t *testing.T) {
	withStore(t, func(ctx context.Context, s *Store) {
		testutil.Contract(ctx, t, s)
	})
}

func TestPile(t *testing.T) {
	withStore(t, func(ctx context.Context, s *Store) {
		testutil.Pile(ctx, t, s)
	})
}

func withStore(t *testing.T, f func(context.Context, *Store)) {
	var (
		creds     = os.Getenv(credsVar)
		projectID = os.Getenv(projVar)
	)
	if creds == "" || projectID == "" {
		t.Skipf("to run %s, set %s to the name of a credentials file and %s to a project ID", t.Name(), credsVar, projVar)
	}

	var r [30]byte
	if _, err := rand.Read(r[:]); err != nil {
		t.Fatal(err)
	}
	bucketName := hex.EncodeToString(r[:])

	ctx := context.Background()
	client, err := storage.NewClient(ctx, option.WithCredentialsFile(creds))
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	bucket := client.Bucket(bucketName)
	if err = bucket.Create(ctx, projectID, nil); err != nil {
		t.Fatal(err)
	}
	defer func() {
		objs := bucket.Objects(ctx, nil)
		for {
			attrs, err := objs.Next()
			if err != nil {
				break
			}
			bucket.Object(attrs.Name).Delete(ctx)
		}
		if err := bucket.Delete(ctx); err != nil {
			t.Logf("deleting bucket %s: %s", bucketName, err)
		}
	}()

	f(ctx, New(bucket))
}
