package bt

import (
	"context"
	"testing"

	"cloud.google.com/go/bigtable"
	"cloud.google.com/go/bigtable/bttest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/bobg/pile/testutil"
)

const (
	testProject  = "pile-project"
	testInstance = "pile-instance"
	testTable    = "pile"
)

func withStore(ctx context.Context, t *testing.T, f func(*Store)) {
	srv, err := bttest.NewServer("localhost:0")
	if err != nil {
		t.Fatal(err)
	}
	defer srv.Close()

	options := []option.ClientOption{
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	}

	admin, err := bigtable.NewAdminClient(ctx, testProject, testInstance, options...)
	if err != nil {
		t.Fatal(err)
	}
	defer admin.Close()
	if err = CreateTable(ctx, admin, testTable); err != nil {
		t.Fatal(err)
	}

	client, err := bigtable.NewClient(ctx, testProject, testInstance, options...)
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	f(New(client.Open(testTable)))
}

func TestContract(t *testing.T) {
	ctx := context.Background()
	withStore(ctx, t, func(s *Store) {
		testutil.Contract(ctx, t, s)
	})
}

func TestPile(t *testing.T) {
	ctx := context.Background()
	withStore(ctx, t, func(s *Store) {
		testutil.Pile(ctx, t, s)
	})
}

func TestSeqCol(t *testing.T) {
	// Qualifiers must sort in numeric order.
	if a, b := seqCol(9), seqCol(10); a >= b {
		t.Errorf("%s sorts after %s", a, b)
	}
}
