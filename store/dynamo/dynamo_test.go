package dynamo

import (
	"context"
	"os"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"

	"github.com/bobg/pile/testutil"
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

const endpointVar = "PILE_DYNAMO_TESTING_ENDPOINT"

// withStore runs f against a fresh table,
// normally in DynamoDB Local
// (which accepts any credentials).
func withStore(t *testing.T, f func(context.Context, *Store)) {
	endpoint := os.Getenv(endpointVar)
	if endpoint == "" {
		t.Skipf("to run %s, set %s to a DynamoDB endpoint URL", t.Name(), endpointVar)
	}

	ctx := context.Background()
	c := Config{
		Table:    "pile-test-" + uuid.NewString(),
		Region:   "us-east-1",
		Endpoint: endpoint,
	}
	client, err := c.NewClient(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err = CreateTable(ctx, client, c.Table); err != nil {
		t.Fatal(err)
	}
	defer client.DeleteTable(ctx, &dynamodb.DeleteTableInput{TableName: aws.String(c.Table)})

	f(ctx, New(client, c.Table))
}
