// Package dynamo implements a pile store on Amazon DynamoDB.
package dynamo

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/pkg/errors"

	"github.com/bobg/pile"
	"github.com/bobg/pile/store"
)

var _ pile.Store = &Store{}

// API is the subset of the DynamoDB client that Store uses.
type API interface {
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(context.Context, *dynamodb.UpdateItemInput, ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(context.Context, *dynamodb.DeleteItemInput, ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	CreateTable(context.Context, *dynamodb.CreateTableInput, ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(context.Context, *dynamodb.DescribeTableInput, ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

var _ API = &dynamodb.Client{}

// Store is a DynamoDB-based pile store.
//
// Every key is one item in a single table
// whose partition key is the string attribute "pk".
// A plain value lives in the binary attribute "v";
// a list lives in the list attribute "l".
type Store struct {
	client API
	table  string
}

const (
	keyAttr   = "pk"
	valueAttr = "v"
	listAttr  = "l"

	tableWait = 2 * time.Minute
)

// New produces a new Store using the given table.
// The table must already exist (see CreateTable).
func New(client API, table string) *Store {
	return &Store{client: client, table: table}
}

// CreateTable creates a table suitable for a Store,
// with on-demand billing,
// and waits for it to become active.
func CreateTable(ctx context.Context, client API, table string) error {
	_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(table),
		AttributeDefinitions: []types.AttributeDefinition{{
			AttributeName: aws.String(keyAttr),
			AttributeType: types.ScalarAttributeTypeS,
		}},
		KeySchema: []types.KeySchemaElement{{
			AttributeName: aws.String(keyAttr),
			KeyType:       types.KeyTypeHash,
		}},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return errors.Wrapf(err, "creating table %s", table)
	}
	w := dynamodb.NewTableExistsWaiter(client)
	err = w.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)}, tableWait)
	return errors.Wrapf(err, "waiting for table %s", table)
}

func (s *Store) key(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		keyAttr: &types.AttributeValueMemberS{Value: key},
	}
}

// SetNX implements pile.Store.
func (s *Store) SetNX(ctx context.Context, key string, value []byte) (bool, error) {
	item := s.key(key)
	item[valueAttr] = &types.AttributeValueMemberB{Value: nonNil(value)}

	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(s.table),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{"#pk": keyAttr},
	})
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "putting item %s", key)
	}
	return true, nil
}

func (s *Store) getItem(ctx context.Context, key string) (map[string]types.AttributeValue, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            s.key(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "getting item %s", key)
	}
	return out.Item, nil
}

// Get implements pile.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	item, err := s.getItem(ctx, key)
	if err != nil {
		return nil, false, err
	}
	av, ok := item[valueAttr]
	if !ok {
		return nil, false, nil
	}
	var value []byte
	if err = attributevalue.Unmarshal(av, &value); err != nil {
		return nil, false, errors.Wrapf(err, "decoding value of %s", key)
	}
	return nonNil(value), true, nil
}

// RPush implements pile.Store.
// The append is a single list_append update expression,
// which DynamoDB applies atomically.
func (s *Store) RPush(ctx context.Context, key string, value []byte) error {
	var (
		empty = &types.AttributeValueMemberL{Value: []types.AttributeValue{}}
		tail  = &types.AttributeValueMemberL{Value: []types.AttributeValue{
			&types.AttributeValueMemberB{Value: nonNil(value)},
		}}
	)
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       s.key(key),
		UpdateExpression:          aws.String("SET #l = list_append(if_not_exists(#l, :empty), :tail)"),
		ExpressionAttributeNames:  map[string]string{"#l": listAttr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":empty": empty, ":tail": tail},
	})
	return errors.Wrapf(err, "appending to %s", key)
}

// LRange implements pile.Store.
func (s *Store) LRange(ctx context.Context, key string, start, end int64) ([][]byte, error) {
	item, err := s.getItem(ctx, key)
	if err != nil {
		return nil, err
	}

	var list []types.AttributeValue
	if av, ok := item[listAttr].(*types.AttributeValueMemberL); ok {
		list = av.Value
	}

	lo, hi := store.Span(len(list), start, end)
	result := make([][]byte, 0, hi-lo)
	for i, av := range list[lo:hi] {
		b, ok := av.(*types.AttributeValueMemberB)
		if !ok {
			return nil, errors.Errorf("entry %d of %s is a %T, not binary", lo+i, key, av)
		}
		result = append(result, nonNil(b.Value))
	}
	return result, nil
}

// Exists implements pile.Store.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	item, err := s.getItem(ctx, key)
	return len(item) > 0, err
}

// Del implements pile.Store.
func (s *Store) Del(ctx context.Context, key string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       s.key(key),
	})
	return errors.Wrapf(err, "deleting item %s", key)
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

// Config is the configuration for a registry-created Store.
// AWS credentials and region come from the usual AWS environment and config files,
// optionally overridden by Region and Endpoint.
type Config struct {
	Table    string `mapstructure:"table"`
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`

	// Create tells whether to create the table first.
	Create bool `mapstructure:"create"`
}

// NewClient creates a DynamoDB client from the AWS defaults plus c.
func (c Config) NewClient(ctx context.Context) (*dynamodb.Client, error) {
	var opts []func(*config.LoadOptions) error
	if c.Region != "" {
		opts = append(opts, config.WithRegion(c.Region))
	}
	awsConf, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "loading AWS config")
	}
	return dynamodb.NewFromConfig(awsConf, func(o *dynamodb.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
		}
	}), nil
}

func init() {
	store.Register("dynamo", func(ctx context.Context, conf map[string]interface{}) (pile.Store, error) {
		var c Config
		if err := store.Decode(conf, &c); err != nil {
			return nil, errors.Wrap(err, "decoding dynamo config")
		}
		if c.Table == "" {
			return nil, errors.New(`missing "table" parameter`)
		}
		client, err := c.NewClient(ctx)
		if err != nil {
			return nil, err
		}
		if c.Create {
			if err = CreateTable(ctx, client, c.Table); err != nil {
				return nil, err
			}
		}
		return New(client, c.Table), nil
	})
}
