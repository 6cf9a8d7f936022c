package rpc

import (
	"context"
	"crypto/tls"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/bobg/pile"
	"github.com/bobg/pile/store"
)

var _ pile.Store = &Client{}

// Client is a pile store whose methods are calls to a remote Store service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient produces a new Client using cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) call(ctx context.Context, method string, req *Request) (*Response, error) {
	out := dynamicpb.NewMessage(responseDesc)
	err := c.cc.Invoke(ctx, fullMethod(method), req.toProto(), out)
	if err != nil {
		return nil, errors.Wrapf(err, "calling %s %s", method, req.Key)
	}
	return responseFromProto(out), nil
}

// SetNX implements pile.Store.
func (c *Client) SetNX(ctx context.Context, key string, value []byte) (bool, error) {
	resp, err := c.call(ctx, "SetNX", &Request{Key: key, Value: value})
	if err != nil {
		return false, err
	}
	return resp.OK, nil
}

// Get implements pile.Store.
func (c *Client) Get(ctx context.Context, key string) ([]byte, bool, error) {
	resp, err := c.call(ctx, "Get", &Request{Key: key})
	if err != nil || !resp.OK {
		return nil, false, err
	}
	return resp.Value, true, nil
}

// RPush implements pile.Store.
func (c *Client) RPush(ctx context.Context, key string, value []byte) error {
	_, err := c.call(ctx, "RPush", &Request{Key: key, Value: value})
	return err
}

// LRange implements pile.Store.
func (c *Client) LRange(ctx context.Context, key string, start, end int64) ([][]byte, error) {
	resp, err := c.call(ctx, "LRange", &Request{Key: key, Start: start, End: end})
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// Exists implements pile.Store.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	resp, err := c.call(ctx, "Exists", &Request{Key: key})
	if err != nil {
		return false, err
	}
	return resp.OK, nil
}

// Del implements pile.Store.
func (c *Client) Del(ctx context.Context, key string) error {
	_, err := c.call(ctx, "Del", &Request{Key: key})
	return err
}

func init() {
	store.Register("rpc", func(_ context.Context, conf map[string]interface{}) (pile.Store, error) {
		var c struct {
			Addr     string `mapstructure:"addr"`
			Insecure bool   `mapstructure:"insecure"`
		}
		if err := store.Decode(conf, &c); err != nil {
			return nil, errors.Wrap(err, "decoding rpc config")
		}
		if c.Addr == "" {
			return nil, errors.New(`missing "addr" parameter`)
		}
		creds := credentials.NewTLS(&tls.Config{})
		if c.Insecure {
			creds = insecure.NewCredentials()
		}
		cc, err := grpc.NewClient(c.Addr, grpc.WithTransportCredentials(creds))
		if err != nil {
			return nil, errors.Wrapf(err, "connecting to %s", c.Addr)
		}
		return NewClient(cc), nil
	})
}
