package rpc

import (
	"context"
	"net"
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/bobg/pile/store/mem"
	"github.com/bobg/pile/testutil"
)

func TestContract(t *testing.T) {
	withClient(t, func(ctx context.Context, c *Client) {
		testutil.Contract(ctx, t, c)
	})
}

func TestPile(t *testing.T) {
	withClient(t, func(ctx context.Context, c *Client) {
		testutil.Pile(ctx, t, c)
	})
}

func TestEmptyValue(t *testing.T) {
	withClient(t, func(ctx context.Context, c *Client) {
		if _, err := c.SetNX(ctx, "empty", nil); err != nil {
			t.Fatal(err)
		}
		got, ok, err := c.Get(ctx, "empty")
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Error("empty value reported as absent")
		}
		if got == nil || len(got) != 0 {
			t.Errorf("got %#v, want an empty non-nil slice", got)
		}
	})
}

func TestMessages(t *testing.T) {
	req := &Request{Key: "piledb:reference:dessert", Value: []byte("fred"), Start: -3, End: -1}
	buf, err := proto.Marshal(req.toProto())
	if err != nil {
		t.Fatal(err)
	}
	reqMsg := dynamicpb.NewMessage(requestDesc)
	if err := proto.Unmarshal(buf, reqMsg); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(req, requestFromProto(reqMsg)); diff != "" {
		t.Errorf("request mismatch (-want +got):\n%s", diff)
	}

	cases := []struct {
		name string
		resp *Response
		want *Response
	}{{
		name: "empty",
		resp: &Response{},
		want: &Response{Value: []byte{}, Items: [][]byte{}},
	}, {
		name: "value",
		resp: &Response{OK: true, Value: []byte("yogurt")},
		want: &Response{OK: true, Value: []byte("yogurt"), Items: [][]byte{}},
	}, {
		name: "items",
		resp: &Response{Items: [][]byte{[]byte("fred"), nil, []byte("bob")}},
		want: &Response{Value: []byte{}, Items: [][]byte{[]byte("fred"), {}, []byte("bob")}},
	}}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf, err := proto.Marshal(tc.resp.toProto())
			if err != nil {
				t.Fatal(err)
			}
			m := dynamicpb.NewMessage(responseDesc)
			if err := proto.Unmarshal(buf, m); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.want, responseFromProto(m)); diff != "" {
				t.Errorf("response mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestServiceMethods(t *testing.T) {
	svc := requestDesc.ParentFile().Services().ByName("Store")
	if svc == nil {
		t.Fatal("no Store service in descriptor")
	}
	if got := string(svc.FullName()); got != ServiceDesc.ServiceName {
		t.Errorf("got service name %s, want %s", got, ServiceDesc.ServiceName)
	}

	var fromDesc, fromProto []string
	for _, m := range ServiceDesc.Methods {
		fromDesc = append(fromDesc, m.MethodName)
	}
	methods := svc.Methods()
	for i := 0; i < methods.Len(); i++ {
		m := methods.Get(i)
		fromProto = append(fromProto, string(m.Name()))
		if m.Input() != requestDesc || m.Output() != responseDesc {
			t.Errorf("method %s has unexpected message types", m.Name())
		}
	}
	if diff := cmp.Diff(methodNames, fromDesc); diff != "" {
		t.Errorf("ServiceDesc methods mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(methodNames, fromProto); diff != "" {
		t.Errorf("descriptor methods mismatch (-want +got):\n%s", diff)
	}
}

func withClient(t *testing.T, f func(context.Context, *Client)) {
	lis := bufconn.Listen(1 << 20)

	gs := grpc.NewServer()
	Register(gs, mem.New())
	go gs.Serve(lis)
	defer gs.Stop()

	cc, err := grpc.NewClient(
		"passthrough:///bufconn",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer cc.Close()

	f(context.Background(), NewClient(cc))
}
