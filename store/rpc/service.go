// Package rpc serves a pile store over gRPC
// and implements a pile store as a client of such a server.
//
// The service and its messages are described by rpc.proto.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/bobg/pile"
)

var methodNames = []string{"SetNX", "Get", "RPush", "LRange", "Exists", "Del"}

var methodFuncs = map[string]methodFunc{
	"SetNX": func(ctx context.Context, s pile.Store, req *Request) (*Response, error) {
		wasSet, err := s.SetNX(ctx, req.Key, req.Value)
		return &Response{OK: wasSet}, err
	},
	"Get": func(ctx context.Context, s pile.Store, req *Request) (*Response, error) {
		value, ok, err := s.Get(ctx, req.Key)
		return &Response{OK: ok, Value: value}, err
	},
	"RPush": func(ctx context.Context, s pile.Store, req *Request) (*Response, error) {
		return &Response{}, s.RPush(ctx, req.Key, req.Value)
	},
	"LRange": func(ctx context.Context, s pile.Store, req *Request) (*Response, error) {
		items, err := s.LRange(ctx, req.Key, req.Start, req.End)
		return &Response{Items: items}, err
	},
	"Exists": func(ctx context.Context, s pile.Store, req *Request) (*Response, error) {
		exists, err := s.Exists(ctx, req.Key)
		return &Response{OK: exists}, err
	},
	"Del": func(ctx context.Context, s pile.Store, req *Request) (*Response, error) {
		return &Response{}, s.Del(ctx, req.Key)
	},
}

// ServiceDesc describes the Store service.
// Its handlers dispatch to the pile.Store registered with the grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*pile.Store)(nil),
	Methods:     methodDescs(),
	Streams:     []grpc.StreamDesc{},
	Metadata:    "store/rpc/rpc.proto",
}

func methodDescs() []grpc.MethodDesc {
	var result []grpc.MethodDesc
	for _, name := range methodNames {
		result = append(result, grpc.MethodDesc{
			MethodName: name,
			Handler:    handler(name, methodFuncs[name]),
		})
	}
	return result
}

func fullMethod(name string) string {
	return "/" + serviceName + "/" + name
}

type methodFunc func(context.Context, pile.Store, *Request) (*Response, error)

func handler(name string, f methodFunc) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := dynamicpb.NewMessage(requestDesc)
		if err := dec(in); err != nil {
			return nil, err
		}
		s := srv.(pile.Store)
		call := func(ctx context.Context, req interface{}) (interface{}, error) {
			resp, err := f(ctx, s, requestFromProto(req.(protoreflect.ProtoMessage).ProtoReflect()))
			if err != nil {
				return nil, err
			}
			return resp.toProto(), nil
		}
		if interceptor == nil {
			return call(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
		return interceptor(ctx, in, info, call)
	}
}

// Register registers s with gs as the Store service.
func Register(gs *grpc.Server, s pile.Store) {
	gs.RegisterService(&ServiceDesc, s)
}
