package main

import (
	"context"
	"net"

	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"google.golang.org/grpc"

	"github.com/bobg/pile/store/rpc"
)

// serve exposes the configured store over gRPC,
// for use by the "rpc" store type.
func (c maincmd) serve(ctx context.Context, addr string, _ []string) error {
	gs := grpc.NewServer()
	rpc.Register(gs, c.s)

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listening on %s", addr)
	}
	defer lis.Close()

	go func() {
		<-ctx.Done()
		gs.GracefulStop()
	}()

	level.Info(c.logger).Log("msg", "listening", "addr", lis.Addr())

	return gs.Serve(lis)
}
