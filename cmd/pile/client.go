package main

import (
	"context"
	"crypto/tls"

	"github.com/bobg/subcmd"
	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/bobg/pile/store/rpc"
)

// client runs a subcommand against the store served by a remote "pile serve".
func (c maincmd) client(ctx context.Context, addr string, doInsecure bool, args []string) error {
	creds := credentials.NewTLS(&tls.Config{})
	if doInsecure {
		creds = insecure.NewCredentials()
	}

	cc, err := grpc.NewClient(addr, grpc.WithTransportCredentials(creds))
	if err != nil {
		return errors.Wrapf(err, "connecting to %s", addr)
	}
	defer cc.Close()

	return subcmd.Run(ctx, c.withStore(rpc.NewClient(cc)), args)
}
