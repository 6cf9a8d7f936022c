// Command pile is a CLI interface to piles.
//
// Usage:
//
//	pile [-config FILE] [-v] SUBCOMMAND [ARGS]
//
// The config file is JSON describing the backend store:
// its "type" parameter selects the store implementation,
// and the remaining parameters are specific to that type.
// An optional "namespace" parameter selects the pile namespace.
package main

import (
	"context"
	"flag"
	"io"
	"os"

	"github.com/bobg/subcmd"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/bobg/pile"
	_ "github.com/bobg/pile/store/bt"
	_ "github.com/bobg/pile/store/compress"
	_ "github.com/bobg/pile/store/dynamo"
	_ "github.com/bobg/pile/store/file"
	_ "github.com/bobg/pile/store/gcs"
	_ "github.com/bobg/pile/store/logging"
	_ "github.com/bobg/pile/store/lru"
	_ "github.com/bobg/pile/store/mem"
	_ "github.com/bobg/pile/store/pg"
	_ "github.com/bobg/pile/store/redis"
	_ "github.com/bobg/pile/store/replica"
	_ "github.com/bobg/pile/store/rpc"
	_ "github.com/bobg/pile/store/sqlite3"
)

type maincmd struct {
	s      pile.Store
	c      *pile.Client
	logger log.Logger
	stdin  io.Reader
	stdout io.Writer
}

func main() {
	err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		level.Error(log.NewLogfmtLogger(os.Stderr)).Log("err", err)
		os.Exit(1)
	}
}

// run parses the global flags in args,
// creates the configured store,
// and runs the subcommand named by the remaining args.
// If the store has a Close method
// (as a replica store does, to flush writes to its mirrors),
// it is called before run returns,
// whether or not the subcommand succeeded.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) (err error) {
	fs := flag.NewFlagSet("pile", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		config  = fs.String("config", "pileconf.json", "path to config file")
		verbose = fs.Bool("v", false, "verbose logging")
	)
	if err := fs.Parse(args); err != nil {
		return errors.Wrap(err, "parsing args")
	}

	logger := log.NewLogfmtLogger(log.NewSyncWriter(stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	if *verbose {
		logger = level.NewFilter(logger, level.AllowDebug())
	} else {
		logger = level.NewFilter(logger, level.AllowInfo())
	}

	if *config == "" {
		return errors.New("config value not set")
	}

	s, namespace, err := storeFromConfig(ctx, *config)
	if err != nil {
		return err
	}
	if closer, ok := s.(io.Closer); ok {
		defer func() {
			closeErr := closer.Close()
			if closeErr == nil {
				return
			}
			if err == nil {
				err = errors.Wrap(closeErr, "closing store")
				return
			}
			level.Error(logger).Log("msg", "closing store", "err", closeErr)
		}()
	}

	c := pile.New(s, pile.Config{Namespace: namespace, Logger: logger})

	return subcmd.Run(ctx, maincmd{s: s, c: c, logger: logger, stdin: stdin, stdout: stdout}, fs.Args())
}

func (c maincmd) Subcmds() map[string]subcmd.Subcmd {
	return map[string]subcmd.Subcmd{
		"client": {
			F: c.client,
			Params: []subcmd.Param{
				{Name: "addr", Type: subcmd.String, Default: ":2969"},
				{Name: "insecure", Type: subcmd.Bool, Default: false},
			},
		},
		"get": {
			F: c.get,
			Params: []subcmd.Param{
				{Name: "key", Type: subcmd.String, Default: ""},
				{Name: "ref", Type: subcmd.String, Default: ""},
			},
		},
		"history": {
			F:      c.history,
			Params: []subcmd.Param{{Name: "name", Type: subcmd.String, Default: ""}},
		},
		"last": {
			F:      c.last,
			Params: []subcmd.Param{{Name: "name", Type: subcmd.String, Default: ""}},
		},
		"put": {
			F: c.put,
			Params: []subcmd.Param{
				{Name: "key", Type: subcmd.String, Default: ""},
				{Name: "ref", Type: subcmd.String, Default: ""},
			},
		},
		"redact": {
			F: c.redact,
			Params: []subcmd.Param{
				{Name: "key", Type: subcmd.String, Default: ""},
				{Name: "reason", Type: subcmd.String, Default: ""},
			},
		},
		"redactions": {
			F: c.redactions,
		},
		"ref": {
			F: c.ref,
			Params: []subcmd.Param{
				{Name: "name", Type: subcmd.String, Default: ""},
				{Name: "key", Type: subcmd.String, Default: ""},
			},
		},
		"serve": {
			F:      c.serve,
			Params: []subcmd.Param{{Name: "addr", Type: subcmd.String, Default: ":2969"}},
		},
	}
}

// withStore returns a copy of c operating on s.
func (c maincmd) withStore(s pile.Store) maincmd {
	conf := pile.Config{Namespace: c.c.Keys().Namespace, Logger: c.logger}
	c.s = s
	c.c = pile.New(s, conf)
	return c
}
