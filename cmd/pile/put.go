package main

import (
	"context"
	"io"

	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

func (c maincmd) put(ctx context.Context, key, name string, _ []string) error {
	if key == "" {
		return errors.New("must supply -key")
	}

	value, err := io.ReadAll(c.stdin)
	if err != nil {
		return errors.Wrap(err, "reading stdin")
	}
	err = c.c.PutData(ctx, key, value)
	if err != nil {
		return errors.Wrapf(err, "storing %s", key)
	}
	level.Info(c.logger).Log("op", "put", "key", key, "size", len(value))

	if name != "" {
		err = c.c.AddReference(ctx, name, key)
		if err != nil {
			return errors.Wrapf(err, "adding %s to reference %s", key, name)
		}
		level.Info(c.logger).Log("op", "ref", "name", name, "key", key)
	}

	return nil
}

func (c maincmd) ref(ctx context.Context, name, key string, _ []string) error {
	if name == "" || key == "" {
		return errors.New("must supply -name and -key")
	}

	err := c.c.AddReference(ctx, name, key)
	if err != nil {
		return errors.Wrapf(err, "adding %s to reference %s", key, name)
	}
	level.Info(c.logger).Log("op", "ref", "name", name, "key", key)
	return nil
}
