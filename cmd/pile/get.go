package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

func (c maincmd) get(ctx context.Context, key, name string, _ []string) error {
	if (key == "" && name == "") || (key != "" && name != "") {
		return errors.New("must supply one of -key or -ref")
	}

	if name != "" {
		var err error
		key, err = c.c.GetLastReference(ctx, name)
		if err != nil {
			return errors.Wrapf(err, "getting reference %s", name)
		}
	}

	value, err := c.c.GetData(ctx, key)
	if err != nil {
		return errors.Wrapf(err, "getting %s", key)
	}
	_, err = c.stdout.Write(value)
	return errors.Wrap(err, "writing to stdout")
}

func (c maincmd) last(ctx context.Context, name string, _ []string) error {
	if name == "" {
		return errors.New("must supply -name")
	}

	key, err := c.c.GetLastReference(ctx, name)
	if err != nil {
		return errors.Wrapf(err, "getting reference %s", name)
	}
	_, err = fmt.Fprintln(c.stdout, key)
	return err
}

func (c maincmd) history(ctx context.Context, name string, _ []string) error {
	if name == "" {
		return errors.New("must supply -name")
	}

	keys, err := c.c.GetReferenceHistory(ctx, name)
	if err != nil {
		return errors.Wrapf(err, "getting history of reference %s", name)
	}
	for _, key := range keys {
		if _, err = fmt.Fprintln(c.stdout, key); err != nil {
			return err
		}
	}
	return nil
}
