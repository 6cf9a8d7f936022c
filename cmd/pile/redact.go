package main

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

func (c maincmd) redact(ctx context.Context, key, reason string, _ []string) error {
	if key == "" || reason == "" {
		return errors.New("must supply -key and -reason")
	}

	return c.c.RedactData(ctx, key, reason)
}

// redactions prints the redaction log, one JSON object per line.
func (c maincmd) redactions(ctx context.Context, _ []string) error {
	redactions, err := c.c.GetRedactions(ctx)
	if err != nil {
		return errors.Wrap(err, "getting redactions")
	}
	enc := json.NewEncoder(c.stdout)
	for _, r := range redactions {
		if err = enc.Encode(r); err != nil {
			return errors.Wrap(err, "writing redaction")
		}
	}
	return nil
}
