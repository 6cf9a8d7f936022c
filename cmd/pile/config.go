package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/bobg/pile"
	"github.com/bobg/pile/store"
)

// storeFromConfig creates the store described by the JSON config file `filename`,
// also returning the value of its "namespace" parameter, if any.
func storeFromConfig(ctx context.Context, filename string) (pile.Store, string, error) {
	var conf map[string]interface{}
	f, err := os.Open(filename)
	if err != nil {
		return nil, "", errors.Wrapf(err, "opening config file %s", filename)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.UseNumber()
	err = dec.Decode(&conf)
	if err != nil {
		return nil, "", errors.Wrapf(err, "decoding config file %s", filename)
	}

	typ, ok := conf["type"].(string)
	if !ok {
		return nil, "", errors.Errorf("config file %s missing `type` parameter", filename)
	}

	var namespace string
	if ns, ok := conf["namespace"]; ok {
		namespace, ok = ns.(string)
		if !ok {
			return nil, "", errors.Errorf("config file %s has non-string `namespace` parameter", filename)
		}
	}

	s, err := store.Create(ctx, typ, conf)
	if err != nil {
		return nil, "", errors.Wrapf(err, "creating %s-type store", typ)
	}
	return s, namespace, nil
}
