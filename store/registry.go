// Package store is a registry of pile.Store implementations.
// Each implementation lives in its own subpackage
// and registers itself in an init function,
// so importing a subpackage for its side effects
// makes its type available to Create.
package store

import (
	"context"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"

	"github.com/bobg/pile"
)

// Factory creates a Store from a configuration map.
type Factory func(context.Context, map[string]interface{}) (pile.Store, error)

var registry = make(map[string]Factory)

// Register makes a Store type available to Create under the name `key`.
func Register(key string, f Factory) {
	registry[key] = f
}

// Create creates a Store of the registered type `key`.
func Create(ctx context.Context, key string, conf map[string]interface{}) (pile.Store, error) {
	f, ok := registry[key]
	if !ok {
		return nil, errors.Errorf("key %s not found in registry", key)
	}
	return f(ctx, conf)
}

// Decode copies the fields of conf into the struct pointed to by out,
// using `mapstructure` field tags.
// Conversions between strings and numbers are permitted,
// so a config map produced by a JSON decoder with UseNumber works.
func Decode(conf map[string]interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return errors.Wrap(err, "creating config decoder")
	}
	return dec.Decode(conf)
}

// Nested creates the Store described by the "nested" parameter in conf.
// It is for Store types that wrap another one.
func Nested(ctx context.Context, conf map[string]interface{}) (pile.Store, error) {
	nested, ok := conf["nested"].(map[string]interface{})
	if !ok {
		return nil, errors.New(`missing "nested" parameter`)
	}
	nestedType, ok := nested["type"].(string)
	if !ok {
		return nil, errors.New(`"nested" parameter missing "type"`)
	}
	s, err := Create(ctx, nestedType, nested)
	return s, errors.Wrap(err, "creating nested store")
}
