package pile

import (
	"context"
	"encoding/json"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

// Redaction is an entry in the redaction log.
type Redaction struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

// Config configures a Client.
type Config struct {
	// Namespace prefixes every Store key the Client uses.
	// Default: DefaultNamespace.
	Namespace string

	// Logger receives redaction events.
	// Default: a no-op logger.
	Logger log.Logger
}

// DefaultConfig returns the default Client configuration.
func DefaultConfig() Config {
	return Config{
		Namespace: DefaultNamespace,
		Logger:    log.NewNopLogger(),
	}
}

// Client implements data, references, and redactions on top of a Store.
// It keeps no state of its own apart from its configuration,
// so it is safe for concurrent use
// to the extent that the Store is.
type Client struct {
	s      Store
	keys   Keys
	logger log.Logger
}

// New produces a new Client storing its data in s.
func New(s Store, conf Config) *Client {
	if conf.Namespace == "" {
		conf.Namespace = DefaultNamespace
	}
	if conf.Logger == nil {
		conf.Logger = log.NewNopLogger()
	}
	return &Client{
		s:      s,
		keys:   Keys{Namespace: conf.Namespace},
		logger: log.With(conf.Logger, "namespace", conf.Namespace),
	}
}

// Keys returns the key scheme of the Client's namespace.
func (c *Client) Keys() Keys {
	return c.keys
}

// PutData stores value under key.
// A key can be written only once:
// if it already has a value
// (or had one that was redacted and not yet deleted),
// the result is an error of KindAlreadySet
// and the existing value is unchanged.
func (c *Client) PutData(ctx context.Context, key string, value []byte) error {
	wasSet, err := c.s.SetNX(ctx, c.keys.Data(key), value)
	if err != nil {
		return backend(key, err, "")
	}
	if !wasSet {
		return alreadySet(key)
	}
	return nil
}

// GetData gets the value stored under key.
// If there is none,
// the redaction log is consulted
// to tell a redacted key (KindRedacted)
// from one that was never set (KindNotFound).
func (c *Client) GetData(ctx context.Context, key string) ([]byte, error) {
	value, ok, err := c.s.Get(ctx, c.keys.Data(key))
	if err != nil {
		return nil, backend(key, err, "")
	}
	if ok {
		return value, nil
	}

	redactions, err := c.GetRedactions(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range redactions {
		if r.Key == key {
			return nil, redacted(r)
		}
	}
	return nil, notFound(key)
}

// AddReference appends key to the history of the reference `name`,
// making it the name's current value.
// It does not check that key exists.
func (c *Client) AddReference(ctx context.Context, name, key string) error {
	err := c.s.RPush(ctx, c.keys.Reference(name), []byte(key))
	if err != nil {
		return backend(name, err, "")
	}
	return nil
}

// GetLastReference returns the current (most recently added) key for `name`.
func (c *Client) GetLastReference(ctx context.Context, name string) (string, error) {
	latest, err := c.s.LRange(ctx, c.keys.Reference(name), -1, -1)
	if err != nil {
		return "", backend(name, err, "")
	}
	if len(latest) == 0 {
		return "", notFound(name)
	}
	return string(latest[0]), nil
}

// GetReferenceHistory returns every key ever added for `name`, oldest first.
// The result is empty, not an error, for a name with no references.
func (c *Client) GetReferenceHistory(ctx context.Context, name string) ([]string, error) {
	items, err := c.s.LRange(ctx, c.keys.Reference(name), 0, -1)
	if err != nil {
		return nil, backend(name, err, "")
	}
	history := make([]string, 0, len(items))
	for _, item := range items {
		history = append(history, string(item))
	}
	return history, nil
}

// RedactData deletes the value stored under key,
// first recording key and reason in the redaction log.
//
// If the log append fails,
// the value is not deleted.
// If the delete fails after the log append succeeded,
// the log says the key is redacted but its value is still present;
// the error message says so.
// Calling RedactData again in that state appends a second log record;
// to avoid that, delete the value directly with the Store
// (see Keys.Data).
func (c *Client) RedactData(ctx context.Context, key, reason string) error {
	dataKey := c.keys.Data(key)

	exists, err := c.s.Exists(ctx, dataKey)
	if err != nil {
		return backend(key, err, "")
	}
	if !exists {
		return notFound(key)
	}

	rec, err := json.Marshal(Redaction{Key: key, Reason: reason})
	if err != nil {
		return backend(key, err, "encoding redaction")
	}

	err = c.s.RPush(ctx, c.keys.Redaction(), rec)
	if err != nil {
		level.Error(c.logger).Log("op", "redact", "key", key, "msg", "redaction not logged", "err", err)
		return backend(key, err, "failed to log redaction, data not deleted")
	}

	err = c.s.Del(ctx, dataKey)
	if err != nil {
		level.Error(c.logger).Log("op", "redact", "key", key, "msg", "redaction logged but data not deleted", "err", err)
		return backend(key, err, "failed to delete redacted data, left dirty redaction log")
	}

	level.Info(c.logger).Log("op", "redact", "key", key, "reason", reason)
	return nil
}

// GetRedactions returns the redaction log, oldest first.
func (c *Client) GetRedactions(ctx context.Context) ([]Redaction, error) {
	items, err := c.s.LRange(ctx, c.keys.Redaction(), 0, -1)
	if err != nil {
		return nil, backend("", err, "")
	}
	redactions := make([]Redaction, 0, len(items))
	for i, item := range items {
		var r Redaction
		if err := json.Unmarshal(item, &r); err != nil {
			return nil, backend("", errors.Wrapf(err, "decoding redaction log entry %d", i), "")
		}
		redactions = append(redactions, r)
	}
	return redactions, nil
}
