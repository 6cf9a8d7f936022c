// Package bt implements a pile store on Google Cloud Bigtable.
package bt

import (
	"context"
	"encoding/binary"
	"fmt"
	"sort"

	"cloud.google.com/go/bigtable"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"github.com/bobg/pile"
	"github.com/bobg/pile/store"
)

var _ pile.Store = &Store{}

// Store is a Google Cloud Bigtable-backed implementation of pile.Store.
//
// Each pile key is one row.
// A plain value is a single cell in the "v" family.
// A list is a cell per element in the "l" family,
// with zero-padded sequence numbers as column qualifiers,
// plus a counter in the "n" family that hands out the sequence numbers.
type Store struct {
	t *bigtable.Table
}

const (
	valuefam   = "v"
	valuecol   = "v"
	listfam    = "l"
	counterfam = "n"
	countercol = "n"
)

// Families are the column families a table for Store must have.
var Families = []string{valuefam, listfam, counterfam}

// New produces a new Store.
func New(t *bigtable.Table) *Store {
	return &Store{t: t}
}

// SetNX implements pile.Store.
// The value is written only if the row has no cells at all,
// so a key holding a list is never overwritten.
func (s *Store) SetNX(ctx context.Context, key string, value []byte) (bool, error) {
	mut := bigtable.NewMutation()
	mut.Set(valuefam, valuecol, bigtable.Now(), value)

	cmut := bigtable.NewCondMutation(bigtable.LatestNFilter(1), nil, mut)

	var alreadyPresent bool
	err := s.t.Apply(ctx, key, cmut, bigtable.GetCondMutationResult(&alreadyPresent))
	if err != nil {
		return false, errors.Wrapf(err, "setting %s", key)
	}
	return !alreadyPresent, nil
}

// Get implements pile.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	filter := bigtable.ChainFilters(bigtable.FamilyFilter("^"+valuefam+"$"), bigtable.LatestNFilter(1))
	row, err := s.t.ReadRow(ctx, key, bigtable.RowFilter(filter))
	if err != nil {
		return nil, false, errors.Wrapf(err, "reading row %s", key)
	}
	items := row[valuefam]
	if len(items) == 0 {
		return nil, false, nil
	}
	if items[0].Value == nil {
		return []byte{}, true, nil
	}
	return items[0].Value, true, nil
}

// RPush implements pile.Store.
// It reserves the next sequence number with an atomic increment of the row's counter,
// then writes the element under that number.
// A concurrent LRange can observe the reservation before the write,
// in which case it sees the list without the new element.
func (s *Store) RPush(ctx context.Context, key string, value []byte) error {
	rmw := bigtable.NewReadModifyWrite()
	rmw.Increment(counterfam, countercol, 1)
	row, err := s.t.ApplyReadModifyWrite(ctx, key, rmw)
	if err != nil {
		return errors.Wrapf(err, "incrementing counter of %s", key)
	}
	items := row[counterfam]
	if len(items) == 0 || len(items[0].Value) != 8 {
		return errors.Errorf("malformed counter in row %s", key)
	}
	seq := binary.BigEndian.Uint64(items[0].Value)

	mut := bigtable.NewMutation()
	mut.Set(listfam, seqCol(seq), bigtable.Now(), value)
	return errors.Wrapf(s.t.Apply(ctx, key, mut), "appending to %s", key)
}

// LRange implements pile.Store.
func (s *Store) LRange(ctx context.Context, key string, start, end int64) ([][]byte, error) {
	filter := bigtable.ChainFilters(bigtable.FamilyFilter("^"+listfam+"$"), bigtable.LatestNFilter(1))
	row, err := s.t.ReadRow(ctx, key, bigtable.RowFilter(filter))
	if err != nil {
		return nil, errors.Wrapf(err, "reading row %s", key)
	}
	items := row[listfam]
	sort.Slice(items, func(i, j int) bool { return items[i].Column < items[j].Column })

	lo, hi := store.Span(len(items), start, end)
	result := make([][]byte, 0, hi-lo)
	for _, item := range items[lo:hi] {
		value := item.Value
		if value == nil {
			value = []byte{}
		}
		result = append(result, value)
	}
	return result, nil
}

// Exists implements pile.Store.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	filter := bigtable.ChainFilters(bigtable.LatestNFilter(1), bigtable.StripValueFilter())
	row, err := s.t.ReadRow(ctx, key, bigtable.RowFilter(filter))
	if err != nil {
		return false, errors.Wrapf(err, "reading row %s", key)
	}
	return len(row) > 0, nil
}

// Del implements pile.Store.
func (s *Store) Del(ctx context.Context, key string) error {
	mut := bigtable.NewMutation()
	mut.DeleteRow()
	return errors.Wrapf(s.t.Apply(ctx, key, mut), "deleting row %s", key)
}

func seqCol(seq uint64) string {
	return fmt.Sprintf("%020d", seq)
}

// CreateTable creates a table suitable for Store,
// with the column families it needs
// and garbage collection keeping one version of each cell.
func CreateTable(ctx context.Context, admin *bigtable.AdminClient, table string) error {
	if err := admin.CreateTable(ctx, table); err != nil {
		return errors.Wrapf(err, "creating table %s", table)
	}
	for _, fam := range Families {
		if err := admin.CreateColumnFamily(ctx, table, fam); err != nil {
			return errors.Wrapf(err, "creating column family %s", fam)
		}
		if err := admin.SetGCPolicy(ctx, table, fam, bigtable.MaxVersionsPolicy(1)); err != nil {
			return errors.Wrapf(err, "setting GC policy for column family %s", fam)
		}
	}
	return nil
}

func init() {
	store.Register("bt", func(ctx context.Context, conf map[string]interface{}) (pile.Store, error) {
		var c struct {
			Project  string `mapstructure:"project"`
			Instance string `mapstructure:"instance"`
			Table    string `mapstructure:"table"`
			Creds    string `mapstructure:"creds"`
			Create   bool   `mapstructure:"create"`
		}
		if err := store.Decode(conf, &c); err != nil {
			return nil, errors.Wrap(err, "decoding bt config")
		}
		if c.Project == "" {
			return nil, errors.New(`missing "project" parameter`)
		}
		if c.Instance == "" {
			return nil, errors.New(`missing "instance" parameter`)
		}
		if c.Table == "" {
			return nil, errors.New(`missing "table" parameter`)
		}

		var options []option.ClientOption
		if c.Creds != "" {
			options = append(options, option.WithCredentialsFile(c.Creds))
		}

		if c.Create {
			admin, err := bigtable.NewAdminClient(ctx, c.Project, c.Instance, options...)
			if err != nil {
				return nil, errors.Wrap(err, "creating bigtable admin client")
			}
			defer admin.Close()
			if err = CreateTable(ctx, admin, c.Table); err != nil {
				return nil, err
			}
		}

		client, err := bigtable.NewClient(ctx, c.Project, c.Instance, options...)
		if err != nil {
			return nil, errors.Wrap(err, "creating bigtable client")
		}
		return New(client.Open(c.Table)), nil
	})
}
