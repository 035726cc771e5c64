// Mgmt
// Copyright (C) 2013-2024+ James Shubin and the project contributors
// Written by James Shubin <james@shubin.ca> and the project contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package store keeps snapshots of the input cells of property sheets in a
// bolt database, so that a session can resume where it was left.
package store

import (
	"encoding/binary"
	"fmt"
	"sort"
	"time"

	"github.com/purpleidea/propsheet/lang/ast"
	"github.com/purpleidea/propsheet/lang/parser"
	"github.com/purpleidea/propsheet/lang/sheet"
	"github.com/purpleidea/propsheet/lang/types"
	"github.com/purpleidea/propsheet/util"
	"github.com/purpleidea/propsheet/util/errwrap"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

const (
	// ErrNoSnapshot is returned when a sheet has no snapshot, or none with
	// the requested id.
	ErrNoSnapshot = util.Error("no such snapshot")

	// BucketSheets holds one bucket per sheet name.
	BucketSheets = "sheets"

	keyID     = "id"
	keyTime   = "time"
	keyInputs = "inputs"
)

// Snapshot describes a saved set of inputs.
type Snapshot struct {
	ID     string    `yaml:"id"`
	Time   time.Time `yaml:"time"`
	Inputs int       `yaml:"inputs"`
}

// Store is the persistent storage for sheet inputs.
type Store struct {
	db *bolt.DB

	Debug bool
	Logf  func(format string, v ...interface{})
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errwrap.Wrapf(err, "could not open store %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(BucketSheets))
		return err
	})
	if err != nil {
		db.Close()
		return nil, errwrap.Wrapf(err, "could not initialize store %s", path)
	}
	return &Store{
		db:   db,
		Logf: func(format string, v ...interface{}) {}, // noop
	}, nil
}

// Close closes the database.
func (obj *Store) Close() error {
	return obj.db.Close()
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// SaveInputs stores a new snapshot of inputs for the named sheet and returns
// its id.
func (obj *Store) SaveInputs(name string, inputs map[string]types.Value) (string, error) {
	encoded := make(map[string]string)
	for k, v := range inputs {
		s, err := parser.PrintValue(v)
		if err != nil {
			return "", errwrap.Wrapf(err, "input %s", k)
		}
		encoded[k] = s
	}

	id := uuid.New().String()
	err := obj.db.Update(func(tx *bolt.Tx) error {
		sheets := tx.Bucket([]byte(BucketSheets))
		b, err := sheets.CreateBucketIfNotExists([]byte(name))
		if err != nil {
			return err
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		snap, err := b.CreateBucket(itob(seq))
		if err != nil {
			return err
		}
		if err := snap.Put([]byte(keyID), []byte(id)); err != nil {
			return err
		}
		now := time.Now().UTC().Format(time.RFC3339Nano)
		if err := snap.Put([]byte(keyTime), []byte(now)); err != nil {
			return err
		}
		values, err := snap.CreateBucket([]byte(keyInputs))
		if err != nil {
			return err
		}
		for k, s := range encoded {
			if err := values.Put([]byte(k), []byte(s)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", errwrap.Wrapf(err, "could not save inputs of %s", name)
	}
	if obj.Debug {
		obj.Logf("saved %d inputs of %s as %s", len(inputs), name, id)
	}
	return id, nil
}

// find returns the bucket of a snapshot. An empty id means the latest one.
func find(tx *bolt.Tx, name, id string) (*bolt.Bucket, error) {
	b := tx.Bucket([]byte(BucketSheets)).Bucket([]byte(name))
	if b == nil {
		return nil, errwrap.Wrapf(ErrNoSnapshot, "sheet %s", name)
	}
	c := b.Cursor()
	for k, v := c.Last(); k != nil; k, v = c.Prev() {
		if v != nil { // not a bucket
			continue
		}
		snap := b.Bucket(k)
		if id == "" || string(snap.Get([]byte(keyID))) == id {
			return snap, nil
		}
	}
	if id == "" {
		return nil, errwrap.Wrapf(ErrNoSnapshot, "sheet %s", name)
	}
	return nil, errwrap.Wrapf(ErrNoSnapshot, "sheet %s, id %s", name, id)
}

// Load returns the inputs of a snapshot. An empty id means the latest one.
func (obj *Store) Load(name, id string) (map[string]types.Value, error) {
	inputs := make(map[string]types.Value)
	err := obj.db.View(func(tx *bolt.Tx) error {
		snap, err := find(tx, name, id)
		if err != nil {
			return err
		}
		return snap.Bucket([]byte(keyInputs)).ForEach(func(k, v []byte) error {
			value, err := parser.ParseValue(string(v))
			if err != nil {
				return errwrap.Wrapf(err, "input %s", k)
			}
			inputs[string(k)] = value
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return inputs, nil
}

// LoadInputs returns the inputs of the latest snapshot of the named sheet.
func (obj *Store) LoadInputs(name string) (map[string]types.Value, error) {
	return obj.Load(name, "")
}

// Snapshots lists the snapshots of the named sheet, oldest first.
func (obj *Store) Snapshots(name string) ([]*Snapshot, error) {
	snapshots := []*Snapshot{}
	err := obj.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketSheets)).Bucket([]byte(name))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			if v != nil {
				return nil
			}
			snap := b.Bucket(k)
			t, err := time.Parse(time.RFC3339Nano, string(snap.Get([]byte(keyTime))))
			if err != nil {
				return errwrap.Wrapf(err, "corrupt snapshot %x", k)
			}
			snapshots = append(snapshots, &Snapshot{
				ID:     string(snap.Get([]byte(keyID))),
				Time:   t,
				Inputs: snap.Bucket([]byte(keyInputs)).Stats().KeyN,
			})
			return nil
		})
	})
	return snapshots, err
}

// Delete removes a snapshot.
func (obj *Store) Delete(name, id string) error {
	return obj.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketSheets)).Bucket([]byte(name))
		if b == nil {
			return errwrap.Wrapf(ErrNoSnapshot, "sheet %s", name)
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if v == nil && string(b.Bucket(k).Get([]byte(keyID))) == id {
				return b.DeleteBucket(k)
			}
		}
		return errwrap.Wrapf(ErrNoSnapshot, "sheet %s, id %s", name, id)
	})
}

// Save stores the current values of every input cell of the sheet.
func (obj *Store) Save(s *sheet.Sheet) (string, error) {
	inputs := make(map[string]types.Value)
	for _, name := range s.Cells() {
		if kind, _ := s.Kind(name); kind != ast.KindInput {
			continue
		}
		v, err := s.Get(name)
		if err != nil {
			return "", err
		}
		inputs[name] = v
	}
	return obj.SaveInputs(s.Name(), inputs)
}

// Restore sets the inputs of the latest snapshot on the sheet. Saved names
// which are no longer input cells are skipped and returned. The sheet still
// needs an update.
func (obj *Store) Restore(s *sheet.Sheet) ([]string, error) {
	inputs, err := obj.LoadInputs(s.Name())
	if err != nil {
		return nil, err
	}
	names := []string{}
	for name := range inputs {
		names = append(names, name)
	}
	sort.Strings(names)
	skipped := []string{}
	for _, name := range names {
		if kind, err := s.Kind(name); err != nil || kind != ast.KindInput {
			skipped = append(skipped, name)
			continue
		}
		if err := s.Set(name, inputs[name]); err != nil {
			return nil, errwrap.Wrapf(err, "could not restore %s", name)
		}
	}
	if obj.Debug {
		obj.Logf("restored %d inputs of %s", len(inputs)-len(skipped), s.Name())
	}
	return skipped, nil
}

// String returns the path of the database.
func (obj *Store) String() string {
	return fmt.Sprintf("store(%s)", obj.db.Path())
}
