// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pebbledb

import (
	"github.com/btcsuite/txpackd/database/engine"
	"github.com/cockroachdb/pebble"
)

// Iterator adapts a pebble iterator.  A nil embedded iterator means opening
// it failed and err holds the cause.
type Iterator struct {
	*pebble.Iterator
	err      error
	released bool
}

func (i *Iterator) live() bool {
	return i.Iterator != nil && !i.released
}

func (i *Iterator) First() bool { return i.live() && i.Iterator.First() }
func (i *Iterator) Last() bool  { return i.live() && i.Iterator.Last() }
func (i *Iterator) Next() bool  { return i.live() && i.Iterator.Next() }
func (i *Iterator) Prev() bool  { return i.live() && i.Iterator.Prev() }
func (i *Iterator) Valid() bool { return i.live() && i.Iterator.Valid() }

func (i *Iterator) Seek(key []byte) bool {
	return i.live() && i.Iterator.SeekGE(key)
}

func (i *Iterator) Key() []byte {
	if !i.Valid() {
		return nil
	}
	return i.Iterator.Key()
}

func (i *Iterator) Value() []byte {
	if !i.Valid() {
		return nil
	}
	return i.Iterator.Value()
}

func (i *Iterator) Release() {
	if !i.released {
		i.released = true
		if i.Iterator != nil {
			i.Iterator.Close()
		}
	}
}

func (i *Iterator) Error() error {
	switch {
	case i.err != nil:
		return i.err
	case i.released:
		return engine.ErrIterReleased
	}
	return i.Iterator.Error()
}
