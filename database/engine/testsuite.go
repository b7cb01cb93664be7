// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestSuiteEngine runs the behaviour every backend must share.  newEngine
// must return a fresh, empty database on each call.
func TestSuiteEngine(t *testing.T, newEngine func() Engine) {
	t.Run("TransactionSnapshot", func(t *testing.T) {
		db := newEngine()
		defer db.Close()

		tx, err := db.Transaction()
		require.NoError(t, err)

		key := []byte("key1")
		value := []byte("value1")
		require.NoError(t, tx.Put(key, value))

		// Uncommitted writes are invisible.
		snap, err := db.Snapshot()
		require.NoError(t, err)
		has, err := snap.Has(key)
		require.NoError(t, err)
		require.False(t, has)
		got, err := snap.Get(key)
		require.Error(t, err)
		require.Nil(t, got)
		snap.Release()

		require.NoError(t, tx.Commit())

		snap, err = db.Snapshot()
		require.NoError(t, err)
		got, err = snap.Get(key)
		require.NoError(t, err)
		require.Equal(t, value, got)
		snap.Release()
	})

	t.Run("SnapshotIsolation", func(t *testing.T) {
		db := newEngine()
		defer db.Close()

		put := func(k, v string) {
			tx, err := db.Transaction()
			require.NoError(t, err)
			require.NoError(t, tx.Put([]byte(k), []byte(v)))
			require.NoError(t, tx.Commit())
		}
		put("a", "1")

		snap, err := db.Snapshot()
		require.NoError(t, err)
		defer snap.Release()

		put("b", "2")
		tx, err := db.Transaction()
		require.NoError(t, err)
		require.NoError(t, tx.Delete([]byte("a")))
		require.NoError(t, tx.Commit())

		has, err := snap.Has([]byte("a"))
		require.NoError(t, err)
		require.True(t, has)
		has, err = snap.Has([]byte("b"))
		require.NoError(t, err)
		require.False(t, has)
	})

	t.Run("TransactionIterator", func(t *testing.T) {
		for _, test := range []struct {
			kvs    map[string]string
			rng    *Range
			expect [][2]string
		}{
			{
				kvs:    map[string]string{"key1": "value1", "key2": "value2", "key3": "value3"},
				rng:    &Range{Start: []byte("key0"), Limit: []byte("key1")},
				expect: nil,
			},
			{
				kvs:    map[string]string{"key1": "value1", "key2": "value2", "key3": "value3"},
				rng:    &Range{Start: []byte("key1"), Limit: []byte("key3")},
				expect: [][2]string{{"key1", "value1"}, {"key2", "value2"}},
			},
			{
				kvs:    map[string]string{"key1": "value1", "key2": "value2", "key3": "value3"},
				rng:    &Range{Start: []byte("key10"), Limit: []byte("key30")},
				expect: [][2]string{{"key2", "value2"}, {"key3", "value3"}},
			},
			{
				kvs:    map[string]string{"key10": "value10", "key11": "value11", "key20": "value20"},
				rng:    BytesPrefix([]byte("key1")),
				expect: [][2]string{{"key10", "value10"}, {"key11", "value11"}},
			},
		} {
			db := newEngine()

			tx, err := db.Transaction()
			require.NoError(t, err)
			for k, v := range test.kvs {
				require.NoError(t, tx.Put([]byte(k), []byte(v)))
			}
			require.NoError(t, tx.Commit())

			snap, err := db.Snapshot()
			require.NoError(t, err)

			iter := snap.NewIterator(test.rng)
			var idx int
			for iter.Next() {
				require.Less(t, idx, len(test.expect), "unexpected key %s", iter.Key())
				require.Equal(t, []byte(test.expect[idx][0]), iter.Key())
				require.Equal(t, []byte(test.expect[idx][1]), iter.Value())
				idx++
			}
			require.NoError(t, iter.Error())
			require.Equal(t, len(test.expect), idx)

			iter.Release()
			snap.Release()
			require.NoError(t, db.Close())
		}
	})

	t.Run("DbClose", func(t *testing.T) {
		db := newEngine()

		tx, err := db.Transaction()
		require.NoError(t, err)
		tx.Discard()
		tx.Discard()
		require.Error(t, tx.Commit())

		snap, err := db.Snapshot()
		require.NoError(t, err)
		iter := snap.NewIterator(BytesPrefix([]byte("k")))
		require.NoError(t, iter.Error())
		iter.Release()
		iter.Release()
		snap.Release()
		snap.Release()
		_, err = snap.Get([]byte("key"))
		require.Error(t, err)

		require.NoError(t, db.Close())
		require.Error(t, db.Close())

		_, err = db.Transaction()
		require.Error(t, err)
		_, err = db.Snapshot()
		require.Error(t, err)
	})
}
