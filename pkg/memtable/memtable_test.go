package memtable

import (
	"bytes"
	"testing"

	"lsmdb/pkg/dbformat"
	"lsmdb/pkg/types"
)

func TestAddGetNewestAtOrBeforeSeq(t *testing.T) {
	mt := New(nil)
	mt.Ref()
	defer mt.Unref()

	mt.Add(10, types.TypeValue, []byte("k"), []byte("v1"))
	mt.Add(11, types.TypeDeletion, []byte("k"), nil)
	mt.Add(12, types.TypeValue, []byte("k"), []byte("v2"))

	cases := []struct {
		seq    types.SequenceNumber
		result GetResult
		value  string
	}{
		{13, Found, "v2"},
		{12, Found, "v2"},
		{11, Deleted, ""},
		{10, Found, "v1"},
	}
	for _, c := range cases {
		val, res := mt.Get(dbformat.NewLookupKey([]byte("k"), c.seq))
		if res != c.result {
			t.Fatalf("Get(seq=%d) result = %v, want %v", c.seq, res, c.result)
		}
		if res == Found && !bytes.Equal(val, []byte(c.value)) {
			t.Fatalf("Get(seq=%d) value = %q, want %q", c.seq, val, c.value)
		}
	}
}

func TestGetMissingKey(t *testing.T) {
	mt := New(nil)
	mt.Ref()
	defer mt.Unref()

	mt.Add(1, types.TypeValue, []byte("a"), []byte("1"))

	_, res := mt.Get(dbformat.NewLookupKey([]byte("zzz"), 100))
	if res != Miss {
		t.Fatalf("Get(missing) result = %v, want Miss", res)
	}
}

func TestUnrefBelowZeroPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on negative refcount")
		}
	}()
	mt := New(nil)
	mt.Unref()
}

func TestIteratorOrdersBySequenceDescending(t *testing.T) {
	mt := New(nil)
	mt.Ref()
	defer mt.Unref()

	mt.Add(1, types.TypeValue, []byte("a"), []byte("a1"))
	mt.Add(2, types.TypeValue, []byte("b"), []byte("b1"))
	mt.Add(3, types.TypeValue, []byte("a"), []byte("a2"))

	it := mt.NewIterator()
	it.SeekToFirst()

	var keys []string
	for it.Valid() {
		uk := dbformat.UserKey(it.Key())
		keys = append(keys, string(uk)+":"+string(it.Value()))
		it.Next()
	}

	want := []string{"a:a2", "a:a1", "b:b1"}
	if len(keys) != len(want) {
		t.Fatalf("got %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("got %v, want %v", keys, want)
		}
	}
}

func TestApproximateMemoryUsageGrows(t *testing.T) {
	mt := New(nil)
	mt.Ref()
	defer mt.Unref()

	before := mt.ApproximateMemoryUsage()
	mt.Add(1, types.TypeValue, []byte("k"), bytes.Repeat([]byte("x"), 64))
	if after := mt.ApproximateMemoryUsage(); after <= before {
		t.Fatalf("ApproximateMemoryUsage did not grow: before=%d after=%d", before, after)
	}
}
