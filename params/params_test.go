package params

import (
	"errors"
	"testing"
)

const (
	keyExposure Key = iota
	keyMode
	keyLabel
)

func newTestStore() *Store {
	return New([]Def{
		{Key: keyExposure, Kind: Float, Name: "EXPOSURE"},
		{Key: keyMode, Kind: Integer, Name: "MODE"},
		{Key: keyLabel, Kind: String, Name: "LABEL"},
	})
}

func TestKindSafety(t *testing.T) {
	s := newTestStore()
	if err := s.SetFloat(keyExposure, 0.25); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetInt(keyExposure); !errors.Is(err, ErrWrongKind) {
		t.Errorf("got %v expected ErrWrongKind", err)
	}
	if err := s.SetInt(keyLabel, 1); !errors.Is(err, ErrWrongKind) {
		t.Errorf("got %v expected ErrWrongKind", err)
	}
	if _, err := s.GetFloat(Key(999)); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v expected ErrNotFound", err)
	}
	v, err := s.GetFloat(keyExposure)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0.25 {
		t.Errorf("got %v expected 0.25", v)
	}
}

func TestFindIsCaseInsensitive(t *testing.T) {
	s := newTestStore()
	k, err := s.Find("exposure")
	if err != nil {
		t.Fatal(err)
	}
	if k != keyExposure {
		t.Errorf("got key %d expected %d", k, keyExposure)
	}
	if _, err := s.Find("nonesuch"); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v expected ErrNotFound", err)
	}
}

func TestFlushDeliversOncePerKey(t *testing.T) {
	s := newTestStore()
	calls := 0
	s.OnInt(func(k Key, v int) {
		calls++
		if k != keyMode || v != 3 {
			t.Errorf("delivered key %d value %d, expected key %d value 3", k, v, keyMode)
		}
	})
	// two writes to the same key collapse to one notification with the
	// final value
	s.SetInt(keyMode, 2)
	s.SetInt(keyMode, 3)
	if err := s.Flush(); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("callback ran %d times, expected 1", calls)
	}
	// flush cleared pending; a second flush is silent
	if err := s.Flush(); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("flush redelivered, callback ran %d times", calls)
	}
}

func TestFlushRejectsReentry(t *testing.T) {
	s := newTestStore()
	var inner error
	s.OnFloat(func(Key, float64) {
		inner = s.Flush()
	})
	s.SetFloat(keyExposure, 1)
	if err := s.Flush(); err != nil {
		t.Fatal(err)
	}
	if !errors.Is(inner, ErrFlushReentry) {
		t.Errorf("got %v expected ErrFlushReentry", inner)
	}
}

func TestSetDuringFlushCarriesToNextFlush(t *testing.T) {
	s := newTestStore()
	var delivered []float64
	s.OnInt(func(Key, int) {
		// a change made from inside a callback is owed on the next
		// flush, never delivered or dropped by the one in progress
		s.SetFloat(keyExposure, 2.5)
	})
	s.OnFloat(func(k Key, v float64) {
		delivered = append(delivered, v)
	})
	s.SetInt(keyMode, 1)
	if err := s.Flush(); err != nil {
		t.Fatal(err)
	}
	if len(delivered) != 0 {
		t.Errorf("in-flush change delivered early: %v", delivered)
	}
	if err := s.Flush(); err != nil {
		t.Fatal(err)
	}
	if len(delivered) != 1 || delivered[0] != 2.5 {
		t.Errorf("got %v expected exactly one delivery of 2.5", delivered)
	}
}

func TestDump(t *testing.T) {
	s := newTestStore()
	s.SetString(keyLabel, "cam0")
	d := s.Dump()
	if d["LABEL"] != "cam0" {
		t.Errorf("got %v expected cam0", d["LABEL"])
	}
	if len(d) != 3 {
		t.Errorf("dump has %d entries, expected 3", len(d))
	}
}
