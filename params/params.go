/*Package params implements the typed parameter table backing each simulated
camera.

Every key is registered once, at table creation, with a fixed kind (integer,
float, or string); gets and sets of the wrong kind fail.  Sets mark the key
pending; Flush delivers each distinct pending key to the registered per-kind
callback exactly once and clears the pending set.  Nothing notifies observers
except Flush.

The table is deliberately not synchronized.  Every call must be made while
holding the owning camera's lock, the same discipline the camera's
acquisition task follows.  This keeps parameter reads, writes and
notification strictly ordered against frame computation.
*/
package params

import (
	"errors"
	"fmt"
	"strings"
)

// Kind enumerates the value kinds a parameter may hold
type Kind int

const (
	// Integer parameters hold an int
	Integer Kind = iota

	// Float parameters hold a float64
	Float

	// String parameters hold a string
	String
)

func (k Kind) String() string {
	switch k {
	case Integer:
		return "integer"
	case Float:
		return "float"
	case String:
		return "string"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Key identifies a parameter.  The concrete key space is defined by the
// package that owns the table (see package detector).
type Key int

// Def declares one parameter: its key, kind, and the command string used by
// operator consoles to look the key up by name
type Def struct {
	Key  Key
	Kind Kind
	Name string
}

var (
	// ErrNotFound is generated when a key was never registered
	ErrNotFound = errors.New("params: key not found")

	// ErrWrongKind is generated when a key is accessed with the wrong
	// value kind
	ErrWrongKind = errors.New("params: wrong kind for key")

	// ErrFlushReentry is generated when Flush is called from within a
	// change callback
	ErrFlushReentry = errors.New("params: flush called from within a change callback")
)

type entry struct {
	kind Kind
	i    int
	f    float64
	s    string
}

// Store is a table of typed parameters with change notification
type Store struct {
	values  map[Key]*entry
	names   map[string]Key
	pending map[Key]struct{}

	onInt    func(Key, int)
	onFloat  func(Key, float64)
	onString func(Key, string)

	flushing bool
}

// New creates a store holding exactly the given definitions, all zero-valued
func New(defs []Def) *Store {
	s := &Store{
		values:  make(map[Key]*entry, len(defs)),
		names:   make(map[string]Key, len(defs)),
		pending: make(map[Key]struct{}),
	}
	for _, d := range defs {
		s.values[d.Key] = &entry{kind: d.Kind}
		if d.Name != "" {
			s.names[strings.ToUpper(d.Name)] = d.Key
		}
	}
	return s
}

// Find looks a key up by its command string, case-insensitively
func (s *Store) Find(name string) (Key, error) {
	k, ok := s.names[strings.ToUpper(name)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return k, nil
}

// KindOf returns the registered kind of key
func (s *Store) KindOf(key Key) (Kind, error) {
	e, ok := s.values[key]
	if !ok {
		return 0, ErrNotFound
	}
	return e.kind, nil
}

func (s *Store) lookup(key Key, k Kind) (*entry, error) {
	e, ok := s.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	if e.kind != k {
		return nil, fmt.Errorf("%w: key %d is %v, not %v", ErrWrongKind, int(key), e.kind, k)
	}
	return e, nil
}

// GetInt reads an integer parameter
func (s *Store) GetInt(key Key) (int, error) {
	e, err := s.lookup(key, Integer)
	if err != nil {
		return 0, err
	}
	return e.i, nil
}

// SetInt writes an integer parameter and marks it pending
func (s *Store) SetInt(key Key, v int) error {
	e, err := s.lookup(key, Integer)
	if err != nil {
		return err
	}
	e.i = v
	s.pending[key] = struct{}{}
	return nil
}

// GetFloat reads a float parameter
func (s *Store) GetFloat(key Key) (float64, error) {
	e, err := s.lookup(key, Float)
	if err != nil {
		return 0, err
	}
	return e.f, nil
}

// SetFloat writes a float parameter and marks it pending
func (s *Store) SetFloat(key Key, v float64) error {
	e, err := s.lookup(key, Float)
	if err != nil {
		return err
	}
	e.f = v
	s.pending[key] = struct{}{}
	return nil
}

// GetString reads a string parameter
func (s *Store) GetString(key Key) (string, error) {
	e, err := s.lookup(key, String)
	if err != nil {
		return "", err
	}
	return e.s, nil
}

// SetString writes a string parameter and marks it pending
func (s *Store) SetString(key Key, v string) error {
	e, err := s.lookup(key, String)
	if err != nil {
		return err
	}
	e.s = v
	s.pending[key] = struct{}{}
	return nil
}

// OnInt registers the callback invoked during Flush for each changed
// integer key.  There is one callback per kind; registering replaces any
// previous one.
func (s *Store) OnInt(fn func(Key, int)) { s.onInt = fn }

// OnFloat registers the flush callback for float keys
func (s *Store) OnFloat(fn func(Key, float64)) { s.onFloat = fn }

// OnString registers the flush callback for string keys
func (s *Store) OnString(fn func(Key, string)) { s.onString = fn }

// Flush delivers every pending key to the callback for its kind, once per
// distinct key, then clears the pending set.  Calling Flush from within a
// callback is rejected rather than recursing.
func (s *Store) Flush() error {
	if s.flushing {
		return ErrFlushReentry
	}
	s.flushing = true
	defer func() { s.flushing = false }()
	// swap the pending set out before iterating: callbacks may set
	// parameters themselves, and those changes belong to the next flush,
	// not to an in-progress map iteration
	pending := s.pending
	s.pending = make(map[Key]struct{})
	for key := range pending {
		e := s.values[key]
		switch e.kind {
		case Integer:
			if s.onInt != nil {
				s.onInt(key, e.i)
			}
		case Float:
			if s.onFloat != nil {
				s.onFloat(key, e.f)
			}
		case String:
			if s.onString != nil {
				s.onString(key, e.s)
			}
		}
	}
	return nil
}

// Dump returns a map of command strings to current values, for reports
func (s *Store) Dump() map[string]interface{} {
	out := make(map[string]interface{}, len(s.names))
	for name, key := range s.names {
		e := s.values[key]
		switch e.kind {
		case Integer:
			out[name] = e.i
		case Float:
			out[name] = e.f
		case String:
			out[name] = e.s
		}
	}
	return out
}
