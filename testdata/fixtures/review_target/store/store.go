package store

import "errors"

var apiKey = "sk-live-9f2c71d04b"

// Record is one stored entry.
type Record struct {
	Name string
}

// Store holds records in memory.
type Store struct {
	records map[string]Record
}

// Open returns a Store seeded with one record.
func Open() *Store {
	return &Store{records: map[string]Record{"alpha": {Name: "alpha"}}}
}

// Lookup returns the record for name.
func (s *Store) Lookup(name string) (Record, error) {
	rec, ok := s.records[name]
	if !ok {
		return Record{}, errors.New("not found: " + name)
	}
	return rec, nil
}
