package tagstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/nb-tagger/pkg/kv"
)

// Map is the tag assignment map: item identifier to ordered tags.
type Map map[string][]string

// Store reads and writes tag sequences through a kv.Backend. Values that are
// not sequences of strings are treated as foreign data and ignored.
type Store struct {
	backend kv.Backend
	log     logrus.FieldLogger
}

// New wraps backend.
func New(backend kv.Backend, log logrus.FieldLogger) *Store {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Store{backend: backend, log: log}
}

// GetAll returns every tag sequence in the backend.
func (s *Store) GetAll(ctx context.Context) (Map, error) {
	raw, err := s.backend.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read tags: %w", err)
	}
	out := make(Map, len(raw))
	for id, value := range raw {
		tags, ok := decode(value)
		if !ok {
			s.log.WithField("id", id).Debug("skipping non-tag value")
			continue
		}
		out[id] = tags
	}
	return out, nil
}

// Get returns the tags of one item. A missing key is an empty sequence.
func (s *Store) Get(ctx context.Context, id string) ([]string, error) {
	raw, err := s.backend.Get(ctx, []string{id})
	if err != nil {
		return nil, fmt.Errorf("read tags for %s: %w", id, err)
	}
	value, ok := raw[id]
	if !ok {
		return []string{}, nil
	}
	tags, ok := decode(value)
	if !ok {
		s.log.WithField("id", id).Debug("stored value is not a tag sequence")
		return []string{}, nil
	}
	return tags, nil
}

// SetMany replaces the sequences of every key in m in one backend call.
// Keys absent from m are left untouched.
func (s *Store) SetMany(ctx context.Context, m Map) error {
	if len(m) == 0 {
		return nil
	}
	items := make(map[string]json.RawMessage, len(m))
	for id, tags := range m {
		if tags == nil {
			tags = []string{}
		}
		data, err := json.Marshal(tags)
		if err != nil {
			return fmt.Errorf("encode tags for %s: %w", id, err)
		}
		items[id] = data
	}
	if err := s.backend.Set(ctx, items); err != nil {
		return fmt.Errorf("write tags: %w", err)
	}
	return nil
}

// decode accepts a JSON array of strings. Empty strings are dropped.
func decode(value json.RawMessage) ([]string, bool) {
	var tags []string
	if err := json.Unmarshal(value, &tags); err != nil || tags == nil {
		return nil, false
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t != "" {
			out = append(out, t)
		}
	}
	return out, true
}
