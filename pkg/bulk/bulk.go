// Package bulk implements store-wide tag operations: renaming a tag across
// every notebook and moving the tag map in and out as JSON.
package bulk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/mattsolo1/nb-tagger/pkg/tagstore"
)

// DefaultExportPrefix names exported files.
const DefaultExportPrefix = "notebooklm-tags"

var (
	// ErrEmptyName is returned when a rename target is empty.
	ErrEmptyName = errors.New("tag name cannot be empty")
	// ErrNoTagData marks an import document without a single usable entry.
	ErrNoTagData = errors.New("no valid tag entries")
)

// Rename replaces oldName with newName in every sequence that holds it. When
// a sequence already holds newName the old entry is dropped instead, so no
// sequence ends up with a duplicate. All changes go out in one SetMany.
func Rename(ctx context.Context, store *tagstore.Store, oldName, newName string) (int, error) {
	if newName == "" {
		return 0, ErrEmptyName
	}
	if oldName == newName {
		return 0, nil
	}

	all, err := store.GetAll(ctx)
	if err != nil {
		return 0, err
	}

	updates := RenameIn(all, oldName, newName)
	if len(updates) == 0 {
		return 0, nil
	}
	if err := store.SetMany(ctx, updates); err != nil {
		return 0, err
	}
	return len(updates), nil
}

// RenameIn computes the rename updates for m without touching a store.
func RenameIn(m tagstore.Map, oldName, newName string) tagstore.Map {
	updates := make(tagstore.Map)
	for id, tags := range m {
		if !tagstore.Contains(tags, oldName) {
			continue
		}
		collides := tagstore.Contains(tags, newName)
		next := make([]string, 0, len(tags))
		for _, t := range tags {
			switch {
			case t != oldName:
				next = append(next, t)
			case !collides:
				next = append(next, newName)
				collides = true
			}
		}
		updates[id] = next
	}
	return updates
}

// ExportFilename builds `<prefix>-<YYYY-MM-DD>.json`.
func ExportFilename(prefix string, now time.Time) string {
	if prefix == "" {
		prefix = DefaultExportPrefix
	}
	return fmt.Sprintf("%s-%s.json", prefix, now.UTC().Format("2006-01-02"))
}

// Export returns the tag map as indented JSON. Non-tag values held by the
// backend are not included.
func Export(ctx context.Context, store *tagstore.Store) ([]byte, error) {
	all, err := store.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return Marshal(all)
}

// Marshal encodes m the way Export does.
func Marshal(m tagstore.Map) ([]byte, error) {
	if m == nil {
		m = tagstore.Map{}
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	return data, nil
}

// Summary describes an import before it is applied.
type Summary struct {
	Notebooks int
	Tags      int
	Dropped   []string
}

// MalformedImportError reports an import document that cannot be applied.
type MalformedImportError struct {
	Reason string
	Err    error
}

func (e *MalformedImportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed import: %s: %v", e.Reason, e.Err)
	}
	return "malformed import: " + e.Reason
}

func (e *MalformedImportError) Unwrap() error { return e.Err }

// ParseImport reads an exported document. Entries whose value is not an
// array of strings are dropped; a document with no usable entries is
// malformed.
func ParseImport(r io.Reader) (tagstore.Map, Summary, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, Summary{}, fmt.Errorf("read import: %w", err)
	}

	data = bytes.TrimSpace(data)
	if !json.Valid(data) {
		return nil, Summary{}, &MalformedImportError{Reason: "invalid JSON"}
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, Summary{}, &MalformedImportError{Reason: "document is not an object", Err: err}
	}
	if doc == nil {
		return nil, Summary{}, &MalformedImportError{Reason: "document is not an object"}
	}

	valid := make(tagstore.Map)
	var summary Summary
	for id, value := range doc {
		var tags []string
		if err := json.Unmarshal(value, &tags); err != nil || tags == nil {
			summary.Dropped = append(summary.Dropped, id)
			continue
		}
		valid[id] = tagstore.Normalize(tags)
	}
	sort.Strings(summary.Dropped)
	if len(valid) == 0 {
		return nil, summary, &MalformedImportError{Reason: "nothing to import", Err: ErrNoTagData}
	}

	summary.Notebooks = len(valid)
	summary.Tags = len(tagstore.Distinct(valid))
	return valid, summary, nil
}

// Apply merges m into the store. Keys not in m are left as they are.
func Apply(ctx context.Context, store *tagstore.Store, m tagstore.Map) error {
	return store.SetMany(ctx, m)
}
