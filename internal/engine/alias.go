package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"maps"
	"slices"
)

// AliasTable resolves a raw or previously canonical procedure name to its
// canonical procedure name.
type AliasTable interface {
	Lookup(name string) (string, bool)
}

// AliasSource produces the alias snapshot a run reads from. It is called once
// per run; implementations may block on I/O.
type AliasSource interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}

// Snapshot is an immutable, folded alias table safe for concurrent readers.
// Alias chains are flattened when the snapshot is built, so every target is a
// fixed point and canonicalization stays idempotent.
type Snapshot struct {
	entries map[string]string
	digest  string
}

// NewSnapshot builds a snapshot from alias -> canonical pairs. Keys and
// targets are folded; empty and identity pairs are dropped. Chains collapse to
// their final target and cycles collapse to their lexicographically smallest
// member.
func NewSnapshot(pairs map[string]string) *Snapshot {
	folded := make(map[string]string, len(pairs))
	for _, alias := range slices.Sorted(maps.Keys(pairs)) {
		k, v := Fold(alias), Fold(pairs[alias])
		if k == "" || v == "" || k == v {
			continue
		}
		if _, exists := folded[k]; exists {
			// two raw spellings fold to the same key; first in sorted order wins
			continue
		}
		folded[k] = v
	}

	entries := make(map[string]string, len(folded))
	for k := range folded {
		if root := resolveRoot(folded, k); root != k {
			entries[k] = root
		}
	}

	return &Snapshot{
		entries: entries,
		digest:  digestEntries(entries),
	}
}

// EmptySnapshot returns a snapshot with no aliases.
func EmptySnapshot() *Snapshot {
	return NewSnapshot(nil)
}

// Lookup folds name and returns its canonical target when one exists.
func (s *Snapshot) Lookup(name string) (string, bool) {
	if s == nil || len(s.entries) == 0 {
		return "", false
	}
	v, ok := s.entries[Fold(name)]
	return v, ok
}

// Len returns the number of effective aliases.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Digest returns a stable SHA-256 of the effective entries.
func (s *Snapshot) Digest() string {
	if s == nil {
		return digestEntries(nil)
	}
	return s.digest
}

// Entries returns a copy of the effective alias -> canonical pairs.
func (s *Snapshot) Entries() map[string]string {
	if s == nil {
		return map[string]string{}
	}
	return maps.Clone(s.entries)
}

func resolveRoot(pairs map[string]string, start string) string {
	var path []string
	seen := make(map[string]int)
	cur := start

	for {
		if idx, ok := seen[cur]; ok {
			return slices.Min(path[idx:])
		}
		seen[cur] = len(path)
		path = append(path, cur)

		next, ok := pairs[cur]
		if !ok {
			return cur
		}
		cur = next
	}
}

func digestEntries(entries map[string]string) string {
	h := sha256.New()
	for _, k := range slices.Sorted(maps.Keys(entries)) {
		h.Write([]byte(k))
		h.Write([]byte{0x1f})
		h.Write([]byte(entries[k]))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
