// Package aliases provides the procedure alias sources a reconciliation run
// snapshots: a database table managed over HTTP and a YAML file that reloads
// when it changes.
package aliases

import "time"

// Alias maps a folded procedure spelling to its folded canonical name.
type Alias struct {
	Alias     string    `json:"alias"`
	Canonical string    `json:"canonical"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpsertCommand creates or replaces an alias. Both names are folded before
// they are stored.
type UpsertCommand struct {
	Alias     string `json:"alias"`
	Canonical string `json:"canonical"`
}

// SnapshotView is the effective alias table a run would read right now.
type SnapshotView struct {
	Digest  string            `json:"digest"`
	Entries map[string]string `json:"entries"`
}
