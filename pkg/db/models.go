package db

import "time"

// DispatchFailure represents a row in the dispatch_failures table. One
// row is recorded per reported CommandError when the audit sink is
// enabled; successful dispatches are not persisted.
type DispatchFailure struct {
	ID      string    `json:"id"`
	Command string    `json:"command"`
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
	Created time.Time `json:"created"`
}
