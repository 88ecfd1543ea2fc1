package ingest

import "github.com/doodlesbykumbi/scanstore/pkg/report"

// KnownKeys is the set of finding keys already registered by an earlier
// artifact of the same group. It is not safe for concurrent use.
type KnownKeys struct {
	keys map[report.FindingKey]struct{}
}

func NewKnownKeys() *KnownKeys {
	return &KnownKeys{keys: make(map[report.FindingKey]struct{})}
}

// Intersects reports whether any valid key is already known.
func (k *KnownKeys) Intersects(keys []report.FindingKey) bool {
	for _, key := range keys {
		if !key.Valid() {
			continue
		}
		if _, ok := k.keys[key]; ok {
			return true
		}
	}
	return false
}

// Merge adds the valid keys.
func (k *KnownKeys) Merge(keys []report.FindingKey) {
	for _, key := range keys {
		if key.Valid() {
			k.keys[key] = struct{}{}
		}
	}
}

// Register merges the keys unless they intersect the known set, and reports
// whether they were new.
func (k *KnownKeys) Register(keys []report.FindingKey) bool {
	if k.Intersects(keys) {
		return false
	}
	k.Merge(keys)
	return true
}

func (k *KnownKeys) Len() int {
	return len(k.keys)
}
