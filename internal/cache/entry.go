// Package cache implements the process-wide incremental compilation cache
// (spec.md section 4.D): a TTL+LRU store keyed by logical module name,
// holding the highest phase reached for a given source fingerprint plus
// the diagnostics and AST produced getting there.
//
// No suitable third-party LRU/TTL cache library was found anywhere in the
// retrieval pack (a pack-wide search for golang-lru, ristretto, bigcache,
// ccache and groupcache turned up nothing usable — groupcache appears only
// as an unrelated transitive dependency), so this is built on the standard
// library's container/list plus sync. Per spec.md section 4.D's explicit
// "a single shared lock is not acceptable" requirement, the entry map and
// the LRU recency list are two independently-locked structures: the map is
// sharded, giving per-key write exclusion with no cross-key blocking, and
// the list has its own mutex held only for short, O(1) operations. See
// Cache's doc comment in cache.go for the lock layout.
package cache

import (
	"time"

	"groovyls/internal/compileresult"
	"groovyls/internal/phase"
)

// Entry is one cached compilation outcome for a logical module name.
type Entry struct {
	Fingerprint uint64
	Reached     phase.Phase
	Result      compileresult.Result
	CachedAt    time.Time
}

// Satisfies reports whether this entry, cached for fingerprint fp, can
// answer a request for requested without recompiling: the fingerprint must
// match exactly (spec.md section 4.D — any text change invalidates,
// strong-equality only, no partial diffing) and the cached phase must be
// at least as deep as requested.
func (e Entry) Satisfies(fp uint64, requested phase.Phase) bool {
	return e.Fingerprint == fp && phase.Satisfies(e.Reached, requested)
}
