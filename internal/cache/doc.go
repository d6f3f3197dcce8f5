// Package cache provides the generic keyed cache backing the driver's
// deduplication tables: input layouts keyed by FVF or declaration blob,
// and synthesized shaders keyed by bytecode identity.
//
// The core guarantee is single creation: GetOrCreate runs its create
// function under the cache lock, so two lookups of the same key can never
// both emit a creation packet. Eviction is optional (soft limit) and
// reports the victim through an eviction callback so the owner can emit
// the matching destroy packet.
package cache
