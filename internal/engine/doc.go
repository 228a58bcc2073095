// Package engine is the patch-based conflict-free merge engine.
//
// Per event, the engine keeps two independent two-phase sets (start times
// and tags) over (patch, value) pairs plus a causal frontier: the set of
// patch refs whose contribution has not yet been superseded by a later
// patch. Applying a patch is commutative, associative and idempotent
// across replicas, so any causally consistent application order converges
// to the same state.
//
// The engine never resolves conflicts on its own. Flattening collapses
// the merged history into a canonical timesheet and surfaces every
// genuine conflict (multiple starts, no start, two events on the same
// instant) instead of picking a winner.
//
// Everything here is synchronous and in-memory. ApplyPatch mutates shared
// state and must be externally serialized; Flatten is read-only and may
// run concurrently with itself but not with an in-progress ApplyPatch.
package engine
