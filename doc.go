// Package h2undo implements a per-session undo log for row-level
// transactional rollback.
//
// A session appends one UndoRecord per row change as statements execute.
// The log keeps every record in memory until a configured count threshold
// is crossed, at which point it spills records to a scratch file, oldest
// first, and rehydrates them transparently on demand. Rollback pops records
// in strict LIFO order, reconstructing the physical row image before
// returning it.
//
// The log talks to the rest of an engine only through three narrow
// collaborator interfaces — Codec, Allocator and Context — so it
// can be exercised against in-memory fakes without a real table format,
// LOB store or session. It is strictly in-process: nothing an UndoLog
// writes is ever visible after the owning session ends.
package h2undo
