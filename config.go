package h2undo

// ChecksumAlgorithm selects the digest used to guard spilled pages
// against torn or truncated scratch-file writes.
type ChecksumAlgorithm int

const (
	// ChecksumXXH3 is the default: fast, good distribution, no
	// cryptographic guarantees needed for a same-process scratch file.
	ChecksumXXH3 ChecksumAlgorithm = iota
	// ChecksumBlake2b trades speed for a cryptographic hash, truncated
	// to the same 8-byte digest width as ChecksumXXH3.
	ChecksumBlake2b
)

// Context is the database/session collaborator the log consumes. It is
// borrowed read-only for the duration of each call.
type Context struct {
	// MaxMemoryUndo caps the number of records held resident in memory.
	// It is a count, not a byte budget — callers must size it against
	// expected row sizes.
	MaxMemoryUndo int

	// Persistent reports whether the engine may spill to disk at all.
	// When false, the log never creates a scratch file regardless of
	// record count.
	Persistent bool

	// DefaultPageSize sizes the reusable codec scratch buffer.
	DefaultPageSize int

	// ScratchHeaderLength is the number of bytes reserved at the start
	// of the scratch file before the first spilled page. The undo log
	// never interprets this region; it is opaque reserved space for the
	// caller.
	ScratchHeaderLength int

	// ChecksumAlgorithm selects the page-integrity digest the scratch
	// file applies to spilled pages. Zero value is ChecksumXXH3.
	ChecksumAlgorithm ChecksumAlgorithm
}

// Defaults applied on construction: a zero-valued Context is filled in
// with sane production values rather than left at zero.
const (
	defaultMaxMemoryUndo       = 256
	defaultPageSize            = 4096
	defaultScratchHeaderLength = 16
)

// NewContext returns a Context with zero fields replaced by defaults.
// Persistent has no zero-value default: callers must set it explicitly,
// since "false" and "unset" both spell out as the Go zero value and the
// log's spill behavior depends on which one was meant.
func NewContext(c Context) Context {
	if c.MaxMemoryUndo == 0 {
		c.MaxMemoryUndo = defaultMaxMemoryUndo
	}
	if c.DefaultPageSize == 0 {
		c.DefaultPageSize = defaultPageSize
	}
	if c.ScratchHeaderLength == 0 {
		c.ScratchHeaderLength = defaultScratchHeaderLength
	}
	return c
}
