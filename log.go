// UndoLog: the ordered, memory-budgeted, spill-to-disk record sequence
// that backs a single session's rollback.
package h2undo

// UndoLog is bound to exactly one session for its entire lifetime. It
// grows as statements execute, is consumed in full by rollback or reset
// on commit, and releases its scratch file when cleared or discarded.
// There is no locking discipline internal to it: a log is driven by a
// single actor and every method is blocking-synchronous from the
// caller's point of view.
type UndoLog struct {
	ctx     Context
	codec   Codec
	alloc   Allocator
	session any

	records       []UndoRecord
	residentCount int

	scratch *scratchFile
	buf     []byte

	touched *touchedFilter
}

// NewUndoLog returns an empty log bound to ctx, using codec to
// encode/decode row images and alloc to create the scratch file if and
// when a spill is needed. session is opaque and forwarded verbatim to
// codec.Decode during rehydration.
func NewUndoLog(ctx Context, codec Codec, alloc Allocator, session any) *UndoLog {
	return &UndoLog{
		ctx:     ctx,
		codec:   codec,
		alloc:   alloc,
		session: session,
		touched: newTouchedFilter(),
	}
}

// Append adds rec to the tail of the log. If the append pushes
// residentCount past MaxMemoryUndo and the engine is persistent, it
// enters spill mode: on the very first spill the log walks every record
// from head to tail, since the oldest records are the least likely to be
// popped soon and paging them out first maximizes the expected time
// until rehydration; every later append need only consider its own new
// tail record, because all earlier records were already considered when
// they were the tail.
func (u *UndoLog) Append(rec UndoRecord) error {
	u.records = append(u.records, rec)
	u.residentCount++
	u.touched.add(string(rec.TableRef))

	if u.residentCount <= u.ctx.MaxMemoryUndo || !u.ctx.Persistent {
		return nil
	}

	if u.scratch == nil {
		scratch, err := openScratch(u.alloc, u.ctx.ScratchHeaderLength, u.ctx.ChecksumAlgorithm)
		if err != nil {
			return err
		}
		u.scratch = scratch
		u.buf = u.codec.CreatePage(u.ctx.DefaultPageSize)

		for i := range u.records {
			if err := u.trySpill(i); err != nil {
				return err
			}
		}
		return nil
	}

	return u.trySpill(len(u.records) - 1)
}

// trySpill is a single spill attempt: a no-op if the
// record is already stored or refuses eligibility, otherwise an encode
// that drops the record's in-memory image.
func (u *UndoLog) trySpill(i int) error {
	r := &u.records[i]
	if r.IsStored() || !r.eligible {
		return nil
	}

	buf, err := r.encode(u.codec, u.buf, u.scratch)
	if err != nil {
		return err
	}
	u.buf = buf[:0]
	u.residentCount--
	return nil
}

// PopLast removes and returns the most recently appended record still
// in the log. If it is resident, this is O(1). If it was spilled,
// a window of up to MaxMemoryUndo/2+1 records ending at it is rehydrated
// first, on the theory that a rollback overwhelmingly accesses adjacent
// records next, so amortizing the I/O over the next several pops is
// worth reading more than strictly necessary now.
func (u *UndoLog) PopLast() (UndoRecord, error) {
	n := len(u.records)
	if n == 0 {
		return UndoRecord{}, ErrEmptyLog
	}
	i := n - 1

	if !u.records[i].IsStored() {
		rec := u.records[i]
		u.records = u.records[:i]
		u.residentCount--
		return rec, nil
	}

	windowStart := i - u.ctx.MaxMemoryUndo/2
	if windowStart < 0 {
		windowStart = 0
	}

	firstRehydrated := -1
	for j := windowStart; j <= i; j++ {
		if !u.records[j].IsStored() {
			continue
		}
		if err := u.records[j].decode(u.codec, u.scratch, u.session); err != nil {
			return UndoRecord{}, err
		}
		u.residentCount++
		if firstRehydrated == -1 {
			firstRehydrated = j
		}
	}

	// Leave the scratch cursor past the last disk image just read, so a
	// subsequent append cannot land inside bytes that a not-yet-consumed
	// record later in the file still needs — which in practice never
	// arises here, since every record after a first batch spill is only
	// ever spilled as the tail, and this window just read all of them.
	if firstRehydrated != -1 {
		if err := u.records[firstRehydrated].seek(u.scratch); err != nil {
			return UndoRecord{}, err
		}
	}

	rec := u.records[i]
	u.records = u.records[:i]
	u.residentCount--
	return rec, nil
}

// Size returns the number of records currently held, asserting the
// resident-count invariant as a cheap checked-build-style assertion.
func (u *UndoLog) Size() int {
	if u.residentCount > len(u.records) {
		panic(ErrInvariant)
	}
	return len(u.records)
}

// ResidentCount returns the number of records currently holding an
// in-memory row image.
func (u *UndoLog) ResidentCount() int {
	return u.residentCount
}

// HasScratch reports whether a scratch file has ever been opened for
// this log's current lifetime. Once opened it is kept until Clear, even
// when every remaining record is MEM-resident again.
func (u *UndoLog) HasScratch() bool {
	return u.scratch != nil
}

// Touched reports whether any record appended to this log (since
// construction or the last Clear) named table. It is a bloom-filter
// hint, not a source of truth: a false result is decisive, a true
// result may be a false positive, and it is never consulted by Append
// or PopLast.
func (u *UndoLog) Touched(table TableRef) bool {
	return u.touched.contains(string(table))
}

// Clear drops all records, resets residentCount to zero, and — if a
// scratch file is present — closes and deletes it, ignoring whatever
// errors that produces: callers invoke Clear from cleanup paths that
// must not fail. Idempotent.
func (u *UndoLog) Clear() {
	u.records = nil
	u.residentCount = 0
	if u.scratch != nil {
		u.scratch.close()
		u.scratch = nil
	}
	u.buf = nil
	u.touched.reset()
}
