// UndoRecord: one logical entry describing a single row-level change.
package h2undo

// UndoRecord is one logical undo entry: a change kind, the table it
// applies to, and either a resident row image or a location on the
// scratch file — never both, never neither.
//
// The MEM/DISK state machine is a tagged union over (image,
// diskOffset): resident is the tag, image is valid iff resident,
// diskOffset/frameLen are set once the record is spilled and stay
// populated after a decode, for seek.
type UndoRecord struct {
	Kind     ChangeKind
	TableRef TableRef

	resident bool
	image    RowImage

	diskOffset int64
	frameLen   int64

	// eligible caches the codec's CanEncode verdict for this image. A
	// record that refuses once keeps refusing: its RowImage never
	// changes after construction.
	eligible bool
}

// NewUndoRecord creates a record in the initial MEM state.
func NewUndoRecord(kind ChangeKind, table TableRef, image RowImage, codec Codec) UndoRecord {
	return UndoRecord{
		Kind:     kind,
		TableRef: table,
		resident: true,
		image:    image,
		eligible: codec.CanEncode(image),
	}
}

// IsStored reports whether the record currently lives only on the
// scratch file.
func (r *UndoRecord) IsStored() bool {
	return !r.resident
}

// Image returns the record's row image. Callers must not call this on a
// record that is currently stored (!resident) — the caller is expected
// to decode first, exactly as the record's own pop path does.
func (r *UndoRecord) Image() RowImage {
	return r.image
}

// encode serializes the record via codec into buf and appends the
// result to scratch, dropping the in-memory image and recording the
// disk location on success. Requires r.eligible.
func (r *UndoRecord) encode(codec Codec, buf []byte, scratch *scratchFile) ([]byte, error) {
	if !r.eligible {
		return buf, ErrNotEligible
	}

	payload, err := codec.Encode(buf, r.Kind, r.TableRef, r.image)
	if err != nil {
		return payload, err
	}

	offset, frameLen, err := scratch.writePage(payload)
	if err != nil {
		return payload, err
	}

	r.resident = false
	r.image = RowImage{}
	r.diskOffset = offset
	r.frameLen = frameLen
	return payload, nil
}

// decode reads the record's stored bytes back from scratch, reattaching
// the row image in memory. Requires r.IsStored().
//
// diskOffset/frameLen are left populated rather than zeroed: resident is
// the single tag that decides which half of the MEM/DISK union is live
// (IsStored consults only resident), and seek still needs them to know
// where this record's frame ended on disk.
func (r *UndoRecord) decode(codec Codec, scratch *scratchFile, session any) error {
	if r.resident {
		return ErrNotStored
	}

	payload, frameLen, err := scratch.readPage(r.diskOffset)
	if err != nil {
		return err
	}

	_, _, image, err := codec.Decode(payload, session)
	if err != nil {
		return err
	}

	r.resident = true
	r.image = image
	r.frameLen = frameLen
	return nil
}

// seek positions the scratch file's tracked cursor past this record's
// on-disk frame. Requires r.IsStored() or that decode was just called
// on it (frameLen is populated either way).
func (r *UndoRecord) seek(scratch *scratchFile) error {
	if r.frameLen == 0 {
		return ErrNotStored
	}
	scratch.seekPastRehydrated(r.diskOffset, r.frameLen)
	return nil
}
