// Scratch file collaborator and the page framing UndoLog uses to
// spill/rehydrate records.
//
// The scratch file is an append-oriented, random-access byte file with a
// reserved header region, auto-deleted for the lifetime of the process.
// It never outlives the session: the on-disk layout is a private
// implementation detail, free to change, and nothing it contains is ever
// read back after the owning UndoLog is cleared or destroyed.
package h2undo

import (
	"encoding/binary"
	"fmt"
	"os"
)

// Allocator is the temp-file allocator collaborator.
type Allocator interface {
	// CreateScratch reserves a fresh, not-yet-open scratch file path.
	CreateScratch() (string, error)
	// Open opens path for reading and writing.
	Open(path string) (FileHandle, error)
}

// FileHandle is the file-handle surface the log drives directly.
// Reads and writes take absolute offsets rather than relying on an
// implicit cursor — see DESIGN.md's note on scratch_cursor tracking.
type FileHandle interface {
	WriteAt(p []byte, off int64) (int, error)
	ReadAt(p []byte, off int64) (int, error)
	// MarkAutoDelete arranges for the file's storage to be reclaimed
	// once the handle is closed, even if the process crashes first.
	MarkAutoDelete() error
	// CloseAndDeleteSilently closes the handle and removes any
	// remaining on-disk trace, ignoring every error it encounters —
	// Clear() relies on this so cleanup paths can never fail on it.
	CloseAndDeleteSilently()
}

// DefaultAllocator creates scratch files as regular OS temp files.
type DefaultAllocator struct {
	// Dir is the directory new scratch files are created in. Empty
	// means os.TempDir().
	Dir string
}

func (a DefaultAllocator) CreateScratch() (string, error) {
	f, err := os.CreateTemp(a.Dir, "h2undo-scratch-*")
	if err != nil {
		return "", fmt.Errorf("%w: create scratch: %w", ErrScratchIO, err)
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("%w: create scratch: %w", ErrScratchIO, err)
	}
	return path, nil
}

func (a DefaultAllocator) Open(path string) (FileHandle, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("%w: open scratch: %w", ErrScratchIO, err)
	}
	return &osFileHandle{f: f, path: path}, nil
}

// osFileHandle is the default FileHandle: a real *os.File whose backing
// path is unlinked as soon as it is marked auto-delete. On Unix this is
// the classic anonymous-temp-file trick — the directory entry disappears
// immediately but the open descriptor keeps the data alive until Close,
// so the file is gone even if the process is killed before Clear runs.
type osFileHandle struct {
	f       *os.File
	path    string
	deleted bool
}

func (h *osFileHandle) WriteAt(p []byte, off int64) (int, error) {
	n, err := h.f.WriteAt(p, off)
	if err != nil {
		return n, fmt.Errorf("%w: write: %w", ErrScratchIO, err)
	}
	return n, nil
}

func (h *osFileHandle) ReadAt(p []byte, off int64) (int, error) {
	n, err := h.f.ReadAt(p, off)
	if err != nil {
		return n, fmt.Errorf("%w: read: %w", ErrScratchIO, err)
	}
	return n, nil
}

func (h *osFileHandle) MarkAutoDelete() error {
	if h.deleted {
		return nil
	}
	h.deleted = true
	return os.Remove(h.path)
}

func (h *osFileHandle) CloseAndDeleteSilently() {
	_ = h.f.Close()
	if !h.deleted {
		_ = os.Remove(h.path)
	}
}

// frameLenSize and frameSumSize are the fixed-width parts of an on-disk
// page: a big-endian uint32 payload length followed, after the payload,
// by an 8-byte checksum.
const (
	frameLenSize = 4
	frameSumSize = 8
)

// scratchFile is the owned component wrapping a FileHandle with the
// log's own cursor bookkeeping. Tracking the cursor here, and always
// issuing absolute-offset reads/writes, removes the subtle requirement
// that the file's internal position equal "end of spilled data" between
// calls — see DESIGN.md for the rationale.
type scratchFile struct {
	handle FileHandle
	cursor int64
	alg    ChecksumAlgorithm
}

// openScratch creates a fresh scratch file, reserves its header region
// and marks it auto-delete, positioning the cursor past the header.
func openScratch(alloc Allocator, headerLen int, alg ChecksumAlgorithm) (*scratchFile, error) {
	path, err := alloc.CreateScratch()
	if err != nil {
		return nil, err
	}
	handle, err := alloc.Open(path)
	if err != nil {
		return nil, err
	}
	if err := handle.MarkAutoDelete(); err != nil {
		handle.CloseAndDeleteSilently()
		return nil, fmt.Errorf("%w: mark auto delete: %w", ErrScratchIO, err)
	}

	if headerLen > 0 {
		if _, err := handle.WriteAt(make([]byte, headerLen), 0); err != nil {
			handle.CloseAndDeleteSilently()
			return nil, err
		}
	}

	return &scratchFile{handle: handle, cursor: int64(headerLen), alg: alg}, nil
}

// writePage frames payload with a length prefix and checksum, appends it
// at the current cursor, advances the cursor, and returns the starting
// offset of the frame (the value callers store as disk_offset) and the
// frame's total on-disk length.
func (s *scratchFile) writePage(payload []byte) (offset int64, frameLen int64, err error) {
	sum := checksum(s.alg, payload)

	frame := make([]byte, frameLenSize+len(payload)+frameSumSize)
	binary.BigEndian.PutUint32(frame[:frameLenSize], uint32(len(payload)))
	copy(frame[frameLenSize:], payload)
	binary.BigEndian.PutUint64(frame[frameLenSize+len(payload):], sum)

	offset = s.cursor
	if _, err := s.handle.WriteAt(frame, offset); err != nil {
		return 0, 0, err
	}
	frameLen = int64(len(frame))
	s.cursor += frameLen
	return offset, frameLen, nil
}

// readPage reads the frame starting at offset, verifies its checksum and
// returns the payload plus the frame's total on-disk length.
func (s *scratchFile) readPage(offset int64) (payload []byte, frameLen int64, err error) {
	var lenBuf [frameLenSize]byte
	if _, err := s.handle.ReadAt(lenBuf[:], offset); err != nil {
		return nil, 0, err
	}
	payloadLen := binary.BigEndian.Uint32(lenBuf[:])

	body := make([]byte, int(payloadLen)+frameSumSize)
	if _, err := s.handle.ReadAt(body, offset+frameLenSize); err != nil {
		return nil, 0, err
	}
	payload = body[:payloadLen]
	wantSum := binary.BigEndian.Uint64(body[payloadLen:])

	if checksum(s.alg, payload) != wantSum {
		return nil, 0, fmt.Errorf("%w: checksum mismatch at offset %d", ErrScratchIO, offset)
	}

	return payload, int64(frameLenSize) + int64(payloadLen) + frameSumSize, nil
}

// seekPastRehydrated advances the cursor past a record just rehydrated.
// It preserves the invariant that any subsequent append lands after
// every byte already read back for this session, even though there is
// no implicit file cursor left to restore.
func (s *scratchFile) seekPastRehydrated(offset, frameLen int64) {
	if end := offset + frameLen; end > s.cursor {
		s.cursor = end
	}
}

func (s *scratchFile) close() {
	s.handle.CloseAndDeleteSilently()
}
