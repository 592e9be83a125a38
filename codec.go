// Row codec collaborator and its reference implementation.
//
// The codec is the boundary between the undo log and the rest of the
// engine's type system: it is the only component that understands what a
// row image actually looks like. The log never inspects TableRef or
// RowImage contents, only whether the codec reports an image eligible
// for a byte-exact spill/rehydrate round trip.
package h2undo

import (
	"fmt"
	"hash/fnv"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/xxh3"
	"golang.org/x/crypto/blake2b"
)

// ChangeKind identifies how an UndoRecord must be inverted on rollback.
type ChangeKind int

const (
	Insert ChangeKind = iota
	Delete
	UpdateOld
	UpdateNew
)

func (k ChangeKind) String() string {
	switch k {
	case Insert:
		return "INSERT"
	case Delete:
		return "DELETE"
	case UpdateOld:
		return "UPDATE_OLD"
	case UpdateNew:
		return "UPDATE_NEW"
	default:
		return "UNKNOWN"
	}
}

// TableRef is an opaque identifier of the target table. The log never
// interprets it beyond storing and returning it unchanged.
type TableRef string

// LOBRef is an opaque handle into the large-object store, which this
// package treats as an external collaborator it never talks to
// directly. The reference codec never dereferences it; its mere
// presence marks a row image ineligible for spill, since a
// stream-backed reference cannot be round-tripped byte-exactly once
// the transient resource it points to may be gone.
type LOBRef struct {
	ID string
}

// RowImage is the full row at the moment of logging. It is kept as plain
// data — the eligibility predicate lives on the codec, not here, so a
// RowImage never needs to know whether it can survive a spill.
type RowImage struct {
	Columns [][]byte
	LOBs    []LOBRef
}

// Codec is the row codec collaborator the undo log consumes.
type Codec interface {
	// CreatePage allocates a reusable, page-sized buffer.
	CreatePage(size int) []byte

	// Encode serializes kind, table and image, writing into buf when it
	// has enough capacity and allocating a new slice otherwise. The
	// returned slice is the encoded envelope, not yet framed for disk.
	Encode(buf []byte, kind ChangeKind, table TableRef, image RowImage) ([]byte, error)

	// Decode is the inverse of Encode. session is opaque to the codec's
	// caller (the log) and is forwarded as given; the reference codec
	// ignores it, but a codec bridging to a real engine would use it to
	// resolve LOB references.
	Decode(data []byte, session any) (ChangeKind, TableRef, RowImage, error)

	// CanEncode is the eligibility predicate: true iff image can survive
	// a spill/rehydrate round trip byte-exactly.
	CanEncode(image RowImage) bool

	// SerializedLength reports the length of an already-encoded envelope.
	SerializedLength(data []byte) int
}

// envelope is the wire shape of an encoded UndoRecord, marshaled as a
// single compact JSON object per record.
type envelope struct {
	Kind    int      `json:"k"`
	Table   string   `json:"t"`
	Columns [][]byte `json:"c"`
}

// compressThreshold is the envelope size above which the JSON codec
// zstd-compresses the payload before framing.
const compressThreshold = 256

// JSONCodec is the reference Codec: a JSON envelope, zstd-compressed
// above compressThreshold. It adds no checksum; the scratch file
// checksums each page it writes.
//
// The zstd encoder/decoder are constructed once at package init —
// building either is expensive enough (internal state tables) that
// per-call construction would dominate the cost of spilling a small
// row.
type JSONCodec struct {
	alg ChecksumAlgorithm
}

var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	zstdDecoder, _ = zstd.NewReader(nil)
)

// NewJSONCodec returns a JSONCodec that stores alg. Encode and Decode
// do not use it: page checksums are applied by scratchFile, not the
// codec.
func NewJSONCodec(alg ChecksumAlgorithm) *JSONCodec {
	return &JSONCodec{alg: alg}
}

func (c *JSONCodec) CreatePage(size int) []byte {
	return make([]byte, 0, size)
}

const compressedMarker = 0x01
const rawMarker = 0x00

func (c *JSONCodec) Encode(buf []byte, kind ChangeKind, table TableRef, image RowImage) ([]byte, error) {
	env := envelope{Kind: int(kind), Table: string(table), Columns: image.Columns}
	data, err := json.Marshal(&env)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal: %w", ErrCodec, err)
	}

	marker := byte(rawMarker)
	if len(data) > compressThreshold {
		data = zstdEncoder.EncodeAll(data, nil)
		marker = compressedMarker
	}

	out := append(buf[:0], marker)
	out = append(out, data...)
	return out, nil
}

func (c *JSONCodec) Decode(data []byte, _ any) (ChangeKind, TableRef, RowImage, error) {
	if len(data) == 0 {
		return 0, "", RowImage{}, fmt.Errorf("%w: empty envelope", ErrCodec)
	}

	marker, body := data[0], data[1:]
	if marker == compressedMarker {
		raw, err := zstdDecoder.DecodeAll(body, nil)
		if err != nil {
			return 0, "", RowImage{}, fmt.Errorf("%w: zstd: %w", ErrCodec, err)
		}
		body = raw
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return 0, "", RowImage{}, fmt.Errorf("%w: unmarshal: %w", ErrCodec, err)
	}

	return ChangeKind(env.Kind), TableRef(env.Table), RowImage{Columns: env.Columns}, nil
}

func (c *JSONCodec) CanEncode(image RowImage) bool {
	return len(image.LOBs) == 0
}

func (c *JSONCodec) SerializedLength(data []byte) int {
	return len(data)
}

// checksum computes an 8-byte page-integrity digest, selecting among
// the supported algorithms.
func checksum(alg ChecksumAlgorithm, data []byte) uint64 {
	switch alg {
	case ChecksumBlake2b:
		h, _ := blake2b.New(8, nil)
		h.Write(data)
		sum := h.Sum(nil)
		var v uint64
		for _, b := range sum {
			v = v<<8 | uint64(b)
		}
		return v
	default:
		return xxh3.Hash(data)
	}
}

// fnvPositions is shared with touched.go's bloom filter; kept here next
// to the other hashing helpers since both are small, stateless digest
// functions over a byte slice.
func fnvPositions(id string, k int, nbits uint) []uint {
	h64 := fnv.New64a()
	h64.Write([]byte(id))
	a := h64.Sum64()

	h32 := fnv.New32a()
	h32.Write([]byte(id))
	b := uint(h32.Sum32())

	pos := make([]uint, k)
	for i := range pos {
		pos[i] = (uint(a) + uint(i)*b) % nbits
	}
	return pos
}
