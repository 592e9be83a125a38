// UndoRecord state-machine tests.
package h2undo

import "testing"

func TestNewUndoRecordStartsResident(t *testing.T) {
	codec := NewJSONCodec(ChecksumXXH3)
	r := NewUndoRecord(Insert, "accounts", RowImage{Columns: col("1", "100")}, codec)

	if r.IsStored() {
		t.Error("a freshly constructed record must start MEM-resident")
	}
}

func TestNewUndoRecordCachesEligibility(t *testing.T) {
	codec := NewJSONCodec(ChecksumXXH3)

	eligible := NewUndoRecord(Insert, "accounts", RowImage{Columns: col("1")}, codec)
	if !eligible.eligible {
		t.Error("plain row image should cache eligible=true")
	}

	ineligible := NewUndoRecord(Insert, "accounts", RowImage{LOBs: []LOBRef{{ID: "x"}}}, codec)
	if ineligible.eligible {
		t.Error("LOB-backed row image should cache eligible=false")
	}
}

func TestRecordEncodeDecodeRoundTrip(t *testing.T) {
	codec := NewJSONCodec(ChecksumXXH3)
	alloc := DefaultAllocator{Dir: t.TempDir()}
	scratch, err := openScratch(alloc, 0, ChecksumXXH3)
	if err != nil {
		t.Fatalf("openScratch: %v", err)
	}
	defer scratch.close()

	r := NewUndoRecord(Delete, "orders", RowImage{Columns: col("42", "shipped")}, codec)
	buf := codec.CreatePage(64)

	if _, err := r.encode(codec, buf, scratch); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !r.IsStored() {
		t.Fatal("record must be DISK-resident immediately after a successful encode")
	}

	if err := r.decode(codec, scratch, nil); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if r.IsStored() {
		t.Fatal("record must be MEM-resident immediately after a successful decode")
	}
	if len(r.Image().Columns) != 2 || string(r.Image().Columns[1]) != "shipped" {
		t.Fatalf("decoded image = %v, want [42 shipped]", r.Image().Columns)
	}
}

func TestRecordEncodeRefusesIneligible(t *testing.T) {
	codec := NewJSONCodec(ChecksumXXH3)
	alloc := DefaultAllocator{Dir: t.TempDir()}
	scratch, err := openScratch(alloc, 0, ChecksumXXH3)
	if err != nil {
		t.Fatalf("openScratch: %v", err)
	}
	defer scratch.close()

	r := NewUndoRecord(Insert, "blobs", RowImage{LOBs: []LOBRef{{ID: "stream-1"}}}, codec)
	buf := codec.CreatePage(64)

	if _, err := r.encode(codec, buf, scratch); err == nil {
		t.Fatal("encode should refuse an ineligible record")
	}
	if r.IsStored() {
		t.Fatal("a refused encode must leave the record MEM-resident")
	}
}

func TestRecordDecodeRequiresStored(t *testing.T) {
	codec := NewJSONCodec(ChecksumXXH3)
	alloc := DefaultAllocator{Dir: t.TempDir()}
	scratch, err := openScratch(alloc, 0, ChecksumXXH3)
	if err != nil {
		t.Fatalf("openScratch: %v", err)
	}
	defer scratch.close()

	r := NewUndoRecord(Insert, "t", RowImage{Columns: col("1")}, codec)
	if err := r.decode(codec, scratch, nil); err == nil {
		t.Fatal("decode on an already-resident record should error")
	}
}

func TestRecordSeekRequiresStoredOrJustDecoded(t *testing.T) {
	codec := NewJSONCodec(ChecksumXXH3)
	alloc := DefaultAllocator{Dir: t.TempDir()}
	scratch, err := openScratch(alloc, 0, ChecksumXXH3)
	if err != nil {
		t.Fatalf("openScratch: %v", err)
	}
	defer scratch.close()

	r := NewUndoRecord(Insert, "t", RowImage{Columns: col("1")}, codec)
	if err := r.seek(scratch); err == nil {
		t.Fatal("seek on a record that was never stored should error")
	}
}
