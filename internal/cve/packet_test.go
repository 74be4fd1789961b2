package cve

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeWrite_Layout(t *testing.T) {
	pkt, err := EncodeWrite(UINT32, ObjControl, 0, 0x0F, DefaultTID)
	if err != nil {
		t.Fatalf("EncodeWrite err=%v", err)
	}

	want := []byte{
		0x11,                   // service
		0xDE, 0xAD, 0xBE, 0xEF, // tid
		0x08, 0x00, 0x00, 0x00, // length = 4 + 4
		0x00,                   // ack
		0x00, 0x00, 0x00, 0x00, // reserved
		0x02, 0x00, // index
		0x00,                   // subindex
		0x02,                   // UINT32
		0x0F, 0x00, 0x00, 0x00, // payload
	}
	if !bytes.Equal(pkt, want) {
		t.Fatalf("EncodeWrite mismatch:\n got=% X\nwant=% X", pkt, want)
	}
}

func TestEncodeWrite_LengthPerType(t *testing.T) {
	tests := []struct {
		dt    DataType
		width int
	}{
		{UINT8, 1},
		{SINT8, 1},
		{UINT16, 2},
		{SINT16, 2},
		{UINT32, 4},
		{SINT32, 4},
	}

	for _, tt := range tests {
		t.Run(tt.dt.String(), func(t *testing.T) {
			pkt, err := EncodeWrite(tt.dt, 6, 1, 1, 0)
			if err != nil {
				t.Fatalf("EncodeWrite err=%v", err)
			}
			if len(pkt) != RequestHeaderSize+tt.width {
				t.Fatalf("len=%d want=%d", len(pkt), RequestHeaderSize+tt.width)
			}
			if pkt[offLength] != byte(tt.width+4) {
				t.Fatalf("declared length=%d want=%d", pkt[offLength], tt.width+4)
			}
		})
	}
}

func TestEncodeWrite_NegativeSigned(t *testing.T) {
	pkt, err := EncodeWrite(SINT32, ObjRecordTarget, 1, -10000, 0)
	if err != nil {
		t.Fatalf("EncodeWrite err=%v", err)
	}
	// -10000 = 0xFFFFD8F0
	if !bytes.Equal(pkt[offPayload:], []byte{0xF0, 0xD8, 0xFF, 0xFF}) {
		t.Fatalf("payload=% X", pkt[offPayload:])
	}
}

func TestEncodeWrite_Errors(t *testing.T) {
	if _, err := EncodeWrite(DataType(0x05), 1, 0, 0, 0); !errors.Is(err, ErrInvalidDataType) {
		t.Fatalf("expected ErrInvalidDataType, got %v", err)
	}
	if _, err := EncodeWrite(UINT8, 1, 0, 256, 0); !errors.Is(err, ErrPayloadRange) {
		t.Fatalf("expected ErrPayloadRange, got %v", err)
	}
	if _, err := EncodeWrite(UINT16, 1, 0, -1, 0); !errors.Is(err, ErrPayloadRange) {
		t.Fatalf("expected ErrPayloadRange, got %v", err)
	}
	if _, err := EncodeWrite(SINT8, 1, 0, -129, 0); !errors.Is(err, ErrEncoding) {
		t.Fatalf("expected ErrEncoding, got %v", err)
	}
	if _, err := EncodeWriteRaw(UINT16, 1, 0, []byte{1, 2, 3}, 0); !errors.Is(err, ErrPayloadWidth) {
		t.Fatalf("expected ErrPayloadWidth, got %v", err)
	}
}

func TestParseDataType(t *testing.T) {
	for name, want := range map[string]DataType{
		"UINT08": UINT8,
		"uint8":  UINT8,
		"SINT08": SINT8,
		"SINT32": SINT32,
		"UINT16": UINT16,
	} {
		got, err := ParseDataType(name)
		if err != nil || got != want {
			t.Errorf("ParseDataType(%q)=%v,%v want %v", name, got, err, want)
		}
	}
	if _, err := ParseDataType("FLOAT32"); !errors.Is(err, ErrInvalidDataType) {
		t.Fatalf("expected ErrInvalidDataType, got %v", err)
	}
}

func TestEncodeRead_Layout(t *testing.T) {
	pkt := EncodeRead(ObjTargetPosition2, 3, 7)

	want := []byte{
		0x10,
		0x07, 0x00, 0x00, 0x00,
		0x04, 0x00, 0x00, 0x00,
		0x00,
		0x00, 0x00, 0x00, 0x00,
		0x27, 0x01, // 295
		0x03,
		0x00,
	}
	if !bytes.Equal(pkt, want) {
		t.Fatalf("EncodeRead mismatch:\n got=% X\nwant=% X", pkt, want)
	}
}

func TestReadResponse_RoundTrip(t *testing.T) {
	tests := []struct {
		dt    DataType
		value int64
	}{
		{UINT8, 0},
		{UINT8, 255},
		{UINT16, 0xBEEF},
		{UINT32, 0xFFFFFFFF},
		{UINT32, 0x0000C427},
		{SINT8, -1},
		{SINT8, 127},
		{SINT16, -32768},
		{SINT32, -10000},
		{SINT32, 2147483647},
	}

	for _, tt := range tests {
		req, err := DecodeRequest(EncodeRead(ObjRecordTarget, 1, 42))
		if err != nil {
			t.Fatalf("DecodeRequest err=%v", err)
		}

		// controller answers with the value's own width
		raw := EncodeReadResponse(req, AckOK, tt.dt, uint32(tt.value))
		rec, err := DecodeReadResponse(raw)
		if err != nil {
			t.Fatalf("DecodeReadResponse err=%v", err)
		}

		var got int64
		switch tt.dt {
		case SINT8:
			got = int64(int8(rec.Payload))
		case SINT16:
			got = int64(int16(rec.Payload))
		case SINT32:
			got = int64(rec.Int32())
		default:
			got = int64(rec.Payload)
		}
		if got != tt.value {
			t.Errorf("%s: payload=%d want=%d", tt.dt, got, tt.value)
		}
		if rec.TransactionID != 42 || rec.Index != ObjRecordTarget || rec.Subindex != 1 {
			t.Errorf("%s: echoed fields mismatch: %+v", tt.dt, rec)
		}
		if rec.DataType != tt.dt {
			t.Errorf("data type=%s want=%s", rec.DataType, tt.dt)
		}
	}
}

func TestWriteRequest_RoundTrip(t *testing.T) {
	pkt, err := EncodeWrite(SINT16, 120, 0, -300, 9)
	if err != nil {
		t.Fatalf("EncodeWrite err=%v", err)
	}
	q, err := DecodeRequest(pkt)
	if err != nil {
		t.Fatalf("DecodeRequest err=%v", err)
	}
	if q.Service != ServiceWrite || q.DataType != SINT16 || q.Value() != -300 {
		t.Fatalf("decoded=%+v value=%d", q, q.Value())
	}

	rec, err := DecodeWriteResponse(EncodeWriteResponse(q, AckNotWritable))
	if err != nil {
		t.Fatalf("DecodeWriteResponse err=%v", err)
	}
	if rec.Ack != AckNotWritable || rec.Index != 120 || rec.DataType != SINT16 {
		t.Fatalf("decoded=%+v", rec)
	}

	var rej *RejectedError
	if err := Check(rec); !errors.As(err, &rej) || rej.Code() != 0xA5 {
		t.Fatalf("Check=%v", err)
	}
}

func TestDecode_Short(t *testing.T) {
	if _, err := DecodeReadResponse(make([]byte, 10)); !errors.Is(err, ErrShortFrame) {
		t.Fatalf("expected ErrShortFrame, got %v", err)
	}
	if _, err := DecodeWriteResponse(nil); !errors.Is(err, ErrShortFrame) {
		t.Fatalf("expected ErrShortFrame, got %v", err)
	}
}

func TestTargetReached(t *testing.T) {
	tests := []struct {
		name    string
		payload uint32
		want    bool
	}{
		{"reached", 0x0000C427, true},
		{"reached with high word set", 0x1234C427, true},
		{"byte-swapped", 0x000027C4, false},
		{"in progress", 0x00000427, false},
		{"zero", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Request{Service: ServiceRead, Index: ObjStatus}
			rec, err := DecodeReadResponse(EncodeReadResponse(q, AckOK, UINT32, tt.payload))
			if err != nil {
				t.Fatalf("decode err=%v", err)
			}
			if got := rec.TargetReached(); got != tt.want {
				t.Fatalf("TargetReached()=%v want=%v (BE=% X)", got, tt.want, rec.PayloadBE)
			}
			if got := uint16(rec.Payload) == StatusTargetReached; got != tt.want {
				t.Fatalf("low word check=%v want=%v", got, tt.want)
			}
		})
	}
}

func TestReadFrame(t *testing.T) {
	w, _ := EncodeWrite(UINT32, ObjControl, 0, 0x1F, 1)
	r := EncodeRead(ObjStatus, 0, 2)

	stream := bytes.NewReader(append(append([]byte{}, w...), r...))

	got, err := ReadFrame(stream)
	if err != nil || !bytes.Equal(got, w) {
		t.Fatalf("first frame=% X err=%v", got, err)
	}
	got, err = ReadFrame(stream)
	if err != nil || !bytes.Equal(got, r) {
		t.Fatalf("second frame=% X err=%v", got, err)
	}
}

func TestReadFrame_BadLength(t *testing.T) {
	pkt := EncodeRead(ObjStatus, 0, 0)
	pkt[offLength] = 200

	if _, err := ReadFrame(bytes.NewReader(pkt)); !errors.Is(err, ErrFrameLength) {
		t.Fatalf("expected ErrFrameLength, got %v", err)
	}
}
