package session

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeDecode(t *testing.T) {
	in := &Session{UserID: "user-42", CreatedAt: 1700000000, ExpiresAt: 1700003600}
	data, err := Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if data[0] != sessionFormatVersion {
		t.Fatalf("expected version byte %d, got %d", sessionFormatVersion, data[0])
	}

	out, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if *out != *in {
		t.Fatalf("round trip mismatch: %+v vs %+v", out, in)
	}
}

func TestDecodeRejectsCorruptInput(t *testing.T) {
	valid, err := Encode(&Session{UserID: "u", CreatedAt: 1, ExpiresAt: 2})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	cases := map[string][]byte{
		"empty":     nil,
		"version":   append([]byte{9}, valid[1:]...),
		"zero len":  {sessionFormatVersion, 0},
		"truncated": valid[:len(valid)-1],
		"trailing":  append(bytes.Clone(valid), 0),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Decode(data); !errors.Is(err, ErrCorruptRecord) {
				t.Fatalf("expected ErrCorruptRecord, got %v", err)
			}
		})
	}
}

func FuzzDecodeNoPanic(f *testing.F) {
	seed, _ := Encode(&Session{UserID: "u1", CreatedAt: 1, ExpiresAt: 2})
	f.Add(seed)
	f.Add([]byte{})
	f.Add([]byte{sessionFormatVersion, 255})

	f.Fuzz(func(t *testing.T, data []byte) {
		s, err := Decode(data)
		if err != nil {
			return
		}
		again, err := Encode(s)
		if err != nil {
			t.Fatalf("re-encode decoded session: %v", err)
		}
		if !bytes.Equal(again, data) {
			t.Fatalf("decode/encode not stable")
		}
	})
}
