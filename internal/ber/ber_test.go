package ber

import (
	"bytes"
	"errors"
	"testing"
)

func TestBerReadSizeShortForm(t *testing.T) {
	n, err := ReadSize(bytes.NewReader([]byte{0x05}))
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 {
		t.Fatalf("want 5, got %d", n)
	}
}

func TestBerReadSizeLongForm(t *testing.T) {
	n, err := ReadSize(bytes.NewReader([]byte{0x82, 0x01, 0x00}))
	if err != nil {
		t.Fatal(err)
	}
	if n != 256 {
		t.Fatalf("want 256, got %d", n)
	}
}

func TestBerReadSizeOverflow(t *testing.T) {
	_, err := ReadSize(bytes.NewReader([]byte{0x85, 0, 0, 0, 0, 0}))
	if !errors.Is(err, ErrIntegerTooLarge) {
		t.Fatalf("want ErrIntegerTooLarge, got %v", err)
	}
}

func TestBerIntegerRoundTrip(t *testing.T) {
	cases := []int64{0, 1, -1, 127, 128, -128, -129, 65535, -65536, MaxInt, -MaxInt}
	for _, c := range cases {
		encoded := EncodeIntegerRaw(c)
		decoded, err := GetInteger(encoded)
		if err != nil {
			t.Fatalf("%d: %v", c, err)
		}
		if decoded != c {
			t.Fatalf("want %d, got %d (encoded % x)", c, decoded, encoded)
		}
	}
}

func TestBerGetIntegerTooLarge(t *testing.T) {
	_, err := GetInteger(make([]byte, 9))
	if !errors.Is(err, ErrIntegerTooLarge) {
		t.Fatalf("want ErrIntegerTooLarge, got %v", err)
	}
}

func TestBerGetBoolean(t *testing.T) {
	b, err := GetBoolean([]byte{0xff})
	if err != nil || !b {
		t.Fatalf("want true, got %v, %v", b, err)
	}
	b, err = GetBoolean([]byte{0x00})
	if err != nil || b {
		t.Fatalf("want false, got %v, %v", b, err)
	}
	_, err = GetBoolean([]byte{0x00, 0x01})
	if !errors.Is(err, ErrInvalidBoolean) {
		t.Fatalf("want ErrInvalidBoolean, got %v", err)
	}
}

func TestBerEncodeElementLengthForms(t *testing.T) {
	short := EncodeOctetString("hi")
	if short[1] != 2 {
		t.Fatalf("expected short-form length byte, got % x", short)
	}
	long := EncodeOctetString(string(make([]byte, 200)))
	if long[1] != 0x82 {
		t.Fatalf("expected long-form length marker, got %#x", long[1])
	}
}

func TestBerReadElementRoundTrip(t *testing.T) {
	raw := EncodeSequence(append(EncodeInteger(7), EncodeOctetString("cn=admin")...))
	elmt, err := ReadElement(bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	if elmt.Type != TypeSequence {
		t.Fatalf("want sequence type, got %v", elmt.Type)
	}
	seq, err := GetSequence(elmt.Data)
	if err != nil {
		t.Fatal(err)
	}
	if len(seq) != 2 {
		t.Fatalf("want 2 elements, got %d", len(seq))
	}
	n, err := GetInteger(seq[0].Data)
	if err != nil || n != 7 {
		t.Fatalf("want 7, got %d, %v", n, err)
	}
	if GetOctetString(seq[1].Data) != "cn=admin" {
		t.Fatalf("want cn=admin, got %q", GetOctetString(seq[1].Data))
	}
}

func TestBerContextSpecificType(t *testing.T) {
	ct := ContextSpecificType(3, true)
	if ct.Class() != ClassContextSpecific {
		t.Fatalf("wrong class: %v", ct.Class())
	}
	if !ct.IsConstructed() {
		t.Fatal("expected constructed bit set")
	}
	if ct.TagNumber() != 3 {
		t.Fatalf("wrong tag number: %v", ct.TagNumber())
	}
}
