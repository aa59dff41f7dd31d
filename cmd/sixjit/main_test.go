package main

import "testing"

func TestParseBankValid(t *testing.T) {
	b, err := parseBank("3=/tmp/rom.bin", true)
	if err != nil {
		t.Fatalf("parseBank: %v", err)
	}
	if b.slot != 3 || b.path != "/tmp/rom.bin" || !b.writable {
		t.Errorf("parseBank = %+v, want slot=3 path=/tmp/rom.bin writable=true", b)
	}
}

func TestParseBankMissingEquals(t *testing.T) {
	if _, err := parseBank("no-equals-sign", false); err == nil {
		t.Error("parseBank should error on a spec without N=path")
	}
}

func TestParseBankNonNumericSlot(t *testing.T) {
	if _, err := parseBank("x=/tmp/rom.bin", false); err == nil {
		t.Error("parseBank should error on a non-numeric slot")
	}
}
