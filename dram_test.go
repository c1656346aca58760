// Copyright © 2024 Jeff Berkowitz (pdxjjb@gmail.com)
//
// Unit tests for DRAM

package main

import "testing"

func TestDRAMRoundTrip(t *testing.T) {
	d := NewDRAM(nil)
	sizes := []uint{8, 16, 32, 64}
	values := []uint64{0x12, 0x1234, 0x1234_5678, 0x0123_4567_89ab_cdef}

	for i, sz := range sizes {
		addr := DRAM_BASE + uint64(i)*8
		if err := d.Store(addr, sz, values[i]); err != nil {
			t.Fatalf("Store(%d bits): %v", sz, err)
		}
		got, err := d.Load(addr, sz)
		if err != nil {
			t.Fatalf("Load(%d bits): %v", sz, err)
		}
		want := values[i] & (^uint64(0) >> (64 - sz))
		if sz == 64 {
			want = values[i]
		}
		if got != want {
			t.Errorf("size %d: got 0x%x, want 0x%x", sz, got, want)
		}
	}
}

func TestDRAMLittleEndian(t *testing.T) {
	d := NewDRAM(nil)
	if err := d.Store(DRAM_BASE, 32, 0x0102_0304); err != nil {
		t.Fatal(err)
	}
	b0, _ := d.Load(DRAM_BASE, 8)
	b1, _ := d.Load(DRAM_BASE+1, 8)
	b2, _ := d.Load(DRAM_BASE+2, 8)
	b3, _ := d.Load(DRAM_BASE+3, 8)
	if b0 != 0x04 || b1 != 0x03 || b2 != 0x02 || b3 != 0x01 {
		t.Errorf("bytes = %x %x %x %x, want 04 03 02 01", b0, b1, b2, b3)
	}
}

func TestDRAMImageLoad(t *testing.T) {
	image := []byte{0xde, 0xad, 0xbe, 0xef}
	d := NewDRAM(image)
	v, err := d.Load(DRAM_BASE, 32)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0xefbeadde {
		t.Errorf("v = 0x%x, want 0xefbeadde", v)
	}
}

func TestDRAMOutOfBounds(t *testing.T) {
	d := NewDRAM(nil)
	if _, err := d.Load(DRAM_BASE+DRAM_SIZE, 8); err == nil {
		t.Error("expected error reading past end of DRAM")
	}
	if err := d.Store(DRAM_BASE+DRAM_SIZE, 8, 0); err == nil {
		t.Error("expected error writing past end of DRAM")
	}
}

func TestDRAMBadSize(t *testing.T) {
	d := NewDRAM(nil)
	if _, err := d.Load(DRAM_BASE, 24); err == nil {
		t.Error("expected error for unsupported size")
	}
}
