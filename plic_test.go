// Copyright © 2024 Jeff Berkowitz (pdxjjb@gmail.com)
//
// Unit tests for the platform-level interrupt controller

package main

import "testing"

func newTestPLIC(irqs ...uint64) *PLIC {
	p := NewPLIC()
	for _, n := range irqs {
		p.AddIRQ(n)
	}
	return p
}

func (p *PLIC) setPriority(n, pr uint64) {
	word := (plicPriorityBase - PLIC_BASE) + n*4
	p.rawStore(word, 32, pr)
}

func (p *PLIC) setEnabled(hart, n uint64) {
	word := (plicEnableBase - PLIC_BASE) + hart*plicEnableHartStride + (n/32)*4
	v, _ := p.rawLoad(word, 32)
	v |= 1 << (n % 32)
	p.rawStore(word, 32, v)
}

func (p *PLIC) setThreshold(hart, th uint64) {
	word := (plicThresholdBase - PLIC_BASE) + hart*plicThresholdHartStride
	p.rawStore(word, 32, th)
}

func TestPLICClaimHighestPriority(t *testing.T) {
	p := newTestPLIC(1, 2, 3)
	p.setPriority(1, 1)
	p.setPriority(2, 5)
	p.setPriority(3, 3)
	p.setEnabled(0, 1)
	p.setEnabled(0, 2)
	p.setEnabled(0, 3)
	p.SetPending(1)
	p.SetPending(2)
	p.SetPending(3)

	irq, ok := p.Claim(0)
	if !ok || irq != 2 {
		t.Fatalf("Claim() = %d, %v, want 2, true", irq, ok)
	}
	if p.pending(2) {
		t.Error("irq 2 still pending after claim")
	}
}

func TestPLICClaimTieBreaksLowestIRQ(t *testing.T) {
	p := newTestPLIC(5, 2, 9)
	for _, n := range []uint64{5, 2, 9} {
		p.setPriority(n, 4)
		p.setEnabled(0, n)
		p.SetPending(n)
	}
	irq, ok := p.Claim(0)
	if !ok || irq != 2 {
		t.Fatalf("Claim() = %d, %v, want 2, true", irq, ok)
	}
}

func TestPLICThresholdBlocksLowPriority(t *testing.T) {
	p := newTestPLIC(1)
	p.setPriority(1, 2)
	p.setEnabled(0, 1)
	p.setThreshold(0, 2)
	p.SetPending(1)

	if _, ok := p.Claim(0); ok {
		t.Error("expected no claim: priority must exceed threshold, not just equal it")
	}
}

func TestPLICDisabledSourceNotClaimed(t *testing.T) {
	p := newTestPLIC(1)
	p.setPriority(1, 5)
	p.SetPending(1)
	if _, ok := p.Claim(0); ok {
		t.Error("expected no claim for a disabled source")
	}
}

func TestPLICMMIORoundTrip(t *testing.T) {
	p := newTestPLIC(10)
	if err := p.Store(PLIC_BASE+10*4, 32, 9); err != nil {
		t.Fatal(err)
	}
	v, err := p.Load(PLIC_BASE+10*4, 32)
	if err != nil {
		t.Fatal(err)
	}
	if v != 9 {
		t.Errorf("priority MMIO round-trip = %d, want 9", v)
	}
}
