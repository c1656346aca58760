// Copyright © 2024 Jeff Berkowitz (pdxjjb@gmail.com)
//
// End-to-end tests for the hart: fetch/decode/execute, traps, and
// interrupt delivery, assembled by hand into small RV64 programs.

package main

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// newTestHart assembles words into a DRAM image and wires a hart to it
// with no tracer, matching the teacher's plain-construction test style.
func newTestHart(words ...uint32) *Hart {
	image := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(image[i*4:], w)
	}
	dram := NewDRAM(image)
	plic := NewPLIC()
	plic.AddIRQ(UART_IRQ)
	clint := NewCLINT(1_000_000)
	uart := NewUART(&fakeStdin{}, &bytes.Buffer{}, plic)
	bus := NewBus(dram, uart, plic, clint)
	csr := NewCSRFile()
	return NewHart(bus, csr, clint, plic, uart)
}

// runUntilHalt steps the hart until it stops running or maxSteps is hit.
func runUntilHalt(t *testing.T, h *Hart, maxSteps int) {
	t.Helper()
	for i := 0; i < maxSteps && h.running; i++ {
		if err := h.Step(); err != nil {
			t.Fatalf("unexpected Step error: %v", err)
		}
	}
}

func TestScenarioArithmeticWithEbreak(t *testing.T) {
	// lui x1, 0x10; addi x1, x1, 1; ebreak
	// Breakpoint is a non-fatal exception (§4.9): the hart keeps running
	// after the trap, so step exactly the three instructions and check
	// the CSR state right after the ebreak instead of running to halt.
	h := newTestHart(
		encodeU(0b0110111, 1, 0x10000),
		encodeI(0b0010011, 1, 0x0, 1, 1),
		encodeI(0b1110011, 0, 0x0, 0, 1),
	)
	for i := 0; i < 3; i++ {
		if err := h.Step(); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
	}

	if h.reg(1) != 0x10001 {
		t.Errorf("x1 = 0x%x, want 0x10001", h.reg(1))
	}
	if !h.running {
		t.Error("ebreak must not be fatal")
	}
	if mepc := h.csr.Load(CSR_MEPC); mepc != DRAM_BASE+8 {
		t.Errorf("mepc = 0x%x, want address of ebreak (0x%x)", mepc, DRAM_BASE+8)
	}
	if cause := h.csr.Load(CSR_MCAUSE); cause != ExcBreakpoint {
		t.Errorf("mcause = %d, want %d (Breakpoint)", cause, ExcBreakpoint)
	}
}

func TestScenarioBranchTakenSkipsInstruction(t *testing.T) {
	// addi x1, x0, 5; addi x2, x0, 5; beq x1, x2, 8; addi x3, x0, 99; addi x4, x0, 1; ebreak
	h := newTestHart(
		encodeI(0b0010011, 1, 0x0, 0, 5),
		encodeI(0b0010011, 2, 0x0, 0, 5),
		encodeB(0b1100011, 0x0, 1, 2, 8),
		encodeI(0b0010011, 3, 0x0, 0, 99),
		encodeI(0b0010011, 4, 0x0, 0, 1),
		encodeI(0b1110011, 0, 0x0, 0, 1),
	)
	runUntilHalt(t, h, 10)

	if h.reg(3) != 0 {
		t.Errorf("x3 = %d, want 0 (skipped by taken branch)", h.reg(3))
	}
	if h.reg(4) != 1 {
		t.Errorf("x4 = %d, want 1", h.reg(4))
	}
}

func TestScenarioMemoryRoundTrip(t *testing.T) {
	// auipc x1, 0 (x1 = pc = DRAM_BASE, no lui sign-extension pitfall);
	// addi x1, x1, 0x100; addi x2, x0, 123; sd x2, 0(x1); ld x3, 0(x1); ebreak
	h := newTestHart(
		encodeU(0b0010111, 1, 0),           // auipc x1, 0
		encodeI(0b0010011, 1, 0x0, 1, 0x100), // addi x1, x1, 0x100
		encodeI(0b0010011, 2, 0x0, 0, 123),   // addi x2, x0, 123
		encodeS(0b0100011, 0x3, 1, 2, 0),     // sd x2, 0(x1)
		encodeI(0b0000011, 3, 0x3, 1, 0),     // ld x3, 0(x1)
		encodeI(0b1110011, 0, 0x0, 0, 1),     // ebreak
	)
	runUntilHalt(t, h, 10)

	if h.reg(3) != 123 {
		t.Errorf("x3 = %d, want 123", h.reg(3))
	}
}

func TestScenarioEcallDelegatedToSupervisor(t *testing.T) {
	// Delegate ECALL-from-U (cause 8) to supervisor, start in user mode, ecall.
	h := newTestHart(
		encodeI(0b1110011, 0, 0x0, 0, 0), // ecall
	)
	h.mode = ModeUser
	h.csr.Store(CSR_MEDELEG, 1<<ExcEnvironmentCallFromU)
	h.csr.Store(CSR_STVEC, 0x8000_2000)

	if err := h.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}

	if h.mode != ModeSupervisor {
		t.Errorf("mode = %d, want ModeSupervisor after delegated trap", h.mode)
	}
	if cause := h.csr.Load(CSR_SCAUSE); cause != ExcEnvironmentCallFromU {
		t.Errorf("scause = %d, want %d", cause, ExcEnvironmentCallFromU)
	}
	if h.pc != 0x8000_2000 {
		t.Errorf("pc = 0x%x, want stvec base 0x8000_2000", h.pc)
	}
	if !h.running {
		t.Error("ECALL must not be fatal when a handler is present")
	}
}

func TestScenarioUnsignedDivideByZero(t *testing.T) {
	// addi x1, x0, 7; divu x2, x1, x0 (x0 as divisor is always zero); ebreak
	h := newTestHart(
		encodeI(0b0010011, 1, 0x0, 0, 7),
		encodeR(0b0110011, 2, 0x5, 1, 0, 0x01), // divu x2, x1, x0
		encodeI(0b1110011, 0, 0x0, 0, 1),
	)
	runUntilHalt(t, h, 10)

	if h.reg(2) != ^uint64(0) {
		t.Errorf("x2 = 0x%x, want all-ones (unsigned divide by zero)", h.reg(2))
	}
}

func TestScenarioTimerInterrupt(t *testing.T) {
	// An infinite loop (jal x0, 0) guarded by a cycle cap; mtimecmp fires
	// immediately so the very first poll after Step should deliver MTI.
	h := newTestHart(
		encodeJ(0b1101111, 0, 0), // jal x0, 0 (spin)
	)
	h.csr.Store(CSR_MIE, MIP_MTIP)
	st := h.csr.Load(CSR_MSTATUS)
	h.csr.Store(CSR_MSTATUS, st|MSTATUS_MIE)
	h.clint.mtimecmp[0] = 0 // already expired: mtime >= 0 always holds

	if err := h.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}

	wantCause := uint64(IntMTI) | CauseInterruptBit
	if cause := h.csr.Load(CSR_MCAUSE); cause != wantCause {
		t.Errorf("mcause = 0x%x, want timer interrupt 0x%x", cause, wantCause)
	}
	if h.mode != ModeMachine {
		t.Errorf("mode = %d, want ModeMachine (no delegation configured)", h.mode)
	}
}

func TestX0AlwaysReadsZero(t *testing.T) {
	h := newTestHart(
		encodeI(0b0010011, 0, 0x0, 0, 42), // addi x0, x0, 42 -- must not stick
	)
	if err := h.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if h.reg(0) != 0 {
		t.Errorf("x0 = %d, want 0 after every retired instruction", h.reg(0))
	}
}
