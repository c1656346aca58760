// Copyright © 2024 Jeff Berkowitz (pdxjjb@gmail.com)
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.

package main

import (
	"fmt"
	"io"
)

// Tracer writes a detailed per-instruction execution trace. It runs on
// every retired instruction, so it stays a dedicated type rather than
// going through the slog-based diagnostic logger (SPEC_FULL §4.11).
type Tracer struct {
	out      io.Writer
	prevRegs [32]uint64
	prevPC   uint64
}

func NewTracer(out io.Writer) *Tracer {
	return &Tracer{out: out}
}

func modeName(mode uint64) string {
	switch mode {
	case ModeUser:
		return "user"
	case ModeSupervisor:
		return "supervisor"
	case ModeMachine:
		return "machine"
	default:
		return fmt.Sprintf("mode%d", mode)
	}
}

// TracePreInstruction records hart state before fetch/execute.
func (t *Tracer) TracePreInstruction(h *Hart) {
	copy(t.prevRegs[:], h.regs[:])
	t.prevPC = h.pc

	fmt.Fprintf(t.out, "\n")
	fmt.Fprintf(t.out, "----------------------------------------\n")
	fmt.Fprintf(t.out, "PC: 0x%016x [%s]\n", h.pc, modeName(h.mode))

	word, err := h.bus.Load(h.pc, 32)
	if err != nil {
		fmt.Fprintf(t.out, "INST: <fetch fault>\n")
		return
	}
	inst := decode(uint32(word))
	fmt.Fprintf(t.out, "INST: 0x%08x  %s\n", word, disassemble(inst))
}

// TracePostInstruction records what changed during execute.
func (t *Tracer) TracePostInstruction(h *Hart, inst *Instruction) {
	changed := false
	for i := 1; i < 32; i++ {
		if h.regs[i] != t.prevRegs[i] {
			changed = true
			fmt.Fprintf(t.out, "x%d <- 0x%x\n", i, h.regs[i])
		}
	}
	if !changed && h.pc == t.prevPC+4 {
		return
	}
	if h.pc != t.prevPC+4 {
		fmt.Fprintf(t.out, "PC -> 0x%016x\n", h.pc)
	}
}

// TraceTrap records trap delivery.
func (t *Tracer) TraceTrap(h *Hart, cause uint64, tval uint64, isInterrupt bool) {
	kind := excName(cause)
	if isInterrupt {
		kind = "interrupt"
	}
	fmt.Fprintf(t.out, "\n*** TRAP (%s): cause=%d tval=0x%x mode->%s pc->0x%x\n",
		kind, cause, tval, modeName(h.mode), h.pc)
}
