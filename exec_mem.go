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

// execLoad implements LB/LH/LW/LD/LBU/LHU/LWU (§4.8). No alignment
// enforcement, matching DRAM's load contract (§4.2).
func (h *Hart) execLoad(inst *Instruction) error {
	addr := uint64(int64(h.reg(inst.rs1)) + inst.immI)

	var sizeBits uint
	var signed bool
	switch inst.funct3 {
	case 0x0:
		sizeBits, signed = 8, true
	case 0x1:
		sizeBits, signed = 16, true
	case 0x2:
		sizeBits, signed = 32, true
	case 0x3:
		sizeBits, signed = 64, false
	case 0x4:
		sizeBits, signed = 8, false
	case 0x5:
		sizeBits, signed = 16, false
	case 0x6:
		sizeBits, signed = 32, false
	default:
		return trapErr(ExcIllegalInstruction, uint64(inst.raw))
	}

	v, err := h.bus.Load(addr, sizeBits)
	if err != nil {
		return err
	}
	if signed && sizeBits < 64 {
		v = uint64(signExtend(int64(v), sizeBits))
	}
	h.setReg(inst.rd, v)
	h.pc += 4
	return nil
}

// execStore implements SB/SH/SW/SD (§4.8).
func (h *Hart) execStore(inst *Instruction) error {
	addr := uint64(int64(h.reg(inst.rs1)) + inst.immS)

	var sizeBits uint
	switch inst.funct3 {
	case 0x0:
		sizeBits = 8
	case 0x1:
		sizeBits = 16
	case 0x2:
		sizeBits = 32
	case 0x3:
		sizeBits = 64
	default:
		return trapErr(ExcIllegalInstruction, uint64(inst.raw))
	}

	if err := h.bus.Store(addr, sizeBits, h.reg(inst.rs2)); err != nil {
		return err
	}
	h.pc += 4
	return nil
}

// execAmo implements AMOSWAP.W/D and AMOADD.W/D (§4.8): load, compute,
// store, return the original value — uncontended since only one hart is
// modeled (§5), so acquire/release bits are ignored entirely.
func (h *Hart) execAmo(inst *Instruction) error {
	addr := h.reg(inst.rs1)
	sizeBits := uint(32)
	if inst.funct3 == 0x3 {
		sizeBits = 64
	}

	orig, err := h.bus.Load(addr, sizeBits)
	if err != nil {
		return err
	}

	op := inst.funct7 >> 2
	var result uint64
	switch op {
	case 0x01: // AMOSWAP
		result = h.reg(inst.rs2)
	case 0x00: // AMOADD
		result = orig + h.reg(inst.rs2)
	default:
		return trapErr(ExcIllegalInstruction, uint64(inst.raw))
	}

	if err := h.bus.Store(addr, sizeBits, result); err != nil {
		return err
	}

	if sizeBits == 32 {
		orig = uint64(signExtend(int64(uint32(orig)), 32))
	}
	h.setReg(inst.rd, orig)
	h.pc += 4
	return nil
}
