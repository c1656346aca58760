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

// execSystem sub-dispatches on (rs2, funct3, funct7) per §4.8: ECALL,
// EBREAK, SRET/MRET, SFENCE.VMA, and the six CSRRx forms.
func (h *Hart) execSystem(inst *Instruction) error {
	if inst.funct3 == 0 {
		switch {
		case inst.rs2 == 0 && inst.funct7 == 0:
			return h.execEcall()
		case inst.rs2 == 1 && inst.funct7 == 0:
			return trapErr(ExcBreakpoint, h.pc)
		case inst.rs2 == 2 && inst.funct7 == 0x8:
			h.xret(false)
			return nil
		case inst.rs2 == 2 && inst.funct7 == 0x18:
			h.xret(true)
			return nil
		case inst.funct7 == 0x9:
			h.pc += 4
			return nil
		default:
			return trapErr(ExcIllegalInstruction, uint64(inst.raw))
		}
	}
	return h.execCSR(inst)
}

func (h *Hart) execEcall() error {
	var cause uint64
	switch h.mode {
	case ModeUser:
		cause = ExcEnvironmentCallFromU
	case ModeSupervisor:
		cause = ExcEnvironmentCallFromS
	default:
		cause = ExcEnvironmentCallFromM
	}
	return trapErr(cause, h.pc)
}

// execCSR implements CSRRW/S/C/WI/SI/CI. The "read" result goes into rd;
// CSRRW suppresses the read when rd == x0, and CSRRS/C/SI/CI suppress the
// write when the mask source (rs1, or the zero-extended uimm for the
// immediate forms) is zero (§4.8).
func (h *Hart) execCSR(inst *Instruction) error {
	csrNum := uint64(inst.immI) & 0xfff
	immediate := inst.funct3 >= 0x5
	var srcValue uint64
	if immediate {
		srcValue = uint64(inst.rs1)
	} else {
		srcValue = h.reg(inst.rs1)
	}

	old := h.csr.Load(csrNum)

	switch inst.funct3 & 0x3 {
	case 0x1: // CSRRW / CSRRWI
		if inst.rd != 0 {
			h.setReg(inst.rd, old)
		}
		h.csr.Store(csrNum, srcValue)
	case 0x2: // CSRRS / CSRRSI
		h.setReg(inst.rd, old)
		if srcValue != 0 {
			h.csr.Store(csrNum, old|srcValue)
		}
	case 0x3: // CSRRC / CSRRCI
		h.setReg(inst.rd, old)
		if srcValue != 0 {
			h.csr.Store(csrNum, old&^srcValue)
		}
	default:
		return trapErr(ExcIllegalInstruction, uint64(inst.raw))
	}

	h.pc += 4
	return nil
}
