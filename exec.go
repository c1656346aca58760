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

// execute dispatches a decoded instruction to its semantic implementation
// (§4.8). Every case is responsible for updating pc itself; ordinary
// instructions advance by 4, JAL/JALR set pc directly.
func (h *Hart) execute(inst *Instruction) error {
	switch inst.group {
	case grpLoad:
		return h.execLoad(inst)
	case grpStore:
		return h.execStore(inst)
	case grpOpImm, grpOpImm32:
		return h.execOpImm(inst)
	case grpOp, grpOp32:
		return h.execOp(inst)
	case grpAmo:
		return h.execAmo(inst)
	case grpLui:
		h.setReg(inst.rd, uint64(inst.immU))
		h.pc += 4
		return nil
	case grpAuipc:
		h.setReg(inst.rd, h.pc+uint64(inst.immU))
		h.pc += 4
		return nil
	case grpBranch:
		return h.execBranch(inst)
	case grpJal:
		h.setReg(inst.rd, h.pc+4)
		h.pc = uint64(int64(h.pc) + inst.immJ)
		return nil
	case grpJalr:
		target := uint64(int64(h.reg(inst.rs1))+inst.immI) &^ 1
		h.setReg(inst.rd, h.pc+4)
		h.pc = target
		return nil
	case grpFence:
		h.pc += 4
		return nil
	case grpSystem:
		return h.execSystem(inst)
	default:
		return trapErr(ExcIllegalInstruction, uint64(inst.raw))
	}
}
