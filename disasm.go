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

import "fmt"

// disassemble produces a human-readable disassembly of an instruction,
// used only by the execution tracer.
func disassemble(inst *Instruction) string {
	if inst.raw == 0 {
		return "ILLEGAL (0x00000000)"
	}

	switch inst.group {
	case grpLoad:
		return disassembleLoad(inst)
	case grpStore:
		return disassembleStore(inst)
	case grpOpImm, grpOpImm32:
		return disassembleOpImm(inst)
	case grpOp, grpOp32:
		return disassembleOp(inst)
	case grpAmo:
		return disassembleAmo(inst)
	case grpLui:
		return fmt.Sprintf("lui x%d, 0x%x", inst.rd, uint64(inst.immU)>>12)
	case grpAuipc:
		return fmt.Sprintf("auipc x%d, 0x%x", inst.rd, uint64(inst.immU)>>12)
	case grpBranch:
		return disassembleBranch(inst)
	case grpJal:
		return fmt.Sprintf("jal x%d, %+d", inst.rd, inst.immJ)
	case grpJalr:
		return fmt.Sprintf("jalr x%d, %d(x%d)", inst.rd, inst.immI, inst.rs1)
	case grpFence:
		return "fence"
	case grpSystem:
		return disassembleSystem(inst)
	default:
		return fmt.Sprintf("??? (0x%08x)", inst.raw)
	}
}

func disassembleLoad(inst *Instruction) string {
	name, ok := loadMnemonics[inst.funct3]
	if !ok {
		return fmt.Sprintf("??? (0x%08x)", inst.raw)
	}
	return fmt.Sprintf("%s x%d, %d(x%d)", name, inst.rd, inst.immI, inst.rs1)
}

func disassembleStore(inst *Instruction) string {
	name, ok := storeMnemonics[inst.funct3]
	if !ok {
		return fmt.Sprintf("??? (0x%08x)", inst.raw)
	}
	return fmt.Sprintf("%s x%d, %d(x%d)", name, inst.rs2, inst.immS, inst.rs1)
}

func disassembleOpImm(inst *Instruction) string {
	w := ""
	if inst.group == grpOpImm32 {
		w = "w"
	}
	switch inst.funct3 {
	case 0x1, 0x5:
		shamtBits := uint(6)
		if w != "" {
			shamtBits = 5
		}
		shamt := uint64(inst.rs2)
		if shamtBits == 5 {
			shamt &= 0x1f
		}
		op := "slli"
		if inst.funct3 == 0x5 {
			if inst.funct7&0x20 != 0 {
				op = "srai"
			} else {
				op = "srli"
			}
		}
		return fmt.Sprintf("%s%s x%d, x%d, %d", op, w, inst.rd, inst.rs1, shamt)
	default:
		name := opImmMnemonics[inst.funct3]
		return fmt.Sprintf("%s%s x%d, x%d, %d", name, w, inst.rd, inst.rs1, inst.immI)
	}
}

func disassembleOp(inst *Instruction) string {
	w := ""
	if inst.group == grpOp32 {
		w = "w"
	}
	name := opMnemonic(inst.funct3, inst.funct7)
	return fmt.Sprintf("%s%s x%d, x%d, x%d", name, w, inst.rd, inst.rs1, inst.rs2)
}

func disassembleBranch(inst *Instruction) string {
	name, ok := branchMnemonics[inst.funct3]
	if !ok {
		return fmt.Sprintf("??? (0x%08x)", inst.raw)
	}
	return fmt.Sprintf("%s x%d, x%d, %+d", name, inst.rs1, inst.rs2, inst.immB)
}

func disassembleAmo(inst *Instruction) string {
	w := "w"
	if inst.funct3 == 0x3 {
		w = "d"
	}
	switch inst.funct7 >> 2 {
	case 0x01:
		return fmt.Sprintf("amoswap.%s x%d, x%d, (x%d)", w, inst.rd, inst.rs2, inst.rs1)
	case 0x00:
		return fmt.Sprintf("amoadd.%s x%d, x%d, (x%d)", w, inst.rd, inst.rs2, inst.rs1)
	default:
		return fmt.Sprintf("amo??? (0x%08x)", inst.raw)
	}
}

func disassembleSystem(inst *Instruction) string {
	switch {
	case inst.funct3 == 0 && inst.rs2 == 0 && inst.funct7 == 0:
		return "ecall"
	case inst.funct3 == 0 && inst.rs2 == 1 && inst.funct7 == 0:
		return "ebreak"
	case inst.funct3 == 0 && inst.rs2 == 2 && inst.funct7 == 0x18:
		return "mret"
	case inst.funct3 == 0 && inst.rs2 == 2 && inst.funct7 == 0x8:
		return "sret"
	case inst.funct3 == 0 && inst.funct7 == 0x9:
		return "sfence.vma"
	default:
		name, ok := csrMnemonics[inst.funct3]
		if !ok {
			return fmt.Sprintf("??? (0x%08x)", inst.raw)
		}
		return fmt.Sprintf("%s x%d, 0x%x, x%d", name, inst.rd, inst.immI&0xfff, inst.rs1)
	}
}

var loadMnemonics = map[uint8]string{
	0x0: "lb", 0x1: "lh", 0x2: "lw", 0x3: "ld",
	0x4: "lbu", 0x5: "lhu", 0x6: "lwu",
}

var storeMnemonics = map[uint8]string{
	0x0: "sb", 0x1: "sh", 0x2: "sw", 0x3: "sd",
}

var opImmMnemonics = map[uint8]string{
	0x0: "addi", 0x2: "slti", 0x3: "sltiu",
	0x4: "xori", 0x6: "ori", 0x7: "andi",
}

var branchMnemonics = map[uint8]string{
	0x0: "beq", 0x1: "bne", 0x4: "blt", 0x5: "bge", 0x6: "bltu", 0x7: "bgeu",
}

var csrMnemonics = map[uint8]string{
	0x1: "csrrw", 0x2: "csrrs", 0x3: "csrrc",
	0x5: "csrrwi", 0x6: "csrrsi", 0x7: "csrrci",
}

func opMnemonic(funct3, funct7 uint8) string {
	switch {
	case funct3 == 0x0 && funct7 == 0x00:
		return "add"
	case funct3 == 0x0 && funct7 == 0x20:
		return "sub"
	case funct3 == 0x0 && funct7 == 0x01:
		return "mul"
	case funct3 == 0x1:
		return "sll"
	case funct3 == 0x2:
		return "slt"
	case funct3 == 0x3:
		return "sltu"
	case funct3 == 0x4:
		return "xor"
	case funct3 == 0x5 && funct7 == 0x01:
		return "divu"
	case funct3 == 0x5 && funct7 == 0x00:
		return "srl"
	case funct3 == 0x5 && funct7 == 0x20:
		return "sra"
	case funct3 == 0x6:
		return "or"
	case funct3 == 0x7 && funct7 == 0x01:
		return "remu"
	case funct3 == 0x7:
		return "and"
	default:
		return "???"
	}
}
