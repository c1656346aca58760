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

// Physical address map, bit-exact with the canonical QEMU "virt" platform.
const (
	CLINT_BASE = 0x0200_0000
	CLINT_SIZE = 0x1_0000

	PLIC_BASE = 0x0c00_0000
	PLIC_SIZE = 0x20_8000 // 2MiB base region + two 4KiB per-hart contexts

	UART_BASE = 0x1000_0000
	UART_SIZE = 0x100

	DRAM_BASE = 0x8000_0000
	DRAM_SIZE = 128 * 1024 * 1024
)

// Privilege modes.
const (
	ModeUser       = 0b00
	ModeSupervisor = 0b01
	ModeMachine    = 0b11
)

// CSR numbers that are live in this subset. Anything else is a plain
// read/write slot in the flat 4096-entry file (§4.7 of the spec).
const (
	CSR_SSTATUS = 0x100
	CSR_SIE     = 0x104
	CSR_STVEC   = 0x105
	CSR_SSCRATCH = 0x140
	CSR_SEPC    = 0x141
	CSR_SCAUSE  = 0x142
	CSR_STVAL   = 0x143
	CSR_SIP     = 0x144
	CSR_SATP    = 0x180

	CSR_MSTATUS  = 0x300
	CSR_MISA     = 0x301
	CSR_MEDELEG  = 0x302
	CSR_MIDELEG  = 0x303
	CSR_MIE      = 0x304
	CSR_MTVEC    = 0x305
	CSR_MSCRATCH = 0x340
	CSR_MEPC     = 0x341
	CSR_MCAUSE   = 0x342
	CSR_MTVAL    = 0x343
	CSR_MIP      = 0x344
)

// mstatus / sstatus bit positions.
const (
	MSTATUS_SIE  = 1 << 1
	MSTATUS_MIE  = 1 << 3
	MSTATUS_SPIE = 1 << 5
	MSTATUS_MPIE = 1 << 7
	MSTATUS_SPP  = 1 << 8
	MSTATUS_MPP_SHIFT = 11
	MSTATUS_MPP_MASK  = 0b11 << MSTATUS_MPP_SHIFT
	MSTATUS_MPRV = 1 << 17
)

// sstatus is a masked view of mstatus: only these fields are visible
// through the sstatus CSR number (§9 design note — the source repository
// stores them independently, which the spec calls out as a bug to fix;
// this implementation unifies them behind one backing word).
const SSTATUS_MASK = MSTATUS_SIE | MSTATUS_SPIE | MSTATUS_SPP |
	1<<18 /* SUM */ | 1<<19 /* MXR */ |
	0b11<<13 /* FS */ | 0b11<<15 /* XS */ |
	1<<63 /* SD */

// mip / mie interrupt bit positions.
const (
	MIP_SSIP = 1 << 1
	MIP_MSIP = 1 << 3
	MIP_STIP = 1 << 5
	MIP_MTIP = 1 << 7
	MIP_SEIP = 1 << 9
	MIP_MEIP = 1 << 11
)

// Interrupt cause codes (without the high bit; trap() XORs it in).
const (
	IntSSI = 1
	IntMSI = 3
	IntSTI = 5
	IntMTI = 7
	IntSEI = 9
	IntMEI = 11
	IntCounterOverflow = 13
)

const CauseInterruptBit = 1 << 63

// UART_IRQ is the PLIC source number wired to the canonical console UART.
const UART_IRQ = 10
