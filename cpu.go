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

// Hart is one RISC-V hardware thread: 32 general registers, the program
// counter, current privilege mode, the CSR file, and the bus it fetches
// and accesses memory through.
type Hart struct {
	regs [32]uint64
	pc   uint64
	mode uint64

	csr *CSRFile
	bus *Bus

	clint  *CLINT
	plic   *PLIC
	uart   *UART
	hartID uint64

	running bool
	tracer  *Tracer
}

// NewHart builds a hart starting in Machine mode with pc at DRAM_BASE and
// sp (x2) at the top of DRAM, per §6. uart may be nil, in which case
// Step never polls it (useful for unit tests that exercise only memory
// and CSR behavior).
func NewHart(bus *Bus, csr *CSRFile, clint *CLINT, plic *PLIC, uart *UART) *Hart {
	h := &Hart{
		bus:     bus,
		csr:     csr,
		clint:   clint,
		plic:    plic,
		uart:    uart,
		mode:    ModeMachine,
		pc:      DRAM_BASE,
		running: true,
	}
	h.regs[2] = DRAM_BASE + DRAM_SIZE
	return h
}

func (h *Hart) reg(n uint8) uint64 {
	return h.regs[n]
}

// setReg writes rd unless rd is x0, which must read as zero after every
// instruction retires (invariant i).
func (h *Hart) setReg(n uint8, v uint64) {
	if n != 0 {
		h.regs[n] = v
	}
}

// Run executes the fetch-decode-execute loop until a fatal trap, an
// explicit halt, or the cycle cap (handled by the caller via maxCycles)
// stops it.
func (h *Hart) Run() error {
	for h.running {
		if err := h.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Step retires exactly one instruction: fetch, decode, execute, then
// deliver any trap raised along the way, then poll for interrupts (§4.10).
func (h *Hart) Step() error {
	if h.uart != nil {
		h.uart.Poll()
	}
	if h.tracer != nil {
		h.tracer.TracePreInstruction(h)
	}

	word, ferr := h.fetchWord()
	var execErr error
	var decoded *Instruction
	if ferr != nil {
		execErr = ferr
	} else {
		decoded = decode(word)
		execErr = h.execute(decoded)
	}
	h.regs[0] = 0

	if execErr != nil {
		h.deliverTrap(execErr)
	}

	if h.tracer != nil {
		h.tracer.TracePostInstruction(h, decoded)
	}

	if h.running {
		h.pollInterrupts()
	}
	return nil
}

// fetchWord reads the 32-bit instruction word at pc and enforces the
// length-encoding rule of §9: only inst[1:0] == 0b11 is a valid
// uncompressed instruction.
func (h *Hart) fetchWord() (uint32, error) {
	v, err := h.bus.Load(h.pc, 32)
	if err != nil {
		return 0, trapErr(ExcInstructionAccessFault, h.pc)
	}
	word := uint32(v)
	if word&0b11 != 0b11 {
		return word, trapErr(ExcIllegalInstruction, uint64(word))
	}
	return word, nil
}

// deliverTrap runs the trap-entry machinery of §4.9 for a synchronous
// exception and halts the hart if the exception is classified fatal.
func (h *Hart) deliverTrap(err error) {
	trap, ok := err.(*Trap)
	if !ok {
		h.running = false
		return
	}
	h.trap(trap.Cause, trap.Tval, false)
	if h.tracer != nil {
		h.tracer.TraceTrap(h, trap.Cause, trap.Tval, false)
	}
	if fatal, known := fatalExceptions[trap.Cause]; known && fatal {
		h.running = false
	}
}

// trap implements §4.9: compute the target privilege mode, save pc and
// cause, load the vector, mutate the status CSR, and switch mode.
func (h *Hart) trap(cause, tval uint64, isInterrupt bool) {
	targetMode := uint64(ModeMachine)
	if h.mode < ModeMachine {
		delegated := false
		if isInterrupt {
			delegated = h.csr.Load(CSR_MIDELEG)&(1<<cause) != 0
		} else {
			delegated = h.csr.Load(CSR_MEDELEG)&(1<<cause) != 0
		}
		if delegated {
			targetMode = ModeSupervisor
		}
	}

	causeValue := cause
	if isInterrupt {
		causeValue |= CauseInterruptBit
	}

	if targetMode == ModeSupervisor {
		h.csr.Store(CSR_SEPC, h.pc)
		h.csr.Store(CSR_SCAUSE, causeValue)
		h.csr.Store(CSR_STVAL, tval)
		h.vector(CSR_STVEC, cause, isInterrupt)
		h.mutateStatusOnTrap(false)
	} else {
		h.csr.Store(CSR_MEPC, h.pc)
		h.csr.Store(CSR_MCAUSE, causeValue)
		h.csr.Store(CSR_MTVAL, tval)
		h.vector(CSR_MTVEC, cause, isInterrupt)
		h.mutateStatusOnTrap(true)
	}

	h.mode = targetMode
}

// vector sets pc from mtvec/stvec per the direct/vectored mode rule.
// Exceptions always land on base even in vectored mode (§4.9 step 5);
// parentheses around (cause << 2) are explicit because the source this
// was distilled from computed base + cause << 2, landing interrupts on
// the wrong 4-byte slot (§9).
func (h *Hart) vector(csrNum, cause uint64, isInterrupt bool) {
	tvec := h.csr.Load(csrNum)
	base := tvec &^ 0x3
	mode := tvec & 0x3
	if mode == 0b01 && isInterrupt {
		h.pc = base + (cause << 2)
	} else {
		h.pc = base
	}
}

// mutateStatusOnTrap applies step 6 of §4.9 for the machine or
// supervisor status bits.
func (h *Hart) mutateStatusOnTrap(machine bool) {
	st := h.csr.Load(CSR_MSTATUS)
	if machine {
		xie := st&MSTATUS_MIE != 0
		st &^= MSTATUS_MPIE
		if xie {
			st |= MSTATUS_MPIE
		}
		st &^= MSTATUS_MIE
		st &^= MSTATUS_MPP_MASK
		st |= (h.mode << MSTATUS_MPP_SHIFT) & MSTATUS_MPP_MASK
	} else {
		xie := st&MSTATUS_SIE != 0
		st &^= MSTATUS_SPIE
		if xie {
			st |= MSTATUS_SPIE
		}
		st &^= MSTATUS_SIE
		st &^= MSTATUS_SPP
		if h.mode == ModeSupervisor {
			st |= MSTATUS_SPP
		}
	}
	h.csr.Store(CSR_MSTATUS, st)
}

// xret implements the MRET/SRET semantics of §4.9.
func (h *Hart) xret(machine bool) {
	st := h.csr.Load(CSR_MSTATUS)
	if machine {
		prevMode := (st & MSTATUS_MPP_MASK) >> MSTATUS_MPP_SHIFT
		xpie := st&MSTATUS_MPIE != 0
		st &^= MSTATUS_MIE
		if xpie {
			st |= MSTATUS_MIE
		}
		st |= MSTATUS_MPIE
		st &^= MSTATUS_MPP_MASK
		st |= ModeUser << MSTATUS_MPP_SHIFT
		if prevMode != ModeMachine {
			st &^= MSTATUS_MPRV
		}
		h.csr.Store(CSR_MSTATUS, st)
		h.mode = prevMode
		h.pc = h.csr.Load(CSR_MEPC)
	} else {
		prevMode := uint64(ModeUser)
		if st&MSTATUS_SPP != 0 {
			prevMode = ModeSupervisor
		}
		xpie := st&MSTATUS_SPIE != 0
		st &^= MSTATUS_SIE
		if xpie {
			st |= MSTATUS_SIE
		}
		st |= MSTATUS_SPIE
		st &^= MSTATUS_SPP
		h.csr.Store(CSR_MSTATUS, st)
		h.mode = prevMode
		h.pc = h.csr.Load(CSR_SEPC)
	}
}

// pollInterrupts implements the priority-ordered interrupt selection of
// §4.10, consulted after every retired instruction.
func (h *Hart) pollInterrupts() {
	mip := h.csr.Load(CSR_MIP)
	if irq, ok := h.plic.Claim(h.hartID); ok {
		_ = irq
		mip |= MIP_MEIP
	}
	if h.clint.PendingTimer(h.hartID) {
		mip |= MIP_MTIP
	} else {
		mip &^= MIP_MTIP
	}
	if h.clint.PendingSoftware(h.hartID) {
		mip |= MIP_MSIP
	} else {
		mip &^= MIP_MSIP
	}
	h.csr.Store(CSR_MIP, mip)

	if h.mode == ModeMachine && h.csr.Load(CSR_MSTATUS)&MSTATUS_MIE == 0 {
		return
	}

	mie := h.csr.Load(CSR_MIE)
	machinePending := mie & mip
	if h.raiseInterrupt(machinePending, MIP_MEIP, IntMEI) {
		return
	}
	if h.raiseInterrupt(machinePending, MIP_MSIP, IntMSI) {
		return
	}
	if h.raiseInterrupt(machinePending, MIP_MTIP, IntMTI) {
		return
	}

	if h.mode == ModeMachine {
		return
	}

	sstatus := h.csr.Load(CSR_SSTATUS)
	if h.mode == ModeSupervisor && sstatus&MSTATUS_SIE == 0 {
		return
	}
	sip := h.csr.Load(CSR_SIP)
	sie := h.csr.Load(CSR_SIE)
	supervisorPending := sie & sip
	if h.raiseInterrupt(supervisorPending, MIP_SEIP, IntSEI) {
		return
	}
	if h.raiseInterrupt(supervisorPending, MIP_SSIP, IntSSI) {
		return
	}
	if h.raiseInterrupt(supervisorPending, MIP_STIP, IntSTI) {
		return
	}
}

// raiseInterrupt clears the given mip bit and delivers a trap for code if
// it is set in pending. Returns whether an interrupt was delivered.
func (h *Hart) raiseInterrupt(pending, bit, code uint64) bool {
	if pending&bit == 0 {
		return false
	}
	h.csr.Store(CSR_MIP, h.csr.Load(CSR_MIP)&^bit)
	h.trap(code, 0, true)
	if h.tracer != nil {
		h.tracer.TraceTrap(h, code, 0, true)
	}
	return true
}
