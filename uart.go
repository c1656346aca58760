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
	"io"
	"os"
)

const (
	regRHR = UART_BASE + 0
	regTHR = UART_BASE + 0
	regLSR = UART_BASE + 5

	lsrDataReady = 1 << 0
	lsrThrEmpty  = 1 << 5
)

// StdinSource is the non-blocking keystroke feed the UART polls once per
// hart step. Out of core scope (§1): the hart loop only ever sees it
// through this narrow, non-blocking accessor.
type StdinSource interface {
	HasByte() bool
	TryReadByte() (byte, bool)
}

// UART is an 8250-style MMIO console: a 256-byte register window plus a
// receive-data and transmitter-ready status bit. It raises UART_IRQ on the
// PLIC whenever a new byte has arrived.
type UART struct {
	window [UART_SIZE]byte

	rx     StdinSource
	stdout io.Writer
	plic   *PLIC
}

// NewUART wires a UART to the given stdin source, output sink and PLIC.
func NewUART(rx StdinSource, stdout io.Writer, plic *PLIC) *UART {
	u := &UART{rx: rx, stdout: stdout, plic: plic}
	u.window[regLSR-UART_BASE] = lsrThrEmpty
	return u
}

// Load implements the RHR/other-register read semantics of §4.3.
func (u *UART) Load(addr uint64, sizeBits uint) (uint64, error) {
	if sizeBits != 8 {
		// The canonical virt UART is byte-addressable only; wider
		// accesses are never issued by real guest drivers, but route
		// through the same access-fault path as any other MMIO misuse.
		return 0, trapErr(ExcLoadAccessFault, addr)
	}
	off := addr - UART_BASE
	if off >= UART_SIZE {
		return 0, trapErr(ExcLoadAccessFault, addr)
	}
	if addr == regRHR {
		if b, ok := u.rx.TryReadByte(); ok {
			u.window[regLSR-UART_BASE] &^= lsrDataReady
			return uint64(b), nil
		}
		return 0, trapErr(ExcLoadAccessFault, addr)
	}
	return uint64(u.window[off]), nil
}

// Store implements the THR/other-register write semantics of §4.3.
func (u *UART) Store(addr uint64, sizeBits uint, value uint64) error {
	if sizeBits != 8 {
		return trapErr(ExcStoreAMOAccessFault, addr)
	}
	off := addr - UART_BASE
	if off >= UART_SIZE {
		return trapErr(ExcStoreAMOAccessFault, addr)
	}
	if addr == regTHR {
		b := byte(value)
		u.stdout.Write([]byte{b})
		if f, ok := u.stdout.(*os.File); ok {
			f.Sync()
		}
		return nil
	}
	u.window[off] = byte(value)
	return nil
}

// Poll is the per-step hook: if the stdin source has a byte buffered, mark
// LSR.DR and raise the UART's PLIC pending bit. The byte itself is not
// consumed here — only TryReadByte from Load consumes it — so Poll can be
// called unconditionally every step without losing input.
func (u *UART) Poll() {
	if u.rx.HasByte() {
		u.window[regLSR-UART_BASE] |= lsrDataReady
		u.plic.SetPending(UART_IRQ)
	}
}
