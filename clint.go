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

import "time"

const (
	clintMsipBase     = CLINT_BASE
	clintMtimecmpBase = CLINT_BASE + 0x4000
	clintMtimeOffset  = 0xbff8

	maxHarts = 4096
)

// clintTimer derives mtime from host wall-clock time rather than storing
// it directly: begin is the host-tick baseline such that get() == mtime.
// Rebasing on a write makes the guest observe exactly the written value
// as if host time stood still at that instant (§4.5).
type clintTimer struct {
	begin uint64
	freq  uint64
}

// multFrac computes x*n/d without overflowing a 64-bit intermediate,
// splitting the numerator into quotient and remainder against d first
// (§9: do not collapse to a single 128-bit multiply).
func multFrac(x, n, d uint64) uint64 {
	q := x / d
	r := x % d
	return q*n + r*n/d
}

func (t *clintTimer) currentTicks() uint64 {
	now := time.Now()
	secs := uint64(now.Unix())
	nanos := uint64(now.Nanosecond())
	return secs*t.freq + multFrac(nanos, t.freq, 1_000_000_000)
}

func (t *clintTimer) get() uint64 {
	return t.currentTicks() - t.begin
}

func (t *clintTimer) rebase(value uint64) {
	t.begin = t.currentTicks() - value
}

func newClintTimer(freq uint64) *clintTimer {
	t := &clintTimer{freq: freq}
	t.rebase(0)
	return t
}

// CLINT is the core-local interruptor: per-hart msip/mtimecmp plus a
// shared, derived mtime (§4.5).
type CLINT struct {
	msip     [maxHarts]uint32
	mtimecmp [maxHarts]uint64
	mtime    *clintTimer
}

// NewCLINT builds a CLINT ticking at freq Hz (must be strictly positive).
func NewCLINT(freq uint64) *CLINT {
	if freq == 0 {
		freq = 10_000_000 // virt platform default: 10 MHz
	}
	return &CLINT{mtime: newClintTimer(freq)}
}

// PendingTimer reports MTI for hart: mtime >= mtimecmp[hart].
func (c *CLINT) PendingTimer(hart uint64) bool {
	return c.mtime.get() >= c.mtimecmp[hart]
}

// PendingSoftware reports MSI for hart: msip[hart] != 0.
func (c *CLINT) PendingSoftware(hart uint64) bool {
	return c.msip[hart] != 0
}

func (c *CLINT) Load(addr uint64, sizeBits uint) (uint64, error) {
	switch {
	case addr >= clintMsipBase && addr < clintMtimecmpBase:
		if sizeBits != 32 {
			return 0, trapErr(ExcLoadAccessFault, addr)
		}
		hart := (addr - clintMsipBase) >> 2
		return uint64(c.msip[hart]), nil
	case addr >= clintMtimecmpBase && addr < CLINT_BASE+clintMtimeOffset:
		if sizeBits != 64 {
			return 0, trapErr(ExcLoadAccessFault, addr)
		}
		hart := (addr - clintMtimecmpBase) >> 3
		return c.mtimecmp[hart], nil
	case addr == CLINT_BASE+clintMtimeOffset || addr == CLINT_BASE+clintMtimeOffset+4:
		if sizeBits != 32 {
			return 0, trapErr(ExcLoadAccessFault, addr)
		}
		full := c.mtime.get()
		if addr&0b100 != 0 {
			return full >> 32, nil
		}
		return full & 0xffff_ffff, nil
	default:
		return 0, trapErr(ExcLoadAccessFault, addr)
	}
}

func (c *CLINT) Store(addr uint64, sizeBits uint, value uint64) error {
	switch {
	case addr >= clintMsipBase && addr < clintMtimecmpBase:
		if sizeBits != 32 {
			return trapErr(ExcStoreAMOAccessFault, addr)
		}
		hart := (addr - clintMsipBase) >> 2
		c.msip[hart] = uint32(value)
		return nil
	case addr >= clintMtimecmpBase && addr < CLINT_BASE+clintMtimeOffset:
		if sizeBits != 64 {
			return trapErr(ExcStoreAMOAccessFault, addr)
		}
		hart := (addr - clintMtimecmpBase) >> 3
		c.mtimecmp[hart] = value
		return nil
	case addr == CLINT_BASE+clintMtimeOffset || addr == CLINT_BASE+clintMtimeOffset+4:
		if sizeBits != 32 {
			return trapErr(ExcStoreAMOAccessFault, addr)
		}
		cur := c.mtime.get()
		var next uint64
		if addr&0b100 != 0 {
			next = (value << 32) | (cur & 0xffff_ffff)
		} else {
			next = (cur &^ 0xffff_ffff) | (value & 0xffff_ffff)
		}
		c.mtime.rebase(next)
		return nil
	default:
		return trapErr(ExcStoreAMOAccessFault, addr)
	}
}
