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

// Exception codes, matching the RISC-V privileged spec's mcause/scause
// encoding for synchronous traps (bit 63 clear).
const (
	ExcInstructionAddressMisaligned = 0
	ExcInstructionAccessFault       = 1
	ExcIllegalInstruction           = 2
	ExcBreakpoint                   = 3
	ExcLoadAddressMisaligned        = 4
	ExcLoadAccessFault              = 5
	ExcStoreAMOAddressMisaligned    = 6
	ExcStoreAMOAccessFault          = 7
	ExcEnvironmentCallFromU         = 8
	ExcEnvironmentCallFromS         = 9
	ExcEnvironmentCallFromM         = 11
	ExcInstructionPageFault         = 12
	ExcLoadPageFault                = 13
	ExcStoreAMOPageFault            = 15
)

// fatalExceptions terminates the run loop once its trap has been delivered,
// so a guest that cannot handle the fault does not spin forever.
var fatalExceptions = map[uint64]bool{
	ExcInstructionAddressMisaligned: true,
	ExcInstructionAccessFault:       true,
	ExcIllegalInstruction:           true,
	ExcBreakpoint:                   false,
	ExcLoadAddressMisaligned:        false,
	ExcLoadAccessFault:              true,
	ExcStoreAMOAddressMisaligned:    true,
	ExcStoreAMOAccessFault:          true,
	ExcEnvironmentCallFromU:         false,
	ExcEnvironmentCallFromS:         false,
	ExcEnvironmentCallFromM:         false,
	ExcInstructionPageFault:         false,
	ExcLoadPageFault:                false,
	ExcStoreAMOPageFault:            false,
}

// Trap is a hart exception carrying its cause and the faulting payload
// (address or instruction word, per kind).
type Trap struct {
	Cause uint64
	Tval  uint64
}

func (t *Trap) Error() string {
	return fmt.Sprintf("trap cause=%d tval=0x%x", t.Cause, t.Tval)
}

func trapErr(cause uint64, tval uint64) error {
	return &Trap{Cause: cause, Tval: tval}
}

func excName(cause uint64) string {
	switch cause {
	case ExcInstructionAddressMisaligned:
		return "InstructionAddressMisaligned"
	case ExcInstructionAccessFault:
		return "InstructionAccessFault"
	case ExcIllegalInstruction:
		return "IllegalInstruction"
	case ExcBreakpoint:
		return "Breakpoint"
	case ExcLoadAddressMisaligned:
		return "LoadAddressMisaligned"
	case ExcLoadAccessFault:
		return "LoadAccessFault"
	case ExcStoreAMOAddressMisaligned:
		return "StoreAMOAddressMisaligned"
	case ExcStoreAMOAccessFault:
		return "StoreAMOAccessFault"
	case ExcEnvironmentCallFromU:
		return "EnvironmentCallFromU"
	case ExcEnvironmentCallFromS:
		return "EnvironmentCallFromS"
	case ExcEnvironmentCallFromM:
		return "EnvironmentCallFromM"
	case ExcInstructionPageFault:
		return "InstructionPageFault"
	case ExcLoadPageFault:
		return "LoadPageFault"
	case ExcStoreAMOPageFault:
		return "StoreAMOPageFault"
	default:
		return fmt.Sprintf("Exception(%d)", cause)
	}
}
