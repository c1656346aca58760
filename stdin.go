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
	"os"

	"golang.org/x/sys/unix"
)

// ConsoleSource is a background stdin reader feeding a buffered channel,
// modeled on the teacher's UART.rxChan: the only goroutine that may block
// on a host read, so the hart loop's poll of HasByte/TryReadByte never
// blocks (§5, SPEC_FULL §4.11).
type ConsoleSource struct {
	rx chan byte
}

// NewConsoleSource starts the background reader and returns the source.
func NewConsoleSource() *ConsoleSource {
	c := &ConsoleSource{rx: make(chan byte, 256)}
	go c.loop()
	return c
}

func (c *ConsoleSource) loop() {
	fd := int(os.Stdin.Fd())
	buf := make([]byte, 1)
	for {
		if !waitReadable(fd) {
			return
		}
		n, err := os.Stdin.Read(buf)
		if err != nil || n == 0 {
			return
		}
		c.rx <- buf[0]
	}
}

// waitReadable blocks via select(2) until fd has data or an error occurs,
// keeping the blocking confined to this goroutine rather than the hart
// loop's polling accessor.
func waitReadable(fd int) bool {
	for {
		fdSet := &unix.FdSet{}
		fdSet.Bits[fd/64] |= 1 << (uint(fd) % 64)
		n, err := unix.Select(fd+1, fdSet, nil, nil, nil)
		if err == unix.EINTR {
			continue
		}
		return err == nil && n > 0
	}
}

// HasByte reports whether a byte is buffered, without consuming it.
func (c *ConsoleSource) HasByte() bool {
	return len(c.rx) > 0
}

// TryReadByte consumes and returns the next buffered byte, if any.
func (c *ConsoleSource) TryReadByte() (byte, bool) {
	select {
	case b := <-c.rx:
		return b, true
	default:
		return 0, false
	}
}
