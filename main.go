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
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	getopt "github.com/pborman/getopt/v2"
	"golang.org/x/term"
)

const version = "1.0.0"

var savedTermState *term.State

// setupTerminal puts the terminal in raw mode so the UART sees unechoed,
// unbuffered keystrokes, matching the teacher's own raw-mode handling.
func setupTerminal() error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil
	}
	state, err := term.GetState(int(os.Stdin.Fd()))
	if err != nil {
		return fmt.Errorf("failed to get terminal state: %v", err)
	}
	savedTermState = state
	if _, err := term.MakeRaw(int(os.Stdin.Fd())); err != nil {
		return fmt.Errorf("failed to set raw mode: %v", err)
	}
	return nil
}

func restoreTerminal() {
	if savedTermState != nil && term.IsTerminal(int(os.Stdin.Fd())) {
		term.Restore(int(os.Stdin.Fd()), savedTermState)
	}
}

func main() {
	optTrace := getopt.StringLong("trace", 't', "", "Write execution trace to file")
	optMaxCycles := getopt.Uint64Long("max-cycles", 'm', 0, "Stop after N cycles (0 = unlimited)")
	optTimerFreq := getopt.Uint64Long("timer-freq", 'f', 10_000_000, "CLINT tick frequency in Hz")
	optVersion := getopt.BoolLong("version", 'v', "Show version and exit")
	optHelp := getopt.BoolLong("help", 'h', "Show help and exit")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}
	if *optVersion {
		fmt.Printf("riscvemu v%s\n", version)
		os.Exit(0)
	}

	args := getopt.Args()
	if len(args) != 1 {
		getopt.Usage()
		os.Exit(1)
	}
	binaryFile := args[0]

	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelInfo)
	logger := slog.New(NewLogHandler(nil, &slog.HandlerOptions{Level: programLevel}))
	slog.SetDefault(logger)

	data, err := os.ReadFile(binaryFile)
	if err != nil {
		logger.Error("reading binary file", "error", err)
		os.Exit(1)
	}

	dram := NewDRAM(data)
	plic := NewPLIC()
	plic.AddIRQ(UART_IRQ)
	clint := NewCLINT(*optTimerFreq)
	console := NewConsoleSource()
	uart := NewUART(console, os.Stdout, plic)
	bus := NewBus(dram, uart, plic, clint)
	csr := NewCSRFile()
	hart := NewHart(bus, csr, clint, plic, uart)

	if *optTrace != "" {
		f, err := os.Create(*optTrace)
		if err != nil {
			logger.Error("creating trace file", "error", err)
			os.Exit(1)
		}
		defer f.Close()
		hart.tracer = NewTracer(f)
		fmt.Fprintf(f, "riscvemu execution trace\n")
		fmt.Fprintf(f, "binary: %s (%d bytes)\n", binaryFile, len(data))
		fmt.Fprintf(f, "----------------------------------------\n\n")
	}

	if err := setupTerminal(); err != nil {
		logger.Error("setting up terminal", "error", err)
		os.Exit(1)
	}
	defer restoreTerminal()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		restoreTerminal()
		os.Exit(130)
	}()

	start := time.Now()
	runErr := runEmulator(hart, *optMaxCycles)
	elapsed := time.Since(start)

	restoreTerminal()

	logger.Info("execution completed", "elapsed", elapsed.Round(time.Millisecond).String())

	if runErr != nil {
		logger.Error("fatal error", "error", runErr)
		os.Exit(1)
	}
	os.Exit(0)
}

// runEmulator runs the hart to completion, or to maxCycles if non-zero.
func runEmulator(hart *Hart, maxCycles uint64) error {
	if maxCycles == 0 {
		return hart.Run()
	}
	for cycles := uint64(0); hart.running && cycles < maxCycles; cycles++ {
		if err := hart.Step(); err != nil {
			return err
		}
	}
	return nil
}
