// Copyright (c) 2016 by Thorsten von Eicken, see LICENSE file for details

// Command trackerctl is a minimal host-side console standing in for the
// flight unit's USB/serial debug shell. The debug console itself is out of
// scope (it talks to hardware trackerctl doesn't have), but readLog and
// printConfig need no hardware at all — they read the same on-disk Log Ring
// and configuration page trackerd writes, so they are implemented for real
// here. Every other named command is a stub: it exists so the shell's full
// command surface has a body, but returns a "not supported over this
// console" error instead of pretending to drive hardware that isn't there.
package main

import (
	"flag"
	"fmt"
	"os"

	"aprsballoon/internal/config"
	"aprsballoon/internal/logring"
)

func main() {
	flag.Usage = usage
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	var err error
	switch args[0] {
	case "readLog":
		err = readLog(args[1:])
	case "printConfig":
		err = printConfig(args[1:])
	case "debugOnUSB", "printPicture", "command2Camera", "send_aprs_message", "test_rx":
		err = errNotSupported(args[0])
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "trackerctl: %s\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [args]\n", os.Args[0])
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  readLog -logring PATH -capacity N [-index N]   dump one or all log ring records")
	fmt.Fprintln(os.Stderr, "  printConfig -config PATH                       print the saved configuration")
	fmt.Fprintln(os.Stderr, "  debugOnUSB, printPicture, command2Camera, send_aprs_message, test_rx")
	fmt.Fprintln(os.Stderr, "                                                  not supported over this console")
}

// errNotSupported reports that cmd is a real debug-console command this host
// tool cannot perform, since it has no USB-attached flight unit to relay to.
func errNotSupported(cmd string) error {
	return fmt.Errorf("%s: not supported over this console", cmd)
}

// readLog dumps either a single indexed record or the whole ring, reading
// directly through internal/logring's public At/All operations (C3).
func readLog(args []string) error {
	fs := flag.NewFlagSet("readLog", flag.ExitOnError)
	path := fs.String("logring", "/var/lib/tracker/logring.dat", "path to the log ring's backing file")
	capacity := fs.Int("capacity", 4096, "log ring record capacity")
	index := fs.Int("index", -1, "record index to print; -1 prints every record")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ring, err := logring.Open(*path, *capacity)
	if err != nil {
		return fmt.Errorf("opening log ring: %w", err)
	}

	if *index >= 0 {
		dp, ok := ring.At(*index)
		if !ok {
			return fmt.Errorf("no record at index %d", *index)
		}
		fmt.Printf("%+v\n", dp)
		return nil
	}

	for i, dp := range ring.All() {
		fmt.Printf("[%d] %+v\n", i, dp)
	}
	return nil
}

// printConfig loads and prints the saved non-volatile configuration page, the
// same way config.Load does for trackerd — including its fallback to
// compile-time defaults on a missing file or failed CRC check, which is
// reported on stderr.
func printConfig(args []string) error {
	fs := flag.NewFlagSet("printConfig", flag.ExitOnError)
	path := fs.String("config", "/etc/tracker/tracker.toml", "path to configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.Load(*path, func(format string, v ...interface{}) {
		fmt.Fprintf(os.Stderr, format+"\n", v...)
	})
	fmt.Printf("%+v\n", cfg)
	return nil
}
