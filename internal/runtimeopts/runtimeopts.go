// Package runtimeopts bundles the run-wide switches host workers and the
// scheduler consult, keeping them out of every function signature.
package runtimeopts

import (
	"github.com/rs/zerolog"
)

// Options holds the per-run flags and shared collaborators threaded
// through the scheduler and host workers.
type Options struct {
	Verbose    bool
	KeepSource bool // do not delete/replace the source file even on success
	DryRun     bool // probe and log but never invoke the encoder
	ShowInfo   bool // print media info and exit without encoding

	SSHPath string
	SCPPath string

	Logger zerolog.Logger
}

// Default returns Options with all flags off, the standard /usr/bin ssh
// and scp paths, and a disabled logger, suitable for tests that don't care
// about logging output.
func Default() Options {
	return Options{
		SSHPath: "/usr/bin/ssh",
		SCPPath: "/usr/bin/scp",
		Logger:  zerolog.Nop(),
	}
}
