// Copyright (c) Contributors to the sandboxrt project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Command sandboxrt is the sandbox launcher: it creates the new PID, mount,
// user, and UTS namespaces, composes the virtual root filesystem, relocates
// into it, and runs the requested command inside.
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/sandboxrt/sandboxrt/internal/pkg/sandbox"
	"github.com/sandboxrt/sandboxrt/pkg/sylog"
)

func main() {
	if os.Getenv(sandbox.ReexecEnv) == "1" {
		sandbox.RunNamespaceInit()
		return
	}

	cfg, err := sandbox.ParseArgs(os.Args[0], os.Args[1:])
	if err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "sandboxrt: %s\n", err)
		os.Exit(1)
	}

	if cfg.Verbose {
		sylog.SetLevel(int(sylog.VerboseLevel), true)
	}

	os.Exit(sandbox.Run(cfg))
}
