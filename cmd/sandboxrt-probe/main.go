// Copyright (c) Contributors to the sandboxrt project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Command sandboxrt-probe decides whether a candidate root filesystem and
// scratch directory pair can host the sandbox launcher's overlay, without
// actually running a sandboxed command. It is meant to be invoked by the
// layer that picks a workable scratch location out of a preference list.
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/sandboxrt/sandboxrt/internal/pkg/sandbox"
	"github.com/sandboxrt/sandboxrt/pkg/sylog"
)

func usage(prog string) string {
	return fmt.Sprintf(`usage: %s [options] <rootfs_dir> <scratch_parent_dir>

  --help, -h    print this message and exit
  --verbose, -v enable progress logging to stderr
  --tmpfs       mount an ephemeral in-memory filesystem under scratch_parent_dir/.probe first
  --userxattr   use unprivileged-xattr option when stacking the overlay
  --uid int     UID to chown the merged overlay view to
  --gid int     GID to chown the merged overlay view to
`, prog)
}

func main() {
	if os.Getenv("SANDBOXRT_PROBE_REEXEC") == "1" {
		if sandbox.RunProbe(sandbox.ProbeOptions{}) {
			os.Exit(0)
		}
		os.Exit(1)
	}

	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	help := fs.BoolP("help", "h", false, "print usage")
	verbose := fs.BoolP("verbose", "v", false, "enable progress logging")
	tmpfs := fs.Bool("tmpfs", false, "mount an ephemeral tmpfs scratch underlay first")
	userxattr := fs.Bool("userxattr", false, "use unprivileged-xattr option")
	uid := fs.Int("uid", 0, "UID to chown the merged view to")
	gid := fs.Int("gid", 0, "GID to chown the merged view to")
	fs.Usage = func() { fmt.Fprint(fs.Output(), usage(os.Args[0])) }

	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(1)
	}
	if *help {
		fmt.Print(usage(os.Args[0]))
		os.Exit(0)
	}
	if *verbose {
		sylog.SetLevel(int(sylog.VerboseLevel), true)
	}

	args := fs.Args()
	if len(args) != 2 {
		fmt.Fprint(os.Stderr, usage(os.Args[0]))
		os.Exit(1)
	}

	opts := sandbox.ProbeOptions{
		RootFS:     args[0],
		ScratchDir: args[1],
		Tmpfs:      *tmpfs,
		UserXattr:  *userxattr,
		UID:        *uid,
		GID:        *gid,
		TmpfsSize:  "64M",
		Verbose:    *verbose,
	}

	if sandbox.RunProbe(opts) {
		os.Exit(0)
	}
	os.Exit(1)
}
