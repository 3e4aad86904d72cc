// Copyright (c) Contributors to the sandboxrt project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package sandbox

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	flag "github.com/spf13/pflag"
)

// ParseArgs parses the launcher's command line into a Config. Remaining positional arguments become the command vector.
// Unknown flags produce a usage-printing error; the caller is expected to
// exit 1 on error.
func ParseArgs(prog string, args []string) (*Config, error) {
	fs := flag.NewFlagSet(prog, flag.ContinueOnError)
	fs.SetInterspersed(false) // stop at first positional arg, it starts the command vector

	help := fs.BoolP("help", "h", false, "print usage")
	verbose := fs.BoolP("verbose", "v", false, "enable progress logging to stderr")
	rootfs := fs.String("rootfs", "", "root filesystem path (required)")
	cd := fs.String("cd", "", "working directory inside guest after pivot")
	mounts := fs.StringArray("mount", nil, "HOST:GUEST[:MODE] mount request, MODE in {ro,rw,ov}")
	persist := fs.String("persist", "", "overlay workspace host path (enables persistence)")
	entrypoint := fs.String("entrypoint", "", "path prepended to the command vector")
	uid := fs.Int("uid", 0, "in-namespace UID")
	gid := fs.Int("gid", 0, "in-namespace GID")
	tmpfsSize := fs.String("tmpfs-size", "1G", "size option for the ephemeral workspace filesystem")
	userxattr := fs.Bool("userxattr", false, "use unprivileged-xattr option when stacking overlays")
	hostname := fs.String("hostname", "", "UTS hostname to set inside the guest")

	fs.Usage = func() { fmt.Fprint(fs.Output(), usage(prog)) }

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *help {
		fmt.Print(usage(prog))
		return nil, flag.ErrHelp
	}

	cfg := &Config{
		RootFS:     strings.TrimSuffix(*rootfs, "/"),
		Workdir:    *cd,
		PersistDir: *persist,
		UID:        *uid,
		GID:        *gid,
		Entrypoint: *entrypoint,
		TmpfsSize:  *tmpfsSize,
		Hostname:   *hostname,
		Verbose:    *verbose,
		UserXattr:  *userxattr,
		Command:    fs.Args(),
	}

	for _, spec := range *mounts {
		req, err := parseMountSpec(spec)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid --mount %q", spec)
		}
		cfg.Mounts = append(cfg.Mounts, req)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseMountSpec parses one "HOST:GUEST[:MODE]" --mount argument.
func parseMountSpec(spec string) (MountRequest, error) {
	parts := strings.Split(spec, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return MountRequest{}, fmt.Errorf("expected HOST:GUEST[:MODE]")
	}

	kind := ReadWrite
	if len(parts) == 3 {
		switch parts[2] {
		case "ro":
			kind = ReadOnly
		case "rw":
			kind = ReadWrite
		case "ov":
			kind = Overlayed
		default:
			return MountRequest{}, fmt.Errorf("unknown mode %q, expected ro, rw or ov", parts[2])
		}
	}

	req := MountRequest{
		OutsidePath: parts[0],
		SandboxPath: parts[1],
		Kind:        kind,
	}
	if err := req.validate(); err != nil {
		return MountRequest{}, err
	}
	return req, nil
}

func usage(prog string) string {
	return fmt.Sprintf(`usage: %s [options] -- command [args...]

  --help, -h                print this message and exit
  --verbose, -v             enable progress logging to stderr
  --rootfs dir              root filesystem path (required)
  --cd dir                  working directory inside guest after pivot
  --mount HOST:GUEST[:MODE] add a mount, MODE in {ro,rw,ov}, default rw
  --persist dir             overlay workspace host path (enables persistence)
  --entrypoint path         prepended to the command vector
  --uid int                 in-namespace UID
  --gid int                 in-namespace GID
  --tmpfs-size size         size of the ephemeral workspace filesystem (default 1G)
  --userxattr               use unprivileged-xattr option when stacking overlays
  --hostname str            set UTS hostname
`, prog)
}
