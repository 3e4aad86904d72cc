// Copyright (c) Contributors to the sandboxrt project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package sandbox implements the sandbox launcher: namespace creation,
// stacked-filesystem mount composition, UID/GID mapping, pivot-root,
// signal forwarding and child reaping described by the project spec.
package sandbox

import "fmt"

// MountKind is the access mode requested for one mount.
type MountKind int

const (
	// ReadWrite bind-mounts outside_path so writes are immediately visible
	// on the host.
	ReadWrite MountKind = iota
	// ReadOnly bind-mounts outside_path and remounts it read-only inside
	// the guest.
	ReadOnly
	// Overlayed stacks a copy-on-write layer over outside_path so guest
	// writes never touch the host path.
	Overlayed
)

func (k MountKind) String() string {
	switch k {
	case ReadWrite:
		return "rw"
	case ReadOnly:
		return "ro"
	case Overlayed:
		return "ov"
	default:
		return "unknown"
	}
}

// MountRequest describes one requested mount. Order is significant and is
// preserved from the command line.
type MountRequest struct {
	OutsidePath string
	SandboxPath string
	Kind        MountKind
}

func (m MountRequest) validate() error {
	if m.OutsidePath == "" {
		return fmt.Errorf("mount request is missing a host path")
	}
	if m.OutsidePath[0] != '/' {
		return fmt.Errorf("mount request host path %q must be absolute", m.OutsidePath)
	}
	if m.SandboxPath == "" {
		return fmt.Errorf("mount request %q is missing a sandbox path", m.OutsidePath)
	}
	return nil
}

// Config is the fully parsed launcher configuration.
type Config struct {
	RootFS     string
	Mounts     []MountRequest
	Workdir    string
	PersistDir string
	UID        int
	GID        int
	Entrypoint string
	TmpfsSize  string
	Hostname   string
	Verbose    bool
	UserXattr  bool
	Command    []string
}

// Validate checks that root is absolute, that no two mount requests share
// a sandbox_path, and that every mount request is individually well
// formed.
func (c *Config) Validate() error {
	if c.RootFS == "" {
		return fmt.Errorf("--rootfs is required")
	}
	if c.RootFS[0] != '/' {
		return fmt.Errorf("--rootfs %q must be absolute", c.RootFS)
	}
	if len(c.Command) == 0 {
		return fmt.Errorf("no command given to run inside the sandbox")
	}

	seen := make(map[string]struct{}, len(c.Mounts))
	for _, m := range c.Mounts {
		if err := m.validate(); err != nil {
			return err
		}
		if _, dup := seen[m.SandboxPath]; dup {
			return fmt.Errorf("duplicate sandbox mount point %q", m.SandboxPath)
		}
		seen[m.SandboxPath] = struct{}{}
	}
	return nil
}

// FullCommand returns the command vector with Entrypoint prepended, if set.
func (c *Config) FullCommand() []string {
	if c.Entrypoint == "" {
		return c.Command
	}
	full := make([]string, 0, len(c.Command)+1)
	full = append(full, c.Entrypoint)
	full = append(full, c.Command...)
	return full
}
