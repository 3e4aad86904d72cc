// Copyright (c) Contributors to the sandboxrt project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package sandbox

import (
	"testing"

	"gotest.tools/v3/assert"
)

func validConfig() *Config {
	return &Config{
		RootFS:  "/var/lib/sandboxrt/roots/alpine",
		Command: []string{"/bin/sh"},
	}
}

func TestConfigValidateRequiresRootFS(t *testing.T) {
	cfg := validConfig()
	cfg.RootFS = ""
	assert.ErrorContains(t, cfg.Validate(), "--rootfs is required")
}

func TestConfigValidateRequiresAbsoluteRootFS(t *testing.T) {
	cfg := validConfig()
	cfg.RootFS = "relative/path"
	assert.ErrorContains(t, cfg.Validate(), "must be absolute")
}

func TestConfigValidateRequiresCommand(t *testing.T) {
	cfg := validConfig()
	cfg.Command = nil
	assert.ErrorContains(t, cfg.Validate(), "no command")
}

func TestConfigValidateRejectsDuplicateMountPoints(t *testing.T) {
	cfg := validConfig()
	cfg.Mounts = []MountRequest{
		{OutsidePath: "/srv/a", SandboxPath: "/data"},
		{OutsidePath: "/srv/b", SandboxPath: "/data"},
	}
	assert.ErrorContains(t, cfg.Validate(), "duplicate sandbox mount point")
}

func TestConfigValidateAcceptsWellFormedMounts(t *testing.T) {
	cfg := validConfig()
	cfg.Mounts = []MountRequest{
		{OutsidePath: "/srv/a", SandboxPath: "/data", Kind: ReadOnly},
		{OutsidePath: "/srv/b", SandboxPath: "/cache", Kind: Overlayed},
	}
	assert.NilError(t, cfg.Validate())
}

func TestMountRequestValidateRejectsRelativeHostPath(t *testing.T) {
	m := MountRequest{OutsidePath: "rel", SandboxPath: "/data"}
	assert.ErrorContains(t, m.validate(), "must be absolute")
}

func TestMountRequestValidateRejectsMissingSandboxPath(t *testing.T) {
	m := MountRequest{OutsidePath: "/srv/a"}
	assert.ErrorContains(t, m.validate(), "missing a sandbox path")
}

func TestFullCommandPrependsEntrypoint(t *testing.T) {
	cfg := validConfig()
	cfg.Entrypoint = "/usr/bin/env"
	cfg.Command = []string{"sh", "-c", "true"}

	assert.DeepEqual(t, cfg.FullCommand(), []string{"/usr/bin/env", "sh", "-c", "true"})
}

func TestFullCommandWithoutEntrypoint(t *testing.T) {
	cfg := validConfig()
	cfg.Command = []string{"/bin/sh"}

	assert.DeepEqual(t, cfg.FullCommand(), []string{"/bin/sh"})
}

func TestMountKindString(t *testing.T) {
	assert.Equal(t, ReadWrite.String(), "rw")
	assert.Equal(t, ReadOnly.String(), "ro")
	assert.Equal(t, Overlayed.String(), "ov")
}
