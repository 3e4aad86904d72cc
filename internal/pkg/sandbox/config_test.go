// Copyright (c) Contributors to the sandboxrt project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package sandbox

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestParseArgsMinimal(t *testing.T) {
	cfg, err := ParseArgs("sandboxrt", []string{"--rootfs", "/roots/alpine", "--", "/bin/sh", "-c", "true"})
	assert.NilError(t, err)
	assert.Equal(t, cfg.RootFS, "/roots/alpine")
	assert.DeepEqual(t, cfg.Command, []string{"/bin/sh", "-c", "true"})
}

func TestParseArgsStripsTrailingSlashFromRootfs(t *testing.T) {
	cfg, err := ParseArgs("sandboxrt", []string{"--rootfs", "/roots/alpine/", "/bin/true"})
	assert.NilError(t, err)
	assert.Equal(t, cfg.RootFS, "/roots/alpine")
}

func TestParseArgsMounts(t *testing.T) {
	cfg, err := ParseArgs("sandboxrt", []string{
		"--rootfs", "/roots/alpine",
		"--mount", "/srv/data:/data:ro",
		"--mount", "/srv/cache:/cache:ov",
		"--mount", "/srv/scratch:/scratch",
		"/bin/true",
	})
	assert.NilError(t, err)
	assert.Equal(t, len(cfg.Mounts), 3)
	assert.Equal(t, cfg.Mounts[0].Kind, ReadOnly)
	assert.Equal(t, cfg.Mounts[1].Kind, Overlayed)
	assert.Equal(t, cfg.Mounts[2].Kind, ReadWrite)
}

func TestParseArgsRejectsBadMountMode(t *testing.T) {
	_, err := ParseArgs("sandboxrt", []string{"--rootfs", "/roots/alpine", "--mount", "/srv:/dst:bogus", "/bin/true"})
	assert.ErrorContains(t, err, "unknown mode")
}

func TestParseArgsRejectsMissingRootfs(t *testing.T) {
	_, err := ParseArgs("sandboxrt", []string{"/bin/true"})
	assert.ErrorContains(t, err, "--rootfs is required")
}

func TestParseArgsStopsAtFirstPositional(t *testing.T) {
	cfg, err := ParseArgs("sandboxrt", []string{"--rootfs", "/roots/alpine", "/bin/sh", "--verbose"})
	assert.NilError(t, err)
	assert.DeepEqual(t, cfg.Command, []string{"/bin/sh", "--verbose"})
	assert.Assert(t, !cfg.Verbose)
}

func TestParseMountSpecDefaultsToReadWrite(t *testing.T) {
	req, err := parseMountSpec("/srv/data:/data")
	assert.NilError(t, err)
	assert.Equal(t, req.Kind, ReadWrite)
	assert.Equal(t, req.OutsidePath, "/srv/data")
	assert.Equal(t, req.SandboxPath, "/data")
}

func TestParseMountSpecRejectsMalformedSpec(t *testing.T) {
	_, err := parseMountSpec("/srv/data")
	assert.ErrorContains(t, err, "HOST:GUEST")
}
