// Copyright (c) Contributors to the sandboxrt project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package sandbox

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
)

// ConfigureUserNamespace writes the one-entry UID/GID mapping and the
// setgroups-denial flag into the kernel interface for the process pid,
// establishing srcUID/srcGID (host) <-> dstUID/dstGID (in-namespace).
// Ordering is mandatory: uid_map, then
// setgroups=deny, then gid_map; each write must exactly consume the fd's
// single permitted write.
func ConfigureUserNamespace(pid, srcUID, srcGID, dstUID, dstGID int) error {
	if err := writeProcFile(pid, "uid_map", fmt.Sprintf("%d\t%d\t1\n", dstUID, srcUID)); err != nil {
		return errors.Wrap(err, "write uid_map")
	}
	if err := writeProcFile(pid, "setgroups", "deny\x00"); err != nil {
		return errors.Wrap(err, "write setgroups")
	}
	if err := writeProcFile(pid, "gid_map", fmt.Sprintf("%d\t%d\t1", dstGID, srcGID)); err != nil {
		return errors.Wrap(err, "write gid_map")
	}
	return nil
}

func writeProcFile(pid int, name, content string) error {
	path := fmt.Sprintf("/proc/%d/%s", pid, name)
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	n, err := f.Write([]byte(content))
	if err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	if n != len(content) {
		return fmt.Errorf("short write to %s: wrote %d of %d bytes", path, n, len(content))
	}
	return nil
}
