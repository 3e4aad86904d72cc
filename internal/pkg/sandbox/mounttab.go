// Copyright (c) Contributors to the sandboxrt project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package sandbox

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// lockedFlagsByOption maps a /proc/self/mountinfo option token to the mount
// flag the kernel will refuse to clear on a bind remount.
var lockedFlagsByOption = map[string]uintptr{
	"noatime":    unix.MS_NOATIME,
	"nodiratime": unix.MS_NODIRATIME,
	"noexec":     unix.MS_NOEXEC,
	"nodev":      unix.MS_NODEV,
	"nosuid":     unix.MS_NOSUID,
	"relatime":   unix.MS_RELATIME,
}

// LockedMountFlags scans /proc/self/mountinfo for the entry whose device
// matches path's underlying st_dev, and returns the subset of locked mount
// flags currently in effect on it. It is fatal (returns an error) if no
// matching entry is found.
func LockedMountFlags(path string) (uintptr, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return 0, errors.Wrapf(err, "stat %s", path)
	}
	wantMajor, wantMinor := unix.Major(uint64(st.Dev)), unix.Minor(uint64(st.Dev))

	f, err := os.Open("/proc/self/mountinfo")
	if err != nil {
		return 0, errors.Wrap(err, "open /proc/self/mountinfo")
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 7 {
			continue
		}
		major, minor, ok := parseDevField(fields[2])
		if !ok || major != wantMajor || minor != wantMinor {
			continue
		}

		var flags uintptr
		for _, opt := range strings.Split(fields[5], ",") {
			if f, ok := lockedFlagsByOption[opt]; ok {
				flags |= f
			}
		}
		return flags, nil
	}
	if err := sc.Err(); err != nil {
		return 0, errors.Wrap(err, "read /proc/self/mountinfo")
	}
	return 0, fmt.Errorf("no mountinfo entry found for device of %s", path)
}

func parseDevField(s string) (major, minor uint32, ok bool) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	maj, err1 := strconv.ParseUint(parts[0], 10, 32)
	min, err2 := strconv.ParseUint(parts[1], 10, 32)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return uint32(maj), uint32(min), true
}
