// Package runtime reports details of the host the tools run on.
package runtime

import (
	"fmt"
	"math"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

const unknown = "unknown"

// RLIM_INFINITY is int on some architectures.
var unlimited uint64 = syscall.RLIM_INFINITY & math.MaxUint64

// Uname returns system name, release, version, machine and node name of the
// host.
func Uname() string {
	buf := unix.Utsname{}
	if err := unix.Uname(&buf); err != nil {
		return unknown
	}

	fields := []string{
		unix.ByteSliceToString(buf.Sysname[:]),
		unix.ByteSliceToString(buf.Release[:]),
		unix.ByteSliceToString(buf.Version[:]),
		unix.ByteSliceToString(buf.Machine[:]),
		unix.ByteSliceToString(buf.Nodename[:]),
	}

	return "(" + strings.Join(fields, " ") + ")"
}

func formatLimit(v uint64) string {
	if v == unlimited {
		return "unlimited"
	}

	return fmt.Sprintf("%d", v)
}

// FdLimits returns the soft and hard limits for open files.
func FdLimits() string {
	var rlimit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rlimit); err != nil {
		return unknown
	}

	// Cur and Max are int64 on some platforms
	return fmt.Sprintf("(soft=%s, hard=%s)", formatLimit(uint64(rlimit.Cur)), formatLimit(uint64(rlimit.Max)))
}
