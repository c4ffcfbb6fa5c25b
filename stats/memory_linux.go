//go:build linux
// +build linux

package stats

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

const procStat = "/proc/self/stat"

// vsize is field 23 of /proc/<pid>/stat.
const vsizeField = 23

// MemoryUsage returns the size of the process virtual address space in bytes.
// When /proc is unavailable it falls back to the peak resident set size.
func MemoryUsage() (int64, error) {
	if n, err := readVsize(procStat); err == nil {
		return n, nil
	}

	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return 0, os.NewSyscallError("getrusage", err)
	}
	// Maxrss is reported in kilobytes on linux.
	return int64(ru.Maxrss) * 1024, nil
}

func readVsize(path string) (int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return parseVsize(data)
}

// parseVsize extracts vsize from a stat line. The command name (field 2) is
// parenthesised and may contain spaces, so fields are counted after its
// closing parenthesis.
func parseVsize(stat []byte) (int64, error) {
	end := bytes.LastIndexByte(stat, ')')
	if end < 0 {
		return 0, fmt.Errorf("stat: missing command name")
	}
	fields := bytes.Fields(stat[end+1:])
	// fields[0] is field 3 (state).
	idx := vsizeField - 3
	if len(fields) <= idx {
		return 0, fmt.Errorf("stat: got %d fields, want more than %d", len(fields)+2, vsizeField)
	}
	return strconv.ParseInt(string(fields[idx]), 10, 64)
}
