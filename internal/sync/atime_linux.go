//go:build linux

package sync

import (
	"os"
	"syscall"
	"time"
)

func accessTime(info os.FileInfo, fallback time.Time) time.Time {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return time.Unix(int64(st.Atim.Sec), int64(st.Atim.Nsec))
	}
	return fallback
}
