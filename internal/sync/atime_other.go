//go:build !linux

package sync

import (
	"os"
	"time"
)

// accessTime falls back to the modification time where the platform's stat
// structure is not inspected.
func accessTime(_ os.FileInfo, fallback time.Time) time.Time {
	return fallback
}
