package storelock

import (
	"fmt"
	"os"
	"time"
)

// Holder identifies the process holding the store lease, as "pid@host".
type Holder string

// HolderNone indicates no process holds the lease
const HolderNone Holder = "none"

// CurrentProcess returns the holder identity of this process.
func CurrentProcess() Holder {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	return Holder(fmt.Sprintf("%d@%s", os.Getpid(), host))
}

// LockInfo represents the lease state on disk. Token is unique per
// acquisition.
type LockInfo struct {
	Holder  Holder    `json:"holder"`
	Token   string    `json:"token,omitempty"`
	SinceTS time.Time `json:"since_ts"`
}

// String returns the string representation of a Holder
func (h Holder) String() string {
	return string(h)
}

// IsValid reports whether h names a real holder
func (h Holder) IsValid() bool {
	return h != "" && h != HolderNone
}
