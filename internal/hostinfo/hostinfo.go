// Package hostinfo identifies the machine a run executed on. The
// summary goes into the run log header so a log file can be matched to
// its build VM after the fact.
package hostinfo

import (
	"fmt"
	"os"
)

// Info describes the host at run start.
type Info struct {
	Hostname string
	OS       string
	Kernel   string
	Arch     string
}

// Collect gathers host facts. Best effort: missing facts stay empty
// rather than failing a run over metadata.
func Collect() Info {
	info := collectPlatform()
	if info.Hostname == "" {
		info.Hostname, _ = os.Hostname()
	}
	return info
}

// Summary renders a single log-friendly line.
func (i Info) Summary() string {
	return fmt.Sprintf("host %s (%s %s %s)", i.Hostname, i.OS, i.Kernel, i.Arch)
}
