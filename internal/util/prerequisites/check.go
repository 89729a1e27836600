// Package prerequisites checks that the host can run an install: the
// distribution tools the plan invokes are on PATH and the process is root.
package prerequisites

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"
)

// ErrNotRoot is returned by CheckPrivileges for unprivileged processes.
var ErrNotRoot = errors.New("archer must run as root to partition disks and install packages")

// Tool represents a program the install plan invokes.
type Tool struct {
	// Name is the binary name to look for in PATH.
	Name string

	// Required indicates if this tool is mandatory.
	Required bool

	// Description explains what the tool is used for.
	Description string

	// Package is the distribution package that ships the tool.
	Package string
}

// Seams for tests.
var (
	lookPath = exec.LookPath
	geteuid  = unix.Geteuid
)

// DefaultTools returns the tools run on the live system.
func DefaultTools() []Tool {
	return []Tool{
		{Name: "parted", Required: true, Description: "Partitions the target device", Package: "parted"},
		{Name: "mkfs.fat", Required: true, Description: "Formats the EFI system partition", Package: "dosfstools"},
		{Name: "mkfs.ext4", Required: true, Description: "Formats the root partition", Package: "e2fsprogs"},
		{Name: "mount", Required: true, Description: "Mounts the new filesystems", Package: "util-linux"},
		{Name: "umount", Required: true, Description: "Unmounts filesystems during rollback", Package: "util-linux"},
		{Name: "pacstrap", Required: true, Description: "Installs the base system", Package: "arch-install-scripts"},
		{Name: "genfstab", Required: true, Description: "Generates /etc/fstab", Package: "arch-install-scripts"},
		{Name: "arch-chroot", Required: true, Description: "Runs configuration inside the new system", Package: "arch-install-scripts"},
		{Name: "sh", Required: true, Description: "Runs redirections for fstab and swap entries", Package: "bash"},
	}
}

// OptionalTools returns tools that are useful but not required.
func OptionalTools() []Tool {
	return []Tool{
		{Name: "lsblk", Required: false, Description: "Lists block devices when choosing a target", Package: "util-linux"},
	}
}

// CheckResult contains the result of checking a single tool.
type CheckResult struct {
	Tool  Tool
	Found bool
	Path  string
}

// CheckResults contains the results of checking multiple tools.
type CheckResults struct {
	Results []CheckResult
	Missing []Tool
}

// HasErrors returns true if any required tools are missing.
func (r *CheckResults) HasErrors() bool {
	for _, tool := range r.Missing {
		if tool.Required {
			return true
		}
	}
	return false
}

// Error returns an error if any required tools are missing.
func (r *CheckResults) Error() error {
	var missing []string
	for _, tool := range r.Missing {
		if tool.Required {
			missing = append(missing, fmt.Sprintf("%s (package %s)", tool.Name, tool.Package))
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing required tools: %s", strings.Join(missing, ", "))
}

// Check verifies that the specified tools are available.
func Check(tools []Tool) *CheckResults {
	results := &CheckResults{}

	for _, tool := range tools {
		result := CheckResult{Tool: tool}

		path, err := lookPath(tool.Name)
		if err == nil {
			result.Found = true
			result.Path = path
		} else {
			results.Missing = append(results.Missing, tool)
		}

		results.Results = append(results.Results, result)
	}

	return results
}

// CheckDefault checks the default required tools.
func CheckDefault() *CheckResults {
	return Check(DefaultTools())
}

// CheckAll checks all tools (default + optional).
func CheckAll() *CheckResults {
	defaults := DefaultTools()
	optional := OptionalTools()
	all := make([]Tool, 0, len(defaults)+len(optional))
	all = append(all, defaults...)
	all = append(all, optional...)
	return Check(all)
}

// CheckPrivileges returns ErrNotRoot unless the effective user is root.
func CheckPrivileges() error {
	if geteuid() != 0 {
		return ErrNotRoot
	}
	return nil
}
