// Package session collects and freezes the answers for one install.
//
// A Session can only be obtained from Gather or FromAnswers, both of which
// validate every field and require the exact accept token before returning.
// Holding a *Session therefore means the answers are complete, valid and
// confirmed. Sessions are immutable.
package session

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/imamik/archer/internal/config"
	"github.com/imamik/archer/internal/validate"
)

// MountRoot is where the target system is assembled.
const MountRoot = "/mnt"

// Session is the confirmed, validated set of answers.
type Session struct {
	hostname      string
	username      string
	passwordHash  string
	timezone      string
	locale        string
	device        string
	swapGiB       uint64
	desktop       string
	capacityBytes uint64
}

func (s *Session) Hostname() string      { return s.hostname }
func (s *Session) Username() string      { return s.username }
func (s *Session) Timezone() string      { return s.timezone }
func (s *Session) Locale() string        { return s.locale }
func (s *Session) Device() string        { return s.device }
func (s *Session) SwapGiB() uint64       { return s.swapGiB }
func (s *Session) Desktop() string       { return s.desktop }
func (s *Session) CapacityBytes() uint64 { return s.capacityBytes }

// PasswordHash is the bcrypt hash set for root and the primary user.
func (s *Session) PasswordHash() string { return s.passwordHash }

// CapacityGiB is the device size rounded down to whole GiB.
func (s *Session) CapacityGiB() uint64 { return s.capacityBytes >> 30 }

// MountRoot is the directory the target root filesystem is mounted on.
func (s *Session) MountRoot() string { return MountRoot }

// ESPPartition is the EFI system partition created on the device.
func (s *Session) ESPPartition() string { return PartitionPath(s.device, 1) }

// RootPartition is the root filesystem partition created on the device.
func (s *Session) RootPartition() string { return PartitionPath(s.device, 2) }

// PartitionPath names partition n of device, following the kernel's
// convention of a "p" separator after names ending in a digit
// (/dev/sda1, /dev/nvme0n1p1, /dev/mmcblk0p1).
func PartitionPath(device string, n int) string {
	if device == "" {
		return ""
	}
	last := device[len(device)-1]
	if last >= '0' && last <= '9' {
		return fmt.Sprintf("%sp%d", device, n)
	}
	return fmt.Sprintf("%s%d", device, n)
}

// Summary renders the answers for the confirmation prompt.
func (s *Session) Summary() string {
	var b strings.Builder
	row := func(k, v string) { fmt.Fprintf(&b, "  %-10s %s\n", k+":", v) }

	b.WriteString("archer will install with these settings:\n\n")
	row("Hostname", s.hostname)
	row("Username", s.username)
	row("Password", "(set)")
	row("Timezone", s.timezone)
	row("Locale", s.locale)
	row("Device", fmt.Sprintf("%s (%d GiB)", s.device, s.CapacityGiB()))
	row("ESP", s.ESPPartition())
	row("Root", s.RootPartition())
	if s.swapGiB == 0 {
		row("Swap", "none")
	} else {
		row("Swap", fmt.Sprintf("%d GiB swap file", s.swapGiB))
	}
	row("Desktop", s.desktop)
	fmt.Fprintf(&b, "\nALL DATA ON %s WILL BE ERASED.\n", s.device)
	return b.String()
}

// Answers returns the session as an answers document for persistence. The
// password is carried only as its hash.
func (s *Session) Answers() config.Answers {
	return config.Answers{
		Hostname:     s.hostname,
		Username:     s.username,
		PasswordHash: s.passwordHash,
		Timezone:     s.timezone,
		Locale:       s.locale,
		Device:       s.device,
		Swap:         strconv.FormatUint(s.swapGiB, 10),
		Desktop:      s.desktop,
	}
}

func (s *Session) set(kind validate.Kind, value string) error {
	switch kind {
	case validate.KindHostname:
		s.hostname = value
	case validate.KindUsername:
		s.username = value
	case validate.KindPassword:
		// hashed after confirmation
	case validate.KindTimezone:
		s.timezone = value
	case validate.KindLocale:
		s.locale = value
	case validate.KindDevice:
		s.device = value
	case validate.KindSwap:
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("swap value %q: %w", value, err)
		}
		s.swapGiB = n
	case validate.KindDesktop:
		s.desktop = value
	default:
		return fmt.Errorf("unknown field %q", kind)
	}
	return nil
}
