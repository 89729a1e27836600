package session

import (
	"github.com/imamik/archer/internal/validate"
)

// ValidationState tracks a field through the prompt loop.
type ValidationState int

const (
	Unvalidated ValidationState = iota
	Valid
	Invalid
)

func (s ValidationState) String() string {
	switch s {
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	default:
		return "unvalidated"
	}
}

// Field is one answer and its validation outcome. Raw is cleared for
// secrets once validation is done.
type Field struct {
	Kind   validate.Kind
	Raw    string
	Value  string
	State  ValidationState
	Reason string
	Secret bool
}

// Question is what a Prompter shows for one field. Problem carries the
// rejection reason of the previous answer, if any.
type Question struct {
	Kind    validate.Kind
	Title   string
	Help    string
	Default string
	Options []string
	Secret  bool
	Problem string
}

// Questions returns the fields in the order they are asked.
func Questions() []Question {
	return []Question{
		{
			Kind:  validate.KindHostname,
			Title: "Hostname",
			Help:  "Name of the new machine, e.g. arch-box",
		},
		{
			Kind:  validate.KindUsername,
			Title: "Username",
			Help:  "Primary user, added to the wheel group with sudo rights",
		},
		{
			Kind:   validate.KindPassword,
			Title:  "Password",
			Help:   "Set for both root and the primary user",
			Secret: true,
		},
		{
			Kind:    validate.KindTimezone,
			Title:   "Timezone",
			Help:    "Region/City from the timezone database, e.g. America/New_York",
			Default: "UTC",
		},
		{
			Kind:    validate.KindLocale,
			Title:   "Locale",
			Help:    "System locale",
			Default: "en_US.UTF-8",
		},
		{
			Kind:  validate.KindDevice,
			Title: "Target device",
			Help:  "Whole disk to install to, e.g. sda or nvme0n1. It will be erased.",
		},
		{
			Kind:  validate.KindSwap,
			Title: "Swap size (GiB)",
			Help:  "Size of the swap file in GiB, 0 for none",
		},
		{
			Kind:    validate.KindDesktop,
			Title:   "Desktop",
			Help:    "Desktop environment to install",
			Default: validate.DesktopNone,
			Options: validate.DesktopProfiles,
		},
	}
}
