// Package validate checks user-supplied install answers.
//
// Every check returns a Result. Invalid input is a normal outcome, not an
// error; the error return is reserved for failures to inspect the host
// (missing sysfs, unreadable zoneinfo database) and always wraps
// ErrEnvironment.
package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/imamik/archer/internal/platform/system"
	"github.com/imamik/archer/internal/provisioning"
)

// ErrEnvironment marks failures to query the host.
var ErrEnvironment = errors.New("environment query failed")

// Kind names the answer being validated.
type Kind string

const (
	KindHostname Kind = "hostname"
	KindUsername Kind = "username"
	KindPassword Kind = "password"
	KindTimezone Kind = "timezone"
	KindLocale   Kind = "locale"
	KindDevice   Kind = "device"
	KindSwap     Kind = "swap"
	KindDesktop  Kind = "desktop"
)

// Result is the outcome of validating one answer. Value holds the
// normalized input when Valid is set, Reason explains the rejection otherwise.
type Result struct {
	Valid  bool
	Value  string
	Reason string
}

// Valid returns an accepting Result.
func Valid(value string) Result {
	return Result{Valid: true, Value: value}
}

// Invalid returns a rejecting Result with a formatted reason.
func Invalid(format string, args ...any) Result {
	return Result{Reason: fmt.Sprintf(format, args...)}
}

// Context carries values earlier answers established.
type Context struct {
	// DeviceCapacity is the size in bytes of the chosen target device.
	DeviceCapacity uint64
}

// Environment is the subset of the host the validator inspects.
type Environment interface {
	BlockDevice(path string) (system.BlockDevice, error)
	Mounts() ([]system.Mount, error)
	TimezoneExists(name string) (bool, error)
}

// Validator dispatches answers to their checks.
type Validator struct {
	env Environment
}

// New returns a Validator that inspects env for timezone and device checks.
func New(env Environment) *Validator {
	return &Validator{env: env}
}

// Validate checks raw as an answer of the given kind.
func (v *Validator) Validate(kind Kind, raw string, vctx Context) (Result, error) {
	switch kind {
	case KindHostname:
		return Hostname(raw), nil
	case KindUsername:
		return Username(raw), nil
	case KindPassword:
		return Password(raw), nil
	case KindLocale:
		return Locale(raw), nil
	case KindDesktop:
		return Desktop(raw), nil
	case KindSwap:
		return Swap(raw, vctx.DeviceCapacity), nil
	case KindTimezone:
		return v.timezone(raw)
	case KindDevice:
		return v.device(raw)
	default:
		return Result{}, fmt.Errorf("unknown answer kind %q", kind)
	}
}

// DeviceCapacity returns the byte size of a validated device path.
func (v *Validator) DeviceCapacity(path string) (uint64, error) {
	dev, err := v.env.BlockDevice(path)
	if err != nil {
		return 0, envError(KindDevice, err)
	}
	return dev.SizeBytes, nil
}

func envError(kind Kind, err error) error {
	return provisioning.NewError(
		provisioning.KindEnvironmentQueryFailed,
		"validate "+string(kind),
		fmt.Errorf("%w: %w", ErrEnvironment, err),
	)
}

func (v *Validator) timezone(raw string) (Result, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return Invalid("timezone is required"), nil
	}
	ok, err := v.env.TimezoneExists(name)
	if err != nil {
		return Result{}, envError(KindTimezone, err)
	}
	if !ok {
		return Invalid("%q is not in the timezone database", name), nil
	}
	return Valid(name), nil
}

// protectedMountpoints may never be on the target device.
var protectedMountpoints = map[string]bool{
	"/":               true,
	"/boot":           true,
	"/boot/efi":       true,
	"/efi":            true,
	"/home":           true,
	"/usr":            true,
	"/var":            true,
	system.SwapTarget: true,
}

// NormalizeDevice turns "sda" into "/dev/sda". ok is false for paths
// outside /dev.
func NormalizeDevice(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	switch {
	case s == "":
		return "", false
	case strings.HasPrefix(s, "/dev/"):
		return s, len(s) > len("/dev/")
	case strings.Contains(s, "/"):
		return "", false
	default:
		return "/dev/" + s, true
	}
}

// OnDevice reports whether source is device itself or one of its
// partitions ("/dev/sda2", "/dev/nvme0n1p2").
func OnDevice(source, device string) bool {
	if source == device {
		return true
	}
	rest, ok := strings.CutPrefix(source, device)
	if !ok || rest == "" {
		return false
	}
	rest = strings.TrimPrefix(rest, "p")
	if rest == "" {
		return false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (v *Validator) device(raw string) (Result, error) {
	path, ok := NormalizeDevice(raw)
	if !ok {
		return Invalid("%q is not a device name (expected e.g. sda or /dev/nvme0n1)", raw), nil
	}

	dev, err := v.env.BlockDevice(path)
	if errors.Is(err, system.ErrNoDevice) {
		return Invalid("%s is not a block device", path), nil
	}
	if err != nil {
		return Result{}, envError(KindDevice, err)
	}
	if dev.Partition {
		return Invalid("%s is a partition; choose a whole disk", path), nil
	}
	if dev.ReadOnly {
		return Invalid("%s is read-only", path), nil
	}
	if dev.SizeBytes == 0 {
		return Invalid("%s reports no capacity", path), nil
	}

	mounts, err := v.env.Mounts()
	if err != nil {
		return Result{}, envError(KindDevice, err)
	}
	for _, m := range mounts {
		if OnDevice(m.Source, dev.Path) && protectedMountpoints[m.Target] {
			return Invalid("%s is in use: %s is mounted at %s", dev.Path, m.Source, m.Target), nil
		}
	}

	return Valid(dev.Path), nil
}
