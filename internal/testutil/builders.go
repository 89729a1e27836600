package testutil

import (
	"context"
	"strconv"
	"testing"

	"github.com/imamik/archer/internal/config"
	"github.com/imamik/archer/internal/platform/system"
	"github.com/imamik/archer/internal/session"
	"github.com/imamik/archer/internal/validate"
)

// PasswordHash is a syntactically valid bcrypt hash (cost 4) used where
// tests need a session but not real hashing.
const PasswordHash = "$2a$04$abcdefghijklmnopqrstuv0123456789ABCDEFGHIJKLMNOPQRSTU"

// SessionBuilder provides a fluent interface for constructing confirmed
// sessions. Each method returns a new builder (immutable) for chaining.
type SessionBuilder struct {
	answers  config.Answers
	disks    map[string]uint64
	timezone string
}

// NewSessionBuilder creates a builder for the arch-box scenario: /dev/sda of
// 100 GiB, 4 GiB swap, no desktop.
func NewSessionBuilder() *SessionBuilder {
	return &SessionBuilder{
		answers: config.Answers{
			Hostname:     "arch-box",
			Username:     "sam",
			PasswordHash: PasswordHash,
			Timezone:     "America/New_York",
			Locale:       "en_US.UTF-8",
			Device:       "sda",
			Swap:         "4",
			Desktop:      validate.DesktopNone,
		},
		disks: map[string]uint64{"/dev/sda": 100},
	}
}

func (b *SessionBuilder) clone() *SessionBuilder {
	disks := make(map[string]uint64, len(b.disks))
	for k, v := range b.disks {
		disks[k] = v
	}
	return &SessionBuilder{answers: b.answers, disks: disks, timezone: b.timezone}
}

// WithHostname sets the hostname.
func (b *SessionBuilder) WithHostname(name string) *SessionBuilder {
	nb := b.clone()
	nb.answers.Hostname = name
	return nb
}

// WithUsername sets the primary user.
func (b *SessionBuilder) WithUsername(name string) *SessionBuilder {
	nb := b.clone()
	nb.answers.Username = name
	return nb
}

// WithTimezone sets the timezone and makes it exist on the fake host.
func (b *SessionBuilder) WithTimezone(tz string) *SessionBuilder {
	nb := b.clone()
	nb.answers.Timezone = tz
	nb.timezone = tz
	return nb
}

// WithLocale sets the locale.
func (b *SessionBuilder) WithLocale(locale string) *SessionBuilder {
	nb := b.clone()
	nb.answers.Locale = locale
	return nb
}

// WithDevice targets name ("sda", "/dev/nvme0n1") with the given capacity.
func (b *SessionBuilder) WithDevice(name string, capacityGiB uint64) *SessionBuilder {
	nb := b.clone()
	nb.answers.Device = name
	path, _ := validate.NormalizeDevice(name)
	nb.disks[path] = capacityGiB
	return nb
}

// WithSwap sets the swap size in GiB.
func (b *SessionBuilder) WithSwap(gib uint64) *SessionBuilder {
	nb := b.clone()
	nb.answers.Swap = strconv.FormatUint(gib, 10)
	return nb
}

// WithDesktop sets the desktop profile.
func (b *SessionBuilder) WithDesktop(profile string) *SessionBuilder {
	nb := b.clone()
	nb.answers.Desktop = profile
	return nb
}

// Answers returns the answers the session will be built from.
func (b *SessionBuilder) Answers() config.Answers {
	return b.answers
}

// Host returns a fake host on which the answers validate.
func (b *SessionBuilder) Host() *FakeHost {
	h := NewFakeHost()
	h.Devices = map[string]system.BlockDevice{}
	for path, gib := range b.disks {
		h.AddDisk(path, gib)
	}
	if b.timezone != "" {
		h.Zones[b.timezone] = true
	}
	return h
}

// Build validates and confirms the answers, failing the test on error.
func (b *SessionBuilder) Build(t testing.TB) *session.Session {
	t.Helper()
	s, err := session.FromAnswers(context.Background(), b.answers, validate.New(b.Host()), true)
	if err != nil {
		t.Fatalf("failed to build session: %v", err)
	}
	return s
}
