package validate

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
)

const (
	maxHostnameLength = 253
	maxLabelLength    = 63
	maxUsernameLength = 32

	// bcrypt ignores everything past 72 bytes.
	maxPasswordLength = 72
)

// Hostname checks the RFC-1123 host name grammar: dot-separated labels of
// letters, digits and interior hyphens, each at most 63 characters, 253 in
// total. The accepted value is lowercased.
func Hostname(raw string) Result {
	if raw == "" {
		return Invalid("hostname is required")
	}
	if len(raw) > maxHostnameLength {
		return Invalid("hostname is %d characters long, the limit is %d", len(raw), maxHostnameLength)
	}
	for _, label := range strings.Split(raw, ".") {
		if reason := checkLabel(label); reason != "" {
			return Invalid("hostname label %q %s", label, reason)
		}
	}
	return Valid(strings.ToLower(raw))
}

func checkLabel(label string) string {
	switch {
	case label == "":
		return "is empty"
	case len(label) > maxLabelLength:
		return "is longer than 63 characters"
	case label[0] == '-' || label[len(label)-1] == '-':
		return "must not start or end with a hyphen"
	}
	for i := 0; i < len(label); i++ {
		c := label[i]
		if !isAlnum(c) && c != '-' {
			return "may only contain letters, digits and hyphens"
		}
	}
	return ""
}

func isAlnum(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

var usernameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_-]*$`)

// reservedUsernames are accounts shipped by the base system.
var reservedUsernames = []string{
	"root", "bin", "daemon", "sys", "adm", "nobody", "mail", "ftp", "http",
	"dbus", "polkitd", "rtkit", "avahi", "colord", "git", "uuidd", "dhcpcd",
	"tss", "alpm", "gdm", "sddm", "lightdm",
}

// Username checks a login name for the primary user.
func Username(raw string) Result {
	switch {
	case raw == "":
		return Invalid("username is required")
	case len(raw) > maxUsernameLength:
		return Invalid("username is longer than %d characters", maxUsernameLength)
	case !usernameRegex.MatchString(raw):
		return Invalid("username must start with a lowercase letter or underscore and contain only a-z, 0-9, _ and -")
	case slices.Contains(reservedUsernames, raw) || strings.HasPrefix(raw, "systemd-"):
		return Invalid("%q is reserved for a system account", raw)
	}
	return Valid(raw)
}

// Password checks a login password. The value is never echoed in reasons.
func Password(raw string) Result {
	switch {
	case raw == "":
		return Invalid("password must not be empty")
	case len(raw) > maxPasswordLength:
		return Invalid("password is longer than %d bytes", maxPasswordLength)
	case strings.ContainsAny(raw, "\r\n"):
		return Invalid("password must not contain line breaks")
	}
	return Valid(raw)
}

// Swap checks a swap size in whole GiB against the device capacity in bytes.
func Swap(raw string, capacityBytes uint64) Result {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Invalid("swap size is required (0 disables swap)")
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return Invalid("swap size %q must be a non-negative whole number of GiB", raw)
	}
	capacity := capacityBytes >> 30
	if n > capacity {
		return Invalid("swap size of %d GiB exceeds device capacity of %d GiB", n, capacity)
	}
	return Valid(strconv.FormatUint(n, 10))
}

// language[_TERRITORY].UTF-8[@modifier], the order glibc parses.
var localeRegex = regexp.MustCompile(`^[a-z]{2,3}(_[A-Z]{2})?\.UTF-8(@[a-z]+)?$`)

// Locale checks a UTF-8 locale name such as en_US.UTF-8 or
// ca_ES.UTF-8@valencia. Whether the target ships it is only known once
// locale.gen exists, so enabling an unknown locale fails the install.
func Locale(raw string) Result {
	s := strings.TrimSpace(raw)
	if !localeRegex.MatchString(s) {
		return Invalid("locale %q must look like en_US.UTF-8", raw)
	}
	return Valid(s)
}

// Desktop profile names.
const (
	DesktopNone   = "none"
	DesktopGNOME  = "gnome"
	DesktopPlasma = "plasma"
	DesktopXfce   = "xfce"
)

// DesktopProfiles lists the accepted desktop answers.
var DesktopProfiles = []string{DesktopNone, DesktopGNOME, DesktopPlasma, DesktopXfce}

// Desktop checks a desktop profile name.
func Desktop(raw string) Result {
	s := strings.ToLower(strings.TrimSpace(raw))
	if !slices.Contains(DesktopProfiles, s) {
		return Invalid("desktop %q must be one of %s", raw, strings.Join(DesktopProfiles, ", "))
	}
	return Valid(s)
}
