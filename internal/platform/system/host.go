package system

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrNoDevice is returned by Host.BlockDevice when the device does not exist.
var ErrNoDevice = errors.New("no such block device")

// SwapTarget is the pseudo mount target used for active swap areas.
const SwapTarget = "[SWAP]"

// BlockDevice describes a block device as reported by sysfs.
type BlockDevice struct {
	Path      string
	Name      string
	SizeBytes uint64
	Partition bool
	Removable bool
	ReadOnly  bool
}

// Mount is one entry of the mount table (or an active swap area).
type Mount struct {
	Source string
	Target string
	FSType string
}

// PCIDevice is the subset of PCI identification archer cares about.
type PCIDevice struct {
	Address string
	Vendor  uint16
	Class   uint32
}

// Host reads system state from the usual kernel interfaces. The roots are
// configurable so tests can point them at a fixture tree.
type Host struct {
	DevRoot      string
	SysRoot      string
	ProcRoot     string
	ZoneinfoRoot string

	// deviceSize is consulted when sysfs does not report a size.
	deviceSize func(path string) (uint64, error)
}

// NewHost returns a Host bound to the live system.
func NewHost() *Host {
	return &Host{
		DevRoot:      "/dev",
		SysRoot:      "/sys",
		ProcRoot:     "/proc",
		ZoneinfoRoot: "/usr/share/zoneinfo",
		deviceSize:   ioctlDeviceSize,
	}
}

// DeviceName strips the /dev/ prefix from a device path.
func DeviceName(path string) string {
	return strings.TrimPrefix(path, "/dev/")
}

// BlockDevice looks up a block device by path ("/dev/sda") or name ("sda").
func (h *Host) BlockDevice(path string) (BlockDevice, error) {
	name := DeviceName(path)
	if name == "" || strings.Contains(name, "/") {
		return BlockDevice{}, fmt.Errorf("%q: %w", path, ErrNoDevice)
	}

	dir := filepath.Join(h.SysRoot, "class", "block", name)
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return BlockDevice{}, fmt.Errorf("%q: %w", path, ErrNoDevice)
		}
		return BlockDevice{}, fmt.Errorf("failed to inspect %s: %w", dir, err)
	}

	dev := BlockDevice{
		Path:      filepath.Join(h.DevRoot, name),
		Name:      name,
		Removable: readFlag(filepath.Join(dir, "removable")),
		ReadOnly:  readFlag(filepath.Join(dir, "ro")),
	}
	if _, err := os.Stat(filepath.Join(dir, "partition")); err == nil {
		dev.Partition = true
	}

	sectors, err := readUint(filepath.Join(dir, "size"), 10)
	switch {
	case err == nil:
		// sysfs always reports 512-byte sectors regardless of the logical block size
		dev.SizeBytes = sectors * 512
	case h.deviceSize != nil:
		size, ioErr := h.deviceSize(dev.Path)
		if ioErr != nil {
			return BlockDevice{}, fmt.Errorf("failed to query size of %s: %w", dev.Path, errors.Join(err, ioErr))
		}
		dev.SizeBytes = size
	default:
		return BlockDevice{}, fmt.Errorf("failed to query size of %s: %w", dev.Path, err)
	}

	return dev, nil
}

// Mounts returns the mount table followed by active swap areas.
func (h *Host) Mounts() ([]Mount, error) {
	mounts, err := parseMountTable(filepath.Join(h.ProcRoot, "self", "mounts"))
	if err != nil {
		return nil, err
	}
	swaps, err := parseSwaps(filepath.Join(h.ProcRoot, "swaps"))
	if err != nil {
		return nil, err
	}
	return append(mounts, swaps...), nil
}

// tzifMagic opens every compiled zone file. Metadata in the zoneinfo tree
// (zone.tab, tzdata.zi, leapseconds) lacks it.
var tzifMagic = []byte("TZif")

// TimezoneExists reports whether name is a compiled zone of the zoneinfo
// database.
func (h *Host) TimezoneExists(name string) (bool, error) {
	if name == "" || strings.HasPrefix(name, "/") || strings.Contains(name, "..") {
		return false, nil
	}
	if _, err := os.Stat(h.ZoneinfoRoot); err != nil {
		return false, fmt.Errorf("timezone database unavailable: %w", err)
	}

	path := filepath.Join(h.ZoneinfoRoot, filepath.FromSlash(name))
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to look up timezone %q: %w", name, err)
	}
	if !info.Mode().IsRegular() {
		return false, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("failed to open timezone %q: %w", name, err)
	}
	defer f.Close()

	magic := make([]byte, len(tzifMagic))
	if _, err := io.ReadFull(f, magic); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read timezone %q: %w", name, err)
	}
	return bytes.Equal(magic, tzifMagic), nil
}

// CPUInfo returns the raw contents of /proc/cpuinfo.
func (h *Host) CPUInfo() (string, error) {
	data, err := os.ReadFile(filepath.Join(h.ProcRoot, "cpuinfo"))
	if err != nil {
		return "", fmt.Errorf("failed to read cpuinfo: %w", err)
	}
	return string(data), nil
}

// PCIDevices lists PCI functions with their vendor and class codes.
func (h *Host) PCIDevices() ([]PCIDevice, error) {
	dirs, err := filepath.Glob(filepath.Join(h.SysRoot, "bus", "pci", "devices", "*"))
	if err != nil {
		return nil, fmt.Errorf("failed to list PCI devices: %w", err)
	}

	devices := make([]PCIDevice, 0, len(dirs))
	for _, dir := range dirs {
		vendor, err := readUint(filepath.Join(dir, "vendor"), 16)
		if err != nil {
			return nil, fmt.Errorf("failed to read PCI vendor for %s: %w", filepath.Base(dir), err)
		}
		class, err := readUint(filepath.Join(dir, "class"), 16)
		if err != nil {
			return nil, fmt.Errorf("failed to read PCI class for %s: %w", filepath.Base(dir), err)
		}
		devices = append(devices, PCIDevice{
			Address: filepath.Base(dir),
			Vendor:  uint16(vendor),
			Class:   uint32(class),
		})
	}
	return devices, nil
}

func parseMountTable(path string) ([]Mount, error) {
	f, err := os.Open(path) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to read mount table: %w", err)
	}
	defer f.Close()

	var mounts []Mount
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		mounts = append(mounts, Mount{
			Source: unescapeMountField(fields[0]),
			Target: unescapeMountField(fields[1]),
			FSType: fields[2],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read mount table: %w", err)
	}
	return mounts, nil
}

func parseSwaps(path string) ([]Mount, error) {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read swap table: %w", err)
	}

	var swaps []Mount
	lines := strings.Split(string(data), "\n")
	for i, line := range lines {
		fields := strings.Fields(line)
		// first line is the column header
		if i == 0 || len(fields) == 0 {
			continue
		}
		swaps = append(swaps, Mount{
			Source: unescapeMountField(fields[0]),
			Target: SwapTarget,
			FSType: "swap",
		})
	}
	return swaps, nil
}

// unescapeMountField decodes the octal escapes the kernel uses for spaces,
// tabs, newlines and backslashes in mount paths.
func unescapeMountField(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+3 < len(s) {
			if v, err := strconv.ParseUint(s[i+1:i+4], 8, 8); err == nil {
				b.WriteByte(byte(v))
				i += 3
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func readUint(path string, base int) (uint64, error) {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return 0, err
	}
	s := strings.TrimPrefix(strings.TrimSpace(string(data)), "0x")
	return strconv.ParseUint(s, base, 64)
}

func readFlag(path string) bool {
	v, err := readUint(path, 10)
	return err == nil && v == 1
}
