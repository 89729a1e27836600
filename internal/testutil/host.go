package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/imamik/archer/internal/platform/system"
)

// FakeHost is an in-memory host. Error fields, when set, are returned by the
// corresponding method.
type FakeHost struct {
	mu sync.Mutex

	Devices   map[string]system.BlockDevice
	MountList []system.Mount
	Zones     map[string]bool
	CPU       string
	PCI       []system.PCIDevice

	BlockDeviceErr error
	MountsErr      error
	TimezoneErr    error
	CPUErr         error
	PCIErr         error
}

// NewFakeHost returns a host with one 100 GiB disk at /dev/sda, a few
// timezones, an Intel CPU and no GPU.
func NewFakeHost() *FakeHost {
	h := &FakeHost{
		Devices: map[string]system.BlockDevice{},
		Zones: map[string]bool{
			"UTC":              true,
			"America/New_York": true,
			"Europe/Berlin":    true,
		},
		CPU: "processor\t: 0\nvendor_id\t: GenuineIntel\n",
	}
	h.AddDisk("/dev/sda", 100)
	return h
}

// AddDisk registers a whole disk of sizeGiB.
func (h *FakeHost) AddDisk(path string, sizeGiB uint64) *FakeHost {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Devices[path] = system.BlockDevice{
		Path:      path,
		Name:      system.DeviceName(path),
		SizeBytes: sizeGiB << 30,
	}
	return h
}

// AddPartition registers a partition device.
func (h *FakeHost) AddPartition(path string) *FakeHost {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Devices[path] = system.BlockDevice{Path: path, Name: system.DeviceName(path), SizeBytes: 1 << 30, Partition: true}
	return h
}

// Mount adds an entry to the mount table.
func (h *FakeHost) Mount(source, target string) *FakeHost {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.MountList = append(h.MountList, system.Mount{Source: source, Target: target, FSType: "ext4"})
	return h
}

// Unmount removes every entry mounted at target.
func (h *FakeHost) Unmount(target string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	kept := h.MountList[:0]
	for _, m := range h.MountList {
		if m.Target != target {
			kept = append(kept, m)
		}
	}
	h.MountList = kept
}

// MountHook returns a FakeRunner hook that applies mount and umount commands
// to h, so mount preconditions behave as on a real machine.
func (h *FakeHost) MountHook() func(context.Context, system.Command) {
	return func(_ context.Context, c system.Command) {
		switch {
		case c.Name == "mount" && len(c.Args) == 2:
			h.Mount(c.Args[0], c.Args[1])
		case c.Name == "umount" && len(c.Args) == 1:
			h.Unmount(c.Args[0])
		}
	}
}

// AddGPU registers a display controller from vendor.
func (h *FakeHost) AddGPU(vendor uint16) *FakeHost {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.PCI = append(h.PCI, system.PCIDevice{
		Address: fmt.Sprintf("0000:%02x:00.0", len(h.PCI)+1),
		Vendor:  vendor,
		Class:   0x030000,
	})
	return h
}

// BlockDevice implements the host inspector interface.
func (h *FakeHost) BlockDevice(path string) (system.BlockDevice, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.BlockDeviceErr != nil {
		return system.BlockDevice{}, h.BlockDeviceErr
	}
	dev, ok := h.Devices[path]
	if !ok {
		return system.BlockDevice{}, fmt.Errorf("%q: %w", path, system.ErrNoDevice)
	}
	return dev, nil
}

// Mounts implements the host inspector interface.
func (h *FakeHost) Mounts() ([]system.Mount, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.MountsErr != nil {
		return nil, h.MountsErr
	}
	return append([]system.Mount(nil), h.MountList...), nil
}

// TimezoneExists implements the host inspector interface.
func (h *FakeHost) TimezoneExists(name string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.TimezoneErr != nil {
		return false, h.TimezoneErr
	}
	return h.Zones[name], nil
}

// CPUInfo implements the host inspector interface.
func (h *FakeHost) CPUInfo() (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.CPU, h.CPUErr
}

// PCIDevices implements the host inspector interface.
func (h *FakeHost) PCIDevices() ([]system.PCIDevice, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.PCIErr != nil {
		return nil, h.PCIErr
	}
	return append([]system.PCIDevice(nil), h.PCI...), nil
}
