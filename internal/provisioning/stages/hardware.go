package stages

import (
	"bufio"
	"context"
	"strings"

	"github.com/imamik/archer/internal/platform/system"
	"github.com/imamik/archer/internal/provisioning"
	"github.com/imamik/archer/internal/session"
)

// CPUVendor identifies a CPU manufacturer.
type CPUVendor string

const (
	CPUUnknown CPUVendor = ""
	CPUIntel   CPUVendor = "intel"
	CPUAMD     CPUVendor = "amd"
)

// GPUVendor identifies a display controller manufacturer.
type GPUVendor string

const (
	GPUNvidia GPUVendor = "nvidia"
	GPUAMD    GPUVendor = "amd"
	GPUIntel  GPUVendor = "intel"
)

// PCI vendor IDs.
const (
	PCIVendorNVIDIA uint16 = 0x10de
	PCIVendorAMD    uint16 = 0x1002
	PCIVendorIntel  uint16 = 0x8086
)

// pciClassDisplay is the PCI base class of display controllers.
const pciClassDisplay = 0x03

// DetectCPUVendor reads the vendor_id of the first processor in cpuinfo.
func DetectCPUVendor(cpuinfo string) CPUVendor {
	scanner := bufio.NewScanner(strings.NewReader(cpuinfo))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok || strings.TrimSpace(key) != "vendor_id" {
			continue
		}
		switch strings.TrimSpace(value) {
		case "GenuineIntel":
			return CPUIntel
		case "AuthenticAMD":
			return CPUAMD
		default:
			return CPUUnknown
		}
	}
	return CPUUnknown
}

// DetectGPUVendors returns the vendors of all display controllers, each
// once, in NVIDIA, AMD, Intel order.
func DetectGPUVendors(devices []system.PCIDevice) []GPUVendor {
	found := map[GPUVendor]bool{}
	for _, d := range devices {
		if d.Class>>16 != pciClassDisplay {
			continue
		}
		switch d.Vendor {
		case PCIVendorNVIDIA:
			found[GPUNvidia] = true
		case PCIVendorAMD:
			found[GPUAMD] = true
		case PCIVendorIntel:
			found[GPUIntel] = true
		}
	}

	var out []GPUVendor
	for _, v := range []GPUVendor{GPUNvidia, GPUAMD, GPUIntel} {
		if found[v] {
			out = append(out, v)
		}
	}
	return out
}

func cpuIs(want CPUVendor) func(context.Context, provisioning.Host) (bool, error) {
	return func(_ context.Context, h provisioning.Host) (bool, error) {
		info, err := h.CPUInfo()
		if err != nil {
			return false, err
		}
		return DetectCPUVendor(info) == want, nil
	}
}

func hasGPU(want GPUVendor) func(context.Context, provisioning.Host) (bool, error) {
	return func(_ context.Context, h provisioning.Host) (bool, error) {
		devices, err := h.PCIDevices()
		if err != nil {
			return false, err
		}
		for _, v := range DetectGPUVendors(devices) {
			if v == want {
				return true, nil
			}
		}
		return false, nil
	}
}

// driverGroup is the parallel group of hardware-specific package installs.
const driverGroup = "drivers"

func driverAction(s *session.Session, id, description string, applies func(context.Context, provisioning.Host) (bool, error), packages ...string) provisioning.Action {
	return inTarget(s, provisioning.Action{
		ID:               id,
		Description:      description,
		Commands:         []system.Command{pacman(s, packages...)},
		Idempotent:       true,
		ParallelGroup:    driverGroup,
		TouchesPackageDB: true,
		Applies:          applies,
	})
}

func driversStage(s *session.Session) provisioning.Stage {
	return newStage(Drivers, "Install CPU microcode and GPU drivers for the detected hardware",
		driverAction(s, "installIntelMicrocode", "Install Intel CPU microcode", cpuIs(CPUIntel), "intel-ucode"),
		driverAction(s, "installAMDMicrocode", "Install AMD CPU microcode", cpuIs(CPUAMD), "amd-ucode"),
		driverAction(s, "installNvidiaDriver", "Install the NVIDIA driver", hasGPU(GPUNvidia), "nvidia", "nvidia-utils"),
		driverAction(s, "installAMDGPUDriver", "Install AMD GPU drivers", hasGPU(GPUAMD), "mesa", "vulkan-radeon", "xf86-video-amdgpu"),
		driverAction(s, "installIntelGPUDriver", "Install Intel GPU drivers", hasGPU(GPUIntel), "mesa", "vulkan-intel", "intel-media-driver"),
		inTarget(s, provisioning.Action{
			ID:          "regenerateBootConfig",
			Description: "Regenerate the GRUB configuration to load microcode",
			Commands:    []system.Command{grubMkconfig(s)},
			Idempotent:  true,
		}),
	)
}
