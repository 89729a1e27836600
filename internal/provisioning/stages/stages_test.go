package stages

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/archer/internal/platform/system"
	"github.com/imamik/archer/internal/provisioning"
	"github.com/imamik/archer/internal/testutil"
	"github.com/imamik/archer/internal/validate"
)

func TestBuildPlan_ArchBox(t *testing.T) {
	t.Parallel()
	s := testutil.NewSessionBuilder().Build(t)

	plan := BuildPlan(s)
	require.NoError(t, plan.Validate())

	assert.Equal(t, []string{Partition, Format, Mount, Base, Configure, Users, Bootloader, Services, Drivers}, plan.StageNames())
	assert.Equal(t, []string{"createGPT", "createESP", "setBootFlag", "createRootPartition"}, testutil.StageIDs(plan, Partition))
	assert.Equal(t, []string{"formatESP", "formatRoot"}, testutil.StageIDs(plan, Format))
	assert.Equal(t, []string{"mountRoot", "createBootDir", "mountESP"}, testutil.StageIDs(plan, Mount))
	assert.Contains(t, testutil.StageIDs(plan, Configure), "createSwapFile")

	gpt, ok := plan.Action(provisioning.Position{Stage: 0, Action: 0})
	require.True(t, ok)
	assert.Equal(t, "parted -s /dev/sda mklabel gpt", gpt.Commands[0].String())
	assert.False(t, gpt.Compensable())
}

func TestBuildPlan_Deterministic(t *testing.T) {
	t.Parallel()
	b := testutil.NewSessionBuilder().WithDesktop(validate.DesktopPlasma)

	first := BuildPlan(b.Build(t))
	second := BuildPlan(b.Build(t))

	assert.Equal(t, testutil.PlanKeys(first), testutil.PlanKeys(second))
	assert.Equal(t, first.Digest(), second.Digest())
}

func TestBuildPlan_DigestTracksAnswers(t *testing.T) {
	t.Parallel()
	b := testutil.NewSessionBuilder()

	base := BuildPlan(b.Build(t)).Digest()
	other := BuildPlan(b.WithHostname("other-box").Build(t)).Digest()

	assert.NotEqual(t, base, other)
}

func TestBuildPlan_NoSwap(t *testing.T) {
	t.Parallel()
	plan := BuildPlan(testutil.NewSessionBuilder().WithSwap(0).Build(t))

	ids := testutil.StageIDs(plan, Configure)
	assert.NotContains(t, ids, "createSwapFile")
	assert.NotContains(t, ids, "formatSwapFile")
	assert.NotContains(t, ids, "registerSwapFile")
	require.NoError(t, plan.Validate())
}

func TestBuildPlan_Desktop(t *testing.T) {
	t.Parallel()

	tests := []struct {
		desktop string
		pkg     string
		unit    string
	}{
		{validate.DesktopGNOME, "gnome", "gdm.service"},
		{validate.DesktopPlasma, "plasma-meta", "sddm.service"},
		{validate.DesktopXfce, "xfce4", "lightdm.service"},
	}

	for _, tt := range tests {
		t.Run(tt.desktop, func(t *testing.T) {
			t.Parallel()
			plan := BuildPlan(testutil.NewSessionBuilder().WithDesktop(tt.desktop).Build(t))
			require.NoError(t, plan.Validate())

			names := plan.StageNames()
			require.Equal(t, Desktop, names[len(names)-1])
			stage := plan.Stages[len(plan.Stages)-1]

			batches := stage.Batches()
			require.Len(t, batches, 2)
			assert.Equal(t, provisioning.Batch{Group: desktopGroup, Start: 0, End: 3}, batches[0])

			assert.Contains(t, stage.Actions[0].Commands[0].Args, tt.pkg)
			assert.Contains(t, stage.Actions[3].Commands[0].Args, tt.unit)
		})
	}
}

func TestBuildPlan_NoDesktop(t *testing.T) {
	t.Parallel()
	plan := BuildPlan(testutil.NewSessionBuilder().Build(t))
	assert.NotContains(t, plan.StageNames(), Desktop)
}

func TestBuildPlan_NVMePartitions(t *testing.T) {
	t.Parallel()
	plan := BuildPlan(testutil.NewSessionBuilder().WithDevice("nvme0n1", 512).Build(t))

	format := plan.Stages[1]
	assert.Equal(t, "/dev/nvme0n1p1", lastArg(format.Actions[0].Commands[0]))
	assert.Equal(t, "/dev/nvme0n1p2", lastArg(format.Actions[1].Commands[0]))
}

func TestBuildPlan_PasswordsRedacted(t *testing.T) {
	t.Parallel()
	plan := BuildPlan(testutil.NewSessionBuilder().Build(t))

	for _, stage := range plan.Stages {
		for _, a := range stage.Actions {
			for _, c := range a.Commands {
				assert.NotContains(t, c.String(), testutil.PasswordHash, a.Key())
			}
		}
	}

	users := plan.Stages[5]
	require.Equal(t, Users, users.Name)
	root := users.Actions[0].Commands[0]
	assert.True(t, root.Sensitive)
	assert.Equal(t, "root:"+testutil.PasswordHash+"\n", root.Stdin)
}

func TestBuildPlan_Drivers(t *testing.T) {
	t.Parallel()
	plan := BuildPlan(testutil.NewSessionBuilder().Build(t))

	var drivers provisioning.Stage
	for _, s := range plan.Stages {
		if s.Name == Drivers {
			drivers = s
		}
	}
	batches := drivers.Batches()
	require.Len(t, batches, 2)
	assert.Equal(t, provisioning.Batch{Group: driverGroup, Start: 0, End: 5}, batches[0])
	assert.Equal(t, "regenerateBootConfig", drivers.Actions[5].ID)

	for _, a := range drivers.Actions[:5] {
		assert.True(t, a.TouchesPackageDB, a.ID)
		assert.NotNil(t, a.Applies, a.ID)
	}
}

func TestDriverApplies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	plan := BuildPlan(testutil.NewSessionBuilder().Build(t))
	drivers := plan.Stages[len(plan.Stages)-1]
	require.Equal(t, Drivers, drivers.Name)

	applies := func(h provisioning.Host) []string {
		var ids []string
		for _, a := range drivers.Actions {
			if a.Applies == nil {
				continue
			}
			ok, err := a.Applies(ctx, h)
			require.NoError(t, err)
			if ok {
				ids = append(ids, a.ID)
			}
		}
		return ids
	}

	intel := testutil.NewFakeHost()
	assert.Equal(t, []string{"installIntelMicrocode"}, applies(intel))

	amd := testutil.NewFakeHost().AddGPU(PCIVendorNVIDIA).AddGPU(PCIVendorAMD)
	amd.CPU = "vendor_id\t: AuthenticAMD\n"
	assert.Equal(t, []string{"installAMDMicrocode", "installNvidiaDriver", "installAMDGPUDriver"}, applies(amd))

	broken := testutil.NewFakeHost()
	broken.PCIErr = errors.New("sysfs unavailable")
	_, err := drivers.Actions[2].Applies(ctx, broken)
	assert.Error(t, err)
}

func TestDetectCPUVendor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cpuinfo string
		want    CPUVendor
	}{
		{"intel", "processor\t: 0\nvendor_id\t: GenuineIntel\nmodel\t: 158\n", CPUIntel},
		{"amd", "processor\t: 0\nvendor_id\t: AuthenticAMD\n", CPUAMD},
		{"first processor wins", "vendor_id\t: AuthenticAMD\n\nvendor_id\t: GenuineIntel\n", CPUAMD},
		{"other vendor", "vendor_id\t: CentaurHauls\n", CPUUnknown},
		{"arm", "processor\t: 0\nBogoMIPS\t: 48.00\n", CPUUnknown},
		{"empty", "", CPUUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, DetectCPUVendor(tt.cpuinfo))
		})
	}
}

func TestDetectGPUVendors(t *testing.T) {
	t.Parallel()

	devices := []system.PCIDevice{
		{Address: "0000:00:02.0", Vendor: PCIVendorIntel, Class: 0x030000},
		{Address: "0000:00:14.0", Vendor: PCIVendorIntel, Class: 0x0c0330},
		{Address: "0000:01:00.0", Vendor: PCIVendorNVIDIA, Class: 0x030200},
		{Address: "0000:01:00.1", Vendor: PCIVendorNVIDIA, Class: 0x040300},
		{Address: "0000:02:00.0", Vendor: PCIVendorIntel, Class: 0x038000},
	}

	assert.Equal(t, []GPUVendor{GPUNvidia, GPUIntel}, DetectGPUVendors(devices))
	assert.Empty(t, DetectGPUVendors(nil))
}

func TestPreconditions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("device idle", func(t *testing.T) {
		t.Parallel()
		h := testutil.NewFakeHost()
		assert.NoError(t, DeviceIdle(ctx, h, "/dev/sda"))

		h.Mount("/dev/sda3", "/data")
		err := DeviceIdle(ctx, h, "/dev/sda")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "busy")
	})

	t.Run("device missing", func(t *testing.T) {
		t.Parallel()
		err := DeviceIdle(ctx, testutil.NewFakeHost(), "/dev/sdz")
		assert.ErrorIs(t, err, system.ErrNoDevice)
	})

	t.Run("similarly named disk is not busy", func(t *testing.T) {
		t.Parallel()
		h := testutil.NewFakeHost().Mount("/dev/sdaa1", "/data")
		assert.NoError(t, DeviceIdle(ctx, h, "/dev/sda"))
	})

	t.Run("mount state", func(t *testing.T) {
		t.Parallel()
		h := testutil.NewFakeHost()
		assert.Error(t, mountedAt("/mnt")(ctx, h))
		assert.NoError(t, notMountedAt("/mnt")(ctx, h))

		h.Mount("/dev/sda2", "/mnt")
		assert.NoError(t, mountedAt("/mnt")(ctx, h))
		assert.Error(t, notMountedAt("/mnt")(ctx, h))
	})
}

func TestChrootActionsRequireMountedTarget(t *testing.T) {
	t.Parallel()
	plan := BuildPlan(testutil.NewSessionBuilder().WithDesktop(validate.DesktopXfce).Build(t))
	h := testutil.NewFakeHost()

	for _, stage := range plan.Stages {
		for _, a := range stage.Actions {
			if a.Commands[0].Name != "arch-chroot" {
				continue
			}
			require.NotNil(t, a.Precondition, a.Key())
			assert.Error(t, a.Precondition(context.Background(), h), a.Key())
		}
	}
}

func lastArg(c system.Command) string {
	if len(c.Args) == 0 {
		return ""
	}
	return c.Args[len(c.Args)-1]
}

func TestGrubMkconfigSharedByBootloaderAndDrivers(t *testing.T) {
	t.Parallel()
	plan := BuildPlan(testutil.NewSessionBuilder().Build(t))

	var rendered []string
	for _, stage := range plan.Stages {
		for _, a := range stage.Actions {
			for _, c := range a.Commands {
				if strings.Contains(c.String(), "grub-mkconfig") {
					rendered = append(rendered, a.Key())
				}
			}
		}
	}
	assert.Equal(t, []string{"bootloader/generateBootConfig", "drivers/regenerateBootConfig"}, rendered)
}

func TestEnableLocale(t *testing.T) {
	t.Parallel()
	plan := BuildPlan(testutil.NewSessionBuilder().WithLocale("ca_ES.UTF-8@valencia").Build(t))

	var commands []system.Command
	for _, stage := range plan.Stages {
		for _, a := range stage.Actions {
			if a.Key() == "configure/enableLocale" {
				commands = a.Commands
			}
		}
	}
	require.Len(t, commands, 1)
	assert.Equal(t, "arch-chroot", commands[0].Name)
	assert.Equal(t, []string{"/mnt", "sh", "-c", enableLocaleScript("ca_ES.UTF-8@valencia")}, commands[0].Args)
}

func TestEnableLocaleScript(t *testing.T) {
	t.Parallel()
	if _, err := exec.LookPath("sed"); err != nil {
		t.Skip("sed not available")
	}

	const localeGen = "#en_US.UTF-8 UTF-8\n#en_US ISO-8859-1\n#ca_ES.UTF-8@valencia UTF-8\n#eo UTF-8\n#sr_RS@latin UTF-8\n"

	tests := []struct {
		locale  string
		enabled string
		wantErr bool
	}{
		{locale: "en_US.UTF-8", enabled: "en_US.UTF-8 UTF-8"},
		{locale: "ca_ES.UTF-8@valencia", enabled: "ca_ES.UTF-8@valencia UTF-8"},
		{locale: "eo.UTF-8", enabled: "eo UTF-8"},
		{locale: "sr_RS.UTF-8@latin", enabled: "sr_RS@latin UTF-8"},
		{locale: "xx_YY.UTF-8", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "locale.gen")
			require.NoError(t, os.WriteFile(path, []byte(localeGen), 0o644))
			script := strings.ReplaceAll(enableLocaleScript(tt.locale), "/etc/locale.gen", path)

			err := exec.Command("sh", "-c", script).Run()
			data, rerr := os.ReadFile(path)
			require.NoError(t, rerr)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, localeGen, string(data))
				return
			}
			require.NoError(t, err)
			lines := strings.Split(string(data), "\n")
			assert.Contains(t, lines, tt.enabled)
			assert.Contains(t, lines, "#en_US ISO-8859-1")

			// enabling twice is a no-op
			require.NoError(t, exec.Command("sh", "-c", script).Run())
			again, _ := os.ReadFile(path)
			assert.Equal(t, string(data), string(again))
		})
	}
}
