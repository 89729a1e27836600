package stages

import (
	"github.com/imamik/archer/internal/platform/system"
	"github.com/imamik/archer/internal/provisioning"
	"github.com/imamik/archer/internal/session"
)

// ESP layout: 512 MiB starting at 1 MiB for alignment.
const (
	espStart = "1MiB"
	espEnd   = "513MiB"
)

func parted(device string, args ...string) system.Command {
	return cmd("parted", append([]string{"-s", device}, args...)...)
}

func partitionStage(s *session.Session) provisioning.Stage {
	d := s.Device()
	idle := deviceIdle(d)

	return newStage(Partition, "Partition "+d+" (GPT, EFI system partition, root)",
		provisioning.Action{
			ID:           "createGPT",
			Description:  "Write a new GPT partition table to " + d,
			Commands:     []system.Command{parted(d, "mklabel", "gpt")},
			Precondition: idle,
		},
		provisioning.Action{
			ID:           "createESP",
			Description:  "Create the EFI system partition " + s.ESPPartition(),
			Commands:     []system.Command{parted(d, "mkpart", "ESP", "fat32", espStart, espEnd)},
			Compensation: []system.Command{parted(d, "rm", "1")},
			Precondition: idle,
		},
		provisioning.Action{
			ID:           "setBootFlag",
			Description:  "Flag partition 1 as the EFI system partition",
			Commands:     []system.Command{parted(d, "set", "1", "esp", "on")},
			Idempotent:   true,
			Precondition: idle,
		},
		provisioning.Action{
			ID:           "createRootPartition",
			Description:  "Create the root partition " + s.RootPartition() + " on the remaining space",
			Commands:     []system.Command{parted(d, "mkpart", "root", "ext4", espEnd, "100%")},
			Compensation: []system.Command{parted(d, "rm", "2")},
			Precondition: idle,
		},
	)
}

func formatStage(s *session.Session) provisioning.Stage {
	idle := deviceIdle(s.Device())

	return newStage(Format, "Create filesystems",
		provisioning.Action{
			ID:           "formatESP",
			Description:  "Create a FAT32 filesystem on " + s.ESPPartition(),
			Commands:     []system.Command{cmd("mkfs.fat", "-F", "32", "-n", "EFI", s.ESPPartition())},
			Idempotent:   true,
			Precondition: idle,
		},
		provisioning.Action{
			ID:           "formatRoot",
			Description:  "Create an ext4 filesystem on " + s.RootPartition(),
			Commands:     []system.Command{cmd("mkfs.ext4", "-F", "-L", "archroot", s.RootPartition())},
			Idempotent:   true,
			Precondition: idle,
		},
	)
}

func mountStage(s *session.Session) provisioning.Stage {
	root := s.MountRoot()
	boot := root + "/boot"

	return newStage(Mount, "Mount the new filesystems under "+root,
		provisioning.Action{
			ID:           "mountRoot",
			Description:  "Mount " + s.RootPartition() + " at " + root,
			Commands:     []system.Command{cmd("mount", s.RootPartition(), root)},
			Compensation: []system.Command{cmd("umount", root)},
			Precondition: notMountedAt(root),
		},
		provisioning.Action{
			ID:           "createBootDir",
			Description:  "Create " + boot,
			Commands:     []system.Command{cmd("mkdir", "-p", boot)},
			Idempotent:   true,
			Precondition: mountedAt(root),
		},
		provisioning.Action{
			ID:           "mountESP",
			Description:  "Mount " + s.ESPPartition() + " at " + boot,
			Commands:     []system.Command{cmd("mount", s.ESPPartition(), boot)},
			Compensation: []system.Command{cmd("umount", boot)},
			Precondition: notMountedAt(boot),
		},
	)
}
