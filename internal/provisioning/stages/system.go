package stages

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/imamik/archer/internal/platform/system"
	"github.com/imamik/archer/internal/provisioning"
	"github.com/imamik/archer/internal/session"
)

// BasePackages are installed by pacstrap.
var BasePackages = []string{"base", "linux", "linux-firmware", "networkmanager", "sudo", "grub", "efibootmgr"}

const (
	swapFile       = "/swapfile"
	sudoersDropIn  = "/etc/sudoers.d/10-wheel"
	fstabPath      = "/etc/fstab"
	zoneinfoPrefix = "/usr/share/zoneinfo/"
)

func baseStage(s *session.Session) provisioning.Stage {
	root := s.MountRoot()
	fstab := root + fstabPath

	return newStage(Base, "Bootstrap the base system",
		provisioning.Action{
			ID:               "installBaseSystem",
			Description:      "Install " + strings.Join(BasePackages, ", ") + " into " + root,
			Commands:         []system.Command{cmd("pacstrap", append([]string{"-K", root}, BasePackages...)...)},
			Idempotent:       true,
			TouchesPackageDB: true,
			Precondition:     mountedAt(root),
		},
		provisioning.Action{
			ID:          "generateFstab",
			Description: "Write " + fstab + " from the current mounts",
			// written to a temporary file first so a failure never leaves a partial fstab
			Commands: []system.Command{cmd("sh", "-c",
				fmt.Sprintf("genfstab -U %s > %s.archer && mv %s.archer %s", root, fstab, fstab, fstab))},
			Idempotent:   true,
			Precondition: mountedAt(root),
		},
	)
}

func configureStage(s *session.Session) provisioning.Stage {
	hosts := fmt.Sprintf("127.0.0.1\tlocalhost\n::1\tlocalhost\n127.0.1.1\t%s.localdomain\t%s\n", s.Hostname(), s.Hostname())

	actions := []provisioning.Action{
		inTarget(s, provisioning.Action{
			ID:          "setTimezone",
			Description: "Set the timezone to " + s.Timezone(),
			Commands:    []system.Command{chroot(s, "ln", "-sf", zoneinfoPrefix+s.Timezone(), "/etc/localtime")},
			Idempotent:  true,
		}),
		inTarget(s, provisioning.Action{
			ID:          "syncHardwareClock",
			Description: "Set the hardware clock from the system clock",
			Commands:    []system.Command{chroot(s, "hwclock", "--systohc")},
			Idempotent:  true,
		}),
		inTarget(s, provisioning.Action{
			ID:          "enableLocale",
			Description: "Enable " + s.Locale() + " in /etc/locale.gen",
			Commands:    []system.Command{chroot(s, "sh", "-c", enableLocaleScript(s.Locale()))},
			Idempotent:  true,
		}),
		inTarget(s, provisioning.Action{
			ID:          "generateLocale",
			Description: "Generate locales",
			Commands:    []system.Command{chroot(s, "locale-gen")},
			Idempotent:  true,
		}),
		inTarget(s, provisioning.Action{
			ID:          "writeLocaleConf",
			Description: "Write /etc/locale.conf",
			Commands:    []system.Command{chrootWrite(s, "/etc/locale.conf", "LANG="+s.Locale()+"\n")},
			Idempotent:  true,
		}),
		inTarget(s, provisioning.Action{
			ID:          "writeHostname",
			Description: "Write /etc/hostname",
			Commands:    []system.Command{chrootWrite(s, "/etc/hostname", s.Hostname()+"\n")},
			Idempotent:  true,
		}),
		inTarget(s, provisioning.Action{
			ID:          "writeHosts",
			Description: "Write /etc/hosts",
			Commands:    []system.Command{chrootWrite(s, "/etc/hosts", hosts)},
			Idempotent:  true,
		}),
	}

	if s.SwapGiB() > 0 {
		entry := swapFile + " none swap defaults 0 0"
		actions = append(actions,
			inTarget(s, provisioning.Action{
				ID:           "createSwapFile",
				Description:  fmt.Sprintf("Allocate a %d GiB swap file", s.SwapGiB()),
				Commands:     []system.Command{chroot(s, "fallocate", "-l", fmt.Sprintf("%dG", s.SwapGiB()), swapFile)},
				Compensation: []system.Command{chroot(s, "rm", "-f", swapFile)},
			}),
			inTarget(s, provisioning.Action{
				ID:          "formatSwapFile",
				Description: "Initialize the swap file",
				Commands: []system.Command{
					chroot(s, "chmod", "600", swapFile),
					chroot(s, "mkswap", swapFile),
				},
				Idempotent: true,
			}),
			inTarget(s, provisioning.Action{
				ID:          "registerSwapFile",
				Description: "Add the swap file to " + fstabPath,
				Commands: []system.Command{chroot(s, "sh", "-c",
					fmt.Sprintf("grep -q '^%s ' %s || echo '%s' >> %s", swapFile, fstabPath, entry, fstabPath))},
				Compensation: []system.Command{chroot(s, "sed", "-i", fmt.Sprintf(`\|^%s |d`, swapFile), fstabPath)},
				Idempotent:   true,
			}),
		)
	}

	return newStage(Configure, "Configure time, locale, network identity and swap", actions...)
}

func usersStage(s *session.Session) provisioning.Stage {
	setPassword := func(user string) system.Command {
		c := chroot(s, "chpasswd", "-e")
		c.Stdin = user + ":" + s.PasswordHash() + "\n"
		c.Sensitive = true
		return c
	}

	return newStage(Users, "Create accounts",
		inTarget(s, provisioning.Action{
			ID:          "setRootPassword",
			Description: "Set the root password",
			Commands:    []system.Command{setPassword("root")},
			Idempotent:  true,
		}),
		inTarget(s, provisioning.Action{
			ID:           "createUser",
			Description:  "Create user " + s.Username() + " in group wheel",
			Commands:     []system.Command{chroot(s, "useradd", "-m", "-G", "wheel", "-s", "/bin/bash", s.Username())},
			Compensation: []system.Command{chroot(s, "userdel", "-r", s.Username())},
		}),
		inTarget(s, provisioning.Action{
			ID:          "setUserPassword",
			Description: "Set the password of " + s.Username(),
			Commands:    []system.Command{setPassword(s.Username())},
			Idempotent:  true,
		}),
		inTarget(s, provisioning.Action{
			ID:          "grantSudo",
			Description: "Allow group wheel to use sudo",
			Commands: []system.Command{
				chrootWrite(s, sudoersDropIn, "%wheel ALL=(ALL:ALL) ALL\n"),
				chroot(s, "chmod", "440", sudoersDropIn),
			},
			Compensation: []system.Command{chroot(s, "rm", "-f", sudoersDropIn)},
			Idempotent:   true,
		}),
	)
}

func bootloaderStage(s *session.Session) provisioning.Stage {
	installBootloader := inTarget(s, provisioning.Action{
		ID:          "installBootloader",
		Description: "Install GRUB to the EFI system partition",
		Commands: []system.Command{chroot(s, "grub-install",
			"--target=x86_64-efi", "--efi-directory=/boot", "--bootloader-id=GRUB")},
		Idempotent: true,
	})
	installBootloader.Precondition = mountedAt(s.MountRoot() + "/boot")

	return newStage(Bootloader, "Install the bootloader",
		installBootloader,
		inTarget(s, provisioning.Action{
			ID:          "generateBootConfig",
			Description: "Generate /boot/grub/grub.cfg",
			Commands:    []system.Command{grubMkconfig(s)},
			Idempotent:  true,
		}),
	)
}

func grubMkconfig(s *session.Session) system.Command {
	return chroot(s, "grub-mkconfig", "-o", "/boot/grub/grub.cfg")
}

// enableService returns an action that enables unit in the target system.
func enableService(s *session.Session, id, unit string) provisioning.Action {
	return inTarget(s, provisioning.Action{
		ID:           id,
		Description:  "Enable " + unit,
		Commands:     []system.Command{chroot(s, "systemctl", "enable", unit)},
		Compensation: []system.Command{chroot(s, "systemctl", "disable", unit)},
		Idempotent:   true,
	})
}

func servicesStage(s *session.Session) provisioning.Stage {
	return newStage(Services, "Enable system services",
		enableService(s, "enableNetworkManager", "NetworkManager.service"),
		enableService(s, "enableTimesync", "systemd-timesyncd.service"),
	)
}

// enableLocaleScript uncomments the locale.gen line of locale. glibc lists
// most locales with the codeset in the name (en_US.UTF-8) and some without
// (eo, sr_RS@latin), so both spellings match. grep fails when neither is
// present, which stops the install before locale-gen quietly skips it.
func enableLocaleScript(locale string) string {
	names := []string{regexp.QuoteMeta(locale)}
	if bare := strings.Replace(locale, ".UTF-8", "", 1); bare != locale {
		names = append(names, regexp.QuoteMeta(bare))
	}
	entry := "(" + strings.Join(names, "|") + ") UTF-8"
	return fmt.Sprintf("grep -qE '^#?%s$' /etc/locale.gen && sed -i -E 's/^#(%s)$/\\1/' /etc/locale.gen", entry, entry)
}
