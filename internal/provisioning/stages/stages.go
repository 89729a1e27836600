// Package stages builds the install Plan from a confirmed session.
//
// Stage templates are static; BuildPlan binds them to session values and
// never touches the host. Everything host-dependent (is the disk busy, which
// GPU is present) is expressed as Precondition and Applies predicates that
// the executor evaluates at run time.
package stages

import (
	"github.com/imamik/archer/internal/platform/system"
	"github.com/imamik/archer/internal/provisioning"
	"github.com/imamik/archer/internal/session"
	"github.com/imamik/archer/internal/validate"
)

// Stage names, in execution order.
const (
	Partition  = "partition"
	Format     = "format"
	Mount      = "mount"
	Base       = "base"
	Configure  = "configure"
	Users      = "users"
	Bootloader = "bootloader"
	Services   = "services"
	Drivers    = "drivers"
	Desktop    = "desktop"
)

// Names lists every stage name in execution order.
var Names = []string{Partition, Format, Mount, Base, Configure, Users, Bootloader, Services, Drivers, Desktop}

// BuildPlan returns the plan for s. It is deterministic: the same session
// always yields the same stages, actions and commands.
func BuildPlan(s *session.Session) *provisioning.Plan {
	plan := &provisioning.Plan{Stages: []provisioning.Stage{
		partitionStage(s),
		formatStage(s),
		mountStage(s),
		baseStage(s),
		configureStage(s),
		usersStage(s),
		bootloaderStage(s),
		servicesStage(s),
		driversStage(s),
	}}
	if s.Desktop() != validate.DesktopNone {
		plan.Stages = append(plan.Stages, desktopStage(s))
	}
	return plan
}

// newStage stamps stage membership and ordinals onto actions.
func newStage(name, description string, actions ...provisioning.Action) provisioning.Stage {
	for i := range actions {
		actions[i].Stage = name
		actions[i].Ordinal = i
	}
	return provisioning.Stage{Name: name, Description: description, Actions: actions}
}

func cmd(name string, args ...string) system.Command {
	return system.Command{Name: name, Args: args}
}

// chroot runs a command inside the target system.
func chroot(s *session.Session, args ...string) system.Command {
	return system.Command{Name: "arch-chroot", Args: append([]string{s.MountRoot()}, args...)}
}

// chrootWrite replaces path in the target system with content.
func chrootWrite(s *session.Session, path, content string) system.Command {
	c := chroot(s, "tee", path)
	c.Stdin = content
	return c
}

// pacman installs packages into the target system.
func pacman(s *session.Session, packages ...string) system.Command {
	return chroot(s, append([]string{"pacman", "-S", "--noconfirm", "--needed"}, packages...)...)
}

// inTarget marks an action as running inside the mounted target system.
func inTarget(s *session.Session, a provisioning.Action) provisioning.Action {
	a.Precondition = mountedAt(s.MountRoot())
	return a
}
