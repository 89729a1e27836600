package stages

import (
	"strings"

	"github.com/imamik/archer/internal/platform/system"
	"github.com/imamik/archer/internal/provisioning"
	"github.com/imamik/archer/internal/session"
	"github.com/imamik/archer/internal/validate"
)

// Profile is the package set and display manager of a desktop choice.
type Profile struct {
	Packages       []string
	DisplayManager string
}

// Profiles maps desktop answers to what gets installed.
var Profiles = map[string]Profile{
	validate.DesktopGNOME: {
		Packages:       []string{"gnome"},
		DisplayManager: "gdm",
	},
	validate.DesktopPlasma: {
		Packages:       []string{"plasma-meta", "konsole", "dolphin"},
		DisplayManager: "sddm",
	},
	validate.DesktopXfce: {
		Packages:       []string{"xfce4", "xfce4-goodies", "lightdm", "lightdm-gtk-greeter"},
		DisplayManager: "lightdm",
	},
}

// Shared by every desktop profile.
var (
	FontPackages  = []string{"noto-fonts", "noto-fonts-emoji", "ttf-dejavu"}
	AudioPackages = []string{"pipewire", "pipewire-pulse", "wireplumber"}
)

const desktopGroup = "desktop-packages"

func packageAction(s *session.Session, id, description string, packages []string) provisioning.Action {
	return inTarget(s, provisioning.Action{
		ID:               id,
		Description:      description + ": " + strings.Join(packages, ", "),
		Commands:         []system.Command{pacman(s, packages...)},
		Idempotent:       true,
		ParallelGroup:    desktopGroup,
		TouchesPackageDB: true,
	})
}

func desktopStage(s *session.Session) provisioning.Stage {
	p := Profiles[s.Desktop()]
	return newStage(Desktop, "Install the "+s.Desktop()+" desktop",
		packageAction(s, "installDesktop", "Install the desktop environment", p.Packages),
		packageAction(s, "installFonts", "Install fonts", FontPackages),
		packageAction(s, "installAudio", "Install the audio stack", AudioPackages),
		enableService(s, "enableDisplayManager", p.DisplayManager+".service"),
	)
}
