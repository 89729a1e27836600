package handlers

import (
	"fmt"

	"github.com/imamik/archer/internal/provisioning"
	"github.com/imamik/archer/internal/ui/tui"
)

// Doctor reports whether this machine can run an install.
func Doctor(stateDir string) error {
	report := tui.DoctorReport{
		Tools:      checkAllPrereqs(),
		Privileged: checkPrivileges() == nil,
		StateDir:   stateDir,
	}

	store := newStore(stateDir)
	cp, err := store.Load()
	switch {
	case err != nil:
		report.Checkpoint = "unreadable: " + err.Error()
	case cp != nil && !cp.Completed():
		report.Checkpoint = fmt.Sprintf("unfinished run %s at %s (archer install --resume)", cp.RunID, cp.StageName)
	}

	fmt.Fprint(stdout, tui.RenderDoctorOnce(report))

	if !report.Privileged {
		return provisioning.NewError(provisioning.KindPreconditionNotMet, "doctor", checkPrivileges())
	}
	if report.Tools.HasErrors() {
		return provisioning.NewError(provisioning.KindPreconditionNotMet, "doctor", report.Tools.Error())
	}
	return nil
}
