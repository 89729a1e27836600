package tui

import (
	"fmt"
	"strings"

	"github.com/imamik/archer/internal/util/prerequisites"
)

// DoctorReport is what the doctor command found on this machine.
type DoctorReport struct {
	Tools      *prerequisites.CheckResults
	Privileged bool
	StateDir   string
	Checkpoint string
}

// RenderDoctorOnce renders the doctor report using lipgloss.
func RenderDoctorOnce(r DoctorReport) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("archer doctor"))
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("  Environment"))
	b.WriteString("\n")
	icon, style := statusIcon(r.Privileged)
	fmt.Fprintf(&b, "    %s %-20s\n", style(icon), style("running as root"))
	fmt.Fprintf(&b, "    %s %-20s %s\n", dimStyle.Render(pending), "state directory", dimStyle.Render(r.StateDir))
	if r.Checkpoint != "" {
		fmt.Fprintf(&b, "    %s %-20s %s\n", warningStyle.Render(warnMark), "checkpoint", warningStyle.Render(r.Checkpoint))
	}

	if r.Tools != nil {
		b.WriteString(sectionStyle.Render("  Tools"))
		b.WriteString("\n")
		for _, res := range r.Tools.Results {
			icon, style := statusIcon(res.Found)
			if !res.Found && !res.Tool.Required {
				icon, style = warnMark, sf(warningStyle)
			}
			detail := res.Path
			if !res.Found {
				detail = "install " + res.Tool.Package
			}
			fmt.Fprintf(&b, "    %s %-14s %s\n", style(icon), style(res.Tool.Name), dimStyle.Render(detail))
		}
	}

	return b.String()
}
