package wizard

import (
	"github.com/charmbracelet/huh"

	"github.com/imamik/archer/internal/validate"
)

// ChoiceOption is one entry of a select question.
type ChoiceOption struct {
	Value       string
	Label       string
	Description string
}

// DesktopOptions describes the desktop profiles.
var DesktopOptions = []ChoiceOption{
	{Value: validate.DesktopNone, Label: "none", Description: "Console only"},
	{Value: "gnome", Label: "GNOME", Description: "GNOME with GDM"},
	{Value: "plasma", Label: "Plasma", Description: "KDE Plasma with SDDM"},
	{Value: "xfce", Label: "Xfce", Description: "Xfce with LightDM"},
}

// choicesFor returns the options of a question with fixed choices. Choices
// without a description are shown by value.
func choicesFor(values []string) []ChoiceOption {
	described := make(map[string]ChoiceOption, len(DesktopOptions))
	for _, o := range DesktopOptions {
		described[o.Value] = o
	}

	out := make([]ChoiceOption, 0, len(values))
	for _, v := range values {
		if o, ok := described[v]; ok {
			out = append(out, o)
			continue
		}
		out = append(out, ChoiceOption{Value: v, Label: v})
	}
	return out
}

// ChoicesToOptions converts choices to huh select options.
func ChoicesToOptions(choices []ChoiceOption) []huh.Option[string] {
	opts := make([]huh.Option[string], len(choices))
	for i, c := range choices {
		label := c.Label
		if c.Description != "" {
			label = c.Label + " - " + c.Description
		}
		opts[i] = huh.NewOption(label, c.Value)
	}
	return opts
}
