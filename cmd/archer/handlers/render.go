package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"sigs.k8s.io/yaml"

	"github.com/imamik/archer/internal/platform/system"
	"github.com/imamik/archer/internal/provisioning"
)

// planDoc is the machine-readable form of a plan.
type planDoc struct {
	Digest string     `json:"digest"`
	Stages []stageDoc `json:"stages"`
}

type stageDoc struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Actions     []actionDoc `json:"actions"`
}

type actionDoc struct {
	ID            string   `json:"id"`
	Description   string   `json:"description,omitempty"`
	Idempotent    bool     `json:"idempotent"`
	ParallelGroup string   `json:"parallelGroup,omitempty"`
	Commands      []string `json:"commands"`
	Compensation  []string `json:"compensation,omitempty"`
}

func newPlanDoc(p *provisioning.Plan) planDoc {
	doc := planDoc{Digest: p.Digest()}
	for _, s := range p.Stages {
		sd := stageDoc{Name: s.Name, Description: s.Description, Actions: []actionDoc{}}
		for _, a := range s.Actions {
			sd.Actions = append(sd.Actions, actionDoc{
				ID:            a.ID,
				Description:   a.Description,
				Idempotent:    a.Idempotent,
				ParallelGroup: a.ParallelGroup,
				Commands:      commandStrings(a.Commands),
				Compensation:  commandStrings(a.Compensation),
			})
		}
		doc.Stages = append(doc.Stages, sd)
	}
	return doc
}

// commandStrings renders commands with sensitive stdin redacted.
func commandStrings(cmds []system.Command) []string {
	out := make([]string, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, c.String())
	}
	return out
}

// renderPlan writes p to w in the given format.
func renderPlan(w io.Writer, p *provisioning.Plan, format string) error {
	switch format {
	case OutputJSON, OutputYAML:
		return encode(w, newPlanDoc(p), format)
	case OutputText, "":
	default:
		return unknownFormat(format)
	}

	fmt.Fprintf(w, "Plan %s: %d actions in %d stages\n", shortDigest(p.Digest()), p.Len(), len(p.Stages))
	for _, s := range p.Stages {
		fmt.Fprintf(w, "\n%s", s.Name)
		if s.Description != "" {
			fmt.Fprintf(w, " - %s", s.Description)
		}
		fmt.Fprintln(w)
		for _, a := range s.Actions {
			var tags []string
			if a.ParallelGroup != "" {
				tags = append(tags, "parallel:"+a.ParallelGroup)
			}
			if a.Idempotent {
				tags = append(tags, "retryable")
			}
			if a.Compensable() {
				tags = append(tags, "undoable")
			}
			line := "  " + a.Key()
			if len(tags) > 0 {
				line += " [" + strings.Join(tags, ", ") + "]"
			}
			fmt.Fprintln(w, line)
			for _, c := range a.Commands {
				fmt.Fprintf(w, "      $ %s\n", c.String())
			}
		}
	}
	return nil
}

// encode writes v as indented JSON or as YAML.
func encode(w io.Writer, v any, format string) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case OutputJSON:
		data, err = json.MarshalIndent(v, "", "  ")
		data = append(data, '\n')
	case OutputYAML:
		data, err = yaml.Marshal(v)
	default:
		return unknownFormat(format)
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", format, err)
	}
	_, err = w.Write(data)
	return err
}

// checkFormat rejects output formats before any work is done.
func checkFormat(format string) error {
	switch format {
	case "", OutputText, OutputYAML, OutputJSON:
		return nil
	}
	return unknownFormat(format)
}

func unknownFormat(format string) error {
	return provisioning.NewError(provisioning.KindValidationFailed, "render",
		fmt.Errorf("unknown output format %q (use %s, %s or %s)", format, OutputText, OutputYAML, OutputJSON))
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
