package handlers

import (
	"fmt"
	"time"

	"github.com/imamik/archer/internal/provisioning"
)

// statusDoc is the machine-readable form of the saved checkpoint.
type statusDoc struct {
	Location   string     `json:"location"`
	Found      bool       `json:"found"`
	RunID      string     `json:"runId,omitempty"`
	Outcome    string     `json:"outcome,omitempty"`
	Stage      string     `json:"stage,omitempty"`
	Action     string     `json:"action,omitempty"`
	PlanDigest string     `json:"planDigest,omitempty"`
	Saved      *time.Time `json:"saved,omitempty"`
	Resumable  bool       `json:"resumable"`
}

// Status prints the checkpoint saved in stateDir.
func Status(stateDir, output string) error {
	if err := checkFormat(output); err != nil {
		return err
	}

	store := newStore(stateDir)
	cp, err := store.Load()
	if err != nil {
		return provisioning.NewError(provisioning.KindEnvironmentQueryFailed, "load checkpoint", err)
	}

	doc := statusDoc{Location: store.Location()}
	if cp != nil {
		doc.Found = true
		doc.RunID = cp.RunID
		doc.Outcome = string(cp.Outcome)
		doc.Stage = cp.StageName
		doc.Action = cp.ActionID
		doc.PlanDigest = cp.PlanDigest
		doc.Saved = &cp.Timestamp
		doc.Resumable = !cp.Completed()
	}

	if output == OutputJSON || output == OutputYAML {
		return encode(stdout, doc, output)
	}

	if !doc.Found {
		fmt.Fprintf(stdout, "No checkpoint at %s\n", doc.Location)
		return nil
	}
	fmt.Fprintf(stdout, "Checkpoint: %s\n", doc.Location)
	fmt.Fprintf(stdout, "Run:        %s\n", doc.RunID)
	fmt.Fprintf(stdout, "Outcome:    %s\n", doc.Outcome)
	switch {
	case cp.Action < 0:
		fmt.Fprintf(stdout, "Position:   start of %s\n", doc.Stage)
	case doc.Action != "":
		fmt.Fprintf(stdout, "Position:   %s/%s\n", doc.Stage, doc.Action)
	default:
		fmt.Fprintf(stdout, "Position:   %s\n", cp.Position())
	}
	fmt.Fprintf(stdout, "Plan:       %s\n", shortDigest(doc.PlanDigest))
	fmt.Fprintf(stdout, "Saved:      %s\n", doc.Saved.Local().Format(time.RFC1123))
	if doc.Resumable {
		fmt.Fprintln(stdout, "\nContinue with: archer install --resume")
	}
	return nil
}
