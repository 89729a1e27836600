package commands

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/archer/internal/provisioning"
)

func TestRoot(t *testing.T) {
	cmd := Root()

	require.NotNil(t, cmd)
	assert.Equal(t, "archer", cmd.Use)
	assert.True(t, cmd.SilenceErrors)
	assert.True(t, cmd.SilenceUsage)
	assert.NotNil(t, cmd.PersistentFlags().Lookup("state-dir"))
}

func TestRoot_HasSubcommands(t *testing.T) {
	cmd := Root()

	expectedSubcommands := []string{
		"install",
		"plan",
		"status",
		"reset",
		"init",
		"doctor",
		"version",
		"completion",
	}

	subcommands := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		subcommands[sub.Name()] = true
	}

	for _, expected := range expectedSubcommands {
		assert.True(t, subcommands[expected], "Expected subcommand %s not found", expected)
	}
	assert.Len(t, cmd.Commands(), len(expectedSubcommands))
}

func TestExecute_UsageErrorsExitOne(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown flag", []string{"install", "--bogus"}, "unknown flag: --bogus"},
		{"unknown command", []string{"instal"}, `unknown command "instal"`},
		{"bad flag value", []string{"install", "--yes=maybe"}, "invalid argument"},
		{"exclusive flags", []string{"install", "--resume", "--force-fresh"}, "none of the others can be"},
		{"wrong argument count", []string{"completion"}, "accepts 1 arg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Execute(context.Background(), tt.args)

			require.Error(t, err)
			assert.Equal(t, provisioning.KindValidationFailed, provisioning.KindOf(err))
			assert.Equal(t, provisioning.ExitInputAborted, provisioning.ExitCode(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestExecute_CommandErrorsKeepTheirKind(t *testing.T) {
	boom := errors.New("boom")
	root := Root()
	root.AddCommand(&cobra.Command{
		Use:  "fail",
		RunE: func(*cobra.Command, []string) error { return boom },
	})
	started := false
	markStarted(root, &started)
	root.SetArgs([]string{"fail"})

	err := root.Execute()

	assert.ErrorIs(t, err, boom)
	assert.True(t, started)
	assert.Equal(t, provisioning.ExitExecution, provisioning.ExitCode(err))
}

func TestStateDir(t *testing.T) {
	cmd := Root()
	require.NoError(t, cmd.PersistentFlags().Set("state-dir", "/tmp/archer-state"))

	assert.Equal(t, "/tmp/archer-state", stateDir(cmd))
}

func TestInstall_Flags(t *testing.T) {
	cmd := Install()

	for _, name := range []string{"answers", "set", "non-interactive", "yes", "resume", "dry-run", "only", "force-fresh", "metrics-file", "verbose"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "flag %s", name)
	}
	assert.Equal(t, "f", cmd.Flags().Lookup("answers").Shorthand)
	assert.Equal(t, "y", cmd.Flags().Lookup("yes").Shorthand)
}

func TestInstall_ResumeExcludesForceFresh(t *testing.T) {
	root := Root()
	root.SetArgs([]string{"install", "--resume", "--force-fresh"})
	root.SetOut(&bytes.Buffer{})

	err := root.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "none of the others can be")
}

func TestPlan_Flags(t *testing.T) {
	cmd := Plan()

	output := cmd.Flags().Lookup("output")
	require.NotNil(t, output)
	assert.Equal(t, "text", output.DefValue)
	assert.NotNil(t, cmd.Flags().Lookup("only"))
}

func TestReset_Flags(t *testing.T) {
	cmd := Reset()
	assert.NotNil(t, cmd.Flags().Lookup("all"))
}

func TestInit_Flags(t *testing.T) {
	cmd := Init()

	output := cmd.Flags().Lookup("output")
	require.NotNil(t, output)
	assert.Equal(t, "answers.yaml", output.DefValue)
	assert.NotNil(t, cmd.Flags().Lookup("force"))
}
