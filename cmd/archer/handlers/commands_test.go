package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"

	"github.com/imamik/archer/internal/config"
	"github.com/imamik/archer/internal/provisioning"
	"github.com/imamik/archer/internal/session"
	"github.com/imamik/archer/internal/testutil"
	"github.com/imamik/archer/internal/util/prerequisites"
)

func TestPlan(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		f := setupFakes(t)

		err := Plan(context.Background(), PlanOptions{AnswersPath: f.answers, Output: OutputText})

		require.NoError(t, err)
		out := f.out.String()
		assert.Contains(t, out, "Plan ")
		assert.Contains(t, out, "users/createUser")
		assert.Contains(t, out, "undoable")
		assert.NotContains(t, out, testutil.PasswordHash)
		assert.Empty(t, f.runner.Commands())
	})

	t.Run("json", func(t *testing.T) {
		f := setupFakes(t)

		err := Plan(context.Background(), PlanOptions{AnswersPath: f.answers, Output: OutputJSON, Only: []string{"partition", "format"}})

		require.NoError(t, err)
		var doc planDoc
		require.NoError(t, json.Unmarshal(f.out.Bytes(), &doc))
		require.Len(t, doc.Stages, 2)
		assert.Equal(t, "partition", doc.Stages[0].Name)
		assert.Equal(t, "parted -s /dev/sda mklabel gpt", doc.Stages[0].Actions[0].Commands[0])
		assert.Len(t, doc.Digest, 64)
	})

	t.Run("yaml", func(t *testing.T) {
		f := setupFakes(t)

		err := Plan(context.Background(), PlanOptions{AnswersPath: f.answers, Output: OutputYAML})

		require.NoError(t, err)
		var doc planDoc
		require.NoError(t, yaml.Unmarshal(f.out.Bytes(), &doc))
		assert.NotEmpty(t, doc.Stages)
	})

	t.Run("unknown format", func(t *testing.T) {
		f := setupFakes(t)

		err := Plan(context.Background(), PlanOptions{AnswersPath: f.answers, Output: "xml"})

		assert.Equal(t, provisioning.KindValidationFailed, provisioning.KindOf(err))
		assert.Empty(t, f.out.String())
	})

	t.Run("invalid answers", func(t *testing.T) {
		f := setupFakes(t)

		err := Plan(context.Background(), PlanOptions{AnswersPath: f.answers, Overrides: map[string]string{"username": "Root!"}})

		assert.Equal(t, provisioning.ExitInputAborted, provisioning.ExitCode(err))
	})
}

func TestStatus(t *testing.T) {
	saved := &provisioning.Checkpoint{
		RunID:      "run-1",
		PlanDigest: "0123456789abcdef0123",
		Stage:      4,
		Action:     -1,
		StageName:  "configure",
		Outcome:    provisioning.OutcomeCompensated,
		Timestamp:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	t.Run("no checkpoint", func(t *testing.T) {
		f := setupFakes(t)

		require.NoError(t, Status(f.stateDir, OutputText))
		assert.Contains(t, f.out.String(), "No checkpoint at memory://checkpoint")
	})

	t.Run("text", func(t *testing.T) {
		f := setupFakes(t)
		f.store = testutil.NewMemoryStore(saved)

		require.NoError(t, Status(f.stateDir, OutputText))
		out := f.out.String()
		assert.Contains(t, out, "run-1")
		assert.Contains(t, out, "start of configure")
		assert.Contains(t, out, "0123456789ab")
		assert.Contains(t, out, "archer install --resume")
	})

	t.Run("json", func(t *testing.T) {
		f := setupFakes(t)
		f.store = testutil.NewMemoryStore(saved)

		require.NoError(t, Status(f.stateDir, OutputJSON))
		var doc statusDoc
		require.NoError(t, json.Unmarshal(f.out.Bytes(), &doc))
		assert.True(t, doc.Found)
		assert.True(t, doc.Resumable)
		assert.Equal(t, "compensated", doc.Outcome)
	})

	t.Run("unreadable", func(t *testing.T) {
		f := setupFakes(t)
		f.store.LoadErr = errors.New("corrupt")

		err := Status(f.stateDir, OutputText)

		assert.Equal(t, provisioning.KindEnvironmentQueryFailed, provisioning.KindOf(err))
	})
}

func TestReset(t *testing.T) {
	f := setupFakes(t)
	f.store = testutil.NewMemoryStore(&provisioning.Checkpoint{RunID: "r", PlanDigest: "d"})
	answers := config.AnswersPath(f.stateDir)
	require.NoError(t, os.WriteFile(answers, []byte("hostname: x\n"), 0o600))

	require.NoError(t, Reset(f.stateDir, false))
	cp, _ := f.store.Load()
	assert.Nil(t, cp)
	assert.FileExists(t, answers)

	require.NoError(t, Reset(f.stateDir, true))
	assert.NoFileExists(t, answers)

	// resetting twice is fine
	require.NoError(t, Reset(f.stateDir, true))
}

func TestDoctor(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		f := setupFakes(t)

		require.NoError(t, Doctor(f.stateDir))
		assert.Contains(t, f.out.String(), "running as root")
	})

	t.Run("not root", func(t *testing.T) {
		f := setupFakes(t)
		checkPrivileges = func() error { return prerequisites.ErrNotRoot }

		err := Doctor(f.stateDir)

		assert.Equal(t, provisioning.ExitEnvironment, provisioning.ExitCode(err))
	})

	t.Run("unfinished run", func(t *testing.T) {
		f := setupFakes(t)
		f.store = testutil.NewMemoryStore(&provisioning.Checkpoint{RunID: "r9", PlanDigest: "d", StageName: "base"})

		require.NoError(t, Doctor(f.stateDir))
		assert.Contains(t, f.out.String(), "unfinished run r9 at base")
	})
}

func TestInit(t *testing.T) {
	t.Run("saves answers", func(t *testing.T) {
		setupFakes(t)
		newSavePrompter = func() session.Prompter { return testutil.NewScriptedPrompter(testutil.DefaultAnswers()) }
		out := filepath.Join(t.TempDir(), "answers.yaml")

		require.NoError(t, Init(context.Background(), out, false))

		a, err := config.LoadAnswers(out, nil)
		require.NoError(t, err)
		assert.Equal(t, "arch-box", a.Hostname)
		assert.Empty(t, a.Password)
		assert.NotEmpty(t, a.PasswordHash)
	})

	t.Run("existing file needs force", func(t *testing.T) {
		setupFakes(t)
		fileExists = func(string) bool { return true }

		err := Init(context.Background(), "answers.yaml", false)

		assert.Equal(t, provisioning.KindPreconditionNotMet, provisioning.KindOf(err))
	})

	t.Run("declined", func(t *testing.T) {
		setupFakes(t)
		p := testutil.NewScriptedPrompter(testutil.DefaultAnswers())
		p.Reply = ""
		newSavePrompter = func() session.Prompter { return p }
		out := filepath.Join(t.TempDir(), "answers.yaml")

		err := Init(context.Background(), out, false)

		assert.Equal(t, provisioning.KindUserAborted, provisioning.KindOf(err))
		assert.NoFileExists(t, out)
	})
}
