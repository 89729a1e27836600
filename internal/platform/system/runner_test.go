package system

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommand_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cmd  Command
		want string
	}{
		{
			name: "plain",
			cmd:  Command{Name: "parted", Args: []string{"-s", "/dev/sda", "mklabel", "gpt"}},
			want: "parted -s /dev/sda mklabel gpt",
		},
		{
			name: "quoted argument",
			cmd:  Command{Name: "sh", Args: []string{"-c", "genfstab -U /mnt > /mnt/etc/fstab"}},
			want: `sh -c "genfstab -U /mnt > /mnt/etc/fstab"`,
		},
		{
			name: "stdin",
			cmd:  Command{Name: "tee", Args: []string{"/etc/hostname"}, Stdin: "arch-box\n"},
			want: `tee /etc/hostname <<< "arch-box\n"`,
		},
		{
			name: "sensitive stdin",
			cmd:  Command{Name: "chpasswd", Args: []string{"-e"}, Stdin: "sam:$2a$10$x", Sensitive: true},
			want: "chpasswd -e <<< [redacted]",
		},
		{
			name: "empty argument",
			cmd:  Command{Name: "echo", Args: []string{""}},
			want: `echo ""`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.cmd.String())
		})
	}
}

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunner_CapturesOutputAndExitCode(t *testing.T) {
	t.Parallel()
	requireShell(t)

	r := NewExecRunner()
	res, err := r.Exec(context.Background(), Command{
		Name:  "sh",
		Args:  []string{"-c", "cat; echo oops >&2; exit 3"},
		Stdin: "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "hello", res.Stdout)
	assert.Equal(t, "oops\n", res.Stderr)
	assert.False(t, res.Success())
}

func TestExecRunner_MissingBinary(t *testing.T) {
	t.Parallel()

	r := NewExecRunner()
	res, err := r.Exec(context.Background(), Command{Name: "archer-definitely-missing-binary"})
	require.Error(t, err)
	assert.Equal(t, -1, res.ExitCode)
}

func TestExecRunner_Timeout(t *testing.T) {
	t.Parallel()
	requireShell(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	r := NewExecRunner()
	_, err := r.Exec(ctx, Command{Name: "sh", Args: []string{"-c", "sleep 5"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
