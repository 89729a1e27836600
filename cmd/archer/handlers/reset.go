package handlers

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/imamik/archer/internal/config"
)

// Reset removes the checkpoint, and with all also the saved answers, so the
// next install starts fresh.
func Reset(stateDir string, all bool) error {
	store := newStore(stateDir)
	if err := store.Clear(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Removed checkpoint %s\n", store.Location())

	if !all {
		return nil
	}
	path := config.AnswersPath(stateDir)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove saved answers: %w", err)
	}
	fmt.Fprintf(stdout, "Removed saved answers %s\n", path)
	return nil
}
