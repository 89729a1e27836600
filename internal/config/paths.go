package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// State directory layout.
const (
	AnswersFileName    = "answers.yaml"
	CheckpointFileName = "checkpoint.json"
	LogFileName        = "archer.log"
)

// DefaultStateDir is $XDG_STATE_HOME/archer.
func DefaultStateDir() string {
	return filepath.Join(xdg.StateHome, "archer")
}

// AnswersPath returns the answers file kept in stateDir.
func AnswersPath(stateDir string) string {
	return filepath.Join(stateDir, AnswersFileName)
}

// LogPath returns the JSON log file kept in stateDir.
func LogPath(stateDir string) string {
	return filepath.Join(stateDir, LogFileName)
}
