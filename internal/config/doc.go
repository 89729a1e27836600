// Package config loads the raw inputs of an install run.
//
// [Answers] are layered from an answers file, ARCHER_* environment
// variables and CLI flags, in that order of precedence. [Timeouts] come from
// the environment only. Everything archer persists between runs (answers,
// checkpoint, log) lives under the state directory, which defaults to
// $XDG_STATE_HOME/archer.
package config
