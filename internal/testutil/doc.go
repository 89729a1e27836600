// Package testutil provides fakes, builders, and helpers shared by archer's tests.
//
// This package centralizes common testing patterns to avoid duplication across test files:
//   - FakeHost: in-memory block devices, mounts, timezones and hardware
//   - FakeRunner: records commands and fails the ones a test scripts to fail
//   - MemoryStore: checkpoint store that keeps every save
//   - ScriptedPrompter: replays answers to session questions
//   - SessionBuilder: fluent builder for confirmed sessions
//
// Usage:
//
//	s := testutil.NewSessionBuilder().
//	    WithDevice("sda", 100).
//	    WithSwap(4).
//	    Build(t)
//
//	runner := testutil.NewFakeRunner().FailOn("mkfs.ext4", 1)
package testutil
