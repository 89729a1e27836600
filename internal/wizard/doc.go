// Package wizard provides the interactive Prompter for archer.
//
// It renders each session question as a charmbracelet/huh form: free-text
// answers as inputs, the password as a masked input with a repeat field, and
// fixed choices such as the desktop profile as selects. The session package
// owns validation; a rejected answer comes back as the next question with
// its Problem set and is shown as the form description.
//
// Use New for the install flow, where Confirm asks the user to type the
// accept token, and SaveOnly for "archer init", where Confirm is a yes/no
// question and nothing is erased.
package wizard
