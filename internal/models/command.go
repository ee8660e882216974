package models

import "time"

// ExitStatusUnknown is recorded when a session never reported an exit status.
const ExitStatusUnknown = -1

// CommandLogEntry is one audit record of a remote command invocation.
type CommandLogEntry struct {
	ID         string    `json:"id"`
	Command    string    `json:"command"`
	Output     string    `json:"output"`
	Error      string    `json:"error"`
	ExitStatus int       `json:"exit_status"`
	Timestamp  time.Time `json:"timestamp"`
}

// ExecResult holds the outcome of a single remote command.
type ExecResult struct {
	Success    bool   `json:"success"`
	Output     string `json:"output"`
	Error      string `json:"error"`
	ExitStatus int    `json:"-"`
}
