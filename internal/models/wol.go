package models

import "time"

// WOLConfig holds Wake-on-LAN configuration.
type WOLConfig struct {
	MACAddress   string
	BroadcastIP  string
	WaitTimeout  time.Duration // max time to wait for the SSH port after the packet
	PollInterval time.Duration // how often to dial the SSH port
}

// WOLResult holds the result of a Wake-on-LAN operation.
type WOLResult struct {
	PacketSent   bool
	TargetReady  bool
	WaitDuration time.Duration
	Error        error
}
