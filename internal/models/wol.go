package models

import "time"

// WOLConfig holds Wake-on-LAN configuration for the host serving the backup destinations.
type WOLConfig struct {
	MACAddress    string
	BroadcastIP   string
	PollURL       string        // URL answering once the destination host is up
	Timeout       time.Duration // max time to wait for the host
	PollInterval  time.Duration // how often to poll the URL
	StabilizeWait time.Duration // wait after the host responds, e.g. for shares to mount
}

// WOLResult holds the result of a Wake-on-LAN operation.
type WOLResult struct {
	PacketSent   bool
	HostReady    bool
	WaitDuration time.Duration
	Error        error
}
