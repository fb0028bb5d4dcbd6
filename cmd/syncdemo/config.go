package main

import "time"

// DemoConfig drives the simulated remote participant.
type DemoConfig struct {
	SelfName       string        `env:"SELF_NAME,default=Me"`
	RemoteID       string        `env:"REMOTE_ID,default=did:key:z6MkRemoteParticipant"`
	RemoteName     string        `env:"REMOTE_NAME,default=Pat"`
	RemoteInterval time.Duration `env:"REMOTE_INTERVAL,default=2s"`
	DisconnectRate float64       `env:"DISCONNECT_RATE,default=0.1"`
	ReadyDelay     time.Duration `env:"READY_DELAY,default=50ms"`
	Tail           int           `env:"TAIL,default=10"`
}
