package internal

import (
	"chat-sync/domain"
	"chat-sync/runtime"
	"time"
)

type Config struct {
	LogLevel              string        `env:"LOG_LEVEL,default=INFO"`
	BadgerFilepath        string        `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath         string        `env:"BLUGE_FILEPATH,required=true"`
	LimitMessages         *int          `env:"LIMIT_MESSAGES"`
	SelfID                string        `env:"SELF_ID,required=true"`
	CommandBufferSize     int           `env:"COMMAND_BUFFER_SIZE,default=100"`
	EventBufferSize       int           `env:"EVENT_BUFFER_SIZE,default=100"`
	SinkTimeout           time.Duration `env:"SINK_TIMEOUT,default=1s"`
	RestartInterval       time.Duration `env:"RESTART_INTERVAL,default=1s"`
	UnavailableRetryDelay time.Duration `env:"UNAVAILABLE_RETRY_DELAY,default=10ms"`
	RetryDelay            time.Duration `env:"RETRY_DELAY,default=1s"`
	SweepInterval         time.Duration `env:"SWEEP_INTERVAL,default=4s"`
	StalenessThreshold    time.Duration `env:"STALENESS_THRESHOLD,default=3s"`
	RefreshInterval       time.Duration `env:"REFRESH_INTERVAL,default=60s"`
	MaxContentLength      int           `env:"MAX_CONTENT_LENGTH,default=4096"`
}

// ViewConfig maps the environment onto the conversation view settings.
func (c Config) ViewConfig() runtime.ViewConfig {
	return runtime.ViewConfig{
		Self:                  domain.ParticipantID(c.SelfID),
		CommandBufferSize:     c.CommandBufferSize,
		UnavailableRetryDelay: c.UnavailableRetryDelay,
		RetryDelay:            c.RetryDelay,
		SweepInterval:         c.SweepInterval,
		StalenessThreshold:    c.StalenessThreshold,
		RefreshInterval:       c.RefreshInterval,
	}
}

// SearchLimit bounds keyword search results.
func (c Config) SearchLimit() int {
	if c.LimitMessages != nil && *c.LimitMessages > 0 {
		return *c.LimitMessages
	}
	return 1000
}
