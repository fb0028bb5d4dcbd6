package internal

import (
	"os"
	"testing"
	"time"

	"github.com/Netflix/go-env"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	req := require.New(t)
	t.Setenv("BADGER_FILEPATH", "/tmp/badger")
	t.Setenv("BLUGE_FILEPATH", "/tmp/bluge")
	t.Setenv("SELF_ID", "did:key:self")

	var config Config
	_, err := env.UnmarshalFromEnviron(&config)
	req.NoError(err)

	view := config.ViewConfig()
	req.Equal("did:key:self", view.Self.String())
	req.Equal(10*time.Millisecond, view.UnavailableRetryDelay)
	req.Equal(time.Second, view.RetryDelay)
	req.Equal(4*time.Second, view.SweepInterval)
	req.Equal(3*time.Second, view.StalenessThreshold)
	req.Equal(time.Minute, view.RefreshInterval)
	req.Equal(1000, config.SearchLimit())
}

func TestConfig_Overrides(t *testing.T) {
	req := require.New(t)
	t.Setenv("BADGER_FILEPATH", "/tmp/badger")
	t.Setenv("BLUGE_FILEPATH", "/tmp/bluge")
	t.Setenv("SELF_ID", "did:key:self")
	t.Setenv("SWEEP_INTERVAL", "2s")
	t.Setenv("LIMIT_MESSAGES", "50")

	var config Config
	_, err := env.UnmarshalFromEnviron(&config)
	req.NoError(err)

	req.Equal(2*time.Second, config.ViewConfig().SweepInterval)
	req.Equal(50, config.SearchLimit())
}

func TestConfig_Requires_Self(t *testing.T) {
	req := require.New(t)
	t.Setenv("BADGER_FILEPATH", "/tmp/badger")
	t.Setenv("BLUGE_FILEPATH", "/tmp/bluge")
	t.Setenv("SELF_ID", "did:key:self")
	req.NoError(os.Unsetenv("SELF_ID"))

	var config Config
	_, err := env.UnmarshalFromEnviron(&config)
	req.Error(err)
}
