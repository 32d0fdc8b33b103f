package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestSetupLevels(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug": zerolog.DebugLevel,
		"info":  zerolog.InfoLevel,
		"warn":  zerolog.WarnLevel,
		"error": zerolog.ErrorLevel,
	}
	for level, want := range cases {
		Setup(Config{Level: level})
		assert.Equal(t, want, log.Logger.GetLevel())
	}
}

func TestSetupUnknownLevelDefaultsToInfo(t *testing.T) {
	Setup(Config{Level: "verbose"})
	assert.Equal(t, zerolog.InfoLevel, log.Logger.GetLevel())

	Setup(Config{})
	assert.Equal(t, zerolog.InfoLevel, log.Logger.GetLevel())
}

func TestSetupPretty(t *testing.T) {
	Setup(Config{Level: "info", Pretty: true})
	log.Info().Msg("pretty output smoke test")
}
