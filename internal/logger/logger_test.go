package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]logrus.Level{
		"debug":   logrus.DebugLevel,
		"DEBUG ":  logrus.DebugLevel,
		"warn":    logrus.WarnLevel,
		"warning": logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"":        logrus.InfoLevel,
		"verbose": logrus.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestConfigure(t *testing.T) {
	prev := Logger.GetLevel()
	defer Logger.SetLevel(prev)

	Configure("error")
	assert.Equal(t, logrus.ErrorLevel, Logger.GetLevel())
}
