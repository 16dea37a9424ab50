// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLoggerConfig(t *testing.T) {
	cfg := NewLoggerConfig()
	require.Equal(t, "console", cfg.Encoding)
	require.True(t, cfg.DisableStacktrace)
	require.Equal(t, zapcore.InfoLevel, cfg.Level.Level())
}

func TestNew_Verbose(t *testing.T) {
	logger, err := New("serve", true)
	require.NoError(t, err)
	require.True(t, logger.Desugar().Core().Enabled(zapcore.DebugLevel))

	logger, err = New("serve", false)
	require.NoError(t, err)
	require.False(t, logger.Desugar().Core().Enabled(zapcore.DebugLevel))
}

func TestNewTextCore(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithCore("slave", NewTextCore(zapcore.AddSync(&buf), false))
	logger.Debug("hidden")
	logger.Infow("ready.", "address", "0x44")

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.True(t, strings.Contains(out, "INFO"))
	require.Contains(t, out, "slave")
	require.Contains(t, out, `{"address": "0x44"}`)
}
