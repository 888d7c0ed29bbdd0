package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		l, err := New("debug", format)
		require.NoError(t, err, format)
		assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
	}

	l, err := New("WARN", "json")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New("loud", "json")
	assert.Error(t, err)
}

func TestMaskShort(t *testing.T) {
	assert.Equal(t, "", MaskShort(""))
	assert.Equal(t, "short", MaskShort("short"))
	assert.Equal(t, "So11...1112", MaskShort("So11111111111111111111111111111111111111112"))
}
