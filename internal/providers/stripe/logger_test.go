package stripe

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestLeveledLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	l := NewLeveledLogger(zerolog.New(&buf).Level(zerolog.InfoLevel))

	l.Debugf("debug %d", 1)
	l.Infof("info %d", 2)
	l.Warnf("warn %d", 3)
	l.Errorf("error %d", 4)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 3)
	assert.Contains(t, lines[0], `"message":"info 2"`)
	assert.Contains(t, lines[0], `"source":"stripe-go"`)
	assert.Contains(t, lines[1], `"level":"warn"`)
	assert.Contains(t, lines[2], `"level":"error"`)
}
