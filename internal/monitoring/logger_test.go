package monitoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func swapLogger(t *testing.T) *[]string {
	t.Helper()
	prev := Logf
	t.Cleanup(func() {
		Logf = prev
		SetVerbose(false)
	})
	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	return &lines
}

func TestSetLogger(t *testing.T) {
	lines := swapLogger(t)
	Logf("API Result: %v", "granted")
	assert.Equal(t, []string{"API Result: granted"}, *lines)

	SetLogger(nil)
	assert.NotPanics(t, func() { Logf("dropped %d", 1) })
	assert.Len(t, *lines, 1, "a nil logger mutes output")
}

func TestDebugf(t *testing.T) {
	lines := swapLogger(t)

	SetVerbose(false)
	assert.False(t, Verbose())
	Debugf("car score %.3f", 0.04)
	assert.Empty(t, *lines)

	SetVerbose(true)
	assert.True(t, Verbose())
	Debugf("car score %.3f", 0.12)
	assert.Equal(t, []string{"car score 0.120"}, *lines)
}
