package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	prevV, prevSHA, prevBuilt := Version, GitSHA, BuildTime
	t.Cleanup(func() { Version, GitSHA, BuildTime = prevV, prevSHA, prevBuilt })

	assert.Equal(t, "dev (git unknown, built unknown)", String())

	Version, GitSHA, BuildTime = "v0.3.0", "1a2b3c4", "2026-03-01T09:00:00Z"
	assert.Equal(t, "v0.3.0 (git 1a2b3c4, built 2026-03-01T09:00:00Z)", String())
}
