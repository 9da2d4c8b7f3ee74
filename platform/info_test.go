package platform

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetHostname(t *testing.T) {
	assert.NotEmpty(t, GetHostname())
}

func TestGetUsername(t *testing.T) {
	assert.NotEmpty(t, GetUsername())
}

func TestGetOSAndArch(t *testing.T) {
	assert.Equal(t, runtime.GOOS, GetOS())
	assert.Equal(t, runtime.GOARCH, GetArch())
}

func TestSummary(t *testing.T) {
	s := Summary()

	assert.Contains(t, s, runtime.GOOS)
	assert.Contains(t, s, runtime.GOARCH)
	assert.Contains(t, s, "elevated=")
}
