package cli

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd(t *testing.T) {
	tests := []struct {
		version string
		want    string
	}{
		{"dev", "docqa version dev"},
		{"1.4.0", "docqa version 1.4.0"},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			original := version
			version = tt.version
			defer func() { version = original }()

			out, err := execute(t, "version")

			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
			assert.Contains(t, out, runtime.GOOS+"/"+runtime.GOARCH)
		})
	}
}

func TestVersionCmd_RunsWithoutServices(t *testing.T) {
	SetServices(nil)

	out, err := execute(t, "version")

	require.NoError(t, err)
	assert.Contains(t, out, "docqa version")
}

func TestVersionCmd_RejectsArgs(t *testing.T) {
	_, err := execute(t, "version", "extra")

	assert.Error(t, err)
}
