package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/couchcryptid/sea-info-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestGridCmd(t *testing.T) {
	out, err := run(t, "grid", "--lat", "37.5665", "--lon", "126.9780")

	require.NoError(t, err)
	assert.Equal(t, "nx=60 ny=127\n", out)
}

func TestGridCmd_OutsideRegion(t *testing.T) {
	_, err := run(t, "grid", "--lat", "0", "--lon", "0")

	require.ErrorIs(t, err, domain.ErrOutsideRegion)
}

func TestStationsCmd(t *testing.T) {
	out, err := run(t, "stations", "--lat", "35.1001", "--lon", "129.1001", "--buoys", "2")

	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5, "header, tide, beach and two buoys")
	assert.True(t, strings.HasPrefix(lines[0], "KIND"))
	assert.Contains(t, lines[1], "DT_0005")
	assert.True(t, strings.HasPrefix(lines[2], "beach"))
	assert.Contains(t, lines[3], "TW_0062")
	assert.Contains(t, lines[4], "TW_0063")
}

func TestStationsCmd_InvalidCoordinate(t *testing.T) {
	_, err := run(t, "stations", "--lat", "120", "--lon", "129")

	require.ErrorIs(t, err, domain.ErrInvalidCoordinate)
}
