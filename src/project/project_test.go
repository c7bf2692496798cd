package project

import (
	"errors"
	"path/filepath"
	"testing"

	"overcast/src/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "demo.ocproj")

	p := New("demo", false, false, true)
	p.Dependencies["widgets"] = "1.2.3"

	require.NoError(t, p.Marshal(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", loaded.Project.ProjectName)
	assert.Equal(t, "0.1.0", loaded.Project.ProjectVersion)
	assert.True(t, loaded.BuildInfo.EmitLLVM)
	assert.Equal(t, "1.2.3", loaded.Dependencies["widgets"])
}

func TestParseVersionWithPreAndBuild(t *testing.T) {
	v, err := ParseVersion("1.4.2-beta.1+exp.sha.5114f85")
	require.NoError(t, err)
	assert.Equal(t, 1, v.Major)
	assert.Equal(t, 4, v.Minor)
	assert.Equal(t, 2, v.Patch)
	assert.Equal(t, "beta.1", v.Pre)
	assert.Equal(t, "exp.sha.5114f85", v.Build)
}

func TestParseVersionPlain(t *testing.T) {
	v, err := ParseVersion("2.0.0")
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", v.String())
}

func TestParseVersionRejectsGarbage(t *testing.T) {
	_, err := ParseVersion("not-a-version")
	assert.Error(t, err)
}

func TestLoadMissingFileIsIOError(t *testing.T) {
	_, err := Load("/no/such/project.ocproj")
	require.Error(t, err)
	var ioErr *util.IOError
	assert.True(t, errors.As(err, &ioErr))
}
