// Package project models the on-disk `.ocproj` TOML project file of spec
// §6 and its symmetric marshal/load pair, mirroring OvercastC's
// SerializeTOML/LoadFromTOML (a project file is written by `occ create`
// and read by `occ build`, not just read).
package project

import (
	"fmt"
	"os"
	"regexp"
	"strconv"

	"overcast/src/util"

	"github.com/BurntSushi/toml"
)

// Project is the root of a `.ocproj` file (spec §6's exact TOML schema).
type Project struct {
	Project      ProjectInfo           `toml:"Project"`
	Dependencies map[string]string     `toml:"Dependencies"`
	BuildInfo    BuildInfo             `toml:"BuildInfo"`
}

// ProjectInfo is the `[Project]` table.
type ProjectInfo struct {
	ProjectName           string   `toml:"ProjectName"`
	ProjectVersion         string   `toml:"ProjectVersion"`
	LangVersion            string   `toml:"LangVersion"`
	DependencyDirectories  []string `toml:"DependencyDirectories"`
}

// BuildInfo is the `[BuildInfo]` table.
type BuildInfo struct {
	NoStd           bool   `toml:"no_std"`
	EmitLLVM        bool   `toml:"emit_llvm"`
	NoAutolink      bool   `toml:"no_autolink"`
	OutputDirectory string `toml:"OutputDirectory"`
}

// New returns a project scaffold for `occ create`, matching the hello-world
// template's defaults.
func New(name string, noStd, noAutolink, emitLLVM bool) *Project {
	return &Project{
		Project: ProjectInfo{
			ProjectName:   name,
			ProjectVersion: "0.1.0",
			LangVersion:   "1.0",
		},
		Dependencies: map[string]string{},
		BuildInfo: BuildInfo{
			NoStd:           noStd,
			EmitLLVM:        emitLLVM,
			NoAutolink:      noAutolink,
			OutputDirectory: "bin",
		},
	}
}

// Marshal writes p to path as TOML.
func (p *Project) Marshal(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return &util.IOError{Path: path, Err: err}
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(p); err != nil {
		return &util.IOError{Path: path, Err: err}
	}
	return nil
}

// Load reads a `.ocproj` file from path.
func Load(path string) (*Project, error) {
	var p Project
	if _, err := toml.DecodeFile(path, &p); err != nil {
		return nil, &util.IOError{Path: path, Err: err}
	}
	return &p, nil
}

// Version is a parsed MAJOR.MINOR.PATCH[-pre][+build] string (spec §6).
type Version struct {
	Major, Minor, Patch int
	Pre                 string
	Build               string
}

var versionPattern = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)(?:-([0-9A-Za-z.-]+))?(?:\+([0-9A-Za-z.-]+))?$`)

// ParseVersion parses a semantic-versioning string per spec §6.
func ParseVersion(s string) (Version, error) {
	m := versionPattern.FindStringSubmatch(s)
	if m == nil {
		return Version{}, fmt.Errorf("invalid version string %q", s)
	}
	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	patch, _ := strconv.Atoi(m[3])
	return Version{Major: major, Minor: minor, Patch: patch, Pre: m[4], Build: m[5]}, nil
}

// String renders the version back to its canonical MAJOR.MINOR.PATCH form.
func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Pre != "" {
		s += "-" + v.Pre
	}
	if v.Build != "" {
		s += "+" + v.Build
	}
	return s
}
