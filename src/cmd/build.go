package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"overcast/src/build"
	"overcast/src/project"

	"github.com/spf13/cobra"
)

func newBuildCmd() *cobra.Command {
	var threads int

	c := &cobra.Command{
		Use:   "build [name]",
		Short: "Build an OvercastC project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return runBuild(name, threads)
		},
	}
	c.Flags().IntVarP(&threads, "threads", "t", 0, "number of worker goroutines (0 = auto)")
	return c
}

func runBuild(name string, threads int) error {
	root, err := os.Getwd()
	if err != nil {
		return err
	}
	projPath, err := findProjectFile(root, name)
	if err != nil {
		return err
	}
	proj, err := project.Load(projPath)
	if err != nil {
		return err
	}

	driver, err := build.NewDriver(threads)
	if err != nil {
		return err
	}
	defer driver.Release()

	outDir := proj.BuildInfo.OutputDirectory
	if outDir == "" {
		outDir = "bin"
	}
	summary, err := driver.RunBuild(root, proj.Project.ProjectName, nil, outDir, proj.BuildInfo.EmitLLVM)
	if err != nil {
		return err
	}
	fmt.Printf("built %d object file(s); binary at %s\n", len(summary.ObjFiles), summary.BinPath)
	return nil
}

// findProjectFile locates the single `.ocproj` in dir, or dir/<name>.ocproj
// when name is given (spec §6).
func findProjectFile(dir, name string) (string, error) {
	if name != "" {
		return filepath.Join(dir, name+".ocproj"), nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var found string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".ocproj") {
			if found != "" {
				return "", fmt.Errorf("multiple .ocproj files found in %s; specify a name", dir)
			}
			found = e.Name()
		}
	}
	if found == "" {
		return "", fmt.Errorf("no .ocproj file found in %s", dir)
	}
	return filepath.Join(dir, found), nil
}
