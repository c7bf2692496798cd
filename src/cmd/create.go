package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"overcast/src/project"

	"github.com/spf13/cobra"
)

const helloWorldTemplate = `package %s

func main() -> int {
    print("Hello, world!\n");
    return 0;
}
`

func newCreateCmd() *cobra.Command {
	var noStd, noAutolink, emitLLVM bool

	c := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new OvercastC project",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 || args[0] == "" {
				return errInvalidCreate
			}
			name := args[0]
			return runCreate(name, noStd, noAutolink, emitLLVM)
		},
	}
	c.Flags().BoolVar(&noStd, "no_std", false, "omit the standard library")
	c.Flags().BoolVar(&noAutolink, "no_autolink", false, "skip automatic linking")
	c.Flags().BoolVar(&emitLLVM, "emit-llvm", false, "emit textual IR alongside object files")
	return c
}

func runCreate(name string, noStd, noAutolink, emitLLVM bool) error {
	root := filepath.Join(".", name)
	if err := os.MkdirAll(filepath.Join(root, "bin"), 0755); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(root, "obj"), 0755); err != nil {
		return err
	}

	proj := project.New(name, noStd, noAutolink, emitLLVM)
	if err := proj.Marshal(filepath.Join(root, name+".ocproj")); err != nil {
		return err
	}

	mainSrc := fmt.Sprintf(helloWorldTemplate, name)
	if err := os.WriteFile(filepath.Join(root, "main.oc"), []byte(mainSrc), 0644); err != nil {
		return err
	}
	fmt.Printf("created project %q in %s\n", name, root)
	return nil
}
