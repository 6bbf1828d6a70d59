package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var databasesCmd = &cobra.Command{
	Use:   "databases",
	Short: "List the onboarded databases",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}

		for _, name := range reg.Names() {
			cfg, _ := reg.Lookup(name)
			state := "enrolled"
			if !cfg.Sync {
				state = "not enrolled"
			}
			line := fmt.Sprintf("%-20s %-10s %s", name, cfg.Driver, state)
			if len(cfg.Prefixes) > 0 {
				line += fmt.Sprintf(" (prefixes: %s)", strings.Join(cfg.Prefixes, ", "))
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(databasesCmd)
}
