package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/csc-fi/etsin-harvester/format"
	"github.com/csc-fi/etsin-harvester/refine"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List supported harvest sources and source formats",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Harvest sources:")
		for _, org := range refine.Organizations {
			fmt.Printf("  %s\n", org)
		}

		fmt.Println("\nSource formats:")
		for _, d := range format.DefaultRegistry.List() {
			m, err := format.Get(d)
			if err != nil {
				return err
			}
			fmt.Printf("  %-10s %s\n", d, m.Description())
		}
		return nil
	},
}
