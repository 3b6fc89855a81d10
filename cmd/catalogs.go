package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var catalogsCmd = &cobra.Command{
	Use:   "catalogs",
	Short: "Manage data catalogs",
	Long:  `List, inspect and publish the data catalogs harvested datasets belong to.`,
}

var catalogsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List data catalogs per harvest source",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		registry, err := dataCatalogs(cfg)
		if err != nil {
			return err
		}

		sources := registry.List()
		if len(sources) == 0 {
			fmt.Println("No data catalogs found")
			return nil
		}

		fmt.Println("Data catalogs:")
		for _, source := range sources {
			dc, _ := registry.Get(source)
			fmt.Printf("  %-12s %s\n", source, dc.Identifier())
		}
		return nil
	},
}

var catalogsShowCmd = &cobra.Command{
	Use:   "show <source>",
	Short: "Show the data catalog of a harvest source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		registry, err := dataCatalogs(cfg)
		if err != nil {
			return err
		}

		dc, ok := registry.Get(args[0])
		if !ok {
			return fmt.Errorf("no data catalog for harvest source: %s", args[0])
		}

		out, err := yaml.Marshal(dc)
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

var catalogsEnsureCmd = &cobra.Command{
	Use:   "ensure [source...]",
	Short: "Create or update data catalogs in the remote catalog",
	Long: `Publish the data catalog of each given harvest source, or of every
source when none is given. Existing catalogs are updated in place.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openServices()
		if err != nil {
			return err
		}
		defer svc.Close()

		sources := args
		if len(sources) == 0 {
			sources = svc.catalogs.List()
		}
		for _, source := range sources {
			dc, ok := svc.catalogs.Get(source)
			if !ok {
				return fmt.Errorf("no data catalog for harvest source: %s", source)
			}
			created, err := svc.client.EnsureDataCatalog(cmd.Context(), dc)
			if err != nil {
				return fmt.Errorf("%s: %w", source, err)
			}
			action := "updated"
			if created {
				action = "created"
			}
			fmt.Printf("  %-12s %s %s\n", source, dc.Identifier(), action)
		}
		return nil
	},
}

func init() {
	catalogsCmd.AddCommand(catalogsListCmd)
	catalogsCmd.AddCommand(catalogsShowCmd)
	catalogsCmd.AddCommand(catalogsEnsureCmd)
}
