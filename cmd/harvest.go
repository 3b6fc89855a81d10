package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/csc-fi/etsin-harvester/format"
	"github.com/csc-fi/etsin-harvester/harvest"
)

var (
	harvestFormat string
	harvestDryRun bool
)

var harvestCmd = &cobra.Command{
	Use:   "harvest <source> <path>",
	Short: "Harvest a directory of source documents",
	Long: `Map, refine and synchronize every .xml document under path (or the
single file at path). Each file is one harvest object and its name without
extension is the object GUID. Records already in the local store are
updated; new ones are created. A failing record is reported and the run
continues.

Examples:
  etsin-harvester harvest kielipankki ./cmdi/
  etsin-harvester harvest syke ./iso/ --format iso19139
  etsin-harvester harvest fsd ./ddi/ --dry-run`,
	Args: cobra.ExactArgs(2),
	RunE: runHarvest,
}

func init() {
	harvestCmd.Flags().StringVarP(&harvestFormat, "format", "f", "", "Source format (default: detect per document)")
	harvestCmd.Flags().BoolVar(&harvestDryRun, "dry-run", false, "Map and refine only")
}

func runHarvest(cmd *cobra.Command, args []string) error {
	source, path := args[0], args[1]

	dialect, err := parseDialectFlag(harvestFormat)
	if err != nil {
		return err
	}
	items, err := harvest.ReadPath(path)
	if err != nil {
		return err
	}

	var p *harvest.Pipeline
	if harvestDryRun {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		catalogs, err := dataCatalogs(cfg)
		if err != nil {
			return err
		}
		refs, err := refiners(cfg, catalogs)
		if err != nil {
			return err
		}
		p = harvest.New(format.DefaultRegistry, refs, nil, nil, harvest.Options{Dialect: dialect, DryRun: true})
	} else {
		svc, err := openServices()
		if err != nil {
			return err
		}
		defer svc.Close()
		refs, err := refiners(svc.cfg, svc.catalogs)
		if err != nil {
			return err
		}
		p = harvest.New(format.DefaultRegistry, refs, svc.coord, svc.store, harvest.Options{
			Dialect: dialect,
			Caller:  svc.cfg.HarvestUser,
		})
	}

	report, err := p.Run(cmd.Context(), source, items)
	if err != nil {
		return err
	}
	if err := report.Write(os.Stdout); err != nil {
		return err
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d of %d records failed", report.Failed, report.Total())
	}
	return nil
}
