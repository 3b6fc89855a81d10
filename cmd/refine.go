package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/csc-fi/etsin-harvester/format"
	"github.com/csc-fi/etsin-harvester/harvest"
	"github.com/csc-fi/etsin-harvester/refine"
)

var (
	refineInput   string
	refineOutput  string
	refineFormat  string
	refineGUID    string
	refineVerbose bool
)

var refineCmd = &cobra.Command{
	Use:   "refine <source>",
	Short: "Map and refine a document without synchronizing it",
	Long: `Map a harvested document and complete it with the rules of a harvest
source. The refined research dataset is printed; nothing is stored or sent
to the catalog.

Arguments:
  source  Harvest source (kielipankki, syke, fsd)

Input defaults to stdin.

Examples:
  etsin-harvester refine kielipankki -i record.xml
  etsin-harvester refine syke -i record.xml --guid "{6A3B...}"
  etsin-harvester refine fsd -i study.xml --verbose`,
	Args: cobra.ExactArgs(1),
	RunE: runRefine,
}

func init() {
	refineCmd.Flags().StringVarP(&refineInput, "input", "i", "", "Input file (default: stdin)")
	refineCmd.Flags().StringVarP(&refineOutput, "output", "o", "", "Output file (default: stdout)")
	refineCmd.Flags().StringVarP(&refineFormat, "format", "f", "", "Source format (default: detect)")
	refineCmd.Flags().StringVar(&refineGUID, "guid", "", "Harvest object GUID (default: input file name)")
	refineCmd.Flags().BoolVarP(&refineVerbose, "verbose", "v", false, "Dump the record when required fields are missing")
}

func runRefine(cmd *cobra.Command, args []string) error {
	source := args[0]

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
	dialect, err := parseDialectFlag(refineFormat)
	if err != nil {
		return err
	}

	var item harvest.Item
	if refineInput != "" {
		item, err = harvest.ReadItem(refineInput, refineGUID)
		if err != nil {
			return err
		}
	} else {
		doc, name, err := readInput("")
		if err != nil {
			return err
		}
		item = harvest.Item{GUID: refineGUID, Name: name, Document: doc}
	}

	p := harvest.New(format.DefaultRegistry, refs, nil, nil, harvest.Options{Dialect: dialect, DryRun: true})
	record, err := p.Refine(source, item)

	var missing *refine.DatasetFieldsMissingError
	if errors.As(err, &missing) && refineVerbose {
		fmt.Fprintln(os.Stderr, missing.Dump())
	}
	if err != nil {
		return err
	}

	out, err := marshalRecord(record, true)
	if err != nil {
		return err
	}
	return writeOutput(refineOutput, out)
}
