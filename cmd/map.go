package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/csc-fi/etsin-harvester/format"
	"github.com/csc-fi/etsin-harvester/format/iso19139"
	"github.com/csc-fi/etsin-harvester/hub"
)

var (
	inputFile  string
	outputFile string
	valuesFile string
	pretty     bool
)

var mapCmd = &cobra.Command{
	Use:   "map [format]",
	Short: "Map a source document into an unrefined research dataset",
	Long: `Map one harvested metadata document into a research dataset without
organization specific refinement.

Arguments:
  format  Source format (cmdi, datacite, ddi25, iso19139). Detected from
          the document when omitted.

Input defaults to stdin, output defaults to stdout. An ISO 19139 record
may instead be given as a pre-extracted key/value view in YAML with
--values.

Examples:
  etsin-harvester map cmdi -i record.xml
  cat record.xml | etsin-harvester map --pretty
  etsin-harvester map iso19139 --values record.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMap,
}

func init() {
	mapCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input file (default: stdin)")
	mapCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	mapCmd.Flags().StringVar(&valuesFile, "values", "", "ISO 19139 key/value view (YAML) instead of XML input")
	mapCmd.Flags().BoolVar(&pretty, "pretty", false, "Pretty-print JSON output")
}

func runMap(cmd *cobra.Command, args []string) error {
	if valuesFile != "" {
		if len(args) == 1 {
			if d, err := format.ParseDialect(args[0]); err != nil || d != format.DialectISO19139 {
				return fmt.Errorf("--values is only supported for %s", format.DialectISO19139)
			}
		}
		record, err := mapValuesFile(valuesFile)
		if err != nil {
			return err
		}
		out, err := marshalRecord(record, pretty)
		if err != nil {
			return err
		}
		return writeOutput(outputFile, out)
	}

	doc, name, err := readInput(inputFile)
	if err != nil {
		return err
	}

	var d format.Dialect
	if len(args) == 1 {
		d, err = format.ParseDialect(args[0])
	} else {
		d, err = format.DefaultRegistry.DetectFromContent(doc)
	}
	if err != nil {
		return err
	}

	record, err := format.DefaultRegistry.Map(d, doc, &format.MapOptions{SourceName: name})
	if err != nil {
		return err
	}

	out, err := marshalRecord(record, pretty)
	if err != nil {
		return err
	}
	return writeOutput(outputFile, out)
}

// mapValuesFile maps an ISO 19139 key/value view read from path.
func mapValuesFile(path string) (*hub.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening values file: %w", err)
	}
	defer f.Close()

	v, err := iso19139.LoadValues(f)
	if err != nil {
		return nil, err
	}
	return iso19139.MapValues(v), nil
}

// marshalRecord encodes a record as research_dataset JSON.
func marshalRecord(record *hub.Record, indent bool) ([]byte, error) {
	s, err := hub.ToStruct(record)
	if err != nil {
		return nil, err
	}
	opts := protojson.MarshalOptions{}
	if indent {
		opts.Multiline = true
		opts.Indent = "  "
	}
	out, err := opts.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}
	return append(out, '\n'), nil
}
