package refine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/davecgh/go-spew/spew"

	"github.com/csc-fi/etsin-harvester/hub"
)

// ErrRecordSkipped marks records a refiner deliberately leaves out of the
// harvest. It is not a failure.
var ErrRecordSkipped = errors.New("record skipped")

// UnknownHarvestSourceError is returned for organizations with no refiner.
type UnknownHarvestSourceError struct {
	Name string
}

func (e *UnknownHarvestSourceError) Error() string {
	return fmt.Sprintf("unknown harvest source: %q", e.Name)
}

// DatasetFieldsMissingError is returned when a refined record still lacks
// fields the catalog requires. Record is the partial record.
type DatasetFieldsMissingError struct {
	Record *hub.Record
	Fields []string
	Reason string
}

func (e *DatasetFieldsMissingError) Error() string {
	msg := "dataset is missing required fields"
	if len(e.Fields) > 0 {
		msg += ": " + strings.Join(e.Fields, ", ")
	}
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

var dumpConfig = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// Dump returns a readable dump of the partial record for diagnostics.
func (e *DatasetFieldsMissingError) Dump() string {
	return dumpConfig.Sdump(e.Record)
}
