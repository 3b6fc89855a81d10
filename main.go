package main

import (
	"github.com/csc-fi/etsin-harvester/cmd"

	// Register source format mappers
	_ "github.com/csc-fi/etsin-harvester/format/cmdi"
	_ "github.com/csc-fi/etsin-harvester/format/datacite"
	_ "github.com/csc-fi/etsin-harvester/format/ddi25"
	_ "github.com/csc-fi/etsin-harvester/format/iso19139"
)

func main() {
	cmd.Execute()
}
