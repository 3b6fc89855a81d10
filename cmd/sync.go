package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/csc-fi/etsin-harvester/catalog"
	"github.com/csc-fi/etsin-harvester/config"
	"github.com/csc-fi/etsin-harvester/coordinator"
	"github.com/csc-fi/etsin-harvester/format"
	"github.com/csc-fi/etsin-harvester/harvest"
	"github.com/csc-fi/etsin-harvester/hub"
	"github.com/csc-fi/etsin-harvester/lookup"
	"github.com/csc-fi/etsin-harvester/store"
)

var (
	syncInput   string
	syncFormat  string
	syncGUID    string
	syncLocalID string
	syncCaller  string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Create, update or delete single datasets",
	Long: `Run one create, update or delete through the sync coordinator. Operations
of the harvest user are written to the catalog first and then to the local
store; other callers only touch the local store.`,
}

var syncCreateCmd = &cobra.Command{
	Use:   "create <source>",
	Short: "Create a dataset from a source document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd.Context(), args[0], syncOpCreate)
	},
}

var syncUpdateCmd = &cobra.Command{
	Use:   "update <source>",
	Short: "Update a stored dataset from a source document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd.Context(), args[0], syncOpUpdate)
	},
}

var syncDeleteCmd = &cobra.Command{
	Use:   "delete <source>",
	Short: "Delete a stored dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd.Context(), args[0], syncOpDelete)
	},
}

func init() {
	for _, c := range []*cobra.Command{syncCreateCmd, syncUpdateCmd, syncDeleteCmd} {
		c.Flags().StringVar(&syncCaller, "caller", "", "Caller identity (default: the configured harvest user)")
		syncCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{syncCreateCmd, syncUpdateCmd} {
		c.Flags().StringVarP(&syncInput, "input", "i", "", "Input file (default: stdin)")
		c.Flags().StringVarP(&syncFormat, "format", "f", "", "Source format (default: detect)")
		c.Flags().StringVar(&syncGUID, "guid", "", "Harvest object GUID (default: input file name)")
	}
	for _, c := range []*cobra.Command{syncUpdateCmd, syncDeleteCmd} {
		c.Flags().StringVar(&syncLocalID, "local-id", "", "Local package id")
		_ = c.MarkFlagRequired("local-id")
	}
}

type syncOp int

const (
	syncOpCreate syncOp = iota
	syncOpUpdate
	syncOpDelete
)

// services holds what a synchronizing command needs.
type services struct {
	cfg      *config.Config
	catalogs *lookup.CatalogRegistry
	client   *catalog.HTTPClient
	store    *store.Store
	coord    *coordinator.Coordinator
}

func openServices() (*services, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	catalogs, err := dataCatalogs(cfg)
	if err != nil {
		return nil, err
	}
	cc, err := cfg.CatalogClientConfig()
	if err != nil {
		return nil, err
	}
	client, err := catalog.New(cc)
	if err != nil {
		return nil, err
	}
	s, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	coord := coordinator.New(client, s, catalogs, coordinator.Options{HarvestUser: cfg.HarvestUser})
	return &services{cfg: cfg, catalogs: catalogs, client: client, store: s, coord: coord}, nil
}

func (s *services) Close() {
	if err := s.store.Close(); err != nil {
		slog.Error("closing local store", "error", err)
	}
}

func runSync(ctx context.Context, source string, op syncOp) error {
	svc, err := openServices()
	if err != nil {
		return err
	}
	defer svc.Close()

	caller := syncCaller
	if caller == "" {
		caller = svc.cfg.HarvestUser
	}
	req := coordinator.Request{Caller: caller, HarvestSource: source, LocalID: syncLocalID}

	if op != syncOpDelete {
		record, err := refineInputRecord(svc, source)
		if err != nil {
			return err
		}
		req.Record = record
	}

	var res coordinator.Result
	switch op {
	case syncOpCreate:
		res, err = svc.coord.Create(ctx, req)
	case syncOpUpdate:
		res, err = svc.coord.Update(ctx, req)
	case syncOpDelete:
		res, err = svc.coord.Delete(ctx, req)
	default:
		err = errors.New("unknown sync operation")
	}
	if err != nil {
		return err
	}

	fmt.Printf("local_id=%s remote_id=%s", res.LocalID, res.RemoteID)
	switch {
	case res.Existed:
		fmt.Print(" (updated existing catalog record)")
	case res.Reconciled:
		fmt.Print(" (recreated missing catalog record)")
	case res.RemoteSkipped:
		fmt.Print(" (catalog record already gone)")
	}
	fmt.Println()
	return nil
}

func refineInputRecord(svc *services, source string) (*hub.Record, error) {
	refs, err := refiners(svc.cfg, svc.catalogs)
	if err != nil {
		return nil, err
	}
	dialect, err := parseDialectFlag(syncFormat)
	if err != nil {
		return nil, err
	}

	var item harvest.Item
	if syncInput != "" {
		if item, err = harvest.ReadItem(syncInput, syncGUID); err != nil {
			return nil, err
		}
	} else {
		doc, name, err := readInput("")
		if err != nil {
			return nil, err
		}
		item = harvest.Item{GUID: syncGUID, Name: name, Document: doc}
	}

	p := harvest.New(format.DefaultRegistry, refs, nil, nil, harvest.Options{Dialect: dialect, DryRun: true})
	return p.Refine(source, item)
}
