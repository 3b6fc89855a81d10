// Package harvest runs harvested source documents through mapping,
// refinement and synchronization, one record at a time.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/csc-fi/etsin-harvester/coordinator"
	"github.com/csc-fi/etsin-harvester/format"
	"github.com/csc-fi/etsin-harvester/hub"
	"github.com/csc-fi/etsin-harvester/refine"
	"github.com/csc-fi/etsin-harvester/store"
)

// Syncer applies records to the local store and the catalog.
type Syncer interface {
	Create(ctx context.Context, req coordinator.Request) (coordinator.Result, error)
	Update(ctx context.Context, req coordinator.Request) (coordinator.Result, error)
}

// Packages finds the local package already holding a dataset.
type Packages interface {
	FindByPreferredIdentifier(ctx context.Context, pid string) (*store.Package, error)
}

// Item is one harvest object.
type Item struct {
	// GUID is the identifier the source assigned to the object.
	GUID string

	// Name identifies the object in logs and errors, usually its file name.
	Name string

	Document []byte
}

// Outcome is what happened to one item.
type Outcome int

const (
	OutcomeCreated Outcome = iota + 1
	OutcomeUpdated
	OutcomeSkipped
	OutcomeFailed
	OutcomeRefined
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeUpdated:
		return "updated"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	case OutcomeRefined:
		return "refined"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Options configures a Pipeline.
type Options struct {
	// Dialect forces the source dialect. Zero detects it per document.
	Dialect format.Dialect

	// Caller is passed to the coordinator. Defaults to the harvest user.
	Caller string

	// DryRun stops after refinement.
	DryRun bool
}

// Pipeline maps, refines and synchronizes the items of one harvest source.
type Pipeline struct {
	mappers  *format.Registry
	refiners *refine.Registry
	syncer   Syncer
	packages Packages
	opts     Options
}

// New creates a pipeline. syncer and packages may be nil for dry runs.
func New(mappers *format.Registry, refiners *refine.Registry, syncer Syncer, packages Packages, opts Options) *Pipeline {
	if opts.Caller == "" {
		opts.Caller = coordinator.DefaultHarvestUser
	}
	return &Pipeline{
		mappers:  mappers,
		refiners: refiners,
		syncer:   syncer,
		packages: packages,
		opts:     opts,
	}
}

// ItemResult is the result of one item.
type ItemResult struct {
	GUID    string
	Name    string
	Outcome Outcome
	Record  *hub.Record
	Result  coordinator.Result
	Err     error
}

// Run processes items in order. A failing item is recorded in the report
// and does not stop the run; Run itself fails only for an unknown harvest
// source or a cancelled context.
func (p *Pipeline) Run(ctx context.Context, source string, items []Item) (*Report, error) {
	if _, err := refine.ParseOrganization(source); err != nil {
		return nil, err
	}
	if !p.opts.DryRun && (p.syncer == nil || p.packages == nil) {
		return nil, errors.New("harvest: syncer and packages are required unless dry run")
	}

	report := &Report{Source: source}
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res := p.Process(ctx, source, item)
		report.add(res)
	}

	slog.Info("harvest finished",
		"harvest_source", source,
		"created", report.Created,
		"updated", report.Updated,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)
	return report, nil
}

// Process runs one item through the pipeline.
func (p *Pipeline) Process(ctx context.Context, source string, item Item) ItemResult {
	res := ItemResult{GUID: item.GUID, Name: item.Name}
	log := slog.With("harvest_source", source, "guid", item.GUID)

	record, err := p.refined(source, item)
	if err != nil {
		res.Err = err
		if errors.Is(err, refine.ErrRecordSkipped) {
			res.Outcome = OutcomeSkipped
			log.Info("record skipped", "reason", err)
		} else {
			res.Outcome = OutcomeFailed
			logFailure(log, err)
		}
		return res
	}
	res.Record = record
	log = log.With("preferred_identifier", record.PreferredIdentifier)

	if p.opts.DryRun {
		res.Outcome = OutcomeRefined
		return res
	}

	req := coordinator.Request{
		Caller:        p.opts.Caller,
		HarvestSource: source,
		Record:        record,
	}

	existing, err := p.packages.FindByPreferredIdentifier(ctx, record.PreferredIdentifier)
	switch {
	case errors.Is(err, store.ErrNotFound):
		res.Result, err = p.syncer.Create(ctx, req)
		res.Outcome = OutcomeCreated
	case err != nil:
		err = fmt.Errorf("looking up local package: %w", err)
	default:
		req.LocalID = existing.LocalID
		res.Result, err = p.syncer.Update(ctx, req)
		res.Outcome = OutcomeUpdated
	}
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Err = err
		logFailure(log, err)
	}
	return res
}

// Refine maps and refines one document without synchronizing it.
func (p *Pipeline) Refine(source string, item Item) (*hub.Record, error) {
	return p.refined(source, item)
}

func (p *Pipeline) refined(source string, item Item) (*hub.Record, error) {
	d := p.opts.Dialect
	if d == 0 {
		detected, err := p.mappers.DetectFromContent(item.Document)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", item.Name, err)
		}
		d = detected
	}

	record, err := p.mappers.Map(d, item.Document, &format.MapOptions{SourceName: item.Name})
	if err != nil {
		return nil, err
	}

	hc, err := refine.NewHarvestContext(source, item.GUID, item.Document)
	if err != nil {
		return nil, err
	}
	return p.refiners.Refine(record, hc)
}

func logFailure(log *slog.Logger, err error) {
	var malformed *format.MalformedSourceError
	var missing *refine.DatasetFieldsMissingError
	var invalid *coordinator.ValidationFailedError
	switch {
	case errors.As(err, &malformed):
		log.Error("malformed source document", "error", err)
	case errors.As(err, &missing):
		log.Error("dataset is missing required fields", "fields", missing.Fields, "error", err)
		log.Debug("refined record", "record", missing.Dump())
	case errors.As(err, &invalid):
		log.Error("record not eligible for sync", "error", err)
	default:
		log.Error("record failed", "error", err)
	}
}
