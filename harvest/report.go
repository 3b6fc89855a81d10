package harvest

import (
	"fmt"
	"io"
)

// Report summarizes a harvest run.
type Report struct {
	Source  string
	Created int
	Updated int
	Skipped int
	Failed  int
	Refined int

	// Reconciled counts updates that recreated a vanished catalog record.
	Reconciled int

	Items []ItemResult
}

func (r *Report) add(res ItemResult) {
	r.Items = append(r.Items, res)
	switch res.Outcome {
	case OutcomeCreated:
		r.Created++
	case OutcomeUpdated:
		r.Updated++
		if res.Result.Reconciled {
			r.Reconciled++
		}
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeFailed:
		r.Failed++
	case OutcomeRefined:
		r.Refined++
	}
}

// Failures returns the items that failed.
func (r *Report) Failures() []ItemResult {
	var out []ItemResult
	for _, item := range r.Items {
		if item.Outcome == OutcomeFailed {
			out = append(out, item)
		}
	}
	return out
}

// Total returns the number of processed items.
func (r *Report) Total() int {
	return len(r.Items)
}

// Write prints a human-readable summary.
func (r *Report) Write(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s: %d items, %d created, %d updated (%d reconciled), %d skipped, %d failed\n",
		r.Source, r.Total(), r.Created, r.Updated, r.Reconciled, r.Skipped, r.Failed)
	if err != nil {
		return err
	}
	if r.Refined > 0 {
		if _, err := fmt.Fprintf(w, "  %d refined (dry run)\n", r.Refined); err != nil {
			return err
		}
	}
	for _, item := range r.Failures() {
		if _, err := fmt.Fprintf(w, "  %s: %v\n", item.Name, item.Err); err != nil {
			return err
		}
	}
	return nil
}
