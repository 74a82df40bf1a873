package milestones

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/milestoner/internal/confirm"
	"github.com/milestoner/internal/providers"
	"github.com/milestoner/pkg/models"
)

// Phase is a step of a Runner run
type Phase int

const (
	PhaseFetching Phase = iota
	PhaseAggregating
	PhasePresenting
	PhaseConfirming
	PhaseClosing
	PhaseSkipping
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseFetching:
		return "fetching"
	case PhaseAggregating:
		return "aggregating"
	case PhasePresenting:
		return "presenting"
	case PhaseConfirming:
		return "confirming"
	case PhaseClosing:
		return "closing"
	case PhaseSkipping:
		return "skipping"
	case PhaseDone:
		return "done"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Summary counts what a run did
type Summary struct {
	Groups    int
	Confirmed int
	Closed    int
	Failed    int
}

// Runner drives one bulk close: fetch every repository, group matching
// milestones by title, then ask about and close each group in turn.
type Runner struct {
	Registry     providers.Registry
	Repositories []models.Repository
	Pattern      Pattern
	// PatternText is the pattern as the operator typed it
	PatternText  string
	Confirmer    confirm.Confirmer
	Out          io.Writer
	Logger       zerolog.Logger
	DryRun       bool
}

// Run executes the whole flow. Fetch and close failures are tolerated and only
// reported; an error is returned only when confirmation fails or ctx ends
// before the next step could start.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	r.enter(PhaseFetching)
	fetched := FetchAll(ctx, r.Registry, r.Repositories, r.Logger)
	if err := ctx.Err(); err != nil {
		return summary, err
	}

	r.enter(PhaseAggregating)
	groups := Aggregate(fetched, r.Pattern)
	summary.Groups = groups.Len()

	fmt.Fprintln(r.Out)
	fmt.Fprintf(r.Out, "Found %d open milestones matching the pattern '%s':\n", groups.Len(), r.PatternText)

	for i, group := range groups.List() {
		r.enter(PhasePresenting)
		r.present(i+1, group)

		if err := ctx.Err(); err != nil {
			return summary, err
		}

		r.enter(PhaseConfirming)
		question := fmt.Sprintf("Close milestone '%s' in those repositories?", group.Title)
		ok, err := r.Confirmer.Confirm(ctx, question)
		if err != nil {
			return summary, fmt.Errorf("failed to confirm milestone %q: %w", group.Title, err)
		}
		if !ok {
			r.enter(PhaseSkipping)
			r.Logger.Debug().Str("milestone", group.Title).Msg("milestone skipped")
			continue
		}
		summary.Confirmed++

		r.enter(PhaseClosing)
		if r.DryRun {
			for _, m := range group.Members {
				fmt.Fprintf(r.Out, "Would close milestone '%s' in %s\n", group.Title, m.Repository)
			}
			continue
		}

		for _, outcome := range CloseAll(ctx, r.Registry, group, r.Logger) {
			if outcome.Succeeded() {
				summary.Closed++
			} else {
				summary.Failed++
			}
		}
	}

	r.enter(PhaseDone)
	if summary.Confirmed > 0 && !r.DryRun {
		fmt.Fprintf(r.Out, "Closed %d milestones, %d failed.\n", summary.Closed, summary.Failed)
	}
	return summary, nil
}

func (r *Runner) present(index int, group models.MilestoneGroup) {
	fmt.Fprintf(r.Out, "(%d) '%s' is open in:\n", index, group.Title)
	for _, repo := range group.Repositories() {
		fmt.Fprintf(r.Out, " - %s\n", repo)
	}
	fmt.Fprintln(r.Out)
}

func (r *Runner) enter(p Phase) {
	r.Logger.Debug().Stringer("phase", p).Msg("runner phase")
}
