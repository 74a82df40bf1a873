package milestones

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/milestoner/internal/batch"
	"github.com/milestoner/internal/providers"
	"github.com/milestoner/pkg/models"
)

// CloseAll closes every member of group concurrently and waits for all of
// them. A failing member is logged as soon as it fails and recorded in its
// outcome; it never stops its siblings. Outcomes follow the order of
// group.Members.
func CloseAll(ctx context.Context, registry providers.Registry, group models.MilestoneGroup, logger zerolog.Logger) []models.CloseOutcome {
	tasks := make([]batch.Task[struct{}], len(group.Members))
	for i, member := range group.Members {
		member := member
		tasks[i] = func(ctx context.Context) (struct{}, error) {
			if err := closeMember(ctx, registry, member); err != nil {
				event := logger.Error().
					Err(err).
					Str("repository", member.Repository.String()).
					Str("milestone", group.Title)
				if status := providers.StatusCode(err); status != 0 {
					event.Int("status", status)
				}
				event.Msgf("Failed to close milestone for repository %s", member.Repository)
				return struct{}{}, err
			}
			return struct{}{}, nil
		}
	}

	joined := batch.Gather(ctx, tasks)

	outcomes := make([]models.CloseOutcome, len(joined))
	for i, r := range joined {
		member := group.Members[i]
		outcomes[i] = models.CloseOutcome{Member: member, Err: r.Error}
		if r.Error == nil {
			logger.Debug().
				Str("repository", member.Repository.String()).
				Str("milestone", group.Title).
				Dur("duration", r.Duration).
				Msg("milestone closed")
		}
	}

	logger.Debug().
		Str("milestone", group.Title).
		Int("members", len(joined)).
		Int("failed", batch.Failed(joined)).
		Msg("close finished")
	return outcomes
}

func closeMember(ctx context.Context, registry providers.Registry, member models.Member) error {
	provider, err := registry.Lookup(member.Repository.Forge)
	if err != nil {
		return err
	}
	return provider.CloseMilestone(ctx, member.Locator)
}
