// Package milestones gathers milestones from many repositories, groups them by
// title and closes confirmed groups.
package milestones

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/milestoner/internal/batch"
	"github.com/milestoner/internal/providers"
	"github.com/milestoner/pkg/models"
)

// FetchAll lists the milestones of every repository concurrently. The result
// has one entry per input repository, in input order. A repository whose
// fetch failed contributes an empty list; the failure only shows up as a
// diagnostic on logger, written as soon as it happens.
func FetchAll(ctx context.Context, registry providers.Registry, repos []models.Repository, logger zerolog.Logger) []models.RepositoryMilestones {
	results := FetchResults(ctx, registry, repos, logger)

	out := make([]models.RepositoryMilestones, len(results))
	for i, res := range results {
		out[i] = models.RepositoryMilestones{Repository: res.Repository}
		if res.Err == nil {
			out[i].Milestones = res.Milestones
		}
	}
	return out
}

// FetchResults runs one list call per repository and joins them, keeping the
// failure of each repository in its result
func FetchResults(ctx context.Context, registry providers.Registry, repos []models.Repository, logger zerolog.Logger) []models.FetchResult {
	tasks := make([]batch.Task[[]models.Milestone], len(repos))
	for i, repo := range repos {
		repo := repo
		tasks[i] = func(ctx context.Context) ([]models.Milestone, error) {
			milestones, err := listMilestones(ctx, registry, repo)
			if err != nil {
				logFetchFailure(logger, repo, err)
				return nil, err
			}
			return milestones, nil
		}
	}

	joined := batch.Gather(ctx, tasks)

	results := make([]models.FetchResult, len(repos))
	for i, r := range joined {
		results[i] = models.FetchResult{
			Repository: repos[i],
			Milestones: r.Value,
			Err:        r.Error,
		}
		if r.Error == nil {
			logger.Debug().
				Str("repository", repos[i].String()).
				Int("milestones", len(r.Value)).
				Dur("duration", r.Duration).
				Msg("milestones fetched")
		}
	}

	logger.Debug().
		Int("repositories", len(repos)).
		Int("failed", batch.Failed(joined)).
		Msg("fetch finished")
	return results
}

func listMilestones(ctx context.Context, registry providers.Registry, repo models.Repository) ([]models.Milestone, error) {
	provider, err := registry.Lookup(repo.Forge)
	if err != nil {
		return nil, err
	}
	return provider.ListMilestones(ctx, repo.Name)
}

func logFetchFailure(logger zerolog.Logger, repo models.Repository, err error) {
	event := logger.Error().
		Err(err).
		Str("repository", repo.String())

	if status := providers.StatusCode(err); status != 0 {
		event.Int("status", status).
			Msgf("Request to %s failed with statuscode %d", repo, status)
		return
	}
	event.Msgf("Request to %s failed", repo)
}
