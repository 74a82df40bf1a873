package milestones

import (
	"github.com/milestoner/pkg/models"
)

// Pattern decides whether a milestone title is selected. *regexp.Regexp
// satisfies it.
type Pattern interface {
	MatchString(s string) bool
}

// Groups is the title keyed result of Aggregate. Iteration follows the order
// in which titles were first seen, which makes it deterministic for a given
// input.
type Groups struct {
	order   []string
	byTitle map[string]*models.MilestoneGroup
}

// Aggregate merges the milestones of all repositories into groups keyed by
// exact title. Only titles matching pattern are considered; repositories are
// visited in input order and milestones in list order, which fixes the order
// of members inside each group.
//
// Milestones from different repositories that share a title end up in the
// same group.
func Aggregate(repos []models.RepositoryMilestones, pattern Pattern) *Groups {
	g := &Groups{byTitle: make(map[string]*models.MilestoneGroup)}

	for _, rm := range repos {
		for _, m := range rm.Milestones {
			if !pattern.MatchString(m.Title) {
				continue
			}

			group, ok := g.byTitle[m.Title]
			if !ok {
				group = &models.MilestoneGroup{Title: m.Title}
				g.byTitle[m.Title] = group
				g.order = append(g.order, m.Title)
			}
			group.Members = append(group.Members, models.Member{
				Locator:    m.Locator,
				Repository: rm.Repository,
			})
		}
	}

	return g
}

// Len returns the number of groups
func (g *Groups) Len() int {
	return len(g.order)
}

// Get returns the group for title
func (g *Groups) Get(title string) (models.MilestoneGroup, bool) {
	group, ok := g.byTitle[title]
	if !ok {
		return models.MilestoneGroup{}, false
	}
	return copyGroup(group), true
}

// List returns all groups in first-seen order
func (g *Groups) List() []models.MilestoneGroup {
	out := make([]models.MilestoneGroup, 0, len(g.order))
	for _, title := range g.order {
		out = append(out, copyGroup(g.byTitle[title]))
	}
	return out
}

func copyGroup(group *models.MilestoneGroup) models.MilestoneGroup {
	members := make([]models.Member, len(group.Members))
	copy(members, group.Members)
	return models.MilestoneGroup{Title: group.Title, Members: members}
}
