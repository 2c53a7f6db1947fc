package pipeline

import (
	"context"
	"strings"

	"github.com/philo-kim/moniterdc-sub001/internal/db"
	"github.com/philo-kim/moniterdc-sub001/internal/hierarchy"
)

const (
	DefaultHierarchyVersion = 2
	MethodHierarchy         = "hierarchy"
)

type HierarchyOptions struct {
	Matcher hierarchy.Options
	// Version selects the worldview generation; <= 0 uses DefaultHierarchyVersion.
	Version  int
	Limit    int
	DryRun   bool
	Progress Progress
}

type ChildSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Links int    `json:"links"`
}

type ParentSummary struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Links    int            `json:"links"`
	Children []ChildSummary `json:"children"`
}

type HierarchyResult struct {
	Perceptions       int
	Parents           int
	Children          int
	Matched           int
	Unmatched         int
	LinksWritten      int64
	WorldviewsUpdated int64
	DryRun            bool
	Breakdown         []ParentSummary
}

// LinksPerPerception is the mean number of links created per perception.
func (r HierarchyResult) LinksPerPerception() float64 {
	if r.Perceptions == 0 {
		return 0
	}
	total := 0
	for _, parent := range r.Breakdown {
		total += parent.Links
	}
	return float64(total) / float64(r.Perceptions)
}

// HierarchyPending scores perceptions with declared mechanisms against the
// two-level worldview taxonomy and rewrites the link table with up to TopN
// links per perception.
func (s *Service) HierarchyPending(ctx context.Context, opts HierarchyOptions) (HierarchyResult, error) {
	result := HierarchyResult{DryRun: opts.DryRun}
	if err := s.ready(); err != nil {
		return result, err
	}

	m, err := hierarchy.New(opts.Matcher)
	if err != nil {
		return result, err
	}

	version := opts.Version
	if version <= 0 {
		version = DefaultHierarchyVersion
	}
	worldviews, err := s.store.ListWorldviews(ctx, db.WorldviewFilter{
		Version: version,
		Levels:  []int16{1, 2},
	})
	if err != nil {
		return result, err
	}

	var parentRows, childRows []hierarchy.Category
	for _, row := range worldviews {
		category := hierarchy.Category{ID: row.ID, Title: row.Title}
		if row.ParentWorldviewID != nil {
			category.ParentID = *row.ParentWorldviewID
		}
		switch row.Level {
		case 1:
			parentRows = append(parentRows, category)
		case 2:
			frame, err := row.FrameValue()
			if err != nil {
				s.logger.Warn().Err(err).Str("worldview_id", row.ID).Msg("unreadable frame; child skipped")
				continue
			}
			category.Frame = hierarchy.Frame{
				Subject: frame.Subject,
				Action:  frame.Action,
				Object:  frame.Object,
			}
			childRows = append(childRows, category)
		}
	}
	if len(parentRows) == 0 || len(childRows) == 0 {
		return result, ErrNoWorldviews
	}
	parents := hierarchy.GroupChildren(parentRows, childRows)
	result.Parents = len(parentRows)
	result.Children = len(childRows)

	perceptions, err := s.store.ListPerceptions(ctx, db.PerceptionFilter{
		RequireMechanisms: true,
		Limit:             opts.Limit,
	})
	if err != nil {
		return result, err
	}
	if len(perceptions) == 0 {
		return result, ErrNoPerceptions
	}
	result.Perceptions = len(perceptions)

	childLinks := make(map[string]int, len(childRows))
	links := make([]db.LinkInput, 0, len(perceptions))
	for i, row := range perceptions {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		item := hierarchy.Item{ID: row.ID}
		actor, err := row.ActorValue()
		if err != nil {
			s.logger.Warn().Err(err).Str("item_id", row.ID).Msg("unreadable actor; scoring without it")
		} else if actor != nil {
			item.Actor = &hierarchy.Actor{Subject: actor.Subject, Methods: actor.Methods}
		}

		matches := m.MatchToHierarchy(item, parents)
		if len(matches) == 0 {
			result.Unmatched++
		} else {
			result.Matched++
		}
		for _, match := range matches {
			childLinks[match.CategoryID]++
			links = append(links, db.LinkInput{
				PerceptionID: row.ID,
				WorldviewID:  match.CategoryID,
				Score:        match.Score,
				Method:       MethodHierarchy,
			})
		}
		opts.Progress.report(i+1, len(perceptions))
	}

	result.Breakdown = summarizeParents(parents, childLinks)

	if opts.DryRun {
		return result, nil
	}
	if err := s.persistLinks(ctx, links, &result.LinksWritten, &result.WorldviewsUpdated); err != nil {
		return result, err
	}
	return result, nil
}

func summarizeParents(parents []hierarchy.Parent, childLinks map[string]int) []ParentSummary {
	out := make([]ParentSummary, 0, len(parents))
	for _, parent := range parents {
		summary := ParentSummary{
			ID:       parent.ID,
			Title:    strings.TrimSpace(parent.Title),
			Children: make([]ChildSummary, 0, len(parent.Children)),
		}
		for _, child := range parent.Children {
			n := childLinks[child.ID]
			summary.Links += n
			summary.Children = append(summary.Children, ChildSummary{
				ID:    child.ID,
				Title: strings.TrimSpace(child.Title),
				Links: n,
			})
		}
		out = append(out, summary)
	}
	return out
}
