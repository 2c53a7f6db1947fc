package hierarchy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/philo-kim/moniterdc-sub001/internal/keyword"
)

const (
	DefaultSubjectWeight = 0.6
	DefaultActionWeight  = 0.3
	DefaultObjectWeight  = 0.1
	// Object matching is not computable from the available fields, so every
	// pair receives this partial credit.
	DefaultObjectCredit = 0.3
	DefaultMinScore     = 0.4
	DefaultTopN         = 3
)

type Weights struct {
	Subject      float64 `yaml:"subject"`
	Action       float64 `yaml:"action"`
	Object       float64 `yaml:"object"`
	ObjectCredit float64 `yaml:"object_credit"`
}

func DefaultWeights() Weights {
	return Weights{
		Subject:      DefaultSubjectWeight,
		Action:       DefaultActionWeight,
		Object:       DefaultObjectWeight,
		ObjectCredit: DefaultObjectCredit,
	}
}

type Options struct {
	Weights  Weights
	MinScore float64
	TopN     int
}

type Actor struct {
	Subject string
	Methods []string
}

type Item struct {
	ID    string
	Actor *Actor
}

type Frame struct {
	Subject string
	Action  string
	Object  string
}

type Category struct {
	ID       string
	Title    string
	ParentID string
	Frame    Frame
}

type Parent struct {
	Category
	Children []Category
}

type Breakdown struct {
	Subject float64 `json:"subject"`
	Action  float64 `json:"action"`
	Object  float64 `json:"object"`
	Total   float64 `json:"total"`
}

type Match struct {
	CategoryID  string    `json:"worldview_id"`
	Title       string    `json:"worldview_title"`
	ParentID    string    `json:"parent_worldview_id"`
	ParentTitle string    `json:"parent_title"`
	Score       float64   `json:"score"`
	Breakdown   Breakdown `json:"breakdown"`
}

type Matcher struct {
	weights  Weights
	minScore float64
	topN     int
}

func New(opts Options) (*Matcher, error) {
	weights := opts.Weights
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	if weights.Subject < 0 || weights.Action < 0 || weights.Object < 0 {
		return nil, fmt.Errorf("hierarchy weights must be >= 0")
	}
	if weights.ObjectCredit < 0 || weights.ObjectCredit > 1 {
		return nil, fmt.Errorf("object credit must be within [0,1]")
	}

	minScore := opts.MinScore
	if minScore <= 0 {
		minScore = DefaultMinScore
	}
	topN := opts.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}

	return &Matcher{
		weights:  weights,
		minScore: minScore,
		topN:     topN,
	}, nil
}

func (m *Matcher) Weights() Weights {
	return m.weights
}

func (m *Matcher) MinScore() float64 {
	return m.minScore
}

// Score rates how well item fits a child category.
func (m *Matcher) Score(item Item, child Category) Breakdown {
	var b Breakdown
	if item.Actor != nil {
		b.Subject = subjectMatch(item.Actor.Subject, child.Frame.Subject)
		b.Action = actionMatch(item.Actor.Methods, child.Frame.Action)
	}
	b.Object = m.weights.ObjectCredit
	b.Total = unitInterval(m.weights.Subject*b.Subject + m.weights.Action*b.Action + m.weights.Object*b.Object)
	return b
}

// unitInterval caps a score to [0,1], the range of a link relevance score.
// Weights summing above 1 would otherwise overflow it.
func unitInterval(score float64) float64 {
	switch {
	case score < 0:
		return 0
	case score > 1:
		return 1
	default:
		return score
	}
}

// MatchToHierarchy scores item against every child of every parent and keeps
// the best TopN at or above MinScore. An empty result means no confident match.
func (m *Matcher) MatchToHierarchy(item Item, parents []Parent) []Match {
	var matches []Match
	for _, parent := range parents {
		for _, child := range parent.Children {
			b := m.Score(item, child)
			if b.Total < m.minScore {
				continue
			}
			matches = append(matches, Match{
				CategoryID:  child.ID,
				Title:       child.Title,
				ParentID:    parent.ID,
				ParentTitle: parent.Title,
				Score:       b.Total,
				Breakdown:   b,
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > m.topN {
		matches = matches[:m.topN]
	}
	return matches
}

// GroupChildren attaches each child to its parent by ParentID, preserving the
// input order of both. Children whose parent is missing are dropped.
func GroupChildren(parents []Category, children []Category) []Parent {
	byParent := make(map[string][]Category, len(parents))
	for _, child := range children {
		id := strings.TrimSpace(child.ParentID)
		if id == "" {
			continue
		}
		byParent[id] = append(byParent[id], child)
	}

	out := make([]Parent, 0, len(parents))
	for _, parent := range parents {
		out = append(out, Parent{
			Category: parent,
			Children: byParent[parent.ID],
		})
	}
	return out
}

func subjectMatch(itemSubject, categorySubject string) float64 {
	if strings.TrimSpace(itemSubject) == "" || strings.TrimSpace(categorySubject) == "" {
		return 0
	}
	if keyword.Intersects(keyword.SplitSubject(itemSubject), keyword.SplitSubject(categorySubject)) {
		return 1
	}
	return 0
}

func actionMatch(methods []string, action string) float64 {
	if action == "" {
		return 0
	}
	for _, method := range methods {
		if method == "" {
			continue
		}
		if strings.Contains(action, method) {
			return 1
		}
	}
	return 0
}
