package db

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"
)

// Perception maps perceptions. Rows are produced upstream and only gain
// embeddings and links here.
type Perception struct {
	ID                  string           `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ContentID           *string          `gorm:"column:content_id;type:text" json:"content_id,omitempty"`
	DeepBeliefs         StringList       `gorm:"column:deep_beliefs;type:jsonb;not null;default:'[]'" json:"deep_beliefs"`
	ImplicitAssumptions StringList       `gorm:"column:implicit_assumptions;type:jsonb;not null;default:'[]'" json:"implicit_assumptions"`
	Keywords            StringList       `gorm:"column:keywords;type:jsonb;not null;default:'[]'" json:"keywords"`
	Mechanisms          StringList       `gorm:"column:mechanisms;type:jsonb;not null;default:'[]'" json:"mechanisms"`
	Actor               JSON             `gorm:"column:actor;type:jsonb" json:"actor,omitempty"`
	Embedding           *pgvector.Vector `gorm:"column:embedding;type:vector" json:"-"`
	CreatedAt           time.Time        `gorm:"column:created_at;type:timestamptz;not null;default:now()" json:"created_at"`
}

func (Perception) TableName() string { return "perceptions" }

// Worldview maps worldviews. Level 1 rows are parents, level 2 rows are
// children pointing at a parent, level 0 rows are flat.
type Worldview struct {
	ID                string           `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Title             string           `gorm:"column:title;type:text;not null" json:"title"`
	Frame             JSON             `gorm:"column:frame;type:jsonb" json:"frame,omitempty"`
	Level             int16            `gorm:"column:level;type:smallint;not null;default:0;index" json:"level"`
	ParentWorldviewID *string          `gorm:"column:parent_worldview_id;type:uuid;index" json:"parent_worldview_id,omitempty"`
	Version           int              `gorm:"column:version;type:integer;not null;default:1" json:"version"`
	Archived          bool             `gorm:"column:archived;type:boolean;not null;default:false" json:"archived"`
	Embedding         *pgvector.Vector `gorm:"column:embedding;type:vector" json:"-"`
	PerceptionIDs     StringList       `gorm:"column:perception_ids;type:jsonb;not null;default:'[]'" json:"perception_ids"`
	TotalPerceptions  int              `gorm:"column:total_perceptions;type:integer;not null;default:0" json:"total_perceptions"`
	CreatedAt         time.Time        `gorm:"column:created_at;type:timestamptz;not null;default:now()" json:"created_at"`
	UpdatedAt         time.Time        `gorm:"column:updated_at;type:timestamptz;not null;default:now()" json:"updated_at"`
}

func (Worldview) TableName() string { return "worldviews" }

// PerceptionWorldviewLink maps perception_worldview_links. The table is
// rewritten wholesale on every matching run.
type PerceptionWorldviewLink struct {
	LinkID         int64     `gorm:"column:link_id;primaryKey;autoIncrement" json:"link_id"`
	PerceptionID   string    `gorm:"column:perception_id;type:uuid;not null;index" json:"perception_id"`
	WorldviewID    string    `gorm:"column:worldview_id;type:uuid;not null;index" json:"worldview_id"`
	RelevanceScore float64   `gorm:"column:relevance_score;type:double precision;not null" json:"relevance_score"`
	Method         string    `gorm:"column:method;type:text;not null" json:"method"`
	CreatedAt      time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()" json:"created_at"`
}

func (PerceptionWorldviewLink) TableName() string { return "perception_worldview_links" }

// LogicEntry maps logic_repository, the input of flat clustering.
type LogicEntry struct {
	ID           string           `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CoreArgument string           `gorm:"column:core_argument;type:text;not null" json:"core_argument"`
	ContextIssue *string          `gorm:"column:context_issue;type:text" json:"context_issue,omitempty"`
	Keywords     StringList       `gorm:"column:keywords;type:jsonb;not null;default:'[]'" json:"keywords"`
	Embedding    *pgvector.Vector `gorm:"column:embedding;type:vector" json:"-"`
	ClusterID    *string          `gorm:"column:cluster_id;type:uuid;index" json:"cluster_id,omitempty"`
	CreatedAt    time.Time        `gorm:"column:created_at;type:timestamptz;not null;default:now()" json:"created_at"`
}

func (LogicEntry) TableName() string { return "logic_repository" }

// LogicCluster maps logic_clusters.
type LogicCluster struct {
	ID                      string           `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ClusterName             string           `gorm:"column:cluster_name;type:text;not null" json:"cluster_name"`
	ContextIssue            *string          `gorm:"column:context_issue;type:text" json:"context_issue,omitempty"`
	Strategy                string           `gorm:"column:strategy;type:text;not null" json:"strategy"`
	Keywords                StringList       `gorm:"column:keywords;type:jsonb;not null;default:'[]'" json:"keywords"`
	RepresentativeEmbedding *pgvector.Vector `gorm:"column:representative_embedding;type:vector" json:"-"`
	LogicCount              int              `gorm:"column:logic_count;type:integer;not null;default:0" json:"logic_count"`
	CreatedAt               time.Time        `gorm:"column:created_at;type:timestamptz;not null;default:now()" json:"created_at"`
}

func (LogicCluster) TableName() string { return "logic_clusters" }

func autoMigrateModels() []any {
	return []any{
		&Perception{},
		&Worldview{},
		&PerceptionWorldviewLink{},
		&LogicEntry{},
		&LogicCluster{},
	}
}

// Actor is the decoded perceptions.actor column.
type Actor struct {
	Subject string   `json:"subject"`
	Methods []string `json:"methods"`
}

// UnmarshalJSON accepts subject as a string or a list of strings; a list is
// joined with spaces.
func (a *Actor) UnmarshalJSON(data []byte) error {
	var raw struct {
		Subject json.RawMessage `json:"subject"`
		Methods []string        `json:"methods"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a.Methods = raw.Methods
	a.Subject = ""

	subject := strings.TrimSpace(string(raw.Subject))
	if subject == "" || subject == "null" {
		return nil
	}
	if strings.HasPrefix(subject, "[") {
		var parts []string
		if err := json.Unmarshal(raw.Subject, &parts); err != nil {
			return fmt.Errorf("actor.subject: %w", err)
		}
		a.Subject = strings.Join(parts, " ")
		return nil
	}
	return json.Unmarshal(raw.Subject, &a.Subject)
}

// ActorValue decodes the actor column; nil when absent.
func (p Perception) ActorValue() (*Actor, error) {
	if len(p.Actor) == 0 || strings.TrimSpace(string(p.Actor)) == "null" {
		return nil, nil
	}
	var actor Actor
	if err := json.Unmarshal(p.Actor, &actor); err != nil {
		return nil, fmt.Errorf("perception %s actor: %w", p.ID, err)
	}
	return &actor, nil
}

// Frame is the decoded worldviews.frame column. Hierarchical children use
// Subject/Action/Object, narrative worldviews use Narrative and Metadata.
type Frame struct {
	Subject   string         `json:"subject,omitempty"`
	Action    string         `json:"action,omitempty"`
	Object    string         `json:"object,omitempty"`
	Narrative FrameNarrative `json:"narrative,omitempty"`
	Metadata  FrameMetadata  `json:"metadata,omitempty"`
	Summary   string         `json:"summary,omitempty"`
	Keywords  []string       `json:"keywords,omitempty"`
}

type FrameNarrative struct {
	Summary    string `json:"summary,omitempty"`
	LogicChain string `json:"logic_chain,omitempty"`
}

type FrameMetadata struct {
	KeyConcepts []string `json:"key_concepts,omitempty"`
}

// FrameValue decodes the frame column. Older rows store the frame as a JSON
// string holding the object, which is unwrapped.
func (w Worldview) FrameValue() (Frame, error) {
	raw := []byte(w.Frame)
	if len(raw) == 0 || strings.TrimSpace(string(raw)) == "null" {
		return Frame{}, nil
	}
	if strings.HasPrefix(strings.TrimSpace(string(raw)), `"`) {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return Frame{}, fmt.Errorf("worldview %s frame: %w", w.ID, err)
		}
		raw = []byte(inner)
	}
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return Frame{}, fmt.Errorf("worldview %s frame: %w", w.ID, err)
	}
	return frame, nil
}

// SummaryText prefers the narrative summary and falls back to the flat one.
func (f Frame) SummaryText() string {
	if s := strings.TrimSpace(f.Narrative.Summary); s != "" {
		return s
	}
	return strings.TrimSpace(f.Summary)
}

// Concepts prefers metadata key concepts and falls back to flat keywords.
func (f Frame) Concepts() []string {
	if len(f.Metadata.KeyConcepts) > 0 {
		return f.Metadata.KeyConcepts
	}
	return f.Keywords
}

// IsHierarchical reports whether the title follows the "parent > child" form.
func (w Worldview) IsHierarchical() bool {
	return strings.Contains(w.Title, ">")
}

func VectorSlice(v *pgvector.Vector) []float32 {
	if v == nil {
		return nil
	}
	return v.Slice()
}

func NewVector(values []float32) *pgvector.Vector {
	if len(values) == 0 {
		return nil
	}
	v := pgvector.NewVector(values)
	return &v
}
