package payloadschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	//go:embed perception.schema.json
	perceptionSchemaJSON string
	//go:embed worldview.schema.json
	worldviewSchemaJSON string
)

// Perception is a validated perception import record.
type Perception struct {
	ID                  string          `json:"id"`
	ContentID           *string         `json:"content_id,omitempty"`
	DeepBeliefs         []string        `json:"deep_beliefs"`
	ImplicitAssumptions []string        `json:"implicit_assumptions,omitempty"`
	Keywords            []string        `json:"keywords,omitempty"`
	Mechanisms          []string        `json:"mechanisms,omitempty"`
	Actor               json.RawMessage `json:"actor,omitempty"`
	Embedding           []float32       `json:"embedding,omitempty"`
}

// Worldview is a validated worldview import record.
type Worldview struct {
	ID                string          `json:"id"`
	Title             string          `json:"title"`
	Level             int16           `json:"level"`
	ParentWorldviewID *string         `json:"parent_worldview_id,omitempty"`
	Version           *int            `json:"version,omitempty"`
	Archived          bool            `json:"archived,omitempty"`
	Frame             json.RawMessage `json:"frame,omitempty"`
	Embedding         []float32       `json:"embedding,omitempty"`
}

type compiled struct {
	name   string
	source *string
	once   sync.Once
	schema *jsonschema.Schema
	err    error
}

var (
	perceptionSchema = &compiled{name: "perception.schema.json", source: &perceptionSchemaJSON}
	worldviewSchema  = &compiled{name: "worldview.schema.json", source: &worldviewSchemaJSON}
)

func ValidatePerceptionPayload(payload json.RawMessage) (*Perception, error) {
	var item Perception
	if err := validateInto(perceptionSchema, payload, &item); err != nil {
		return nil, err
	}
	if err := validatePerceptionSemantics(&item); err != nil {
		return nil, err
	}
	return &item, nil
}

func ValidateWorldviewPayload(payload json.RawMessage) (*Worldview, error) {
	var item Worldview
	if err := validateInto(worldviewSchema, payload, &item); err != nil {
		return nil, err
	}
	if err := validateWorldviewSemantics(&item); err != nil {
		return nil, err
	}
	return &item, nil
}

func validateInto(c *compiled, payload json.RawMessage, dst any) error {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return fmt.Errorf("decode payload JSON: %w", err)
	}

	schema, err := c.load()
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("normalize payload JSON: %w", err)
	}
	if err := json.Unmarshal(normalized, dst); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	return nil
}

func (c *compiled) load() (*jsonschema.Schema, error) {
	c.once.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource(c.name, strings.NewReader(*c.source)); err != nil {
			c.err = fmt.Errorf("add schema resource: %w", err)
			return
		}
		schema, err := compiler.Compile(c.name)
		if err != nil {
			c.err = fmt.Errorf("compile schema: %w", err)
			return
		}
		c.schema = schema
	})

	if c.err != nil {
		return nil, c.err
	}
	if c.schema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return c.schema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}

func validatePerceptionSemantics(item *Perception) error {
	if item == nil {
		return fmt.Errorf("payload is nil")
	}
	if err := validateUUID("id", item.ID); err != nil {
		return err
	}

	hasText := false
	for _, belief := range item.DeepBeliefs {
		if strings.TrimSpace(belief) != "" {
			hasText = true
			break
		}
	}
	for _, assumption := range item.ImplicitAssumptions {
		if strings.TrimSpace(assumption) != "" {
			hasText = true
			break
		}
	}
	if !hasText && len(item.Embedding) == 0 {
		return fmt.Errorf("perception needs deep_beliefs, implicit_assumptions, or an embedding")
	}

	for i, kw := range item.Keywords {
		if strings.TrimSpace(kw) == "" {
			return fmt.Errorf("keywords[%d] must not be blank", i)
		}
	}
	for i, m := range item.Mechanisms {
		if strings.TrimSpace(m) == "" {
			return fmt.Errorf("mechanisms[%d] must not be blank", i)
		}
	}
	return nil
}

func validateWorldviewSemantics(item *Worldview) error {
	if item == nil {
		return fmt.Errorf("payload is nil")
	}
	if err := validateUUID("id", item.ID); err != nil {
		return err
	}
	if strings.TrimSpace(item.Title) == "" {
		return fmt.Errorf("title must not be empty")
	}

	switch item.Level {
	case 2:
		if item.ParentWorldviewID == nil {
			return fmt.Errorf("level 2 worldviews require parent_worldview_id")
		}
		if err := validateUUID("parent_worldview_id", *item.ParentWorldviewID); err != nil {
			return err
		}
		if strings.EqualFold(*item.ParentWorldviewID, item.ID) {
			return fmt.Errorf("worldview cannot be its own parent")
		}
		if err := validateChildFrame(item.Frame); err != nil {
			return err
		}
	default:
		if item.ParentWorldviewID != nil {
			return fmt.Errorf("level %d worldviews must not set parent_worldview_id", item.Level)
		}
	}
	return nil
}

// validateChildFrame requires a child frame to declare a subject or an
// action; otherwise it can never be scored.
func validateChildFrame(raw json.RawMessage) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return fmt.Errorf("level 2 worldviews require a frame")
	}
	if trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err != nil {
			return fmt.Errorf("frame: %w", err)
		}
		trimmed = []byte(inner)
	}

	var frame struct {
		Subject string `json:"subject"`
		Action  string `json:"action"`
	}
	if err := json.Unmarshal(trimmed, &frame); err != nil {
		return fmt.Errorf("frame must be a JSON object: %w", err)
	}
	if strings.TrimSpace(frame.Subject) == "" && strings.TrimSpace(frame.Action) == "" {
		return fmt.Errorf("level 2 frame needs subject or action")
	}
	return nil
}

func validateUUID(fieldName, value string) error {
	if _, err := uuid.Parse(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("%s must be a UUID: %w", fieldName, err)
	}
	return nil
}
