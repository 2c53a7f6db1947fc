package judge

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed verdict.schema.json
var verdictSchemaJSON string

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

type verdictPayload struct {
	BestMatchIndex int     `json:"best_match_index"`
	Confidence     float64 `json:"confidence"`
	Reason         string  `json:"reason"`
}

// ParseVerdict strictly validates a raw judge response against a candidate
// list of the given size. Any deviation is reported as ErrMalformedVerdict or
// ErrIndexOutOfRange; nothing is defaulted.
func ParseVerdict(raw string, candidates int) (Verdict, error) {
	value, err := decodeStrictJSON([]byte(raw))
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrMalformedVerdict, err)
	}

	schema, err := loadSchema()
	if err != nil {
		return Verdict{}, fmt.Errorf("load verdict schema: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrMalformedVerdict, err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrMalformedVerdict, err)
	}
	var payload verdictPayload
	if err := json.Unmarshal(normalized, &payload); err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrMalformedVerdict, err)
	}

	if payload.BestMatchIndex >= candidates {
		return Verdict{}, fmt.Errorf("%w: index=%d candidates=%d", ErrIndexOutOfRange, payload.BestMatchIndex, candidates)
	}

	return Verdict{
		Index:      payload.BestMatchIndex,
		Confidence: payload.Confidence,
		Reason:     strings.TrimSpace(payload.Reason),
	}, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020

		if err := compiler.AddResource("verdict.schema.json", strings.NewReader(verdictSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("verdict.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("response is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("response contains trailing content")
	}

	return value, nil
}
