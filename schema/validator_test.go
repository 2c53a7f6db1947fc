package payloadschema

import (
	"encoding/json"
	"strings"
	"testing"
)

const (
	perceptionID = "1b4e28ba-2fa1-41d2-883f-0016d3cca427"
	parentID     = "6fa459ea-ee8a-4ca4-894e-db77e160355e"
)

func TestValidatePerceptionPayload_Valid(t *testing.T) {
	payload := json.RawMessage(`{
		"id":"` + perceptionID + `",
		"deep_beliefs":["정부가 국민을 감시한다"],
		"implicit_assumptions":["권력은 남용된다"],
		"keywords":["감시","정부"],
		"mechanisms":["사찰"],
		"actor":{"subject":["민주당","정부"],"methods":["사찰"]},
		"embedding":[0.1,0.2,0.3]
	}`)

	item, err := ValidatePerceptionPayload(payload)
	if err != nil {
		t.Fatalf("expected payload to be valid, got error: %v", err)
	}
	if item.ID != perceptionID {
		t.Fatalf("unexpected id %q", item.ID)
	}
	if len(item.Embedding) != 3 {
		t.Fatalf("expected 3 embedding values, got %d", len(item.Embedding))
	}
	if !strings.Contains(string(item.Actor), "민주당") {
		t.Fatalf("expected actor to be preserved, got %s", item.Actor)
	}
}

func TestValidatePerceptionPayload_Rejects(t *testing.T) {
	cases := map[string]string{
		"missing beliefs":  `{"id":"` + perceptionID + `"}`,
		"bad uuid":         `{"id":"p-1","deep_beliefs":["x"]}`,
		"extra field":      `{"id":"` + perceptionID + `","deep_beliefs":["x"],"score":1}`,
		"blank text":       `{"id":"` + perceptionID + `","deep_beliefs":["  "]}`,
		"trailing content": `{"id":"` + perceptionID + `","deep_beliefs":["x"]} {}`,
		"blank mechanism":  `{"id":"` + perceptionID + `","deep_beliefs":["x"],"mechanisms":[" "]}`,
		"empty":            ``,
	}
	for name, raw := range cases {
		if _, err := ValidatePerceptionPayload(json.RawMessage(raw)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestValidateWorldviewPayload_Child(t *testing.T) {
	payload := json.RawMessage(`{
		"id":"` + perceptionID + `",
		"title":"민주당 > 통신 사찰",
		"level":2,
		"version":2,
		"parent_worldview_id":"` + parentID + `",
		"frame":{"subject":"민주당","action":"사찰한다","object":"국민"}
	}`)

	item, err := ValidateWorldviewPayload(payload)
	if err != nil {
		t.Fatalf("expected payload to be valid, got error: %v", err)
	}
	if item.Level != 2 || item.ParentWorldviewID == nil || *item.ParentWorldviewID != parentID {
		t.Fatalf("unexpected worldview: %+v", item)
	}
	if item.Version == nil || *item.Version != 2 {
		t.Fatalf("expected version 2")
	}
}

func TestValidateWorldviewPayload_StringFrame(t *testing.T) {
	payload := json.RawMessage(`{
		"id":"` + perceptionID + `",
		"title":"child",
		"level":2,
		"parent_worldview_id":"` + parentID + `",
		"frame":"{\"subject\":\"정부\"}"
	}`)
	if _, err := ValidateWorldviewPayload(payload); err != nil {
		t.Fatalf("expected string-encoded frame to be accepted, got %v", err)
	}
}

func TestValidateWorldviewPayload_ParentRules(t *testing.T) {
	cases := map[string]string{
		"child without parent": `{"id":"` + perceptionID + `","title":"t","level":2,"frame":{"subject":"s"}}`,
		"parent with parent":   `{"id":"` + perceptionID + `","title":"t","level":1,"parent_worldview_id":"` + parentID + `"}`,
		"self parent":          `{"id":"` + perceptionID + `","title":"t","level":2,"parent_worldview_id":"` + perceptionID + `","frame":{"subject":"s"}}`,
		"child empty frame":    `{"id":"` + perceptionID + `","title":"t","level":2,"parent_worldview_id":"` + parentID + `","frame":{}}`,
		"bad level":            `{"id":"` + perceptionID + `","title":"t","level":3}`,
		"blank title":          `{"id":"` + perceptionID + `","title":"  ","level":0}`,
	}
	for name, raw := range cases {
		if _, err := ValidateWorldviewPayload(json.RawMessage(raw)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestValidateWorldviewPayload_FlatWithNullParent(t *testing.T) {
	payload := json.RawMessage(`{"id":"` + perceptionID + `","title":"평면","level":0,"parent_worldview_id":null,"archived":true}`)
	item, err := ValidateWorldviewPayload(payload)
	if err != nil {
		t.Fatalf("expected payload to be valid, got error: %v", err)
	}
	if item.ParentWorldviewID != nil || !item.Archived {
		t.Fatalf("unexpected worldview: %+v", item)
	}
}
