package docs

import (
	"encoding/json"
	"testing"
)

func TestSwaggerDoc_WebhookTimestampIsSeconds(t *testing.T) {
	var doc struct {
		Paths map[string]map[string]struct {
			Parameters []struct {
				Name        string `json:"name"`
				Description string `json:"description"`
			} `json:"parameters"`
		} `json:"paths"`
	}
	if err := json.Unmarshal([]byte(SwaggerInfo.ReadDoc()), &doc); err != nil {
		t.Fatalf("swagger doc is not valid JSON: %v", err)
	}

	op, ok := doc.Paths["/update-sheet"]["post"]
	if !ok {
		t.Fatalf("POST /update-sheet missing from doc")
	}
	for _, p := range op.Parameters {
		if p.Name == "X-Webhook-Timestamp" {
			if p.Description != "unix seconds" {
				t.Fatalf("X-Webhook-Timestamp described as %q", p.Description)
			}
			return
		}
	}
	t.Fatalf("X-Webhook-Timestamp parameter missing")
}
