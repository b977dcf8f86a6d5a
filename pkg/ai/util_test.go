package ai

import "testing"

type parsedSummary struct {
	Summary string   `json:"summary"`
	Topics  []string `json:"topics"`
}

func TestUnmarshalFlexibleStandardJSON(t *testing.T) {
	var out parsedSummary
	err := UnmarshalFlexible(`{"summary": "fine", "topics": ["a", "b"]}`, &out)
	if err != nil {
		t.Fatalf("UnmarshalFlexible: %v", err)
	}
	if out.Summary != "fine" || len(out.Topics) != 2 {
		t.Fatalf("unexpected result: %+v", out)
	}
}

func TestUnmarshalFlexibleDoubleEncoded(t *testing.T) {
	var out parsedSummary
	err := UnmarshalFlexible(`"{\"summary\": \"wrapped\", \"topics\": []}"`, &out)
	if err != nil {
		t.Fatalf("UnmarshalFlexible: %v", err)
	}
	if out.Summary != "wrapped" {
		t.Fatalf("unexpected result: %+v", out)
	}
}

func TestUnmarshalFlexibleRepairsMalformed(t *testing.T) {
	var out parsedSummary
	err := UnmarshalFlexible("{summary: 'broken', topics: ['x',]}", &out)
	if err != nil {
		t.Fatalf("UnmarshalFlexible: %v", err)
	}
	if out.Summary != "broken" || len(out.Topics) != 1 {
		t.Fatalf("unexpected result: %+v", out)
	}
}

func TestUnmarshalFlexibleDuplicateLeadingBrace(t *testing.T) {
	var out parsedSummary
	err := UnmarshalFlexible(`{ {"summary": "doubled", "topics": []}`, &out)
	if err != nil {
		t.Fatalf("UnmarshalFlexible: %v", err)
	}
	if out.Summary != "doubled" {
		t.Fatalf("unexpected result: %+v", out)
	}
}

func TestGenerateSchemaReflectsFields(t *testing.T) {
	schema := GenerateSchema(parsedSummary{})
	if schema == nil {
		t.Fatal("nil schema")
	}
}
