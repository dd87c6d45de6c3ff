package state

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/agentwire/go-sdk/pkg/core/events"
)

func mustParse(t *testing.T, raw string) any {
	t.Helper()
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("bad test document: %v", err)
	}
	return doc
}

func TestApplyPatch(t *testing.T) {
	tests := []struct {
		name      string
		doc       string
		ops       []events.JSONPatchOperation
		want      string
		wantError bool
	}{
		{
			name: "replace scalar",
			doc:  `{"counter":0}`,
			ops:  []events.JSONPatchOperation{{Op: "replace", Path: "/counter", Value: 1}},
			want: `{"counter":1}`,
		},
		{
			name: "add object key",
			doc:  `{"a":1}`,
			ops:  []events.JSONPatchOperation{{Op: "add", Path: "/b", Value: "x"}},
			want: `{"a":1,"b":"x"}`,
		},
		{
			name: "add appends to array",
			doc:  `{"items":[1,2]}`,
			ops:  []events.JSONPatchOperation{{Op: "add", Path: "/items/-", Value: 3}},
			want: `{"items":[1,2,3]}`,
		},
		{
			name: "add inserts into array",
			doc:  `{"items":[1,3]}`,
			ops:  []events.JSONPatchOperation{{Op: "add", Path: "/items/1", Value: 2}},
			want: `{"items":[1,2,3]}`,
		},
		{
			name: "remove key",
			doc:  `{"a":1,"b":2}`,
			ops:  []events.JSONPatchOperation{{Op: "remove", Path: "/b"}},
			want: `{"a":1}`,
		},
		{
			name: "remove array element",
			doc:  `{"items":["a","b","c"]}`,
			ops:  []events.JSONPatchOperation{{Op: "remove", Path: "/items/1"}},
			want: `{"items":["a","c"]}`,
		},
		{
			name: "move value",
			doc:  `{"a":{"x":1},"b":{}}`,
			ops:  []events.JSONPatchOperation{{Op: "move", Path: "/b/x", From: "/a/x"}},
			want: `{"a":{},"b":{"x":1}}`,
		},
		{
			name: "copy value",
			doc:  `{"a":1}`,
			ops:  []events.JSONPatchOperation{{Op: "copy", Path: "/b", From: "/a"}},
			want: `{"a":1,"b":1}`,
		},
		{
			name: "test passes",
			doc:  `{"a":1}`,
			ops: []events.JSONPatchOperation{
				{Op: "test", Path: "/a", Value: 1},
				{Op: "replace", Path: "/a", Value: 2},
			},
			want: `{"a":2}`,
		},
		{
			name:      "test fails",
			doc:       `{"a":1}`,
			ops:       []events.JSONPatchOperation{{Op: "test", Path: "/a", Value: 99}},
			wantError: true,
		},
		{
			name:      "replace missing path",
			doc:       `{"a":1}`,
			ops:       []events.JSONPatchOperation{{Op: "replace", Path: "/nope", Value: 2}},
			wantError: true,
		},
		{
			name:      "remove missing key",
			doc:       `{"a":1}`,
			ops:       []events.JSONPatchOperation{{Op: "remove", Path: "/b"}},
			wantError: true,
		},
		{
			name:      "array index out of bounds",
			doc:       `{"items":[1]}`,
			ops:       []events.JSONPatchOperation{{Op: "replace", Path: "/items/5", Value: 0}},
			wantError: true,
		},
		{
			name:      "array index with leading zero",
			doc:       `{"items":[1,2]}`,
			ops:       []events.JSONPatchOperation{{Op: "replace", Path: "/items/01", Value: 0}},
			wantError: true,
		},
		{
			name: "escaped pointer tokens",
			doc:  `{"a/b":{"c~d":1}}`,
			ops:  []events.JSONPatchOperation{{Op: "replace", Path: "/a~1b/c~0d", Value: 2}},
			want: `{"a/b":{"c~d":2}}`,
		},
		{
			name: "replace whole document",
			doc:  `{"a":1}`,
			ops:  []events.JSONPatchOperation{{Op: "replace", Path: "", Value: map[string]any{"b": 2.0}}},
			want: `{"b":2}`,
		},
		{
			name: "nested array of objects",
			doc:  `{"todos":[{"done":false}]}`,
			ops:  []events.JSONPatchOperation{{Op: "replace", Path: "/todos/0/done", Value: true}},
			want: `{"todos":[{"done":true}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustParse(t, tt.doc)
			got, err := ApplyPatch(doc, tt.ops)

			if tt.wantError {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			gotJSON, _ := json.Marshal(got)
			wantJSON, _ := json.Marshal(mustParse(t, tt.want))
			if !reflect.DeepEqual(mustParse(t, string(gotJSON)), mustParse(t, string(wantJSON))) {
				t.Errorf("got %s, want %s", gotJSON, wantJSON)
			}
		})
	}
}

func TestApplyPatchDoesNotMutateInput(t *testing.T) {
	doc := mustParse(t, `{"counter":0,"items":[1,2]}`)

	_, err := ApplyPatch(doc, []events.JSONPatchOperation{
		{Op: "replace", Path: "/counter", Value: 9},
		{Op: "add", Path: "/items/-", Value: 3},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	original, _ := json.Marshal(doc)
	if string(original) != `{"counter":0,"items":[1,2]}` {
		t.Errorf("input document mutated: %s", original)
	}
}

func TestApplyPatchFailureLeavesInputIntact(t *testing.T) {
	doc := mustParse(t, `{"counter":0}`)

	_, err := ApplyPatch(doc, []events.JSONPatchOperation{
		{Op: "replace", Path: "/counter", Value: 1},
		{Op: "replace", Path: "/missing", Value: 2},
	})
	if err == nil {
		t.Fatal("expected error for missing path")
	}

	original, _ := json.Marshal(doc)
	if string(original) != `{"counter":0}` {
		t.Errorf("input document mutated after failed patch: %s", original)
	}
}
