package protocol

import (
	"encoding/json"
	"testing"
)

func TestParseFlagTolerance(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want Flag
	}{
		{"bool true", true, FlagTrue},
		{"bool false", false, FlagFalse},
		{"string true", "true", FlagTrue},
		{"string one", "1", FlagTrue},
		{"int one", 1, FlagTrue},
		{"float one", float64(1), FlagTrue},
		{"string false", "false", FlagFalse},
		{"string zero", "0", FlagFalse},
		{"int zero", 0, FlagFalse},
		{"garbage string", "maybe", FlagUnset},
		{"nil", nil, FlagUnset},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ParseFlag(tc.in); got != tc.want {
				t.Fatalf("ParseFlag(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestFlagUnmarshalJSONShapes(t *testing.T) {
	// The same field arrives as a real boolean, a quoted string, or a
	// bare number depending on which model produced the payload.
	var p struct {
		HasUI Flag `json:"hasUI"`
	}
	for _, raw := range []string{
		`{"hasUI": true}`,
		`{"hasUI": "true"}`,
		`{"hasUI": "1"}`,
		`{"hasUI": 1}`,
	} {
		p.HasUI = FlagUnset
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
		if !p.HasUI.True() {
			t.Fatalf("unmarshal %s: got %v, want true", raw, p.HasUI)
		}
	}

	p.HasUI = FlagTrue
	if err := json.Unmarshal([]byte(`{"hasUI": null}`), &p); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if p.HasUI.IsSet() {
		t.Fatalf("null should decode to unset, got %v", p.HasUI)
	}
}

func TestFlagUnsetIsNeitherTrueNorFalse(t *testing.T) {
	var f Flag
	if f.True() || f.False() {
		t.Fatal("zero-value Flag must carry no signal")
	}
}
