package ham_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/mikoai/ham-go/ham"
)

func TestValueEqual(t *testing.T) {
	cases := []struct {
		a, b ham.Value
		want bool
	}{
		{ham.String("x"), ham.String("x"), true},
		{ham.String("x"), ham.String("y"), false},
		{ham.Number(1), ham.Number(1), true},
		{ham.Number(1), ham.String("1"), false},
		{ham.Bool(true), ham.Bool(true), true},
		{
			ham.Map(map[string]ham.Value{"a": ham.Number(1)}),
			ham.Map(map[string]ham.Value{"a": ham.Number(1)}),
			true,
		},
		{
			ham.Map(map[string]ham.Value{"a": ham.Number(1)}),
			ham.Map(map[string]ham.Value{"a": ham.Number(2)}),
			false,
		},
	}
	for i, tc := range cases {
		if got := tc.a.Equal(tc.b); got != tc.want {
			t.Errorf("case %d: Equal = %v, want %v", i, got, tc.want)
		}
	}
}

func TestMetadataJSONRoundTrip(t *testing.T) {
	md := ham.Metadata{
		"speaker":   ham.String("user"),
		"hits":      ham.Number(3),
		"protected": ham.Bool(true),
		"nested":    ham.Map(map[string]ham.Value{"k": ham.String("v")}),
	}

	data, err := json.Marshal(md)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var back ham.Metadata
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	for k, v := range md {
		got, ok := back[k]
		if !ok || !got.Equal(v) {
			t.Errorf("field %q did not round-trip: got %v", k, got)
		}
	}
}

func TestMetadataClone(t *testing.T) {
	var nilMD ham.Metadata
	clone := nilMD.Clone()
	clone["ok"] = ham.Bool(true) // must be writable

	md := ham.Metadata{"k": ham.String("v")}
	cp := md.Clone()
	cp["k"] = ham.String("changed")
	if md.StringAt("k") != "v" {
		t.Error("Clone shares storage with the original")
	}
}

func TestNewDialogueMetadataFields(t *testing.T) {
	md := ham.NewDialogueMetadata("assistant", "user:7", "sess-1")
	if md.StringAt(ham.MetaSpeaker) != "assistant" {
		t.Errorf("speaker = %q", md.StringAt(ham.MetaSpeaker))
	}
	if md.StringAt(ham.MetaUserID) != "user:7" {
		t.Errorf("user id = %q", md.StringAt(ham.MetaUserID))
	}
	if md.StringAt(ham.MetaTimestamp) == "" {
		t.Error("timestamp missing")
	}
	if !strings.Contains(md.StringAt(ham.MetaTimestamp), "T") {
		t.Errorf("timestamp %q is not RFC3339", md.StringAt(ham.MetaTimestamp))
	}
}
