package validator

import (
	"testing"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"abc", false},
		{" abc ", false},
	}
	for _, c := range cases {
		got := IsEmpty(c.input)
		if got != c.want {
			t.Errorf("IsEmpty(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestIsValidVariableCode(t *testing.T) {
	valid := []string{"SB", "CNSS_EMP", "IRPP", "LOGEMENT", "PRIME_ANCIENNETE2"}
	invalid := []string{"", "S", "sb", "1SB", "_SB", "SB-EMP", "SB EMP"}
	for _, code := range valid {
		if !IsValidVariableCode(code) {
			t.Errorf("IsValidVariableCode(%q) = false, want true", code)
		}
	}
	for _, code := range invalid {
		if IsValidVariableCode(code) {
			t.Errorf("IsValidVariableCode(%q) = true, want false", code)
		}
	}
}

func TestIsInSlice(t *testing.T) {
	slice := []string{"a", "b", "c"}
	if !IsInSlice("a", slice) {
		t.Errorf("IsInSlice('a') = false, want true")
	}
	if IsInSlice("d", slice) {
		t.Errorf("IsInSlice('d') = true, want false")
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "code", Message: "is required"},
		{Field: "kind", Message: "invalid"},
	}
	got := errs.Error()
	want := "code: is required; kind: invalid"
	if got != want {
		t.Errorf("ValidationErrors.Error() = %q, want %q", got, want)
	}
}

func TestValidationErrors_ToMap(t *testing.T) {
	errs := ValidationErrors{
		{Field: "code", Message: "is required"},
		{Field: "kind", Message: "invalid"},
	}
	got := errs.ToMap()
	want := map[string]string{"code": "is required", "kind": "invalid"}
	if len(got) != len(want) {
		t.Errorf("ValidationErrors.ToMap() length = %d, want %d", len(got), len(want))
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("ValidationErrors.ToMap()[%q] = %q, want %q", k, got[k], v)
		}
	}
}
