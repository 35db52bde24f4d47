package parse

import (
	"errors"
	"testing"
)

func TestObject_CleanJSON(t *testing.T) {
	v := Object(`{"a": 1, "b": "two"}`, nil)
	if Failed(v) {
		t.Fatal("expected clean JSON to parse")
	}
	if v["a"].(float64) != 1 {
		t.Errorf("expected a=1, got %v", v["a"])
	}
	if v["b"] != "two" {
		t.Errorf("expected b=two, got %v", v["b"])
	}
}

func TestObject_FencedWithProse(t *testing.T) {
	raw := "Sure! Here's the JSON you asked for:\n```json\n{\"a\": 1}\n```\nLet me know if you need anything else."
	v := Object(raw, nil)
	if Failed(v) {
		t.Fatal("expected fenced JSON to be recovered")
	}
	if v["a"].(float64) != 1 {
		t.Errorf("expected a=1, got %v", v["a"])
	}
}

func TestObject_ProseAfterBody(t *testing.T) {
	raw := `{"classification": "homework"} Hope that helps!`
	v := Object(raw, nil)
	if Failed(v) {
		t.Fatal("expected object with trailing prose to be recovered")
	}
	if v["classification"] != "homework" {
		t.Errorf("got %v", v["classification"])
	}
}

func TestObject_BracesInsideStrings(t *testing.T) {
	raw := `preamble {"code": "if (x) { y() }", "ok": true} postamble`
	v := Object(raw, nil)
	if Failed(v) {
		t.Fatal("expected recovery despite braces inside string values")
	}
	if v["code"] != "if (x) { y() }" {
		t.Errorf("string value corrupted: %v", v["code"])
	}
}

func TestObject_NestedWithTrailingGarbage(t *testing.T) {
	// The outermost span is invalid because of the trailing unmatched brace,
	// so recovery has to fall back to the balanced walk.
	raw := `{"outer": {"inner": 2}} }`
	v := Object(raw, nil)
	if Failed(v) {
		t.Fatal("expected balanced-brace recovery")
	}
	inner := v["outer"].(map[string]any)
	if inner["inner"].(float64) != 2 {
		t.Errorf("got %v", inner)
	}
}

func TestObject_TruncatedReturnsFallback(t *testing.T) {
	raw := `{"a": 1, "b": "unterminated`
	fallback := map[string]any{"a": "default"}
	v := Object(raw, fallback)
	if !Failed(v) {
		t.Fatal("expected failure marker on truncated input")
	}
	if v["a"] != "default" {
		t.Errorf("fallback values should be preserved, got %v", v["a"])
	}
}

func TestObject_EmptyInput(t *testing.T) {
	v := Object("", nil)
	if !Failed(v) {
		t.Fatal("expected failure marker on empty input")
	}
}

func TestObject_FallbackNotMutated(t *testing.T) {
	fallback := map[string]any{"x": 1}
	_ = Object("garbage", fallback)
	if _, ok := fallback[FailureMarker]; ok {
		t.Error("fallback map must not be mutated")
	}
}

func TestInto_Success(t *testing.T) {
	var dst struct {
		Classification string  `json:"classification"`
		Confidence     float64 `json:"confidence"`
	}
	raw := "```json\n{\"classification\": \"homework\", \"confidence\": 0.92}\n```"
	if err := Into(raw, &dst); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dst.Classification != "homework" || dst.Confidence != 0.92 {
		t.Errorf("got %+v", dst)
	}
}

func TestInto_FailureIsError(t *testing.T) {
	var dst struct{}
	err := Into("no json here", &dst)
	if err == nil {
		t.Fatal("expected error for unrecoverable input")
	}
	if !errors.Is(err, ErrUnparsable) {
		t.Errorf("err = %v, want ErrUnparsable", err)
	}
}
