package intake

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ValueKind discriminates the two shapes an answer can take.
type ValueKind int

const (
	ValueText ValueKind = iota
	ValueNumber
)

// Value is a single collected answer: free text, a choice label, or a number.
type Value struct {
	Kind   ValueKind
	Text   string
	Number float64
}

func TextValue(s string) Value {
	return Value{Kind: ValueText, Text: s}
}

func NumberValue(n float64) Value {
	return Value{Kind: ValueNumber, Number: n}
}

// String renders the raw value without any display formatting. Numbers are
// printed with the shortest representation that round-trips.
func (v Value) String() string {
	if v.Kind == ValueNumber {
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	}
	return v.Text
}

// MarshalJSON encodes text values as JSON strings and numeric values as JSON
// numbers, matching the answers_json layout persisted on submissions.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.Kind == ValueNumber {
		return json.Marshal(v.Number)
	}
	return json.Marshal(v.Text)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = TextValue(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("answer value must be a string or number: %w", err)
	}
	*v = NumberValue(n)
	return nil
}

// Answers maps question ids to collected values. Keys are only ever added for
// questions reached by the active traversal; skipped optional questions leave
// no key behind.
type Answers map[string]Value

func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

func (a Answers) Has(id string) bool {
	_, ok := a[id]
	return ok
}

// Text returns the textual answer for id, if one is present.
func (a Answers) Text(id string) (string, bool) {
	v, ok := a[id]
	if !ok || v.Kind != ValueText {
		return "", false
	}
	return v.Text, true
}

// Number returns the numeric answer for id, if one is present.
func (a Answers) Number(id string) (float64, bool) {
	v, ok := a[id]
	if !ok || v.Kind != ValueNumber {
		return 0, false
	}
	return v.Number, true
}

// Is reports whether the answer for id is the given choice label.
func (a Answers) Is(id, label string) bool {
	v, ok := a.Text(id)
	return ok && v == label
}
