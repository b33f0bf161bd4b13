package traveltime

import (
	"fmt"
	"sort"
)

// UnseenIdentifierError is returned when a queried line or stop was not
// present when the travel-time model was trained. This is an operational
// signal to retrain, not a data bug, so it is surfaced distinctly
// instead of being swallowed by the fallback path.
type UnseenIdentifierError struct {
	Kind  string // "line" or "stop"
	Value string
}

func (e *UnseenIdentifierError) Error() string {
	return fmt.Sprintf("traveltime: %s %q not seen at training time, retrain required", e.Kind, e.Value)
}

// LabelEncoder maps string identifiers to dense integer codes, the way
// the regression model wants its categorical features. The class list is
// what gets persisted; the lookup index must be rebuilt once after
// unmarshalling, before the encoder is shared across goroutines.
type LabelEncoder struct {
	Kind    string   `json:"kind"`
	Classes []string `json:"classes"`

	index map[string]int
}

// NewLabelEncoder fits an encoder over the given values: sorted unique
// classes, codes assigned by position.
func NewLabelEncoder(kind string, values []string) *LabelEncoder {
	seen := make(map[string]bool, len(values))
	classes := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			classes = append(classes, v)
		}
	}
	sort.Strings(classes)
	e := &LabelEncoder{Kind: kind, Classes: classes}
	e.buildIndex()
	return e
}

func (e *LabelEncoder) buildIndex() {
	e.index = make(map[string]int, len(e.Classes))
	for i, c := range e.Classes {
		e.index[c] = i
	}
}

// Transform returns the code for a value, or UnseenIdentifierError.
func (e *LabelEncoder) Transform(v string) (int, error) {
	code, ok := e.index[v]
	if !ok {
		return 0, &UnseenIdentifierError{Kind: e.Kind, Value: v}
	}
	return code, nil
}
