package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// Answer is a quiz answer: either a single choice (Choice) or an ordered
// list of steps (Order). On the wire it is a JSON string or a JSON array.
type Answer struct {
	Choice string
	Order  []string
}

// Choice builds a single-choice answer.
func Choice(s string) Answer {
	return Answer{Choice: s}
}

// Ordered builds an ordering answer.
func Ordered(steps ...string) Answer {
	return Answer{Order: append([]string{}, steps...)}
}

// IsZero reports whether the answer carries no value.
func (a Answer) IsZero() bool {
	return a.Choice == "" && len(a.Order) == 0
}

// IsOrder reports whether the answer is an ordering answer.
func (a Answer) IsOrder() bool {
	return a.Order != nil
}

// Equal reports whether two answers carry the same value.
func (a Answer) Equal(b Answer) bool {
	if a.IsOrder() != b.IsOrder() {
		return false
	}
	if a.IsOrder() {
		return slices.Equal(a.Order, b.Order)
	}
	return a.Choice == b.Choice
}

// Clone returns a deep copy of the answer.
func (a Answer) Clone() Answer {
	if a.Order == nil {
		return Answer{Choice: a.Choice}
	}
	return Answer{Order: append([]string{}, a.Order...)}
}

// String renders the answer for humans.
func (a Answer) String() string {
	if a.IsOrder() {
		return fmt.Sprintf("%v", a.Order)
	}
	return a.Choice
}

// MarshalJSON encodes the answer as a string or an array of strings.
func (a Answer) MarshalJSON() ([]byte, error) {
	if a.IsOrder() {
		return json.Marshal(a.Order)
	}
	return json.Marshal(a.Choice)
}

// UnmarshalJSON accepts either a JSON string or a JSON array of strings.
func (a *Answer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = Answer{}
		return nil
	}
	if data[0] == '[' {
		var order []string
		if err := json.Unmarshal(data, &order); err != nil {
			return fmt.Errorf("decode ordering answer: %w", err)
		}
		if order == nil {
			order = []string{}
		}
		*a = Answer{Order: order}
		return nil
	}
	var choice string
	if err := json.Unmarshal(data, &choice); err != nil {
		return fmt.Errorf("decode choice answer: %w", err)
	}
	*a = Answer{Choice: choice}
	return nil
}
