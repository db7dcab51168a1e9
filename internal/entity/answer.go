package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ValueKind tags the shape carried by an AnswerValue
type ValueKind string

const (
	KindNone   ValueKind = ""
	KindText   ValueKind = "text"   // single string: text, dropdown, multiple_choice
	KindList   ValueKind = "list"   // string array
	KindNumber ValueKind = "number" // rating 1-5
)

// AnswerValue is the tagged value of an answer. On the wire it is a bare JSON
// string, array of strings or number.
type AnswerValue struct {
	Kind   ValueKind
	Text   string
	List   []string
	Number float64
}

// TextValue, ListValue and NumberValue build tagged values
func TextValue(s string) AnswerValue { return AnswerValue{Kind: KindText, Text: s} }

func ListValue(items ...string) AnswerValue {
	return AnswerValue{Kind: KindList, List: append([]string{}, items...)}
}

func NumberValue(n float64) AnswerValue { return AnswerValue{Kind: KindNumber, Number: n} }

// IsZero reports whether the value carries no kind at all
func (v AnswerValue) IsZero() bool {
	return v.Kind == KindNone
}

// IsBlank reports whether the value counts as "not answered"
func (v AnswerValue) IsBlank() bool {
	switch v.Kind {
	case KindText:
		return strings.TrimSpace(v.Text) == ""
	case KindList:
		return len(v.List) == 0
	case KindNumber:
		return false
	default:
		return true
	}
}

// Equal is strict equality: same kind and same payload
func (v AnswerValue) Equal(o AnswerValue) bool {
	if v.Kind != o.Kind {
		return false
	}

	switch v.Kind {
	case KindText:
		return v.Text == o.Text
	case KindList:
		return slices.Equal(v.List, o.List)
	case KindNumber:
		return v.Number == o.Number
	default:
		return true
	}
}

// Rating returns the value as an integer rating when it is a whole number
func (v AnswerValue) Rating() (int, bool) {
	if v.Kind != KindNumber || v.Number != float64(int(v.Number)) {
		return 0, false
	}
	return int(v.Number), true
}

// Choices returns the selected options of a choice answer
func (v AnswerValue) Choices() []string {
	switch v.Kind {
	case KindText:
		return []string{v.Text}
	case KindList:
		return v.List
	default:
		return nil
	}
}

func (v AnswerValue) String() string {
	switch v.Kind {
	case KindText:
		return v.Text
	case KindList:
		return "[" + strings.Join(v.List, ", ") + "]"
	case KindNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	default:
		return ""
	}
}

func (v AnswerValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindText:
		return json.Marshal(v.Text)
	case KindList:
		if v.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.List)
	case KindNumber:
		return json.Marshal(v.Number)
	default:
		return []byte("null"), nil
	}
}

func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty answer value")
	}

	switch data[0] {
	case 'n':
		*v = AnswerValue{}
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = TextValue(s)
	case '[':
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("answer array must contain strings: %w", err)
		}
		*v = ListValue(list...)
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("answer value must be string, string array or number: %w", err)
		}
		*v = NumberValue(n)
	}

	return nil
}

// Answer binds a value to the question it answers
type Answer struct {
	QuestionID string      `json:"questionId"`
	Value      AnswerValue `json:"value"`
}
