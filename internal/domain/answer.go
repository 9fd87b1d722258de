package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Answer is either a zero-based option index or a free-text answer.
// The zero value is the index answer 0.
type Answer struct {
	index  int
	text   string
	isText bool
}

// IndexAnswer returns an answer selecting option i.
func IndexAnswer(i int) Answer {
	return Answer{index: i}
}

// TextAnswer returns a free-text answer.
func TextAnswer(s string) Answer {
	return Answer{text: s, isText: true}
}

// Index returns the option index and true if a is an index answer.
func (a Answer) Index() (int, bool) {
	return a.index, !a.isText
}

// Text returns the answer text and true if a is a free-text answer.
func (a Answer) Text() (string, bool) {
	return a.text, a.isText
}

// Matches reports whether a submitted answer satisfies the expected one.
// Index answers compare exactly; text answers compare case-insensitively
// after trimming surrounding space.
func (a Answer) Matches(submitted Answer) bool {
	if a.isText != submitted.isText {
		return false
	}
	if a.isText {
		return strings.EqualFold(strings.TrimSpace(a.text), strings.TrimSpace(submitted.text))
	}
	return a.index == submitted.index
}

func (a Answer) String() string {
	if a.isText {
		return a.text
	}
	return strconv.Itoa(a.index)
}

func (a Answer) MarshalJSON() ([]byte, error) {
	if a.isText {
		return json.Marshal(a.text)
	}
	return []byte(strconv.Itoa(a.index)), nil
}

func (a *Answer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = TextAnswer(s)
		return nil
	}
	i, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("answer must be an integer index or a string, got %s", data)
	}
	*a = IndexAnswer(i)
	return nil
}

func (a Answer) MarshalYAML() (interface{}, error) {
	if a.isText {
		return a.text, nil
	}
	return a.index, nil
}

func (a *Answer) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("answer must be a scalar")
	}
	switch value.ShortTag() {
	case "!!int":
		var i int
		if err := value.Decode(&i); err != nil {
			return err
		}
		*a = IndexAnswer(i)
	case "!!str":
		*a = TextAnswer(value.Value)
	default:
		return fmt.Errorf("answer must be an integer index or a string")
	}
	return nil
}
