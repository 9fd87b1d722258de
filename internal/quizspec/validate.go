// Package quizspec turns untrusted quiz documents into validated
// domain.QuizSpec values, and serializes them back.
package quizspec

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"pubquiz-service/internal/domain"
)

// Result is the outcome of validating one document. Spec is non-nil only
// when Errors is empty.
type Result struct {
	Valid  bool                `json:"valid"`
	Spec   *domain.QuizSpec    `json:"spec"`
	Errors []domain.Diagnostic `json:"errors"`
}

// Err returns nil for a valid result and a *ValidationError otherwise.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return &ValidationError{Diagnostics: r.Errors}
}

// ValidationError carries every diagnostic of a rejected document.
type ValidationError struct {
	Diagnostics []domain.Diagnostic
}

func (e *ValidationError) Error() string {
	if len(e.Diagnostics) == 0 {
		return "invalid quiz document"
	}
	msgs := make([]string, 0, len(e.Diagnostics))
	for _, d := range e.Diagnostics {
		msgs = append(msgs, d.Message)
	}
	return "invalid quiz document: " + strings.Join(msgs, "; ")
}

// Validator checks documents against the quiz schema.
//
// By default it also enforces referential rules: option-rendering questions
// need options, index answers must fall inside them, round and question ids
// are unique, durations are positive and point values are not negative.
// Permissive skips those rules and only checks shape and types.
type Validator struct {
	Permissive bool
}

// Validate runs the default (strict) validator.
func Validate(raw string) Result {
	return Validator{}.Validate(raw)
}

// Validate parses raw and checks it field by field, collecting every
// violation. It has no side effects.
func (v Validator) Validate(raw string) Result {
	dec := yaml.NewDecoder(strings.NewReader(raw))
	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return Result{Errors: []domain.Diagnostic{syntaxDiagnostic(err)}}
	}
	var extra yaml.Node
	switch err := dec.Decode(&extra); {
	case errors.Is(err, io.EOF):
	case err != nil:
		return Result{Errors: []domain.Diagnostic{syntaxDiagnostic(err)}}
	default:
		return Result{Errors: []domain.Diagnostic{{
			Line:    max(extra.Line, 1),
			Col:     max(extra.Column, 1),
			Message: "expected a single document",
		}}}
	}

	root := &doc
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		root = doc.Content[0]
	}
	c := &checker{strict: !v.Permissive, questionIDs: make(map[string]bool)}
	spec := c.quiz(root)
	if len(c.diags) > 0 {
		return Result{Errors: c.diags}
	}
	return Result{Valid: true, Spec: spec, Errors: []domain.Diagnostic{}}
}

var syntaxLine = regexp.MustCompile(`^yaml: line (\d+): (.*)$`)

func syntaxDiagnostic(err error) domain.Diagnostic {
	msg := err.Error()
	if m := syntaxLine.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		if line < 1 {
			line = 1
		}
		return domain.Diagnostic{Line: line, Col: 1, Message: m[2]}
	}
	return domain.Diagnostic{Line: 1, Col: 1, Message: strings.TrimPrefix(msg, "yaml: ")}
}

type checker struct {
	strict      bool
	diags       []domain.Diagnostic
	questionIDs map[string]bool
}

func (c *checker) fail(path, format string, args ...any) {
	if path == "" {
		path = "root"
	}
	c.diags = append(c.diags, domain.Diagnostic{
		Line:    1,
		Col:     0,
		Message: path + ": " + fmt.Sprintf(format, args...),
	})
}

func join(path string, key any) string {
	if path == "" {
		return fmt.Sprint(key)
	}
	return fmt.Sprintf("%s.%v", path, key)
}

func deref(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

func isNull(n *yaml.Node) bool {
	n = deref(n)
	return n == nil || n.Kind == 0 || (n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null")
}

// mapping returns the key/value pairs of a mapping node, reporting
// duplicate keys. ok is false when n is not a mapping.
func (c *checker) mapping(n *yaml.Node, path string) (map[string]*yaml.Node, bool) {
	n = deref(n)
	if n == nil || n.Kind != yaml.MappingNode {
		c.fail(path, "must be a mapping")
		return nil, false
	}
	fields := make(map[string]*yaml.Node, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := deref(n.Content[i]).Value
		if _, dup := fields[key]; dup {
			c.fail(join(path, key), "duplicate key")
			continue
		}
		fields[key] = n.Content[i+1]
	}
	return fields, true
}

func (c *checker) str(fields map[string]*yaml.Node, key, path string, required bool) (string, bool) {
	n := fields[key]
	p := join(path, key)
	if isNull(n) {
		if required {
			c.fail(p, "is required")
			return "", false
		}
		return "", true
	}
	n = deref(n)
	if n.Kind != yaml.ScalarNode || n.ShortTag() != "!!str" {
		c.fail(p, "must be a string")
		return "", false
	}
	return n.Value, true
}

// integer returns nil when the field is absent.
func (c *checker) integer(fields map[string]*yaml.Node, key, path string) (*int, bool) {
	n := fields[key]
	if isNull(n) {
		return nil, true
	}
	n = deref(n)
	var v int
	if n.Kind != yaml.ScalarNode || n.ShortTag() != "!!int" || n.Decode(&v) != nil {
		c.fail(join(path, key), "must be an integer")
		return nil, false
	}
	return &v, true
}

func (c *checker) sequence(fields map[string]*yaml.Node, key, path string, required bool) ([]*yaml.Node, bool) {
	n := fields[key]
	p := join(path, key)
	if isNull(n) {
		if required {
			c.fail(p, "is required")
			return nil, false
		}
		return nil, true
	}
	n = deref(n)
	if n.Kind != yaml.SequenceNode {
		c.fail(p, "must be a sequence")
		return nil, false
	}
	return n.Content, true
}

func (c *checker) quiz(root *yaml.Node) *domain.QuizSpec {
	if isNull(root) {
		c.fail("", "must be a mapping")
		return nil
	}
	fields, ok := c.mapping(root, "")
	if !ok {
		return nil
	}
	spec := &domain.QuizSpec{}
	spec.Title, _ = c.str(fields, "title", "", true)
	spec.Description, _ = c.str(fields, "description", "", false)

	rounds, ok := c.sequence(fields, "rounds", "", true)
	if !ok {
		return spec
	}
	spec.Rounds = make([]domain.Round, 0, len(rounds))
	roundIDs := make(map[string]bool, len(rounds))
	for i, n := range rounds {
		path := join("rounds", i)
		r := c.round(n, path)
		if c.strict && r.ID != "" {
			if roundIDs[r.ID] {
				c.fail(join(path, "id"), "duplicate round id %q", r.ID)
			}
			roundIDs[r.ID] = true
		}
		spec.Rounds = append(spec.Rounds, r)
	}
	return spec
}

func (c *checker) round(n *yaml.Node, path string) domain.Round {
	r := domain.Round{Duration: domain.DefaultRoundDuration}
	fields, ok := c.mapping(n, path)
	if !ok {
		return r
	}
	r.ID, _ = c.str(fields, "id", path, true)
	r.Title, _ = c.str(fields, "title", path, true)
	if d, ok := c.integer(fields, "duration", path); ok && d != nil {
		if c.strict && *d <= 0 {
			c.fail(join(path, "duration"), "must be a positive number of seconds")
		}
		r.Duration = *d
	}
	questions, ok := c.sequence(fields, "questions", path, true)
	if !ok {
		return r
	}
	r.Questions = make([]domain.Question, 0, len(questions))
	for i, qn := range questions {
		r.Questions = append(r.Questions, c.question(qn, join(join(path, "questions"), i)))
	}
	return r
}

func (c *checker) question(n *yaml.Node, path string) domain.Question {
	q := domain.Question{Points: domain.DefaultPoints}
	fields, ok := c.mapping(n, path)
	if !ok {
		return q
	}

	if id, ok := c.str(fields, "id", path, true); ok {
		q.ID = id
		if c.strict {
			if c.questionIDs[id] {
				c.fail(join(path, "id"), "duplicate question id %q", id)
			}
			c.questionIDs[id] = true
		}
	}

	typeOK := false
	if t, ok := c.str(fields, "type", path, true); ok {
		q.Type = domain.QuestionType(t)
		if !q.Type.Valid() {
			c.fail(join(path, "type"), "must be one of %s", typeList())
		} else {
			typeOK = true
		}
	}

	q.Question, _ = c.str(fields, "question", path, true)

	options, optionsOK := c.sequence(fields, "options", path, false)
	for i, on := range options {
		on = deref(on)
		if on.Kind != yaml.ScalarNode || on.ShortTag() != "!!str" {
			c.fail(join(join(path, "options"), i), "must be a string")
			optionsOK = false
			continue
		}
		q.Options = append(q.Options, on.Value)
	}
	if c.strict && typeOK && optionsOK && q.Type.RendersOptions() && len(q.Options) == 0 {
		c.fail(join(path, "options"), "required for question type %s", q.Type)
		optionsOK = false
	}

	if an := fields["correctAnswer"]; !isNull(an) {
		var answer domain.Answer
		if err := deref(an).Decode(&answer); err != nil {
			c.fail(join(path, "correctAnswer"), "must be an integer index or a string")
		} else {
			q.CorrectAnswer = &answer
			if idx, isIndex := answer.Index(); c.strict && isIndex && optionsOK && len(q.Options) > 0 {
				if idx < 0 || idx >= len(q.Options) {
					c.fail(join(path, "correctAnswer"), "index %d is out of range for %d options", idx, len(q.Options))
				}
			}
		}
	}

	q.Explanation, _ = c.str(fields, "explanation", path, false)
	q.Image, _ = c.str(fields, "image", path, false)
	q.Audio, _ = c.str(fields, "audio", path, false)

	if p, ok := c.integer(fields, "points", path); ok && p != nil {
		if c.strict && *p < 0 {
			c.fail(join(path, "points"), "must not be negative")
		}
		q.Points = *p
	}
	if np, ok := c.integer(fields, "negativePoints", path); ok && np != nil {
		if c.strict && *np < 0 {
			c.fail(join(path, "negativePoints"), "must not be negative")
		}
		q.NegativePoints = np
	}
	return q
}

func typeList() string {
	names := make([]string, len(domain.QuestionTypes))
	for i, t := range domain.QuestionTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
