// Package bank reads question-bank files used to seed the default test.
//
// A bank is either a bare list of questions (the legacy questions.json shape)
// or a full test document with marks, sections and the Odia copy. YAML and
// JSON are both accepted; JSON is a YAML subset, so one decoder serves both.
package bank

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mind-engage/mindengage-testpad/internal/exam"
)

// DefaultName is used when a bank does not carry a testName.
const DefaultName = "Practice Test"

func LoadFile(path string) (exam.CreateTestInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return exam.CreateTestInput{}, err
	}
	defer f.Close()
	in, err := Decode(f)
	if err != nil {
		return exam.CreateTestInput{}, fmt.Errorf("%s: %w", path, err)
	}
	return in, nil
}

func Decode(r io.Reader) (exam.CreateTestInput, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return exam.CreateTestInput{}, err
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return exam.CreateTestInput{}, fmt.Errorf("empty question bank")
	}

	var root yaml.Node
	if err := yaml.Unmarshal(b, &root); err != nil {
		return exam.CreateTestInput{}, fmt.Errorf("parse question bank: %w", err)
	}
	doc := &root
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		doc = doc.Content[0]
	}

	var in exam.CreateTestInput
	switch doc.Kind {
	case yaml.SequenceNode:
		if err := doc.Decode(&in.Questions); err != nil {
			return exam.CreateTestInput{}, fmt.Errorf("decode questions: %w", err)
		}
	case yaml.MappingNode:
		if err := doc.Decode(&in); err != nil {
			return exam.CreateTestInput{}, fmt.Errorf("decode test: %w", err)
		}
	default:
		return exam.CreateTestInput{}, fmt.Errorf("question bank must be a list or a mapping (line %d)", doc.Line)
	}
	if in.TestName == "" {
		in.TestName = DefaultName
	}
	return in, nil
}
