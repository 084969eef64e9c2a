package models

import "fmt"

// SynthesisMode selects how an answer is produced from ranked units.
type SynthesisMode string

const (
	// Extractive answers with the leading sentences of the best unit.
	Extractive SynthesisMode = "extractive"
	// Generative answers with a completion conditioned on all retrieved units.
	Generative SynthesisMode = "generative"
)

// NoAnswer is returned as the answer text when the best unit yields no sentences.
const NoAnswer = "No relevant answer found."

// Answer is the result of one pipeline invocation.
type Answer struct {
	Text     string        `json:"answer"`
	Mode     SynthesisMode `json:"mode"`
	Evidence []int         `json:"evidence_unit_ordinals"`
}

// ParseSynthesisMode validates a mode name.
func ParseSynthesisMode(s string) (SynthesisMode, error) {
	switch m := SynthesisMode(s); m {
	case Extractive, Generative:
		return m, nil
	default:
		return "", fmt.Errorf("%w: unknown synthesis mode %q", ErrConfiguration, s)
	}
}
