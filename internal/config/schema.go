package config

import (
	"strings"
)

// RubricConfig is the complete scoring rubric configuration.
type RubricConfig struct {
	MultiTurn       RubricSpec `yaml:"multi_turn"`
	OneStep         RubricSpec `yaml:"one_step"`
	RawExcerptLimit int        `yaml:"raw_excerpt_limit"`
}

// RubricSpec lists the dimensions one expert prompt scores.
type RubricSpec struct {
	Dimensions []Dimension `yaml:"dimensions"`
}

// Dimension is a single scored rubric dimension. Key is the JSON key the
// expert model must emit; Description documents the dimension for humans.
type Dimension struct {
	Key         string `yaml:"key"`
	Description string `yaml:"description"`
}

// Keys returns the dimension keys in configuration order.
func (s RubricSpec) Keys() []string {
	keys := make([]string, 0, len(s.Dimensions))
	for _, d := range s.Dimensions {
		keys = append(keys, d.Key)
	}
	return keys
}

// JSONExample renders the JSON shape the expert prompt instructs the model
// to produce, one {reason, score} object per dimension.
func (s RubricSpec) JSONExample() string {
	var b strings.Builder
	b.WriteString("{\n")
	for i, d := range s.Dimensions {
		b.WriteString("    \"" + d.Key + "\": {\n")
		b.WriteString("        \"reason\": \"给出该分数的简要理由\",\n")
		b.WriteString("        \"score\": \"评分（1-10）\"\n")
		b.WriteString("    }")
		if i < len(s.Dimensions)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("}")
	return b.String()
}
