package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/medeval/tcm-dialogue-bench/internal/llm"
)

// CaseData is one structured benchmark case. The section payloads are opaque
// to the harness: they are serialized into prompts but never interpreted.
// Field names follow the dataset's Chinese keys.
type CaseData struct {
	ID              string `json:"id,omitempty"`
	CaseID          string `json:"case_id,omitempty"`
	PatientInfo     any    `json:"患者个人信息,omitempty"`
	ConsultInfo     any    `json:"问诊信息,omitempty"`
	OtherInfo       any    `json:"其余信息,omitempty"`
	DiagnosisResult any    `json:"诊断结果,omitempty"`
	DiagnosisBasis  any    `json:"诊断依据,omitempty"`
}

// ResolvedID returns the case identifier, falling back to a positional ID
// when the record carries neither "id" nor "case_id".
func (c CaseData) ResolvedID(index int) string {
	if c.ID != "" {
		return c.ID
	}
	if c.CaseID != "" {
		return c.CaseID
	}
	return fmt.Sprintf("case_index_%d", index)
}

// JSONString serializes an opaque case section for inclusion in a prompt.
// Plain strings pass through unquoted.
func JSONString(v any) string {
	if v == nil {
		return "{}"
	}
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// Score is a 1-10 rubric score. Expert models return it either as a JSON
// number or as a quoted string; both forms decode.
type Score float64

func (s *Score) UnmarshalJSON(data []byte) error {
	text := strings.Trim(strings.TrimSpace(string(data)), `"`)
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return fmt.Errorf("score %q is not numeric", text)
	}
	*s = Score(v)
	return nil
}

// DimensionScore is one rubric dimension's verdict from the expert model.
type DimensionScore struct {
	Reason string `json:"reason"`
	Score  Score  `json:"score"`
}

// EvaluationResult is the expert model's scoring of one dialogue, or an
// error-tagged record when scoring could not be completed. RawResponse is
// only populated on parse failures and is truncated to a fixed budget.
type EvaluationResult struct {
	Scores      map[string]DimensionScore `json:"scores,omitempty"`
	Error       string                    `json:"error,omitempty"`
	RawResponse string                    `json:"raw_response,omitempty"`
}

func (r EvaluationResult) Failed() bool {
	return r.Error != ""
}

func EvaluationError(msg string) EvaluationResult {
	return EvaluationResult{Error: msg}
}

// Case processing statuses recorded in the results file.
const (
	StatusCompleted        = "Completed"
	StatusSimulationFailed = "Simulation Failed"
	StatusEvaluationFailed = "Evaluation Failed"
	StatusInvalidCase      = "Invalid Case"
)

// CaseResult is the per-case artifact appended to the results file.
// ModelOutput is only set in one-step mode; Dialogue only in multi-turn mode.
type CaseResult struct {
	CaseID      string            `json:"case_id"`
	Status      string            `json:"status"`
	Dialogue    []llm.Message     `json:"dialogue_history,omitempty"`
	ModelOutput string            `json:"model_output,omitempty"`
	Evaluation  *EvaluationResult `json:"evaluation,omitempty"`
}

// ErrorMarkerPrefix opens every in-band error placeholder injected when a
// participant fails to answer mid-dialogue. The evaluator filters such
// messages out before scoring.
const ErrorMarkerPrefix = "[ERROR:"

func IsErrorPlaceholder(content string) bool {
	return strings.HasPrefix(strings.TrimSpace(content), ErrorMarkerPrefix)
}
