package dialogue

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/medeval/tcm-dialogue-bench/internal/llm"
	"github.com/medeval/tcm-dialogue-bench/internal/prompts"
)

// stubClient is a scripted ChatClient. Each call records the request and pops
// the next step; a step may return a canned reply or fail.
type stubClient struct {
	mu       sync.Mutex
	steps    []func(req llm.ChatRequest) (*llm.ChatResponse, error)
	Requests []llm.ChatRequest
}

func (c *stubClient) Complete(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Requests = append(c.Requests, req)
	if len(c.steps) == 0 {
		return &llm.ChatResponse{Content: "默认回复"}, nil
	}
	step := c.steps[0]
	c.steps = c.steps[1:]
	return step(req)
}

func (c *stubClient) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Requests)
}

func reply(content string) func(llm.ChatRequest) (*llm.ChatResponse, error) {
	return func(llm.ChatRequest) (*llm.ChatResponse, error) {
		return &llm.ChatResponse{Content: content}, nil
	}
}

func fail(err error) func(llm.ChatRequest) (*llm.ChatResponse, error) {
	return func(llm.ChatRequest) (*llm.ChatResponse, error) {
		return nil, err
	}
}

// stubClassifier returns its scripted decisions in order, repeating the last
// one when the script runs out.
type stubClassifier struct {
	decisions []Speaker
	calls     int
}

func (c *stubClassifier) Classify(_ context.Context, _ string) Speaker {
	i := c.calls
	if i >= len(c.decisions) {
		i = len(c.decisions) - 1
	}
	c.calls++
	if i < 0 {
		return SpeakerPatient
	}
	return c.decisions[i]
}

func testPrompts(t *testing.T, names []string) *prompts.Library {
	t.Helper()

	files := map[string]string{
		prompts.Doctor:    "你是医生，请进行问诊。",
		prompts.Patient:   "你是患者。{{.PatientFullInfo}}",
		prompts.Assistant: "你是助理。{{.AssistantFullInfo}}",
		prompts.Router:    "医生说：{{.DialogueContext}}。请回复患者、助理或专家。",
		prompts.Expert:    "{{.JSONFormat}}\n{{.ExpertFullInfo}}\n{{.Dialogue}}",
	}

	dir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name+".txt"), []byte(files[name]), 0o644); err != nil {
			t.Fatalf("failed to write prompt %s: %v", name, err)
		}
	}

	lib, err := prompts.Load(dir, names)
	if err != nil {
		t.Fatalf("failed to load prompts: %v", err)
	}
	return lib
}
