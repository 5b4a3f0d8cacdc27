package evaluator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"go.uber.org/mock/gomock"

	"github.com/medeval/tcm-dialogue-bench/internal/config"
	"github.com/medeval/tcm-dialogue-bench/internal/llm"
	"github.com/medeval/tcm-dialogue-bench/internal/llm/mocks"
	"github.com/medeval/tcm-dialogue-bench/internal/models"
	"github.com/medeval/tcm-dialogue-bench/internal/prompts"
)

var testRubric = config.RubricSpec{
	Dimensions: []config.Dimension{
		{Key: "问诊评分"},
		{Key: "诊断依据评分"},
		{Key: "诊断结果评分"},
	},
}

func testExpertPrompts(t *testing.T) *prompts.Library {
	t.Helper()

	dir := t.TempDir()
	content := "标准资料：{{.ExpertFullInfo}}\n对话：{{.Dialogue}}\n格式：{{.JSONFormat}}"
	if err := os.WriteFile(filepath.Join(dir, prompts.Expert+".txt"), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write expert prompt: %v", err)
	}

	lib, err := prompts.Load(dir, []string{prompts.Expert})
	if err != nil {
		t.Fatalf("failed to load prompts: %v", err)
	}
	return lib
}

func evaluationCase() models.CaseData {
	return models.CaseData{
		ID:              "case-7",
		PatientInfo:     "女，32岁",
		ConsultInfo:     "主诉：头痛伴眩晕一周",
		OtherInfo:       "舌淡苔白，脉细",
		DiagnosisResult: "头痛（血虚证）",
		DiagnosisBasis:  "头痛隐隐，舌淡脉细",
	}
}

func sampleTranscript() []llm.Message {
	return []llm.Message{
		{Role: llm.RoleUser, Content: "我头痛一个星期了"},
		{Role: llm.RoleAssistant, Content: "诊断结果：头痛，血虚证。"},
	}
}

func TestEvaluateParsesExpertScores(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockChatClient(ctrl)
	client.EXPECT().
		Complete(gomock.Any(), gomock.Any()).
		Return(&llm.ChatResponse{Content: "```json\n" + validScoresJSON + "\n```"}, nil)

	logger := zerolog.Nop()
	e := NewEvaluator(client, testExpertPrompts(t), testRubric, 2000, &logger)

	result := e.Evaluate(context.Background(), evaluationCase(), sampleTranscript())
	if result.Failed() {
		t.Fatalf("unexpected failure: %s", result.Error)
	}
	if len(result.Scores) != 3 {
		t.Fatalf("expected 3 dimensions, got %d", len(result.Scores))
	}
	if got := float64(result.Scores["问诊评分"].Score); got != 8 {
		t.Errorf("expected score 8, got %v", got)
	}
}

func TestEvaluatePromptCarriesCaseAndDialogue(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockChatClient(ctrl)

	var prompt string
	client.EXPECT().
		Complete(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
			prompt = req.Messages[0].Content
			return &llm.ChatResponse{Content: validScoresJSON}, nil
		})

	logger := zerolog.Nop()
	e := NewEvaluator(client, testExpertPrompts(t), testRubric, 2000, &logger)
	e.Evaluate(context.Background(), evaluationCase(), sampleTranscript())

	for _, want := range []string{
		"头痛（血虚证）",       // ground-truth diagnosis
		"头痛隐隐，舌淡脉细",    // ground-truth basis
		"我头痛一个星期了",     // dialogue content
		`"问诊评分"`,        // rubric shape
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("expert prompt missing %q", want)
		}
	}
}

func TestEvaluateEmptyTranscriptSkipsModelCall(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockChatClient(ctrl)
	// No EXPECT: any call fails the test.

	logger := zerolog.Nop()
	e := NewEvaluator(client, testExpertPrompts(t), testRubric, 2000, &logger)

	result := e.Evaluate(context.Background(), evaluationCase(), nil)
	if !result.Failed() {
		t.Fatal("expected an error result")
	}
	if !strings.Contains(result.Error, "empty dialogue history") {
		t.Errorf("unexpected error: %s", result.Error)
	}
}

func TestEvaluateNilClient(t *testing.T) {
	logger := zerolog.Nop()
	e := NewEvaluator(nil, testExpertPrompts(t), testRubric, 2000, &logger)

	result := e.Evaluate(context.Background(), evaluationCase(), sampleTranscript())
	if !result.Failed() {
		t.Fatal("expected an error result")
	}
	if !strings.Contains(result.Error, "not initialized") {
		t.Errorf("unexpected error: %s", result.Error)
	}
}

func TestEvaluateExpertCallFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockChatClient(ctrl)
	client.EXPECT().
		Complete(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("gateway timeout"))

	logger := zerolog.Nop()
	e := NewEvaluator(client, testExpertPrompts(t), testRubric, 2000, &logger)

	result := e.Evaluate(context.Background(), evaluationCase(), sampleTranscript())
	if !strings.Contains(result.Error, "expert model failed to respond") {
		t.Errorf("unexpected error: %s", result.Error)
	}
	if result.RawResponse != "" {
		t.Error("call failures must not carry a raw excerpt")
	}
}

func TestEvaluateParseFailureKeepsTruncatedRaw(t *testing.T) {
	raw := "评分说明：" + strings.Repeat("很", 50)

	ctrl := gomock.NewController(t)
	client := mocks.NewMockChatClient(ctrl)
	client.EXPECT().
		Complete(gomock.Any(), gomock.Any()).
		Return(&llm.ChatResponse{Content: raw}, nil)

	logger := zerolog.Nop()
	e := NewEvaluator(client, testExpertPrompts(t), testRubric, 10, &logger)

	result := e.Evaluate(context.Background(), evaluationCase(), sampleTranscript())
	if !strings.Contains(result.Error, "failed to parse") {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	if result.RawResponse != string([]rune(raw)[:10])+"..." {
		t.Errorf("unexpected raw excerpt: %q", result.RawResponse)
	}
}

func TestEvaluateFiltersErrorPlaceholders(t *testing.T) {
	transcript := []llm.Message{
		{Role: llm.RoleUser, Content: "我头痛一个星期了"},
		{Role: llm.RoleAssistant, Content: "[ERROR: Doctor Model Failed to Respond]"},
		{Role: llm.RoleUser, Content: "[ERROR: Patient Failed to Respond]"},
		{Role: llm.RoleAssistant, Content: "诊断结果：头痛，血虚证。"},
	}

	ctrl := gomock.NewController(t)
	client := mocks.NewMockChatClient(ctrl)

	var prompt string
	client.EXPECT().
		Complete(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
			prompt = req.Messages[0].Content
			return &llm.ChatResponse{Content: validScoresJSON}, nil
		})

	logger := zerolog.Nop()
	e := NewEvaluator(client, testExpertPrompts(t), testRubric, 2000, &logger)
	e.Evaluate(context.Background(), evaluationCase(), transcript)

	if strings.Contains(prompt, "[ERROR:") {
		t.Error("error placeholders leaked into the expert prompt")
	}
	if !strings.Contains(prompt, "诊断结果：头痛，血虚证。") {
		t.Error("real dialogue content missing from the expert prompt")
	}
}

func TestCaseInfoBlockSerializesAllSections(t *testing.T) {
	cs := models.CaseData{
		PatientInfo: map[string]any{"性别": "男", "年龄": 45},
		ConsultInfo: "主诉：咳嗽",
	}

	block := CaseInfoBlock(cs)
	for _, want := range []string{"患者个人信息：", "问诊信息：主诉：咳嗽", "其余信息：{}", "诊断结果：{}", "诊断依据：", `"性别"`} {
		if !strings.Contains(block, want) {
			t.Errorf("case info block missing %q in %q", want, block)
		}
	}
}
