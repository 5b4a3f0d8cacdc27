// Package dialogue drives the simulated consultation among the doctor model
// under test, a simulated patient and a simulated clinical assistant, with a
// routing model deciding who answers each doctor utterance.
package dialogue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/medeval/tcm-dialogue-bench/internal/llm"
	"github.com/medeval/tcm-dialogue-bench/internal/models"
	"github.com/medeval/tcm-dialogue-bench/internal/prompts"
)

// TerminationReason records how a simulation reached its end state.
type TerminationReason string

const (
	// ReasonRouterExpert is the normal path: the router classified the
	// doctor's utterance as ready for expert review.
	ReasonRouterExpert TerminationReason = "router_expert"
	// ReasonMaxTurnsForced means the turn budget ran out and a final
	// diagnosis was forced with one extra doctor call.
	ReasonMaxTurnsForced TerminationReason = "max_turns_forced"
	// ReasonDoctorFailed means the doctor model stopped answering mid-run.
	ReasonDoctorFailed TerminationReason = "doctor_failed"
)

// The doctor's canned opening move. Turn zero needs no routing: the question
// always goes to the patient.
const openingQuestion = "你好，请问有哪里不舒服的吗"

// assistantAddressMarker is the literal prefix the doctor model may prepend
// to explicitly address the assistant. Only this exact token is stripped
// before forwarding; anything else passes through unchanged.
const assistantAddressMarker = "<对助理>"

// In-band placeholders injected when a participant fails to answer, so the
// run can still reach a terminal state. The evaluator filters these out.
const (
	doctorFailedPlaceholder    = "[ERROR: Doctor Model Failed to Respond]"
	patientFailedPlaceholder   = "[ERROR: Patient Failed to Respond]"
	assistantFailedPlaceholder = "[ERROR: Assistant Failed to Respond]"
	forcedDiagnosisPlaceholder = "[ERROR: Failed to generate final diagnosis after max turns]"
)

const forcedDiagnosisInstruction = "请根据你跟患者/助理的对话内容，推断出患者可能的疾病，" +
	"诊断结果包括病名和中医证型，同时给出详细的诊断依据。对话内容如下：\n%s"

const (
	completionMaxTokens   = 1024
	completionTemperature = 0.3
)

// SimulatorConfig bounds one simulation run.
type SimulatorConfig struct {
	// MaxTurns is the doctor's turn budget before a diagnosis is forced.
	MaxTurns int
	// MaxTranscriptMessages caps the returned transcript; zero means no cap.
	MaxTranscriptMessages int
}

// Simulator owns the three message threads of one run and the turn loop
// over them. It is safe to reuse across cases: all per-run state lives in
// Run's locals.
type Simulator struct {
	auxClient  llm.ChatClient
	testClient llm.ChatClient
	prompts    *prompts.Library
	classifier Classifier
	cfg        SimulatorConfig
	logger     *zerolog.Logger
}

func NewSimulator(
	auxClient llm.ChatClient,
	testClient llm.ChatClient,
	lib *prompts.Library,
	classifier Classifier,
	cfg SimulatorConfig,
	logger *zerolog.Logger,
) *Simulator {
	return &Simulator{
		auxClient:  auxClient,
		testClient: testClient,
		prompts:    lib,
		classifier: classifier,
		cfg:        cfg,
		logger:     logger,
	}
}

// Outcome is a finalized simulation: the doctor-facing transcript (system
// prompt excluded), how the run ended, and how many doctor turns it took.
type Outcome struct {
	Transcript []llm.Message
	Reason     TerminationReason
	Turns      int
}

// Run drives one full consultation for a case. A nil Outcome means no
// transcript could be produced: a precondition was unmet or the opening
// exchange failed. Later failures are downgraded to in-band placeholders so
// the run still completes.
func (s *Simulator) Run(ctx context.Context, cs models.CaseData) (*Outcome, error) {
	doctor, patient, assistant, err := s.seedThreads(cs)
	if err != nil {
		return nil, err
	}

	// Turn zero: the canned opening goes to the patient, whose answer
	// becomes the first thing the doctor sees.
	patient.Append(llm.RoleUser, openingQuestion)
	s.logger.Info().Str("utterance", openingQuestion).Msg("doctor initiates")

	patientOpening, err := s.call(ctx, s.auxClient, patient.Messages())
	if err != nil {
		return nil, fmt.Errorf("initial patient response: %w", err)
	}
	relay(patient, doctor, patientOpening, patientOpening)

	var reason TerminationReason
	turns := 0

	for turn := 1; turn <= s.cfg.MaxTurns; turn++ {
		doctorOut, err := s.call(ctx, s.testClient, doctor.Messages())
		if err != nil {
			if turn == 1 {
				return nil, fmt.Errorf("doctor response on opening turn: %w", err)
			}
			s.logger.Error().Err(err).Int("turn", turn).Msg("doctor model failed to respond")
			doctor.Append(llm.RoleAssistant, doctorFailedPlaceholder)
			reason = ReasonDoctorFailed
			turns = turn
			break
		}
		turns = turn

		next := s.classifier.Classify(ctx, doctorOut)
		s.logger.Info().Int("turn", turn).Stringer("next", next).Msg("doctor turn routed")

		if next == SpeakerExpert {
			doctor.Append(llm.RoleAssistant, doctorOut)
			reason = ReasonRouterExpert
			break
		}

		target, placeholder := patient, patientFailedPlaceholder
		if next == SpeakerAssistant {
			target, placeholder = assistant, assistantFailedPlaceholder
		}

		relay(doctor, target, doctorOut, stripAddressMarker(doctorOut))

		reply, err := s.call(ctx, s.auxClient, target.Messages())
		if err != nil {
			s.logger.Error().Err(err).Int("turn", turn).Stringer("role", next).Msg("simulated role failed to respond")
			relay(target, doctor, placeholder, placeholder)
			continue
		}
		relay(target, doctor, reply, reply)
	}

	if reason == "" {
		s.logger.Warn().Int("max_turns", s.cfg.MaxTurns).Msg("turn budget exhausted, forcing final diagnosis")
		s.forceDiagnosis(ctx, doctor)
		reason = ReasonMaxTurnsForced
	}

	return &Outcome{
		Transcript: truncateTranscript(doctor.Transcript(), s.cfg.MaxTranscriptMessages),
		Reason:     reason,
		Turns:      turns,
	}, nil
}

// seedThreads checks the run preconditions and builds the three system
// prompts. The doctor sees no case data; the patient sees their personal and
// consultation info; the assistant only what an on-site assistant would have.
func (s *Simulator) seedThreads(cs models.CaseData) (doctor, patient, assistant *Thread, err error) {
	if s.auxClient == nil {
		return nil, nil, nil, fmt.Errorf("auxiliary client not initialized")
	}
	if s.testClient == nil {
		return nil, nil, nil, fmt.Errorf("test client not initialized")
	}

	patientFullInfo := fmt.Sprintf("患者个人信息：%s\n问诊信息：%s",
		models.JSONString(cs.PatientInfo), models.JSONString(cs.ConsultInfo))
	assistantFullInfo := fmt.Sprintf("助理所掌握的患者信息：%s\n其他信息：%s",
		models.JSONString(cs.ConsultInfo), models.JSONString(cs.OtherInfo))

	doctorSystem, err := s.prompts.Render(prompts.Doctor, map[string]string{})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("doctor system prompt: %w", err)
	}
	patientSystem, err := s.prompts.Render(prompts.Patient, map[string]string{
		"PatientFullInfo": patientFullInfo,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("patient system prompt: %w", err)
	}
	assistantSystem, err := s.prompts.Render(prompts.Assistant, map[string]string{
		"AssistantFullInfo": assistantFullInfo,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("assistant system prompt: %w", err)
	}

	return NewThread(doctorSystem), NewThread(patientSystem), NewThread(assistantSystem), nil
}

// forceDiagnosis issues the one out-of-budget doctor call that closes a run
// whose turn budget ran out. Its output, or the error placeholder, becomes
// the final transcript entry.
func (s *Simulator) forceDiagnosis(ctx context.Context, doctor *Thread) {
	history, err := json.MarshalIndent(doctor.Transcript(), "", "  ")
	summary := string(history)
	if err != nil {
		s.logger.Error().Err(err).Msg("could not serialize dialogue history for forced diagnosis")
		summary = "[Error serializing dialogue history]"
	}

	messages := []llm.Message{{
		Role:    llm.RoleUser,
		Content: fmt.Sprintf(forcedDiagnosisInstruction, summary),
	}}

	out, err := s.call(ctx, s.testClient, messages)
	if err != nil {
		s.logger.Error().Err(err).Msg("forced final diagnosis call failed")
		doctor.Append(llm.RoleAssistant, forcedDiagnosisPlaceholder)
		return
	}
	doctor.Append(llm.RoleAssistant, out)
}

func (s *Simulator) call(ctx context.Context, client llm.ChatClient, messages []llm.Message) (string, error) {
	resp, err := client.Complete(ctx, llm.ChatRequest{
		Messages:    messages,
		MaxTokens:   completionMaxTokens,
		Temperature: completionTemperature,
	})
	if err != nil {
		return "", err
	}
	content := strings.TrimSpace(resp.Content)
	if content == "" {
		return "", fmt.Errorf("model returned empty completion")
	}
	return content, nil
}

// stripAddressMarker removes one leading assistant-address marker before the
// utterance is forwarded. A doctor addressing the assistant without the
// exact marker is forwarded verbatim.
func stripAddressMarker(utterance string) string {
	if strings.HasPrefix(strings.TrimSpace(utterance), assistantAddressMarker) {
		return strings.TrimSpace(strings.Replace(utterance, assistantAddressMarker, "", 1))
	}
	return utterance
}
