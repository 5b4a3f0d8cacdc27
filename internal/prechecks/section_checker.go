package prechecks

import (
	"fmt"

	"github.com/medeval/tcm-dialogue-bench/internal/models"
)

// SectionChecker verifies the sections the simulated roles are seeded from.
// Without consultation info there is nothing for the patient to report.
type SectionChecker struct{}

func (c *SectionChecker) Name() string {
	return "section-check"
}

func (c *SectionChecker) Check(cs models.CaseData) error {
	if cs.PatientInfo == nil {
		return fmt.Errorf("missing 患者个人信息 section")
	}
	if cs.ConsultInfo == nil {
		return fmt.Errorf("missing 问诊信息 section")
	}
	return nil
}

// GroundTruthChecker verifies the reference diagnosis the expert scores
// against is present.
type GroundTruthChecker struct{}

func (c *GroundTruthChecker) Name() string {
	return "ground-truth-check"
}

func (c *GroundTruthChecker) Check(cs models.CaseData) error {
	if cs.DiagnosisResult == nil && cs.DiagnosisBasis == nil {
		return fmt.Errorf("missing 诊断结果 and 诊断依据 sections")
	}
	return nil
}
