package prompts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTemplates(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name+".txt"), []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write template %s: %v", name, err)
		}
	}
	return dir
}

func TestLoadAndRender(t *testing.T) {
	dir := writeTemplates(t, map[string]string{
		Patient: "你是患者。{{.PatientFullInfo}}",
		Doctor:  "你是医生。",
	})

	lib, err := Load(dir, []string{Patient, Doctor})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !lib.Has(Patient) || !lib.Has(Doctor) {
		t.Error("loaded templates not registered")
	}
	if lib.Has(Router) {
		t.Error("unrequested template should not be registered")
	}

	out, err := lib.Render(Patient, map[string]string{"PatientFullInfo": "男，45岁"})
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	if out != "你是患者。男，45岁" {
		t.Errorf("unexpected rendering: %q", out)
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := writeTemplates(t, map[string]string{Doctor: "你是医生。"})

	_, err := Load(dir, []string{Doctor, Router})
	if err == nil {
		t.Fatal("expected an error for a missing template")
	}
	if !strings.Contains(err.Error(), Router) {
		t.Errorf("error should name the missing template: %v", err)
	}
}

func TestLoadBrokenTemplate(t *testing.T) {
	dir := writeTemplates(t, map[string]string{Doctor: "你是医生。{{.Unclosed"})

	if _, err := Load(dir, []string{Doctor}); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestRenderMissingPlaceholderFails(t *testing.T) {
	dir := writeTemplates(t, map[string]string{Patient: "{{.PatientFullInfo}}"})

	lib, err := Load(dir, []string{Patient})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := lib.Render(Patient, map[string]string{}); err == nil {
		t.Fatal("expected an error for a missing placeholder value")
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	dir := writeTemplates(t, map[string]string{Doctor: "你是医生。"})

	lib, err := Load(dir, []string{Doctor})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := lib.Render(Expert, nil); err == nil {
		t.Fatal("expected an error for an unloaded template")
	}
}
