package cli

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestReportCommandRendersBareReport(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "report.json", `{"React.js": "18.2.0", "Next.js": "present"}`)

	stdout, _, err := runCLI(t, "", "report", "--input", input)
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if strings.Index(stdout, "React.js") > strings.Index(stdout, "Next.js") {
		t.Fatalf("report should keep saved order: %s", stdout)
	}
}

func TestReportCommandRendersSummary(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "summary.json", `{"generatedAt": "2026-10-14T00:00:00Z", "source": "page.html", "rules": 14, "detections": {"Vue.js": "3.4.1"}}`)

	stdout, _, err := runCLI(t, "", "report", "--input", input, "--format", "json")
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if !strings.Contains(stdout, `"Vue.js": "3.4.1"`) || strings.Contains(stdout, "generatedAt") {
		t.Fatalf("unexpected output: %s", stdout)
	}
}

func TestReportCommandEmptyReport(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "report.json", `{}`)

	stdout, _, err := runCLI(t, "", "report", "--input", input)
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if !strings.Contains(stdout, "No known frameworks detected") {
		t.Fatalf("expected nothing-found marker, got %s", stdout)
	}
}

func TestReportCommandErrors(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.json", `["React.js"]`)

	if _, _, err := runCLI(t, "", "report"); err == nil {
		t.Fatalf("expected error without --input")
	}
	if _, _, err := runCLI(t, "", "report", "--input", filepath.Join(dir, "absent.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if _, _, err := runCLI(t, "", "report", "--input", bad); err == nil {
		t.Fatalf("expected error for non-object report")
	}
}
