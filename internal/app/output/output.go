package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/MOYARU/crawlprobe/internal/app/ui"
	"github.com/MOYARU/crawlprobe/internal/crawler"
	msges "github.com/MOYARU/crawlprobe/internal/messages"
	"github.com/MOYARU/crawlprobe/internal/report"
)

var progressMu sync.Mutex

var titleCaser = cases.Title(language.English)

// PrintScanProgress updates the current progress on the same line.
func PrintScanProgress(current, total int, label, target string) {
	progressMu.Lock()
	defer progressMu.Unlock()

	if total <= 0 {
		fmt.Printf("\r [------------------------------] 0%% | %s [0/0]: %s\033[K", label, target)
		return
	}

	percentage := float64(current) / float64(total) * 100
	if len(target) > 50 {
		target = target[:47] + "..."
	}
	width := 30
	filled := min(int(float64(width)*(float64(current)/float64(total))), width)
	bar := strings.Repeat("#", filled) + strings.Repeat("-", width-filled)
	fmt.Printf("\r [%s] %.0f%% | %s [%d/%d]: %s\033[K", bar, percentage, label, current, total, target)
}

// PrintFindings prints findings highest risk first.
func PrintFindings(findings []report.Finding, headers map[string]string) {
	if len(findings) == 0 {
		fmt.Printf("%s%s%s\n", ui.ColorGreen, msges.GetUIMessage("ConsoleNoIssues"), ui.ColorReset)
		return
	}

	sorted := append([]report.Finding(nil), findings...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Meta().RiskScore > sorted[j].Meta().RiskScore
	})

	fmt.Printf("\n%s%s%s\n", ui.ColorWhite, msges.GetUIMessage("ConsoleFindingsTitle"), ui.ColorReset)
	for _, f := range sorted {
		m := f.Meta()
		msg := msges.GetMessage(string(m.Kind))

		subject := m.URL
		if p := parameterOf(f); p != "" {
			subject = p
		}
		fmt.Printf("\n%s %s%s%s\n", severityBadge(m.Severity), ui.ColorWhite, msg.Title, ui.ColorReset)
		fmt.Printf("%s - %s %s%s\n", ui.ColorGray, m.Method, report.SanitizeURL(m.URL), ui.ColorReset)
		fmt.Printf("%s - %s%s\n", ui.ColorGray, fmt.Sprintf(msg.Message, subject), ui.ColorReset)
		fmt.Printf("%s - %s: %s%s\n", ui.ColorGray, msges.GetUIMessage("ConsoleEvidenceLabel"), report.SanitizeText(f.Evidence()), ui.ColorReset)
		fmt.Printf("%s - %s: %.2f | %s: %.2f%s\n", ui.ColorGray,
			msges.GetUIMessage("ConsoleRiskLabel"), m.RiskScore,
			msges.GetUIMessage("ConsoleConfidenceLabel"), m.Confidence, ui.ColorReset)
		fmt.Printf("%s - %s: %s%s\n", ui.ColorGray, msges.GetUIMessage("ConsoleReproduceLabel"),
			report.Curl(m.Method, m.URL, report.SanitizeParams(m.Params), headers), ui.ColorReset)
		fmt.Printf("%s - %s: %s%s\n", ui.ColorGray, msges.GetUIMessage("ConsoleFixLabel"), msg.Fix, ui.ColorReset)
		if msg.IsPotentiallyFalsePositive {
			fmt.Printf("%s %s%s\n", ui.ColorYellow, msges.GetUIMessage("UIManualVerification"), ui.ColorReset)
		}
	}
}

func parameterOf(f report.Finding) string {
	switch v := f.(type) {
	case report.SQLiError:
		return v.Parameter
	case report.SQLiBoolean:
		return v.Parameter
	case report.SQLiTime:
		return v.Parameter
	case report.XSSReflected:
		return v.Parameter
	default:
		return ""
	}
}

// Summary counts findings by severity and kind.
type Summary struct {
	High   int            `json:"high"`
	Medium int            `json:"medium"`
	Low    int            `json:"low"`
	Total  int            `json:"total"`
	ByKind map[string]int `json:"by_kind"`
}

func Summarize(findings []report.Finding) Summary {
	s := Summary{ByKind: map[string]int{}}
	for _, f := range findings {
		m := f.Meta()
		switch m.Severity {
		case report.SeverityHigh:
			s.High++
		case report.SeverityMedium:
			s.Medium++
		case report.SeverityLow:
			s.Low++
		}
		s.ByKind[string(m.Kind)]++
	}
	s.Total = len(findings)
	return s
}

// Report is the document persisted at the end of a run.
type Report struct {
	Target    string           `json:"target"`
	Scope     []string         `json:"scope,omitempty"`
	StartTime time.Time        `json:"start_time"`
	EndTime   time.Time        `json:"end_time"`
	Requests  int64            `json:"requests"`
	Pages     []crawler.Page   `json:"pages"`
	Forms     []crawler.Form   `json:"forms"`
	Summary   Summary          `json:"summary"`
	Findings  []report.Finding `json:"findings"`
}

// SaveJSONReport writes the run document once. An empty path falls back to
// a timestamped file name in the working directory.
func SaveJSONReport(path string, doc Report) (string, error) {
	if path == "" {
		sanitizedTarget := strings.NewReplacer("://", "_", "/", "_", ":", "_").Replace(doc.Target)
		path = fmt.Sprintf("crawlprobe_report_%s_%s.json", sanitizedTarget, time.Now().Format("20060102_150405"))
	}
	if doc.Findings == nil {
		doc.Findings = []report.Finding{}
	}
	doc.Summary = Summarize(doc.Findings)
	redacted := make([]report.Finding, len(doc.Findings))
	for i, f := range doc.Findings {
		redacted[i] = report.Redacted(f)
	}
	doc.Findings = redacted
	pages := make([]crawler.Page, len(doc.Pages))
	for i, p := range doc.Pages {
		p.URL = report.SanitizeURL(p.URL)
		pages[i] = p
	}
	doc.Pages = pages

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create report dir: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	return path, nil
}

// PrintScanSummary prints per-severity and per-kind counts.
func PrintScanSummary(s Summary) {
	fmt.Printf("\n%s%s%s\n", ui.ColorWhite, msges.GetUIMessage("ConsoleSummaryTitle"), ui.ColorReset)
	for _, row := range []struct {
		sev   report.Severity
		count int
	}{
		{report.SeverityHigh, s.High},
		{report.SeverityMedium, s.Medium},
		{report.SeverityLow, s.Low},
	} {
		fmt.Printf(" %s %d\n", severityBadge(row.sev), row.count)
	}

	kinds := make([]string, 0, len(s.ByKind))
	for k := range s.ByKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for i, k := range kinds {
		prefix := " \t|--"
		if i == len(kinds)-1 {
			prefix = " \t`--"
		}
		fmt.Printf("%s %s (x%d)\n", prefix, msges.GetMessage(k).Title, s.ByKind[k])
	}
}

// severityBadge renders "High", "Medium" or "Low" as a fixed-width badge.
func severityBadge(s report.Severity) string {
	label := fmt.Sprintf("%-6s", titleCaser.String(strings.ToLower(string(s))))
	return ui.SeverityStyle(string(s)).Render(label)
}
