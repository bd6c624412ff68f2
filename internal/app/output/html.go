package output

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	msges "github.com/MOYARU/crawlprobe/internal/messages"
	"github.com/MOYARU/crawlprobe/internal/report"
)

type TemplateFinding struct {
	Severity       string
	Kind           string
	Title          string
	Description    string
	Fix            string
	Method         string
	URL            string
	Evidence       string
	RiskScore      float64
	Confidence     float64
	Params         []Param
	Control        *report.Summary
	Test           *report.Summary
	Curl           string
	ManualVerify   bool
	FingerprintTag string
}

type Param struct {
	Name  string
	Value string
}

// HTMLReportData feeds htmlTemplate.
type HTMLReportData struct {
	Target      string
	ScannedURLs []string
	ScanTime    string
	Duration    string
	Requests    int64
	Summary     Summary
	Findings    []TemplateFinding

	UITitle              string
	UITarget             string
	UIScanTime           string
	UIDuration           string
	UIRequests           string
	UICrawledScope       string
	UIFindings           string
	UIRecommendation     string
	UIEvidence           string
	UIRisk               string
	UIConfidence         string
	UIReproduce          string
	UIParams             string
	UIControl            string
	UITest               string
	UIManualVerification string
	UINoVulns            string
}

// SaveHTMLReport renders doc as a standalone HTML page. Findings are
// redacted the same way as in the JSON report. headers are repeated in each
// curl line.
func SaveHTMLReport(path string, doc Report, headers map[string]string) (string, error) {
	if path == "" {
		sanitizedTarget := strings.NewReplacer("://", "_", "/", "_", ":", "_").Replace(doc.Target)
		path = fmt.Sprintf("crawlprobe_report_%s_%s.html", sanitizedTarget, time.Now().Format("20060102_150405"))
	}

	findings := append([]report.Finding(nil), doc.Findings...)
	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].Meta().RiskScore > findings[j].Meta().RiskScore
	})

	templateFindings := make([]TemplateFinding, 0, len(findings))
	for _, f := range findings {
		templateFindings = append(templateFindings, templateFinding(report.Redacted(f), headers))
	}

	scanned := make([]string, 0, len(doc.Pages))
	for _, p := range doc.Pages {
		scanned = append(scanned, report.SanitizeURL(p.URL))
	}

	data := HTMLReportData{
		Target:               doc.Target,
		ScannedURLs:          scanned,
		ScanTime:             doc.StartTime.Format("2006-01-02 15:04:05"),
		Duration:             doc.EndTime.Sub(doc.StartTime).Round(time.Millisecond).String(),
		Requests:             doc.Requests,
		Summary:              Summarize(doc.Findings),
		Findings:             templateFindings,
		UITitle:              msges.GetUIMessage("HTMLReportTitle"),
		UITarget:             msges.GetUIMessage("HTMLTarget"),
		UIScanTime:           msges.GetUIMessage("HTMLScanTime"),
		UIDuration:           msges.GetUIMessage("HTMLDuration"),
		UIRequests:           msges.GetUIMessage("HTMLRequests"),
		UICrawledScope:       msges.GetUIMessage("HTMLCrawledScope"),
		UIFindings:           msges.GetUIMessage("HTMLFindings"),
		UIRecommendation:     msges.GetUIMessage("HTMLRecommendation"),
		UIEvidence:           msges.GetUIMessage("ConsoleEvidenceLabel"),
		UIRisk:               msges.GetUIMessage("ConsoleRiskLabel"),
		UIConfidence:         msges.GetUIMessage("ConsoleConfidenceLabel"),
		UIReproduce:          msges.GetUIMessage("ConsoleReproduceLabel"),
		UIParams:             msges.GetUIMessage("HTMLParams"),
		UIControl:            msges.GetUIMessage("HTMLControl"),
		UITest:               msges.GetUIMessage("HTMLTest"),
		UIManualVerification: msges.GetUIMessage("UIManualVerification"),
		UINoVulns:            msges.GetUIMessage("ConsoleNoIssues"),
	}

	t, err := template.New("report").Parse(htmlTemplate)
	if err != nil {
		return "", err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create report dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create html report: %w", err)
	}
	defer f.Close()

	if err := t.Execute(f, data); err != nil {
		return "", fmt.Errorf("render html report: %w", err)
	}
	return path, nil
}

func templateFinding(f report.Finding, headers map[string]string) TemplateFinding {
	m := f.Meta()
	msg := msges.GetMessage(string(m.Kind))
	subject := m.URL
	if p := parameterOf(f); p != "" {
		subject = p
	}

	names := make([]string, 0, len(m.Params))
	for k := range m.Params {
		names = append(names, k)
	}
	sort.Strings(names)
	params := make([]Param, 0, len(names))
	for _, k := range names {
		params = append(params, Param{Name: k, Value: m.Params[k]})
	}

	tf := TemplateFinding{
		Severity:     string(m.Severity),
		Kind:         string(m.Kind),
		Title:        msg.Title,
		Description:  fmt.Sprintf(msg.Message, subject),
		Fix:          msg.Fix,
		Method:       m.Method,
		URL:          m.URL,
		Evidence:     report.SanitizeText(f.Evidence()),
		RiskScore:    m.RiskScore,
		Confidence:   m.Confidence,
		Params:       params,
		Control:      m.Control,
		Test:         m.Test,
		Curl:         report.Curl(m.Method, m.URL, m.Params, headers),
		ManualVerify: msg.IsPotentiallyFalsePositive,
	}
	if m.Target != nil {
		tags := append([]string(nil), m.Target.Hints...)
		if server := m.Target.Headers["Server"]; server != "" {
			tags = append(tags, server)
		}
		tf.FingerprintTag = strings.Join(tags, ", ")
	}
	return tf
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.UITitle}} - {{.Target}}</title>
    <style>
        :root {
            --text: #16324d;
            --muted: #5b738c;
            --line: #d9e1ea;
            --high: #d64545;
            --medium: #e6a900;
            --low: #1d6eea;
            --radius: 12px;
        }
        * { box-sizing: border-box; }
        body {
            font-family: "Segoe UI", "Inter", "Helvetica Neue", Arial, sans-serif;
            line-height: 1.6;
            color: var(--text);
            margin: 0;
            padding: 28px 16px 40px;
        }
        .page { max-width: 1100px; margin: 0 auto; }
        h1, h2, h3 { margin: 0; color: #0b3d6e; }
        p { margin: 0.25rem 0; }
        .header, .scope-container, .findings-wrap {
            padding: 20px;
            margin-bottom: 20px;
            border: 1px solid var(--line);
            border-radius: 16px;
        }
        .header-meta {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(220px, 1fr));
            gap: 8px 16px;
            margin-top: 12px;
            color: var(--muted);
        }
        .summary-cards { display: grid; grid-template-columns: repeat(4, 1fr); gap: 14px; margin-bottom: 20px; }
        .card { border: 1px solid var(--line); border-radius: var(--radius); padding: 18px; text-align: center; }
        .card h3 { font-size: 2rem; line-height: 1; }
        .card p { color: var(--muted); font-weight: 600; }
        .high { color: var(--high); border-top: 4px solid var(--high); }
        .medium { color: var(--medium); border-top: 4px solid var(--medium); }
        .low { color: var(--low); border-top: 4px solid var(--low); }
        .finding {
            padding: 18px;
            border-radius: var(--radius);
            margin-bottom: 14px;
            border: 1px solid var(--line);
            border-left: 6px solid #a7b7c7;
        }
        .finding.HIGH { border-left-color: var(--high); }
        .finding.MEDIUM { border-left-color: var(--medium); }
        .finding.LOW { border-left-color: var(--low); }
        .finding-header { display: flex; justify-content: space-between; align-items: center; margin-bottom: 10px; }
        .severity-badge { padding: 5px 10px; border-radius: 999px; color: #fff; font-weight: 700; font-size: 0.76rem; }
        .bg-HIGH { background-color: var(--high); }
        .bg-MEDIUM { background-color: var(--medium); color: #1d1d1d; }
        .bg-LOW { background-color: var(--low); }
        code, pre {
            background: #f2f8ff;
            padding: 2px 6px;
            border-radius: 6px;
            border: 1px solid var(--line);
            font-family: Consolas, Monaco, monospace;
        }
        pre { white-space: pre-wrap; word-break: break-all; padding: 8px; }
        .label { font-weight: 700; color: #35506c; }
        .fix-box, .evidence-box { padding: 14px; border-radius: 10px; margin-top: 14px; border: 1px solid var(--line); }
        .fix-box { border-left: 5px solid #3f9f5f; background: #edf9f0; }
        .evidence-box { border-left: 5px solid #d38a2c; background: #fff8ec; }
        table { width: 100%; border-collapse: collapse; margin-top: 10px; font-size: .95rem; }
        th, td { border-bottom: 1px solid #e7edf4; padding: 6px 10px; text-align: left; }
        .scope-list { max-height: 200px; overflow-y: auto; }
        .scope-list ul { list-style-type: none; padding: 0; margin: 0; font-family: monospace; font-size: 0.9em; word-break: break-all; }
    </style>
</head>
<body>
<div class="page">
    <div class="header">
        <h1>{{.UITitle}}</h1>
        <div class="header-meta">
            <p><span class="label">{{.UITarget}}:</span> {{.Target}}</p>
            <p><span class="label">{{.UIScanTime}}:</span> {{.ScanTime}}</p>
            <p><span class="label">{{.UIDuration}}:</span> {{.Duration}}</p>
            <p><span class="label">{{.UIRequests}}:</span> {{.Requests}}</p>
        </div>
    </div>

    <div class="summary-cards">
        <div class="card high"><h3>{{.Summary.High}}</h3><p>HIGH</p></div>
        <div class="card medium"><h3>{{.Summary.Medium}}</h3><p>MEDIUM</p></div>
        <div class="card low"><h3>{{.Summary.Low}}</h3><p>LOW</p></div>
        <div class="card"><h3>{{.Summary.Total}}</h3><p>TOTAL</p></div>
    </div>

    <div class="scope-container" id="scope">
        <h3>{{.UICrawledScope}} ({{len .ScannedURLs}} URLs)</h3>
        <div class="scope-list">
            <ul>
                {{range .ScannedURLs}}
                <li>{{.}}</li>
                {{end}}
            </ul>
        </div>
    </div>

    <div class="findings-wrap" id="findings">
    <h2>{{.UIFindings}} ({{.Summary.Total}})</h2>
    {{range .Findings}}
    <div class="finding {{.Severity}}" data-kind="{{.Kind}}">
        <div class="finding-header">
            <h3>{{.Title}}</h3>
            <span class="severity-badge bg-{{.Severity}}">{{.Severity}}</span>
        </div>
        <p><code>{{.Method}} {{.URL}}</code>{{if .FingerprintTag}} <span class="label">({{.FingerprintTag}})</span>{{end}}</p>
        <p>{{.Description}}</p>
        <p><span class="label">{{$.UIRisk}}:</span> {{printf "%.2f" .RiskScore}} | <span class="label">{{$.UIConfidence}}:</span> {{printf "%.2f" .Confidence}}</p>
        <div class="evidence-box">
            <span class="label">{{$.UIEvidence}}</span>
            <div><code>{{.Evidence}}</code></div>
            {{if .Params}}
            <table>
                <thead><tr><th>{{$.UIParams}}</th><th></th></tr></thead>
                <tbody>
                {{range .Params}}
                <tr><td><code>{{.Name}}</code></td><td><code>{{.Value}}</code></td></tr>
                {{end}}
                </tbody>
            </table>
            {{end}}
            {{with .Control}}
            <p><span class="label">{{$.UIControl}}:</span> {{.Status}} / {{.Length}} bytes / {{.LatencyMS}} ms</p>
            {{if .Excerpt}}<pre>{{.Excerpt}}</pre>{{end}}
            {{end}}
            {{with .Test}}
            <p><span class="label">{{$.UITest}}:</span> {{.Status}} / {{.Length}} bytes / {{.LatencyMS}} ms</p>
            {{if .Excerpt}}<pre>{{.Excerpt}}</pre>{{end}}
            {{end}}
            <p><span class="label">{{$.UIReproduce}}:</span></p>
            <pre>{{.Curl}}</pre>
        </div>
        <div class="fix-box">
            <span class="label">{{$.UIRecommendation}}</span>
            <div>{{.Fix}}</div>
        </div>
        {{if .ManualVerify}}
        <p style="color: #e67e22;">{{$.UIManualVerification}}</p>
        {{end}}
    </div>
    {{else}}
    <div class="finding">
        <p>{{.UINoVulns}}</p>
    </div>
    {{end}}
    </div>
</div>
</body>
</html>
`
