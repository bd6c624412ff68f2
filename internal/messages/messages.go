package messages

import (
	"fmt"
)

type MessageDetail struct {
	Title                      string
	Message                    string
	Fix                        string
	IsPotentiallyFalsePositive bool
}

// findingMessages is keyed by finding kind.
var findingMessages = map[string]MessageDetail{
	"sqli-error": {
		Title:   "SQL Injection (error based)",
		Message: "A database error banner or a significant response change appeared when a quote-breaking payload was appended to parameter '%s'.",
		Fix:     "Use parameterized queries or prepared statements for every database call, and never build SQL from request values. Suppress database error details in responses.",
	},
	"sqli-boolean": {
		Title:                      "SQL Injection (boolean based)",
		Message:                    "Parameter '%s' returned different responses for a true and a false SQL condition, suggesting the value reaches a query.",
		Fix:                        "Use parameterized queries and validate input types server-side.",
		IsPotentiallyFalsePositive: true,
	},
	"sqli-time": {
		Title:                      "SQL Injection (time based)",
		Message:                    "A delay payload in parameter '%s' slowed the response beyond the configured margin.",
		Fix:                        "Use parameterized queries. Confirm by repeating the request, since network jitter can also cause delays.",
		IsPotentiallyFalsePositive: true,
	},
	"xss-reflected": {
		Title:   "Reflected Cross-Site Scripting",
		Message: "Markup injected via parameter '%s' is reflected in the response without encoding. Attackers can use this to steal sessions or redirect users.",
		Fix:     "1. Input/Output Encoding: Escape user input as HTML entities (e.g., < -> &lt;). \n2. Use Security Libraries: Utilize framework XSS protection features.\n3. Apply CSP: Set Content-Security-Policy headers to block unauthorized scripts.",
	},
	"csrf": {
		Title:                      "Cross-Site Request Forgery Weakness",
		Message:                    "The state-changing form at %s shows weak or missing anti-CSRF defenses.",
		Fix:                        "Issue a per-session or per-request anti-CSRF token and validate it server-side, verify Origin/Referer on state-changing requests, and set session cookies with Secure and SameSite.",
		IsPotentiallyFalsePositive: true,
	},
}

// uiMessages holds console strings.
var uiMessages = map[string]string{
	"CrawlerStart":            "Starting crawler: mode %s, max depth %d, max pages %d",
	"CrawlingComplete":        "Crawling complete: %d pages fetched, %d forms discovered (%d in scope)",
	"CrawledScope":            "Crawled Scope:",
	"ProbingComplete":         "Probing complete.",
	"JSONReportSaved":         "JSON Report saved: %s",
	"JSONReportFailed":        "Failed to save JSON report: %v",
	"HTMLReportSaved":         "HTML Report saved: %s",
	"HTMLReportFailed":        "Failed to save HTML report: %v",
	"HTMLReportTitle":         "crawlprobe Scan Report",
	"HTMLTarget":              "Target",
	"HTMLScanTime":            "Scan Time",
	"HTMLDuration":            "Duration",
	"HTMLRequests":            "Requests",
	"HTMLCrawledScope":        "Crawled Scope",
	"HTMLFindings":            "Detailed Findings",
	"HTMLRecommendation":      "Recommendation",
	"HTMLParams":              "Parameters",
	"HTMLControl":             "Control response",
	"HTMLTest":                "Test response",
	"MetricsListening":        "Metrics available at http://%s/metrics",
	"ConsoleFindingsTitle":    "--- Findings ---",
	"ConsoleFixLabel":         "Fix",
	"ConsoleConfidenceLabel":  "Confidence",
	"ConsoleRiskLabel":        "Risk Score",
	"ConsoleEvidenceLabel":    "Evidence",
	"ConsoleReproduceLabel":   "Reproduce",
	"ConsoleSummaryTitle":     "--- Scan Summary ---",
	"ConsoleNoIssues":         "[OK] No issues found",
	"UIManualVerification":    "[!] Manual verification is recommended as this may be a false positive.",
	"ScanCancelled":           "Scan cancelled.",
	"ActiveScanWarning":       "[!] WARNING: crawlprobe sends actual attack payloads to the target server.",
	"ActiveScanPermission":    "By using this tool, you confirm that you have permission to test the target system.",
	"ActiveScanPrompt":        "Do you want to continue?",
	"ActiveScanAborted":       "Scan aborted by user.",
	"InteractiveWelcome":      "Interactive mode. Type 'help' for commands.",
	"InteractiveHelp":         "Commands:",
	"InteractiveExit":         "Bye.",
	"InteractiveErrorTarget":  "No target. Use 'scan <target_url>' or 'set base_url <url>'.",
	"InteractiveErrorUnknown": "Unknown command: %s",
	"InteractiveScanFailed":   "Scan failed: %v",
	"Target":                  "Target: %s",
	"Scope":                   "Scope: %s",
	"RequestsSent":            "Requests sent: %d (%s total round-trip)",
}

func GetMessage(kind string) MessageDetail {
	if msg, ok := findingMessages[kind]; ok {
		return msg
	}
	return MessageDetail{
		Title:                      kind,
		Message:                    fmt.Sprintf("Message details for kind '%s' not found.", kind),
		Fix:                        "Review the evidence manually.",
		IsPotentiallyFalsePositive: true,
	}
}

func GetUIMessage(id string, args ...interface{}) string {
	format, ok := uiMessages[id]
	if !ok || format == "" {
		return id
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}
