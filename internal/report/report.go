package report

import (
	"encoding/binary"
	"encoding/hex"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/spaolacci/murmur3"

	"github.com/MOYARU/crawlprobe/internal/fingerprint"
)

type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityLow    Severity = "LOW"
)

type Kind string

const (
	KindSQLiError    Kind = "sqli-error"
	KindSQLiBoolean  Kind = "sqli-boolean"
	KindSQLiTime     Kind = "sqli-time"
	KindXSSReflected Kind = "xss-reflected"
	KindCSRF         Kind = "csrf"
)

const excerptLen = 200

// Summary is the part of a response a finding keeps as evidence.
type Summary struct {
	Status    int    `json:"status"`
	Length    int    `json:"length"`
	LatencyMS int64  `json:"latency_ms"`
	BodyHash  string `json:"body_hash"`
	Excerpt   string `json:"excerpt,omitempty"`
}

func Summarize(status int, body []byte, latency time.Duration) *Summary {
	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], murmur3.Sum32(body))
	return &Summary{
		Status:    status,
		Length:    len(body),
		LatencyMS: latency.Milliseconds(),
		BodyHash:  hex.EncodeToString(sum[:]),
		Excerpt:   SanitizeText(truncate(string(body), excerptLen)),
	}
}

// Common holds what every finding carries. Variants embed it.
type Common struct {
	ID             string                `json:"id"`
	Kind           Kind                  `json:"kind"`
	URL            string                `json:"url"`
	Method         string                `json:"method"`
	Params         map[string]string     `json:"params"`
	Request        string                `json:"request_excerpt"`
	Control        *Summary              `json:"control,omitempty"`
	Test           *Summary              `json:"test,omitempty"`
	Confidence     float64               `json:"confidence"`
	Exploitability int                   `json:"exploitability"`
	Impact         int                   `json:"impact"`
	RiskScore      float64               `json:"risk_score"`
	Severity       Severity              `json:"severity"`
	Timestamp      time.Time             `json:"timestamp"`
	Target         *fingerprint.Snapshot `json:"fingerprint,omitempty"`
}

// NewCommon stamps an ID, a UTC timestamp and the risk score.
func NewCommon(kind Kind, url, method string, params map[string]string, exploitability, impact int, confidence float64) Common {
	score := RiskScore(exploitability, impact, confidence)
	copied := make(map[string]string, len(params))
	for k, v := range params {
		copied[k] = v
	}
	return Common{
		ID:             uuid.NewString(),
		Kind:           kind,
		URL:            url,
		Method:         method,
		Params:         copied,
		Request:        truncate(RequestLine(method, url, params), excerptLen),
		Confidence:     confidence,
		Exploitability: exploitability,
		Impact:         impact,
		RiskScore:      score,
		Severity:       SeverityOf(score),
		Timestamp:      time.Now().UTC(),
	}
}

func (c Common) Meta() Common { return c }

// Finding is one positive classification. Findings are values; nothing
// mutates them after they reach a Reporter.
type Finding interface {
	Meta() Common
	Evidence() string
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
