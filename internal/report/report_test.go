package report

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRiskScore(t *testing.T) {
	tests := []struct {
		exploitability int
		impact         int
		confidence     float64
		want           float64
	}{
		{exploitability: 3, impact: 3, confidence: 0.9, want: 2.58},
		{exploitability: 1, impact: 1, confidence: 0, want: 0.8},
		{exploitability: 2, impact: 3, confidence: 0.3, want: 2.06},
	}
	for _, tt := range tests {
		got := RiskScore(tt.exploitability, tt.impact, tt.confidence)
		if got != tt.want {
			t.Fatalf("RiskScore(%d,%d,%v) got=%v want=%v", tt.exploitability, tt.impact, tt.confidence, got, tt.want)
		}
		if again := RiskScore(tt.exploitability, tt.impact, tt.confidence); again != got {
			t.Fatalf("RiskScore is not deterministic: %v vs %v", got, again)
		}
	}
	assert.Equal(t, SeverityHigh, SeverityOf(2.58))
	assert.Equal(t, SeverityMedium, SeverityOf(2.06))
	assert.Equal(t, SeverityLow, SeverityOf(0.8))
}

func TestNewCommon(t *testing.T) {
	params := map[string]string{"q": "'"}
	c := NewCommon(KindSQLiError, "https://example.com/s", "GET", params, 3, 3, 0.9)
	params["q"] = "changed"

	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "'", c.Params["q"])
	assert.Equal(t, 2.58, c.RiskScore)
	assert.Equal(t, SeverityHigh, c.Severity)
	assert.Equal(t, time.UTC, c.Timestamp.Location())
	assert.Equal(t, "GET https://example.com/s?q=%27", c.Request)

	other := NewCommon(KindSQLiError, "https://example.com/s", "GET", nil, 3, 3, 0.9)
	assert.NotEqual(t, c.ID, other.ID)
}

func TestSummarize(t *testing.T) {
	body := []byte(strings.Repeat("ab ", 200))
	s := Summarize(200, body, 1500*time.Millisecond)
	assert.Equal(t, 600, s.Length)
	assert.Equal(t, int64(1500), s.LatencyMS)
	assert.Len(t, s.Excerpt, excerptLen)
	assert.Len(t, s.BodyHash, 8)
	assert.Equal(t, s.BodyHash, Summarize(404, body, 0).BodyHash)
	assert.NotEqual(t, s.BodyHash, Summarize(200, []byte("b"), 0).BodyHash)
}

func TestSinkAppendOnly(t *testing.T) {
	var added int
	var mu sync.Mutex
	sink := NewSink(func(Finding) {
		mu.Lock()
		added++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sink.AddFinding(XSSReflected{Common: NewCommon(KindXSSReflected, "u", "GET", nil, 2, 2, 0.8)})
		}()
	}
	wg.Wait()
	sink.AddFinding(nil)

	all := sink.All()
	assert.Len(t, all, 20)
	assert.Equal(t, 20, added)

	all[0] = nil
	assert.NotNil(t, sink.All()[0], "All must return a copy")
}

func TestFindingJSONShape(t *testing.T) {
	f := SQLiError{
		Common:    NewCommon(KindSQLiError, "https://example.com/s", "GET", map[string]string{"q": "test'"}, 3, 3, 0.9),
		Parameter: "q",
		Payload:   "'",
		Signature: "ORA-",
	}
	raw, err := json.Marshal(f)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "sqli-error", decoded["kind"])
	assert.Equal(t, "ORA-", decoded["signature"])
	assert.Equal(t, 2.58, decoded["risk_score"])
	assert.Contains(t, f.Evidence(), "ORA-")
}

func TestCurl(t *testing.T) {
	tests := []struct {
		method  string
		url     string
		params  map[string]string
		headers map[string]string
		want    string
	}{
		{
			method: "GET", url: "http://example.com/search", params: map[string]string{"q": "' OR '1'='1"},
			want: `curl 'http://example.com/search?q=%27+OR+%271%27%3D%271'`,
		},
		{
			method: "post", url: "http://example.com/login", params: map[string]string{"user": "a", "pass": "b"},
			headers: map[string]string{"Origin": "null"},
			want:    `curl -X POST -H 'Origin: null' --data 'pass=b&user=a' 'http://example.com/login'`,
		},
		{method: "GET", url: "http://example.com/it's", want: `curl 'http://example.com/it'\''s'`},
	}
	for _, tt := range tests {
		if got := Curl(tt.method, tt.url, tt.params, tt.headers); got != tt.want {
			t.Fatalf("Curl() got=%s want=%s", got, tt.want)
		}
	}
}
