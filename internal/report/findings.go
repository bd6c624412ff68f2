package report

import (
	"fmt"
	"strings"
	"time"
)

type SQLiError struct {
	Common
	Parameter    string  `json:"parameter"`
	Payload      string  `json:"payload"`
	Signature    string  `json:"signature,omitempty"`
	Differential bool    `json:"differential"`
	Delta        float64 `json:"length_delta"`
}

func (f SQLiError) Evidence() string {
	if f.Signature != "" {
		return fmt.Sprintf("param=%s payload=%q signature=%q", f.Parameter, f.Payload, f.Signature)
	}
	return fmt.Sprintf("param=%s payload=%q response differs (status %d/%d, length delta %.0f%%)",
		f.Parameter, f.Payload, statusOf(f.Control), statusOf(f.Test), f.Delta*100)
}

type SQLiBoolean struct {
	Common
	Parameter    string            `json:"parameter"`
	TruePayload  string            `json:"true_payload"`
	FalsePayload string            `json:"false_payload"`
	FalseParams  map[string]string `json:"false_params"`
	Delta        float64           `json:"length_delta"`
}

func (f SQLiBoolean) Evidence() string {
	return fmt.Sprintf("param=%s true/false responses differ (status %d/%d, length %d/%d)",
		f.Parameter, statusOf(f.Control), statusOf(f.Test), lengthOf(f.Control), lengthOf(f.Test))
}

type SQLiTime struct {
	Common
	Parameter      string        `json:"parameter"`
	Payload        string        `json:"payload"`
	ControlLatency time.Duration `json:"control_latency_ns"`
	TestLatency    time.Duration `json:"test_latency_ns"`
	Margin         time.Duration `json:"margin_ns"`
}

func (f SQLiTime) Evidence() string {
	return fmt.Sprintf("param=%s payload=%q latency %s vs control %s (margin %s)",
		f.Parameter, f.Payload, f.TestLatency.Round(time.Millisecond), f.ControlLatency.Round(time.Millisecond), f.Margin)
}

type XSSReflected struct {
	Common
	Parameter      string `json:"parameter"`
	Payload        string `json:"payload"`
	InScript       bool   `json:"in_script"`
	InEventHandler bool   `json:"in_event_handler"`
}

func (f XSSReflected) Evidence() string {
	ctx := "html body"
	switch {
	case f.InScript:
		ctx = "script block"
	case f.InEventHandler:
		ctx = "event handler attribute"
	}
	return fmt.Sprintf("param=%s payload=%q reflected unescaped in %s", f.Parameter, f.Payload, ctx)
}

type CSRF struct {
	Common
	TokenField string   `json:"token_field,omitempty"`
	Signals    []string `json:"signals"`
}

func (f CSRF) Evidence() string {
	return strings.Join(f.Signals, "; ")
}

func statusOf(s *Summary) int {
	if s == nil {
		return 0
	}
	return s.Status
}

func lengthOf(s *Summary) int {
	if s == nil {
		return 0
	}
	return s.Length
}
