package probe

import (
	"bytes"
	"context"
	"regexp"
	"strings"

	"github.com/MOYARU/crawlprobe/internal/report"
)

const htmlSignificant = `<>"'`

var (
	reScriptOpen   = regexp.MustCompile(`(?i)<script\b[^>]*>`)
	reScriptClose  = regexp.MustCompile(`(?i)</script\s*>`)
	reEventHandler = regexp.MustCompile(`(?i)\bon[a-z]+\s*=\s*(?:"[^"]*|'[^']*|[^\s>"']*)$`)
)

// Reflection describes where a payload was echoed back unescaped.
type Reflection struct {
	InScript       bool
	InEventHandler bool
}

// Reflected reports whether payload appears verbatim in body. Payloads
// without an HTML-significant character are ignored because their escaped
// and raw forms are identical.
func Reflected(body []byte, payload string) (Reflection, bool) {
	if payload == "" || !strings.ContainsAny(payload, htmlSignificant) {
		return Reflection{}, false
	}
	idx := bytes.Index(body, []byte(payload))
	if idx < 0 {
		return Reflection{}, false
	}
	before := body[:idx]
	return Reflection{
		InScript:       insideScript(before),
		InEventHandler: insideEventHandler(before),
	}, true
}

func insideScript(before []byte) bool {
	opens := reScriptOpen.FindAllIndex(before, -1)
	if len(opens) == 0 {
		return false
	}
	lastOpen := opens[len(opens)-1][1]
	return reScriptClose.FindIndex(before[lastOpen:]) == nil
}

func insideEventHandler(before []byte) bool {
	lt := bytes.LastIndexByte(before, '<')
	if lt < 0 || bytes.IndexByte(before[lt:], '>') >= 0 {
		return false
	}
	return reEventHandler.Match(before[lt:])
}

// probeXSS sends control then test for each matrix case of param and stops
// at the first unescaped reflection.
func (r *formRun) probeXSS(ctx context.Context, param string, cases []Case) {
	base := Baseline(r.form)
	for _, c := range cases {
		if ctx.Err() != nil {
			return
		}
		control, err := r.send(ctx, base, nil)
		if err != nil {
			continue
		}
		test, err := r.send(ctx, c.Params, nil)
		if err != nil {
			continue
		}
		refl, ok := Reflected(test.Body, c.Payload)
		if !ok {
			continue
		}

		exploitability, confidence := 2, 0.8
		if refl.InScript || refl.InEventHandler {
			exploitability, confidence = 3, 0.9
		}
		common := r.common(report.KindXSSReflected, c.Params, exploitability, 2, confidence)
		common.Control = summarize(control)
		common.Test = summarize(test)
		r.e.report(report.XSSReflected{
			Common:         common,
			Parameter:      param,
			Payload:        c.Payload,
			InScript:       refl.InScript,
			InEventHandler: refl.InEventHandler,
		})
		return
	}
}
