package probe

import (
	"context"

	"github.com/MOYARU/crawlprobe/internal/report"
)

// probeSQLiError appends each catalog payload to the parameter's neutral
// value. A signature hit or a control/test difference is positive; the first
// positive payload ends error-based probing of the parameter.
func (r *formRun) probeSQLiError(ctx context.Context, param string, cases []Case) {
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

		sig, matched := MatchSignature(test.Body)
		differs, delta := Differs(control, test, r.e.opts.ErrorThreshold)
		if !matched && !differs {
			continue
		}

		exploitability, confidence := 2, 0.3
		if matched {
			exploitability, confidence = 3, 0.9
		}
		common := r.common(report.KindSQLiError, c.Params, exploitability, 3, confidence)
		common.Control = summarize(control)
		common.Test = summarize(test)
		r.e.report(report.SQLiError{
			Common:       common,
			Parameter:    param,
			Payload:      c.Payload,
			Signature:    sig,
			Differential: differs,
			Delta:        delta,
		})
		return
	}
}

// probeSQLiBoolean compares a tautology against a contradiction. There is no
// separate control request; the two payload responses control each other.
func (r *formRun) probeSQLiBoolean(ctx context.Context, param string) {
	base := Baseline(r.form)
	trueParams := withValue(base, param, BooleanTruePayload)
	falseParams := withValue(base, param, BooleanFalsePayload)

	t, err := r.send(ctx, trueParams, nil)
	if err != nil {
		return
	}
	f, err := r.send(ctx, falseParams, nil)
	if err != nil {
		return
	}
	differs, delta := Differs(t, f, r.e.opts.BooleanThreshold)
	if !differs {
		return
	}

	common := r.common(report.KindSQLiBoolean, trueParams, 2, 3, 0.6)
	common.Control = summarize(t)
	common.Test = summarize(f)
	r.e.report(report.SQLiBoolean{
		Common:       common,
		Parameter:    param,
		TruePayload:  BooleanTruePayload,
		FalsePayload: BooleanFalsePayload,
		FalseParams:  falseParams,
		Delta:        delta,
	})
}

// probeSQLiTime makes one attempt: a control request, then the delay payload.
func (r *formRun) probeSQLiTime(ctx context.Context, param string) {
	base := Baseline(r.form)
	control, err := r.send(ctx, base, nil)
	if err != nil {
		return
	}
	params := withValue(base, param, TimePayload)
	test, err := r.send(ctx, params, nil)
	if err != nil {
		return
	}
	margin := r.e.opts.TimeMargin
	if test.Elapsed-control.Elapsed <= margin {
		return
	}

	common := r.common(report.KindSQLiTime, params, 2, 3, 0.7)
	common.Control = summarize(control)
	common.Test = summarize(test)
	r.e.report(report.SQLiTime{
		Common:         common,
		Parameter:      param,
		Payload:        TimePayload,
		ControlLatency: control.Elapsed,
		TestLatency:    test.Elapsed,
		Margin:         margin,
	})
}
