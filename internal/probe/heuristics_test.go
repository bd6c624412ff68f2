package probe

import (
	"bytes"
	"html"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MOYARU/crawlprobe/internal/crawler"
	"github.com/MOYARU/crawlprobe/internal/engine"
)

func snap(status, length int) *engine.Snapshot {
	return &engine.Snapshot{Status: status, Body: bytes.Repeat([]byte("x"), length)}
}

func TestDiffers(t *testing.T) {
	tests := []struct {
		name      string
		a, b      *engine.Snapshot
		threshold float64
		want      bool
	}{
		{name: "100 vs 111 exceeds 10%", a: snap(200, 100), b: snap(200, 111), threshold: 0.10, want: true},
		{name: "100 vs 111 within 20%", a: snap(200, 100), b: snap(200, 111), threshold: 0.20, want: false},
		{name: "equal lengths", a: snap(200, 100), b: snap(200, 100), threshold: 0.10, want: false},
		{name: "status change", a: snap(200, 100), b: snap(500, 100), threshold: 0.10, want: true},
		{name: "empty body", a: snap(200, 0), b: snap(200, 500), threshold: 0.10, want: false},
		{name: "missing response", a: nil, b: snap(200, 500), threshold: 0.10, want: false},
	}
	for _, tt := range tests {
		got, _ := Differs(tt.a, tt.b, tt.threshold)
		if got != tt.want {
			t.Fatalf("%s: got=%v want=%v", tt.name, got, tt.want)
		}
	}
	_, delta := Differs(snap(200, 111), snap(200, 100), 0.1)
	assert.InDelta(t, 0.11, delta, 1e-9)
}

func TestMatchSignature(t *testing.T) {
	sig, ok := MatchSignature([]byte("<p>ORA-00933: SQL command not properly ended</p>"))
	assert.True(t, ok)
	assert.Equal(t, "ORA-", sig)

	sig, ok = MatchSignature([]byte("You have an error in your sql SYNTAX near"))
	assert.True(t, ok)
	assert.Equal(t, "SQL syntax", sig)

	_, ok = MatchSignature([]byte("<html>all good</html>"))
	assert.False(t, ok)
}

func TestReflected(t *testing.T) {
	payload := "<script>alert(1)</script>"

	_, ok := Reflected([]byte("<p>"+payload+"</p>"), payload)
	assert.True(t, ok, "raw reflection must fire")

	_, ok = Reflected([]byte("<p>"+html.EscapeString(payload)+"</p>"), payload)
	assert.False(t, ok, "escaped reflection must not fire")

	_, ok = Reflected([]byte("hello world"), "world")
	assert.False(t, ok, "payload without markup characters is never a finding")

	r, ok := Reflected([]byte(`<script>var q = '';alert(1);//';</script>`), "';alert(1);//")
	assert.True(t, ok)
	assert.True(t, r.InScript)

	r, ok = Reflected([]byte(`<script>x()</script><p>"><b>`), `"><b>`)
	assert.True(t, ok)
	assert.False(t, r.InScript)

	r, ok = Reflected([]byte(`<img src=x onerror="track('"><b>')">`), `"><b>`)
	assert.True(t, ok)
	assert.True(t, r.InEventHandler)
}

func TestBuildMatrix(t *testing.T) {
	form := crawler.Form{
		Action:   "https://example.com/login",
		Method:   "POST",
		Inputs:   []string{"csrf_token", "user", "note"},
		Defaults: map[string]string{"csrf_token": "tok", "note": "hi"},
	}

	base := Baseline(form)
	assert.Equal(t, map[string]string{"csrf_token": "tok", "user": NeutralValue, "note": "hi"}, base)

	cases := BuildMatrix(form, []string{"'", "<x>"}, Replace)
	assert.Len(t, cases, 4)
	assert.Equal(t, "user", cases[0].Param)
	for _, c := range cases {
		assert.NotEqual(t, "csrf_token", c.Param)
		assert.Equal(t, "tok", c.Params["csrf_token"])
		for name, v := range c.Params {
			if name == c.Param {
				assert.Equal(t, c.Payload, v)
			} else {
				assert.Equal(t, base[name], v)
			}
		}
	}

	grouped := ByParam(BuildMatrix(form, []string{"'", " OR 1=1"}, Append))
	require.Len(t, grouped, 2)
	require.Len(t, grouped["user"], 2)
	assert.Equal(t, "test'", grouped["user"][0].Params["user"])
	assert.Equal(t, "test OR 1=1", grouped["user"][1].Params["user"])
	assert.Equal(t, "hi'", grouped["note"][0].Params["note"])
	assert.Equal(t, NeutralValue, grouped["note"][0].Params["user"])
}

func TestCSRFConfidence(t *testing.T) {
	assert.InDelta(t, 0.3, csrfConfidence(1), 1e-9)
	assert.InDelta(t, 0.6, csrfConfidence(3), 1e-9)
	assert.InDelta(t, 0.9, csrfConfidence(9), 1e-9)
	assert.True(t, StateChanging("post"))
	assert.False(t, StateChanging("GET"))
}
