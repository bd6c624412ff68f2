package crawler

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractLinks(t *testing.T) {
	page, _ := url.Parse("https://example.com/app/index.html")
	body := []byte(`<html><head>
<link rel="canonical" href="/app/home?b=1&a=2">
<link rel="stylesheet" href="/app/site.css">
<meta http-equiv="refresh" content="5; url='/app/later'">
</head><body>
<a href="next.html#frag">next</a>
<a href="javascript:void(0)">js</a>
<a href="mailto:x@example.com">mail</a>
<area href="/app/map">
<button onclick="window.location='/app/clicked'">go</button>
<script>fetch('/api/items'); $.ajax("/api/more")</script>
<a href="next.html">dup</a>
</body></html>`)

	d := Extract(body, page)
	assert.Equal(t, []string{
		"https://example.com/app/home?a=2&b=1",
		"https://example.com/app/later",
		"https://example.com/app/next.html",
		"https://example.com/app/map",
		"https://example.com/app/clicked",
		"https://example.com/api/items",
		"https://example.com/api/more",
	}, d.Links)
}

func TestExtractHonoursBase(t *testing.T) {
	page, _ := url.Parse("https://example.com/a/b.html")
	d := Extract([]byte(`<base href="/root/"><a href="x">x</a><form action="post"><input name="n"></form>`), page)
	require.Equal(t, []string{"https://example.com/root/x"}, d.Links)
	require.Len(t, d.Forms, 1)
	assert.Equal(t, "https://example.com/root/post", d.Forms[0].Action)
	assert.Equal(t, "https://example.com/a/b.html", d.Forms[0].SourceURL)
}

func TestExtractForms(t *testing.T) {
	page, _ := url.Parse("https://example.com/login")
	body := []byte(`
<form method="post">
  <input type="hidden" name="csrf_token" value="abc123">
  <input name="user" value="guest">
  <input type="password" name="pass">
  <input name="user">
  <input type="submit" value="nameless">
  <textarea name="note">hello</textarea>
  <select name="role"><option value="u">User</option><option value="a" selected>Admin</option></select>
</form>
<form action="/search"><input name="q"></form>`)

	d := Extract(body, page)
	require.Len(t, d.Forms, 2)

	login := d.Forms[0]
	assert.Equal(t, "POST", login.Method)
	assert.Equal(t, "https://example.com/login", login.Action)
	assert.Equal(t, []string{"csrf_token", "user", "pass", "note", "role"}, login.Inputs)
	assert.Equal(t, map[string]string{
		"csrf_token": "abc123",
		"user":       "guest",
		"note":       "hello",
		"role":       "a",
	}, login.Defaults)

	search := d.Forms[1]
	assert.Equal(t, "GET", search.Method)
	assert.Equal(t, "https://example.com/search", search.Action)
	assert.Equal(t, []string{"q"}, search.Inputs)
	assert.Nil(t, search.Defaults)
	assert.NotEqual(t, login.Key(), search.Key())
}

func TestExtractMalformedMarkup(t *testing.T) {
	page, _ := url.Parse("https://example.com/")
	d := Extract([]byte(`<div><a href="/ok">unclosed<form method=post><input name="x"<p>`), page)
	assert.Contains(t, d.Links, "https://example.com/ok")

	empty := Extract(nil, page)
	assert.Empty(t, empty.Links)
	assert.Empty(t, empty.Forms)
}
