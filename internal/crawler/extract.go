package crawler

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var jsRouteRegex = regexp.MustCompile(`(?:fetch|xhr|ajax)\(\s*['"]([^'"]+)['"]`)

const maxLinksPerPage = 500

// Form describes one <form> element. Treat it as read-only once extracted.
type Form struct {
	Action    string            `json:"action"`
	Method    string            `json:"method"`
	Inputs    []string          `json:"inputs"`
	Defaults  map[string]string `json:"defaults,omitempty"`
	SourceURL string            `json:"source_url"`
}

// Key identifies a form by target, method and parameter names.
func (f Form) Key() string {
	return f.Method + " " + f.Action + " " + strings.Join(f.Inputs, "&")
}

// Default returns the declared value of an input, if any.
func (f Form) Default(name string) (string, bool) {
	v, ok := f.Defaults[name]
	return v, ok
}

type Discovery struct {
	Links []string
	Forms []Form
}

// Extract pulls canonical links and forms out of a page. It never fails:
// markup that cannot be parsed yields an empty Discovery.
func Extract(body []byte, pageURL *url.URL) Discovery {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil || pageURL == nil {
		return Discovery{}
	}

	raw, forms, base := extractData(doc)
	resolveBase := pageURL
	if base != nil {
		resolveBase = pageURL.ResolveReference(base)
	}

	var d Discovery
	seen := make(map[string]struct{})
	for _, link := range raw {
		canon, err := Normalize(link, resolveBase)
		if err != nil {
			continue
		}
		if _, dup := seen[canon]; dup {
			continue
		}
		seen[canon] = struct{}{}
		d.Links = append(d.Links, canon)
		if len(d.Links) >= maxLinksPerPage {
			break
		}
	}

	pageCanon, err := Normalize(pageURL.String(), nil)
	if err != nil {
		pageCanon = pageURL.String()
	}
	for _, rf := range forms {
		action := pageCanon
		if strings.TrimSpace(rf.action) != "" {
			canon, err := Normalize(rf.action, resolveBase)
			if err != nil {
				continue
			}
			action = canon
		}
		d.Forms = append(d.Forms, Form{
			Action:    action,
			Method:    rf.method,
			Inputs:    rf.inputs,
			Defaults:  rf.defaults,
			SourceURL: pageCanon,
		})
	}
	return d
}

type rawForm struct {
	action   string
	method   string
	inputs   []string
	defaults map[string]string
}

func extractData(n *html.Node) ([]string, []rawForm, *url.URL) {
	var links []string
	var forms []rawForm
	var base *url.URL

	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "base":
				if href, ok := attr(n, "href"); ok && base == nil {
					if parsed, err := url.Parse(href); err == nil {
						base = parsed
					}
				}
			case "a", "area":
				if href, ok := attr(n, "href"); ok {
					links = append(links, href)
				}
			case "link":
				if rel, _ := attr(n, "rel"); strings.EqualFold(strings.TrimSpace(rel), "canonical") {
					if href, ok := attr(n, "href"); ok {
						links = append(links, href)
					}
				}
			case "meta":
				equiv, _ := attr(n, "http-equiv")
				content, _ := attr(n, "content")
				if strings.EqualFold(equiv, "refresh") {
					if idx := strings.Index(strings.ToLower(content), "url="); idx != -1 {
						links = append(links, strings.Trim(content[idx+4:], "'\" "))
					}
				}
			case "script":
				if text := textContent(n); text != "" {
					for _, m := range jsRouteRegex.FindAllStringSubmatch(text, -1) {
						links = append(links, m[1])
					}
				}
			case "form":
				forms = append(forms, extractForm(n))
			}

			for _, a := range n.Attr {
				k := strings.ToLower(a.Key)
				if k != "onclick" && k != "onmousedown" && k != "onmouseup" {
					continue
				}
				if !strings.Contains(a.Val, "location") && !strings.Contains(a.Val, "window.open") {
					continue
				}
				for _, quote := range []string{"'", "\""} {
					parts := strings.Split(a.Val, quote)
					for i := 1; i < len(parts); i += 2 {
						if candidate := strings.TrimSpace(parts[i]); candidate != "" {
							links = append(links, candidate)
						}
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(n)
	return links, forms, base
}

func extractForm(n *html.Node) rawForm {
	form := rawForm{method: "GET", defaults: make(map[string]string)}
	if action, ok := attr(n, "action"); ok {
		form.action = action
	}
	if method, ok := attr(n, "method"); ok && strings.TrimSpace(method) != "" {
		form.method = strings.ToUpper(strings.TrimSpace(method))
	}

	seen := make(map[string]struct{})
	add := func(name, value string) {
		if name == "" {
			return
		}
		if _, dup := seen[name]; dup {
			return
		}
		seen[name] = struct{}{}
		form.inputs = append(form.inputs, name)
		if value != "" {
			form.defaults[name] = value
		}
	}

	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.ElementNode {
			name, _ := attr(n, "name")
			switch n.Data {
			case "input":
				value, _ := attr(n, "value")
				add(name, value)
			case "textarea":
				add(name, textContent(n))
			case "select":
				add(name, selectedOption(n))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		f(c)
	}
	if len(form.defaults) == 0 {
		form.defaults = nil
	}
	return form
}

func selectedOption(sel *html.Node) string {
	var first, selected string
	var found, haveFirst bool
	var f func(*html.Node)
	f = func(n *html.Node) {
		if found {
			return
		}
		if n.Type == html.ElementNode && n.Data == "option" {
			value, ok := attr(n, "value")
			if !ok {
				value = strings.TrimSpace(textContent(n))
			}
			if !haveFirst {
				first, haveFirst = value, true
			}
			if _, ok := attr(n, "selected"); ok {
				selected, found = value, true
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(sel)
	if found {
		return selected
	}
	return first
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(n)
	return b.String()
}
