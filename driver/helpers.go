package driver

import (
	"bytes"
	"encoding/json"
	"mime"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// describeError extracts a human-readable message from an error response.
// Servlet containers such as Tomcat wrap the store's message in an HTML
// page of "<b>label</b> <u>text</u>" pairs; the description pair is
// preferred, then the message pair. JSON bodies are searched for message,
// description, or error members. Anything else yields the trimmed body.
func describeError(contentType string, body []byte) string {
	raw := strings.TrimSpace(string(body))
	if raw == "" {
		return ""
	}
	mt, _, _ := mime.ParseMediaType(contentType)
	switch {
	case strings.Contains(mt, "json") || (mt == "" && strings.HasPrefix(raw, "{")):
		if msg := describeJSON(body); msg != "" {
			return msg
		}
	case strings.Contains(mt, "html") || (mt == "" && strings.HasPrefix(raw, "<")):
		if msg := describeHTML(body); msg != "" {
			return msg
		}
	}
	return raw
}

func describeJSON(body []byte) string {
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return ""
	}
	for _, key := range []string{"message", "description", "error"} {
		if s, ok := doc[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func describeHTML(body []byte) string {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	labels := map[string]string{}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.B {
			label := strings.ToLower(strings.TrimSpace(textOf(n)))
			if _, seen := labels[label]; !seen {
				if u := nextElement(n); u != nil && u.DataAtom == atom.U {
					labels[label] = strings.TrimSpace(textOf(u))
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	for _, key := range []string{"description", "message"} {
		if s := labels[key]; s != "" {
			return s
		}
	}
	return ""
}

func nextElement(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
