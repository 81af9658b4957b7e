// Package markdown renders section text as HTML templ components. Text is
// always escaped; **bold** and [text](url) are converted, and rich text
// sections may also carry a small set of inline HTML tags.
package markdown

import (
	"bytes"
	"context"
	"html"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/a-h/templ"

	"github.com/eringen/folio/content"
)

var (
	reBold = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reLink = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)\)(\^)?`)

	// inline tags accepted in rich text, matched after escaping
	reSimpleTag = regexp.MustCompile(`&lt;(/?)(strong|b|em|i|u)&gt;`)
	reBreak     = regexp.MustCompile(`&lt;br\s*/?&gt;`)
	reAnchor    = regexp.MustCompile(`&lt;a href=(?:&#34;|&#39;)(.*?)(?:&#34;|&#39;)&gt;`)
	reAnchorEnd = regexp.MustCompile(`&lt;/a&gt;`)
)

// StyleClass is the CSS class of a section style.
func StyleClass(s content.Style) string {
	switch s {
	case content.StyleHeader:
		return "text-header"
	case content.StyleBodyBold:
		return "text-body-bold"
	case content.StyleLink:
		return "text-link"
	}
	return "text-body-regular"
}

// Section returns a component rendering s: one paragraph per non-blank
// line inside a div carrying the style class. Link sections render their
// content as a single anchor when it is a safe URL.
func Section(s content.Section) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		RenderSection(&buf, s)
		_, err := w.Write(buf.Bytes())
		return err
	})
}

// RenderSection writes the HTML of s to buf.
func RenderSection(buf *bytes.Buffer, s content.Section) {
	buf.WriteString(`<div class="` + StyleClass(s.Style) + `">`)
	if s.Style == content.StyleLink {
		text := strings.TrimSpace(s.Content)
		if href := SafeURL(text); href != "" {
			buf.WriteString(`<a href="` + href + `">` + html.EscapeString(text) + `</a>`)
		} else {
			buf.WriteString(html.EscapeString(text))
		}
		buf.WriteString("</div>")
		return
	}
	writeParagraphs(buf, s.Content, s.RichText)
	buf.WriteString("</div>")
}

// Text returns a component rendering free text, such as the site bio, as
// paragraphs with inline formatting.
func Text(text string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		writeParagraphs(&buf, text, false)
		_, err := w.Write(buf.Bytes())
		return err
	})
}

func writeParagraphs(buf *bytes.Buffer, text string, rich bool) {
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(strings.TrimRight(raw, "\r"))
		if line == "" {
			continue
		}
		buf.WriteString("<p>")
		formatted := FormatInline(line)
		if rich {
			formatted = AllowInlineTags(formatted)
		}
		buf.WriteString(formatted)
		buf.WriteString("</p>")
	}
}

// ApplyOutsideTags applies fn only to text segments outside HTML tags,
// so that formatting regexes never touch URLs inside href attributes.
func ApplyOutsideTags(s string, fn func(string) string) string {
	var buf strings.Builder
	for len(s) > 0 {
		lt := strings.Index(s, "<")
		if lt < 0 {
			buf.WriteString(fn(s))
			break
		}
		if lt > 0 {
			buf.WriteString(fn(s[:lt]))
		}
		gt := strings.Index(s[lt:], ">")
		if gt < 0 {
			buf.WriteString(s[lt:])
			break
		}
		buf.WriteString(s[lt : lt+gt+1])
		s = s[lt+gt+1:]
	}
	return buf.String()
}

// FormatInline escapes s and converts **bold** and [text](url). A trailing
// ^ after a link opens it in a new tab.
func FormatInline(s string) string {
	escaped := html.EscapeString(s)
	escaped = reLink.ReplaceAllStringFunc(escaped, func(m string) string {
		match := reLink.FindStringSubmatch(m)
		href := SafeURL(match[2])
		if href == "" {
			return match[1]
		}
		attrs := `class="inline-link"`
		if match[3] == "^" {
			attrs += ` target="_blank" rel="noopener noreferrer"`
		}
		return `<a href="` + href + `" ` + attrs + `>` + match[1] + `</a>`
	})
	return ApplyOutsideTags(escaped, func(seg string) string {
		return reBold.ReplaceAllString(seg, "<strong>$1</strong>")
	})
}

// AllowInlineTags turns escaped strong, b, em, i, u, br and a tags of
// already formatted text back into markup. Anchors keep only a safe href.
func AllowInlineTags(formatted string) string {
	out := reSimpleTag.ReplaceAllString(formatted, "<$1$2>")
	out = reBreak.ReplaceAllString(out, "<br/>")
	out = reAnchor.ReplaceAllStringFunc(out, func(m string) string {
		href := SafeURL(reAnchor.FindStringSubmatch(m)[1])
		if href == "" {
			return `<a class="inline-link">`
		}
		return `<a href="` + href + `" class="inline-link">`
	})
	return reAnchorEnd.ReplaceAllString(out, "</a>")
}

// SafeURL validates and sanitizes a URL for use in HTML attributes.
func SafeURL(raw string) string {
	val := strings.TrimSpace(html.UnescapeString(raw))
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "/") || strings.HasPrefix(val, "#") {
		return html.EscapeString(val)
	}
	parsed, err := url.Parse(val)
	if err != nil || parsed.Scheme == "" {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "mailto", "tel":
		return html.EscapeString(val)
	default:
		return ""
	}
}
