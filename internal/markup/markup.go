// Package markup converts the small markdown dialect found in job descriptions
// into HTML fragments. It is line oriented and non-recursive: no nested lists,
// no blockquotes, no tables.
package markup

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
)

// Fragments produced by the code rules are swapped for placeholders so that later
// rules never see their contents.
const (
	inlineMark = "\x00"
	blockMark  = "\x02"
	closeMark  = "\x01"
)

var (
	extraBlankLines = regexp.MustCompile(`\n(?:[ \t]*\n){3,}`)
	doubleBackslash = regexp.MustCompile(`\\{2,}`)
	fencedCode      = regexp.MustCompile("(?s)```(?:[\\w+-]*\\n)?(.*?)```")
	inlineCode      = regexp.MustCompile("`([^`\\n]+)`")
	heading         = regexp.MustCompile(`(?m)^[ \t]*(#{1,6})[ \t]+(.+?)[ \t]*$`)
	bold            = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italic          = regexp.MustCompile(`\*([^*\s](?:[^*\n]*[^*\s])?)\*`)
	link            = regexp.MustCompile(`\[([^\]\n]+)\]\(([^)\s]+)\)`)
	listItem        = regexp.MustCompile(`^[ \t]*[-*][ \t]+(.*)$`)
	placeholder     = regexp.MustCompile(`[\x00\x02](\d+)\x01`)
	blockOnly       = regexp.MustCompile(`^\x02\d+\x01$`)

	repeatedBreaks = regexp.MustCompile(`(?:<br>\s*){2,}`)
	emptyParagraph = regexp.MustCompile(`<p>\s*</p>\n?`)
	breakAfterPara = regexp.MustCompile(`</p>\s*<br>`)
)

// Render converts text to an HTML fragment. The input is HTML-escaped before any
// markdown rule runs, so the output never carries raw markup from the source.
func Render(text string) string {
	text = strings.NewReplacer(inlineMark, "", blockMark, "", closeMark, "").Replace(text)

	text = html.EscapeString(text)

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = extraBlankLines.ReplaceAllString(text, "\n\n")

	text = doubleBackslash.ReplaceAllString(text, "")

	var protected []string
	protect := func(mark, fragment string) string {
		protected = append(protected, fragment)
		return mark + strconv.Itoa(len(protected)-1) + closeMark
	}

	text = fencedCode.ReplaceAllStringFunc(text, func(m string) string {
		body := fencedCode.FindStringSubmatch(m)[1]
		body = strings.TrimSuffix(body, "\n")
		return protect(blockMark, "<pre><code>" + body + "</code></pre>")
	})

	text = inlineCode.ReplaceAllStringFunc(text, func(m string) string {
		return protect(inlineMark, "<code>" + inlineCode.FindStringSubmatch(m)[1] + "</code>")
	})

	text = heading.ReplaceAllStringFunc(text, func(m string) string {
		parts := heading.FindStringSubmatch(m)
		level := len(parts[1])
		return fmt.Sprintf("<h%d>%s</h%d>", level, parts[2], level)
	})

	text = bold.ReplaceAllString(text, "<strong>$1</strong>")
	text = italic.ReplaceAllString(text, "<em>$1</em>")
	text = link.ReplaceAllStringFunc(text, renderLink)

	text = blocks(text)

	text = repeatedBreaks.ReplaceAllString(text, "<br>\n")
	text = emptyParagraph.ReplaceAllString(text, "")
	text = breakAfterPara.ReplaceAllString(text, "</p>")
	text = strings.TrimSpace(text)

	return placeholder.ReplaceAllStringFunc(text, func(m string) string {
		idx, err := strconv.Atoi(placeholder.FindStringSubmatch(m)[1])
		if err != nil || idx >= len(protected) {
			return ""
		}
		return protected[idx]
	})
}

func renderLink(m string) string {
	parts := link.FindStringSubmatch(m)
	label, href := parts[1], parts[2]
	if !safeHref(href) {
		return label
	}
	return fmt.Sprintf(`<a href="%s" target="_blank" rel="noopener noreferrer">%s</a>`, href, label)
}

func safeHref(href string) bool {
	lower := strings.ToLower(href)
	for _, prefix := range []string{"http://", "https://", "mailto:", "/", "#"} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return !strings.Contains(lower, ":")
}

// blocks groups list items into a single <ul>, turns blank lines into breaks and
// wraps every other line in its own paragraph. Headings and protected code blocks
// are emitted as they are.
func blocks(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	inList := false

	closeList := func() {
		if inList {
			out = append(out, "</ul>")
			inList = false
		}
	}

	for _, line := range lines {
		if m := listItem.FindStringSubmatch(line); m != nil {
			if !inList {
				out = append(out, "<ul>")
				inList = true
			}
			out = append(out, "<li>"+strings.TrimSpace(m[1])+"</li>")
			continue
		}

		closeList()

		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			out = append(out, "<br>")
		case isBlockLine(trimmed):
			out = append(out, trimmed)
		default:
			out = append(out, "<p>"+trimmed+"</p>")
		}
	}
	closeList()

	return strings.Join(out, "\n")
}

func isBlockLine(line string) bool {
	if len(line) >= 4 && line[0] == '<' && line[1] == 'h' && line[2] >= '1' && line[2] <= '6' && line[3] == '>' {
		return true
	}
	return blockOnly.MatchString(line)
}
