package traportal

import (
	"strings"

	"golang.org/x/net/html"
)

// receiptSectionMarker starts the portion of the verification page that
// carries the fiscal receipt body. Everything before it is navigation chrome.
const receiptSectionMarker = "*** START OF LEGAL RECEIPT ***"

// CleanReceiptText reduces a portal verification page to the receipt's plain
// text: HTML is stripped, the receipt section is isolated when its marker is
// present, and runs of blank lines are collapsed.
func CleanReceiptText(page string) string {
	text := extractText(page)

	if idx := strings.Index(text, receiptSectionMarker); idx != -1 {
		text = text[idx:]
	}

	return collapseBlankLines(text)
}

func extractText(page string) string {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		// Not parseable as HTML; treat the input as already-plain text.
		return page
	}

	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		case html.TextNode:
			sb.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
		// Block elements end their own line.
		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "div", "br", "tr", "li", "h1", "h2", "h3", "h4", "table":
				sb.WriteString("\n")
			}
		}
	}
	walk(doc)
	return sb.String()
}

func collapseBlankLines(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, trimmed)
		blank = false
	}
	// Trim a trailing blank line left by the collapse.
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}
