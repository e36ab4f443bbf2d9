package traportal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanReceiptText_StripsMarkup(t *testing.T) {
	page := `<html><head><style>.x{color:red}</style></head><body>
		<script>console.log("tracking");</script>
		<div>VENDOR LTD</div>
		<p>TIN: 123-456-789</p>
		<table><tr><td>TOTAL</td><td>25000.00</td></tr></table>
	</body></html>`

	text := CleanReceiptText(page)

	assert.Contains(t, text, "VENDOR LTD")
	assert.Contains(t, text, "TIN: 123-456-789")
	assert.NotContains(t, text, "console.log")
	assert.NotContains(t, text, "color:red")
	assert.NotContains(t, text, "<div>")
}

func TestCleanReceiptText_IsolatesReceiptSection(t *testing.T) {
	page := `<html><body>
		<div>Home | About | Verify</div>
		<div>*** START OF LEGAL RECEIPT ***</div>
		<div>VENDOR LTD</div>
	</body></html>`

	text := CleanReceiptText(page)

	assert.NotContains(t, text, "Home | About")
	assert.Contains(t, text, "*** START OF LEGAL RECEIPT ***")
	assert.Contains(t, text, "VENDOR LTD")
}

func TestCleanReceiptText_CollapsesBlankLines(t *testing.T) {
	page := "<html><body><div>a</div><div></div><div></div><div></div><div>b</div></body></html>"

	text := CleanReceiptText(page)

	assert.Equal(t, "a\n\nb", text)
}

func TestCleanReceiptText_PlainTextPassesThrough(t *testing.T) {
	text := CleanReceiptText("already plain\n\n\n\ntext")
	assert.Equal(t, "already plain\n\ntext", text)
}
