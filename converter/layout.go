package converter

import (
	"strings"
	"unicode/utf8"

	"github.com/go-pdf/fpdf"
)

// Text layout constants for the office-to-PDF conversions. Character widths are estimates, not font metrics.
const (
	pageWidth       = 612.0 // Letter, points
	pageHeight      = 792.0
	textMargin      = 50.0
	textFont        = "Helvetica"
	textFontSize    = 12.0
	textLineSpacing = 15.0
)

// textCanvas draws lines of text onto Letter pages. y is measured up from the bottom edge.
type textCanvas struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
	y   float64
}

func newTextCanvas() *textCanvas {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont(textFont, "", textFontSize)
	pdf.AddPage()
	return &textCanvas{
		pdf: pdf,
		tr:  pdf.UnicodeTranslatorFromDescriptor(""),
		y:   pageHeight - textMargin,
	}
}

func (c *textCanvas) setFont(style string, size float64) {
	c.pdf.SetFont(textFont, style, size)
}

// drawString writes s at the left margin on baseline y
func (c *textCanvas) drawString(y float64, s string) {
	c.pdf.Text(textMargin, pageHeight-y, c.tr(s))
}

func (c *textCanvas) showPage() {
	c.pdf.AddPage()
	c.y = pageHeight - textMargin
}

// pageBreak starts a new page when y has run into the bottom margin and returns the y to draw at
func (c *textCanvas) pageBreak(y float64) float64 {
	if y < textMargin {
		c.showPage()
		return c.y
	}
	return y
}

func (c *textCanvas) save(path string) error {
	return c.pdf.OutputFileAndClose(path)
}

// maxCharsFor is how many characters of the given estimated width fit between the margins
func maxCharsFor(charWidth float64) int {
	return int((pageWidth - 2*textMargin) / charWidth)
}

// wrapText greedily packs words into lines of at most maxChars characters.
// A word that does not fit on an empty line is cut to maxChars.
func wrapText(text string, maxChars int) []string {
	if utf8.RuneCountInString(text) <= maxChars {
		return []string{text}
	}

	var lines []string
	var current []string
	currentLen := 0
	for _, word := range strings.Fields(text) {
		wordLen := utf8.RuneCountInString(word)
		candidateLen := wordLen
		if len(current) > 0 {
			candidateLen = currentLen + 1 + wordLen
		}
		if candidateLen <= maxChars {
			current = append(current, word)
			currentLen = candidateLen
			continue
		}
		if len(current) > 0 {
			lines = append(lines, strings.Join(current, " "))
			current = []string{word}
			currentLen = wordLen
		} else {
			lines = append(lines, truncateRunes(word, maxChars))
		}
	}
	if len(current) > 0 {
		lines = append(lines, strings.Join(current, " "))
	}
	return lines
}

// truncateRunes keeps the first n characters of s
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// ellipsize cuts s to keep characters plus "..." when it is longer than limit
func ellipsize(s string, limit, keep int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return truncateRunes(s, keep) + "..."
}
