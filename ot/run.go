package ot

import (
	"strings"
	"unicode/utf8"
)

// Run is a stretch of text sharing one set of attributes.
type Run struct {
	Text  string     `json:"text"`
	Attrs Attributes `json:"attrs,omitempty"`
}

// Len returns the total length of runs in code points.
func Len(runs []Run) int {
	n := 0
	for _, r := range runs {
		n += utf8.RuneCountInString(r.Text)
	}
	return n
}

// Text concatenates the text of all runs.
func Text(runs []Run) string {
	var b strings.Builder
	for _, r := range runs {
		b.WriteString(r.Text)
	}
	return b.String()
}

// Normalize drops empty runs and merges neighbours with equal attributes.
func Normalize(runs []Run) []Run {
	out := make([]Run, 0, len(runs))
	for _, r := range runs {
		if r.Text == "" {
			continue
		}
		if len(r.Attrs) == 0 {
			r.Attrs = nil
		}
		if n := len(out); n > 0 && out[n-1].Attrs.Equal(r.Attrs) {
			out[n-1].Text += r.Text
			continue
		}
		out = append(out, r)
	}
	return out
}

// cursor walks runs code point by code point.
type cursor struct {
	runs []Run
	i    int // current run
	off  int // code point offset within runs[i]
}

// take consumes up to n code points and returns them as runs.
func (c *cursor) take(n int) []Run {
	var out []Run
	for n > 0 && c.i < len(c.runs) {
		r := c.runs[c.i]
		rs := []rune(r.Text)
		k := min(n, len(rs)-c.off)
		out = append(out, Run{Text: string(rs[c.off : c.off+k]), Attrs: r.Attrs})
		c.off += k
		n -= k
		if c.off == len(rs) {
			c.i++
			c.off = 0
		}
	}
	return out
}

// rest consumes everything left.
func (c *cursor) rest() []Run {
	var out []Run
	if c.i < len(c.runs) && c.off > 0 {
		rs := []rune(c.runs[c.i].Text)
		out = append(out, Run{Text: string(rs[c.off:]), Attrs: c.runs[c.i].Attrs})
		c.i++
		c.off = 0
	}
	out = append(out, c.runs[c.i:]...)
	c.i = len(c.runs)
	return out
}
