package html2pdf

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// Stylesheet returns the print override for the given backend.
//
// The static renderer receives margins in the @page block. The browser
// receives only the page size there, its margins travel as PDF options:
// declaring both would let the @page margins win under preferCSSPageSize.
func (p PrintProfile) Stylesheet(backend BackendID) string {
	var buf strings.Builder

	buf.WriteString(buildPageCSS(p, backend))
	buf.WriteString(buildTypographyCSS(p))
	buf.WriteString(buildSuppressCSS(p.Suppress))
	buf.WriteString(buildInteractiveCSS(p.Interactive))
	buf.WriteString(buildPageBreaksCSS(p.KeepTogether, p.KeepWithNext))
	buf.WriteString(buildFlattenCSS(p.Flatten))
	buf.WriteString(buildGridCSS(p.GridOverrides))

	if extra := strings.TrimSpace(p.ExtraCSS); extra != "" {
		buf.WriteString("\n/* User stylesheet */\n")
		buf.WriteString(extra)
		buf.WriteString("\n")
	}

	return buf.String()
}

// buildPageCSS emits the @page rule. Page size is always present.
func buildPageCSS(p PrintProfile, backend BackendID) string {
	var buf strings.Builder
	buf.WriteString("@page {\n")
	fmt.Fprintf(&buf, "  size: %s;\n", p.PageSize.Name)
	if backend == BackendStatic {
		fmt.Fprintf(&buf, "  margin: %s;\n", formatMargins(p.StaticMargins))
	}
	buf.WriteString("}\n")
	return buf.String()
}

func buildTypographyCSS(p PrintProfile) string {
	var buf strings.Builder
	buf.WriteString("\n/* Typography */\nbody {\n")
	if len(p.Fonts) > 0 {
		fmt.Fprintf(&buf, "  font-family: %s;\n", fontFamilyList(p.Fonts))
	}
	if p.FontSize != "" {
		fmt.Fprintf(&buf, "  font-size: %s;\n", p.FontSize)
	}
	if p.LineHeight != "" {
		fmt.Fprintf(&buf, "  line-height: %s;\n", p.LineHeight)
	}
	if p.PrintBackground {
		buf.WriteString("  -webkit-print-color-adjust: exact;\n")
		buf.WriteString("  print-color-adjust: exact;\n")
	}
	buf.WriteString("}\n")
	return buf.String()
}

func buildSuppressCSS(selectors []string) string {
	if len(selectors) == 0 {
		return ""
	}
	return "\n/* Modal and overlay UI */\n" + joinSelectors(selectors) + " {\n  display: none !important;\n}\n"
}

// buildInteractiveCSS renders on-screen widgets as static text: no pointer
// cursor, no transitions, and a fixed color across hover and active states.
func buildInteractiveCSS(rules []InteractiveRule) string {
	if len(rules) == 0 {
		return ""
	}

	var buf strings.Builder
	selectors := make([]string, 0, len(rules))
	for _, r := range rules {
		selectors = append(selectors, r.Selector)
	}

	buf.WriteString("\n/* Interactive elements */\n")
	buf.WriteString(joinSelectors(selectors))
	buf.WriteString(" {\n  cursor: default !important;\n  transition: none !important;\n  pointer-events: none;\n}\n")

	for _, r := range rules {
		if r.Color == "" {
			continue
		}
		fmt.Fprintf(&buf, "%s, %s:hover, %s:active {\n  color: %s !important;\n}\n",
			r.Selector, r.Selector, r.Selector, r.Color)
	}
	return buf.String()
}

func buildPageBreaksCSS(keepTogether, keepWithNext []string) string {
	var buf strings.Builder
	if len(keepTogether) > 0 {
		buf.WriteString("\n/* Page breaks: keep semantic units whole */\n")
		buf.WriteString(joinSelectors(keepTogether))
		buf.WriteString(" {\n  break-inside: avoid;\n  page-break-inside: avoid;\n}\n")
	}
	if len(keepWithNext) > 0 {
		buf.WriteString("\n/* Page breaks: never strand a header at page bottom */\n")
		buf.WriteString(joinSelectors(keepWithNext))
		buf.WriteString(" {\n  break-after: avoid;\n  page-break-after: avoid;\n}\n")
	}
	return buf.String()
}

func buildFlattenCSS(selectors []string) string {
	if len(selectors) == 0 {
		return ""
	}
	return "\n/* Flatten screen decoration */\n" + joinSelectors(selectors) +
		" {\n  box-shadow: none !important;\n  border-radius: 0 !important;\n}\n"
}

func buildGridCSS(overrides []GridOverride) string {
	if len(overrides) == 0 {
		return ""
	}

	var buf strings.Builder
	buf.WriteString("\n@media print {\n")
	for _, g := range overrides {
		fmt.Fprintf(&buf, "  %s {\n    grid-template-columns: %s;\n  }\n", g.Selector, g.Columns)
	}
	buf.WriteString("}\n")
	return buf.String()
}

// formatMargins renders margins in CSS shorthand, collapsing uniform edges to one value.
func formatMargins(m Margins) string {
	if m.IsUniform() {
		return formatCM(m.Top)
	}
	return strings.Join([]string{formatCM(m.Top), formatCM(m.Right), formatCM(m.Bottom), formatCM(m.Left)}, " ")
}

func formatCM(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64) + "cm"
}

// fontFamilyList quotes family names; generic families stay bare.
func fontFamilyList(fonts []string) string {
	out := make([]string, 0, len(fonts))
	for _, f := range fonts {
		if slices.Contains(genericFamilies, f) {
			out = append(out, f)
			continue
		}
		out = append(out, `"`+escapeCSSString(f)+`"`)
	}
	return strings.Join(out, ", ")
}

func joinSelectors(selectors []string) string {
	return strings.Join(selectors, ",\n")
}

// escapeCSSString escapes a string for use inside a double-quoted CSS string.
func escapeCSSString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\A `)
	s = strings.ReplaceAll(s, "\r", "")
	return s
}

// ValidateStylesheet runs a user stylesheet through the CSS tokenizer and
// rejects unbalanced blocks, malformed strings and malformed urls.
func ValidateStylesheet(data []byte) error {
	lexer := css.NewLexer(parse.NewInput(bytes.NewReader(data)))

	depth := 0
	for {
		tt, text := lexer.Next()
		switch tt {
		case css.ErrorToken:
			if err := lexer.Err(); err != nil && err != io.EOF {
				return fmt.Errorf("%w: %v", ErrInvalidStylesheet, err)
			}
			if depth != 0 {
				return fmt.Errorf("%w: %d unclosed block(s)", ErrInvalidStylesheet, depth)
			}
			return nil
		case css.LeftBraceToken:
			depth++
		case css.RightBraceToken:
			depth--
			if depth < 0 {
				return fmt.Errorf("%w: unexpected '}'", ErrInvalidStylesheet)
			}
		case css.BadStringToken, css.BadURLToken:
			return fmt.Errorf("%w: malformed token %q", ErrInvalidStylesheet, truncate(string(text), 40))
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
