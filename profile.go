package html2pdf

import (
	"fmt"
	"slices"
)

// cmPerInch converts centimeters to the inches expected by the DevTools protocol.
const cmPerInch = 2.54

// PageSize is a named paper format in millimeters.
type PageSize struct {
	Name     string
	WidthMM  float64
	HeightMM float64
}

// PageA4 is the only page size produced by this package.
var PageA4 = PageSize{Name: "A4", WidthMM: 210, HeightMM: 297}

// WidthInches returns the paper width in inches.
func (s PageSize) WidthInches() float64 { return s.WidthMM / 10 / cmPerInch }

// HeightInches returns the paper height in inches.
func (s PageSize) HeightInches() float64 { return s.HeightMM / 10 / cmPerInch }

// Margins holds the four page edges in centimeters.
type Margins struct {
	Top    float64
	Right  float64
	Bottom float64
	Left   float64
}

// UniformMargins returns margins with the same value on every edge.
func UniformMargins(cm float64) Margins {
	return Margins{Top: cm, Right: cm, Bottom: cm, Left: cm}
}

// IsUniform reports whether all four edges are equal.
func (m Margins) IsUniform() bool {
	return m.Top == m.Right && m.Right == m.Bottom && m.Bottom == m.Left
}

// InchesTRBL returns the edges in inches, ordered top, right, bottom, left.
func (m Margins) InchesTRBL() (top, right, bottom, left float64) {
	return m.Top / cmPerInch, m.Right / cmPerInch, m.Bottom / cmPerInch, m.Left / cmPerInch
}

// InteractiveRule neutralizes an element that was interactive on screen.
// Color, when set, pins the text color so no hover or active state leaks into print.
type InteractiveRule struct {
	Selector string
	Color    string
}

// GridOverride replaces the column template of a grid container under print media.
type GridOverride struct {
	Selector string
	Columns  string
}

// PrintProfile carries the page layout and style overrides applied during rendering.
// It is built once per run and shared by every backend attempt.
type PrintProfile struct {
	PageSize PageSize

	// StaticMargins is expressed as a single @page margin block.
	StaticMargins Margins
	// BrowserMargins is passed as four named edges to the PDF call.
	BrowserMargins Margins

	Fonts      []string
	FontSize   string
	LineHeight string

	Suppress      []string
	Interactive   []InteractiveRule
	KeepTogether  []string
	KeepWithNext  []string
	Flatten       []string
	GridOverrides []GridOverride

	PrintBackground   bool
	PreferCSSPageSize bool

	// ExtraCSS is appended after the generated rules for every backend.
	ExtraCSS string
}

// BuildPrintProfile returns the print policy. Every call returns a fresh value.
func BuildPrintProfile() PrintProfile {
	return PrintProfile{
		PageSize:       PageA4,
		StaticMargins:  UniformMargins(2),
		BrowserMargins: Margins{Top: 2, Right: 1.5, Bottom: 2, Left: 1.5},
		Fonts: []string{
			"Noto Sans CJK KR",
			"Malgun Gothic",
			"맑은 고딕",
			"Apple SD Gothic Neo",
			"sans-serif",
		},
		FontSize:   "12px",
		LineHeight: "1.4",
		Suppress: []string{
			".modal",
			".modal-backdrop",
			"[role=\"dialog\"]",
		},
		Interactive: []InteractiveRule{
			{Selector: ".team-name", Color: "#2c3e50"},
			{Selector: ".league-stat"},
			{Selector: "a"},
			{Selector: "button"},
			{Selector: "[onclick]"},
			{Selector: "[role=\"button\"]"},
		},
		KeepTogether: []string{
			".team-item",
			".stats",
			".card",
			"figure",
			"li",
			"tr",
		},
		KeepWithNext: []string{
			".header",
			"h1", "h2", "h3", "h4", "h5", "h6",
		},
		Flatten: []string{".container"},
		GridOverrides: []GridOverride{
			{Selector: ".financial-info", Columns: "1fr 1fr"},
		},
		PrintBackground:   true,
		PreferCSSPageSize: true,
	}
}

// genericFamilies are CSS generic font families; one must end the font chain.
var genericFamilies = []string{"serif", "sans-serif", "monospace", "cursive", "fantasy", "system-ui"}

// Validate checks the contract-critical parts of the profile:
// page size, margins and a font chain ending in a generic family.
func (p PrintProfile) Validate() error {
	if p.PageSize.WidthMM <= 0 || p.PageSize.HeightMM <= 0 {
		return fmt.Errorf("%w: page size %q has no dimensions", ErrInvalidProfile, p.PageSize.Name)
	}
	if err := p.validateMargins("static", p.StaticMargins); err != nil {
		return err
	}
	if err := p.validateMargins("browser", p.BrowserMargins); err != nil {
		return err
	}
	if len(p.Fonts) == 0 || !slices.Contains(genericFamilies, p.Fonts[len(p.Fonts)-1]) {
		return fmt.Errorf("%w: font chain must end with a generic family", ErrInvalidProfile)
	}
	return nil
}

func (p PrintProfile) validateMargins(name string, m Margins) error {
	widthCM := p.PageSize.WidthMM / 10
	heightCM := p.PageSize.HeightMM / 10
	for _, v := range []float64{m.Top, m.Right, m.Bottom, m.Left} {
		if v < 0 {
			return fmt.Errorf("%w: %s margin %.2fcm is negative", ErrInvalidProfile, name, v)
		}
	}
	if m.Left+m.Right >= widthCM || m.Top+m.Bottom >= heightCM {
		return fmt.Errorf("%w: %s margins leave no printable area", ErrInvalidProfile, name)
	}
	return nil
}

// pdfPageOptions is the browser-side translation of a profile.
type pdfPageOptions struct {
	PaperWidth        float64
	PaperHeight       float64
	MarginTop         float64
	MarginRight       float64
	MarginBottom      float64
	MarginLeft        float64
	PrintBackground   bool
	PreferCSSPageSize bool
}

// browserPDFOptions converts the profile into PDF call parameters, all in inches.
func (p PrintProfile) browserPDFOptions() pdfPageOptions {
	top, right, bottom, left := p.BrowserMargins.InchesTRBL()
	return pdfPageOptions{
		PaperWidth:        p.PageSize.WidthInches(),
		PaperHeight:       p.PageSize.HeightInches(),
		MarginTop:         top,
		MarginRight:       right,
		MarginBottom:      bottom,
		MarginLeft:        left,
		PrintBackground:   p.PrintBackground,
		PreferCSSPageSize: p.PreferCSSPageSize,
	}
}
