// Package theme turns host theme colors into the CSS custom properties used
// by the web client. Colors are expressed as OKLCH "L C H" triples so the
// stylesheet can compose them with oklch(var(--x)).
package theme

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Params is the host theme palette. The first seven fields are always
// populated by the bridge; the rest are optional.
type Params struct {
	BgColor                string `json:"bg_color"`
	TextColor              string `json:"text_color"`
	HintColor              string `json:"hint_color"`
	LinkColor              string `json:"link_color"`
	ButtonColor            string `json:"button_color"`
	ButtonTextColor        string `json:"button_text_color"`
	SecondaryBgColor       string `json:"secondary_bg_color"`
	HeaderBgColor          string `json:"header_bg_color,omitempty"`
	AccentTextColor        string `json:"accent_text_color,omitempty"`
	SectionBgColor         string `json:"section_bg_color,omitempty"`
	SectionHeaderTextColor string `json:"section_header_text_color,omitempty"`
	SubtitleTextColor      string `json:"subtitle_text_color,omitempty"`
	DestructiveTextColor   string `json:"destructive_text_color,omitempty"`
}

// Defaults used when the host omits one of the required tokens.
var Defaults = Params{
	BgColor:          "#ffffff",
	TextColor:        "#000000",
	HintColor:        "#999999",
	LinkColor:        "#2678b6",
	ButtonColor:      "#2678b6",
	ButtonTextColor:  "#ffffff",
	SecondaryBgColor: "#f4f4f5",
}

// WithDefaults fills empty required tokens from Defaults.
func (p Params) WithDefaults() Params {
	fill := func(v *string, def string) {
		if strings.TrimSpace(*v) == "" {
			*v = def
		}
	}
	fill(&p.BgColor, Defaults.BgColor)
	fill(&p.TextColor, Defaults.TextColor)
	fill(&p.HintColor, Defaults.HintColor)
	fill(&p.LinkColor, Defaults.LinkColor)
	fill(&p.ButtonColor, Defaults.ButtonColor)
	fill(&p.ButtonTextColor, Defaults.ButtonTextColor)
	fill(&p.SecondaryBgColor, Defaults.SecondaryBgColor)
	return p
}

// Viewport heights in CSS pixels.
type Viewport struct {
	Height       float64 `json:"height"`
	StableHeight float64 `json:"stableHeight"`
}

// parseColor accepts #rgb, #rrggbb, #rrggbbaa, rgb() and rgba(). Alpha is dropped.
func parseColor(s string) (colorful.Color, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch {
	case strings.HasPrefix(s, "#"):
		if len(s) == 9 {
			s = s[:7]
		}
		c, err := colorful.Hex(s)
		return c, err == nil
	case strings.HasPrefix(s, "rgb(") || strings.HasPrefix(s, "rgba("):
		open := strings.IndexByte(s, '(')
		if !strings.HasSuffix(s, ")") {
			return colorful.Color{}, false
		}
		body := strings.NewReplacer(",", " ", "/", " ").Replace(s[open+1 : len(s)-1])
		fields := strings.Fields(body)
		if len(fields) < 3 || len(fields) > 4 {
			return colorful.Color{}, false
		}
		var ch [3]float64
		for i := 0; i < 3; i++ {
			v, ok := channel(fields[i])
			if !ok {
				return colorful.Color{}, false
			}
			ch[i] = v
		}
		return colorful.Color{R: ch[0], G: ch[1], B: ch[2]}, true
	default:
		return colorful.Color{}, false
	}
}

// channel parses "0-255" or "0%-100%" into [0,1].
func channel(s string) (float64, bool) {
	if pct, ok := strings.CutSuffix(s, "%"); ok {
		v, err := strconv.ParseFloat(pct, 64)
		if err != nil || v < 0 || v > 100 {
			return 0, false
		}
		return v / 100, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || v > 255 {
		return 0, false
	}
	return v / 255, true
}

func formatNumber(v float64, prec int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	out := strconv.FormatFloat(v, 'f', prec, 64)
	if strings.Contains(out, ".") {
		out = strings.TrimRight(strings.TrimRight(out, "0"), ".")
	}
	if out == "-0" {
		out = "0"
	}
	return out
}

// ToOKLCH converts a CSS color to an "L C H" triple. Unparsable input is
// returned unchanged.
func ToOKLCH(color string) string {
	c, ok := parseColor(color)
	if !ok {
		return color
	}
	l, ch, h := c.OkLch()
	// achromatic colors have no meaningful hue; sRGB white lands just above 1e-4
	if ch < 1e-3 {
		ch, h = 0, 0
	}
	return formatNumber(l, 4) + " " + formatNumber(ch, 4) + " " + formatNumber(h, 2)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// ToCSSVariables maps a palette onto semantic CSS custom properties. Every
// required variable is present in the result even for garbage input.
func ToCSSVariables(p Params, vp *Viewport) map[string]string {
	p = p.WithDefaults()
	surface := firstNonEmpty(p.SecondaryBgColor, p.BgColor)

	vars := map[string]string{
		"--background":           ToOKLCH(p.BgColor),
		"--foreground":           ToOKLCH(p.TextColor),
		"--card":                 ToOKLCH(surface),
		"--card-foreground":      ToOKLCH(p.TextColor),
		"--popover":              ToOKLCH(surface),
		"--popover-foreground":   ToOKLCH(p.TextColor),
		"--primary":              ToOKLCH(p.ButtonColor),
		"--primary-foreground":   ToOKLCH(p.ButtonTextColor),
		"--secondary":            ToOKLCH(surface),
		"--secondary-foreground": ToOKLCH(p.TextColor),
		"--muted":                ToOKLCH(surface),
		"--muted-foreground":     ToOKLCH(p.HintColor),
		"--accent":               ToOKLCH(firstNonEmpty(p.AccentTextColor, p.LinkColor)),
		"--accent-foreground":    ToOKLCH(p.TextColor),
		"--border":               ToOKLCH(p.HintColor),
		"--input":                ToOKLCH(p.HintColor),
		"--ring":                 ToOKLCH(p.LinkColor),
		"--tg-link":              ToOKLCH(p.LinkColor),
		"--tg-hint":              ToOKLCH(p.HintColor),
	}

	if p.DestructiveTextColor != "" {
		vars["--destructive"] = ToOKLCH(p.DestructiveTextColor)
		vars["--destructive-foreground"] = ToOKLCH(p.ButtonTextColor)
	}
	if p.HeaderBgColor != "" {
		vars["--tg-header-bg"] = ToOKLCH(p.HeaderBgColor)
	}
	if p.SectionBgColor != "" {
		vars["--tg-section-bg"] = ToOKLCH(p.SectionBgColor)
	}
	if p.SubtitleTextColor != "" {
		vars["--tg-subtitle"] = ToOKLCH(p.SubtitleTextColor)
	}
	if vp != nil {
		for k, v := range ViewportVariables(*vp) {
			vars[k] = v
		}
	}
	return vars
}

// ViewportVariables renders the viewport height properties.
func ViewportVariables(vp Viewport) map[string]string {
	return map[string]string{
		"--tg-viewport-height":        formatNumber(vp.Height, 2) + "px",
		"--tg-viewport-stable-height": formatNumber(vp.StableHeight, 2) + "px",
	}
}

// IsDark classifies the palette by background lightness.
func IsDark(p Params) bool {
	if c, ok := parseColor(p.BgColor); ok {
		l, _, _ := c.OkLch()
		return l < 0.5
	}
	// Byte luminance over a bare hex string, for hosts that drop the '#'.
	hex := strings.TrimPrefix(strings.TrimSpace(p.BgColor), "#")
	if len(hex) != 6 {
		return false
	}
	rgb, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return false
	}
	r, g, b := (rgb>>16)&0xff, (rgb>>8)&0xff, rgb&0xff
	return (r*299+g*587+b*114)/1000 < 128
}

// Stylesheet renders vars as a :root rule with keys in sorted order.
func Stylesheet(vars map[string]string) string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(":root{")
	for _, k := range keys {
		fmt.Fprintf(&b, "%s:%s;", k, sanitize(vars[k]))
	}
	b.WriteString("}")
	return b.String()
}

// sanitize keeps pass-through values from closing the rule early.
func sanitize(v string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ';', '{', '}', '<', '>':
			return -1
		}
		return r
	}, v)
}
