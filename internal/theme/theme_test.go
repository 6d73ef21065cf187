package theme

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var requiredVars = []string{
	"--background", "--foreground",
	"--card", "--card-foreground",
	"--popover", "--popover-foreground",
	"--primary", "--primary-foreground",
	"--secondary", "--secondary-foreground",
	"--muted", "--muted-foreground",
	"--accent", "--accent-foreground",
	"--border", "--input", "--ring",
	"--tg-link", "--tg-hint",
}

func triple(t *testing.T, s string) (l, c, h float64) {
	t.Helper()
	parts := strings.Fields(s)
	require.Len(t, parts, 3, "value %q", s)
	vals := make([]float64, 3)
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		require.NoError(t, err, "value %q", s)
		vals[i] = v
	}
	return vals[0], vals[1], vals[2]
}

func TestToOKLCH_Extremes(t *testing.T) {
	assert.Equal(t, "1 0 0", ToOKLCH("#ffffff"))
	assert.Equal(t, "1 0 0", ToOKLCH("#FFF"))
	assert.Equal(t, "0 0 0", ToOKLCH("#000000"))
	assert.Equal(t, "0 0 0", ToOKLCH("rgb(0, 0, 0)"))
}

func TestToOKLCH_GraysHaveNoHue(t *testing.T) {
	for _, in := range []string{"#ffffff", "#f5f5f5", "#808080", "#1c1c1d", "rgb(200, 200, 200)"} {
		assert.True(t, strings.HasSuffix(ToOKLCH(in), " 0 0"), "%s -> %s", in, ToOKLCH(in))
	}
}

func TestToOKLCH_Chromatic(t *testing.T) {
	l, c, h := triple(t, ToOKLCH("#ff0000"))
	assert.InDelta(t, 0.628, l, 0.01)
	assert.InDelta(t, 0.258, c, 0.01)
	assert.InDelta(t, 29.2, h, 0.5)

	// same color through rgb() and #rrggbbaa
	assert.Equal(t, ToOKLCH("#ff0000"), ToOKLCH("rgb(255 0 0)"))
	assert.Equal(t, ToOKLCH("#ff0000"), ToOKLCH("rgba(255, 0, 0, 0.5)"))
	assert.Equal(t, ToOKLCH("#ff0000"), ToOKLCH("rgb(100%, 0%, 0%)"))
	assert.Equal(t, ToOKLCH("#ff0000"), ToOKLCH("#ff000080"))
}

func TestToOKLCH_PassThrough(t *testing.T) {
	for _, in := range []string{"tomato", "#12", "#gggggg", "rgb(1,2)", "rgb(300,0,0)", "hsl(0 100% 50%)", "rgb(1,2,3"} {
		assert.Equal(t, in, ToOKLCH(in))
	}
}

func TestToCSSVariables_DefaultPalette(t *testing.T) {
	vars := ToCSSVariables(Params{}, nil)
	for _, name := range requiredVars {
		assert.NotEmpty(t, vars[name], name)
	}
	assert.Equal(t, "1 0 0", vars["--background"])
	assert.Equal(t, "0 0 0", vars["--foreground"])
	assert.Equal(t, vars["--tg-link"], vars["--accent"], "accent falls back to link")
	assert.NotContains(t, vars, "--destructive")
	assert.NotContains(t, vars, "--tg-viewport-height")
}

func TestToCSSVariables_IsTotalForGarbage(t *testing.T) {
	garbage := []string{"", " ", "nope", "#", "rgb()", "\x00\xff", "#zzzzzz", "}{;"}
	for _, g := range garbage {
		p := Params{
			BgColor: g, TextColor: g, HintColor: g, LinkColor: g, ButtonColor: g,
			ButtonTextColor: g, SecondaryBgColor: g, AccentTextColor: g,
			DestructiveTextColor: g, HeaderBgColor: g,
		}
		vars := ToCSSVariables(p, &Viewport{Height: 640, StableHeight: 600})
		for _, name := range requiredVars {
			assert.NotEmpty(t, vars[name], "%s for %q", name, g)
		}
		assert.NotPanics(t, func() { IsDark(p) })
		assert.NotPanics(t, func() { Stylesheet(vars) })
	}
}

func TestToCSSVariables_OptionalTokens(t *testing.T) {
	p := Params{
		BgColor:              "#17212b",
		TextColor:            "#f5f5f5",
		AccentTextColor:      "#6ab2f2",
		DestructiveTextColor: "#ec3942",
		HeaderBgColor:        "#17212b",
		SectionBgColor:       "#17212b",
		SubtitleTextColor:    "#708499",
	}
	vars := ToCSSVariables(p, &Viewport{Height: 640, StableHeight: 612.5})

	assert.Equal(t, ToOKLCH("#6ab2f2"), vars["--accent"])
	assert.Equal(t, ToOKLCH("#ec3942"), vars["--destructive"])
	assert.Equal(t, ToOKLCH(Defaults.ButtonTextColor), vars["--destructive-foreground"])
	assert.Equal(t, ToOKLCH("#17212b"), vars["--tg-header-bg"])
	assert.Equal(t, ToOKLCH("#17212b"), vars["--tg-section-bg"])
	assert.Equal(t, ToOKLCH("#708499"), vars["--tg-subtitle"])
	assert.Equal(t, "640px", vars["--tg-viewport-height"])
	assert.Equal(t, "612.5px", vars["--tg-viewport-stable-height"])
}

func TestIsDark(t *testing.T) {
	cases := []struct {
		bg   string
		want bool
	}{
		{"#ffffff", false},
		{"#000000", true},
		{"#17212b", true},
		{"#f4f4f5", false},
		{"rgb(24, 34, 45)", true},
		// bare hex falls back to byte luminance
		{"1a1a1a", true},
		{"eeeeee", false},
		{"garbage", false},
		{"", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, IsDark(Params{BgColor: tc.bg}), "bg %q", tc.bg)
	}
}

func TestStylesheet(t *testing.T) {
	css := Stylesheet(map[string]string{
		"--b": "1 0 0",
		"--a": "evil;}</style>",
	})
	assert.Equal(t, ":root{--a:evil/style;--b:1 0 0;}", css)
}
