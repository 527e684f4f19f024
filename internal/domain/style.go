package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Style is the visual configuration of a shape.
type Style struct {
	FillColor   string  `json:"fillColor"`
	FillOpacity float64 `json:"fillOpacity"`
	StrokeColor string  `json:"strokeColor"`
	StrokeWidth float64 `json:"strokeWidth"`
	PointSize   float64 `json:"pointSize"`
	PointColor  string  `json:"pointColor"`
	Opacity     float64 `json:"opacity"`
}

// DefaultStyle returns the framework default style.
func DefaultStyle() Style {
	return Style{
		FillColor:   "rgba(255, 255, 255, 0.3)",
		FillOpacity: 0.3,
		StrokeColor: "#FFFFFF",
		StrokeWidth: 2,
		PointSize:   8,
		PointColor:  "#22D3EE",
		Opacity:     1.0,
	}
}

// StylePatch is a partial style; nil fields are left unchanged on merge.
type StylePatch struct {
	FillColor   *string  `json:"fillColor,omitempty" yaml:"fillColor,omitempty" mapstructure:"fill_color"`
	FillOpacity *float64 `json:"fillOpacity,omitempty" yaml:"fillOpacity,omitempty" mapstructure:"fill_opacity"`
	StrokeColor *string  `json:"strokeColor,omitempty" yaml:"strokeColor,omitempty" mapstructure:"stroke_color"`
	StrokeWidth *float64 `json:"strokeWidth,omitempty" yaml:"strokeWidth,omitempty" mapstructure:"stroke_width"`
	PointSize   *float64 `json:"pointSize,omitempty" yaml:"pointSize,omitempty" mapstructure:"point_size"`
	PointColor  *string  `json:"pointColor,omitempty" yaml:"pointColor,omitempty" mapstructure:"point_color"`
	Opacity     *float64 `json:"opacity,omitempty" yaml:"opacity,omitempty" mapstructure:"opacity"`
}

// IsEmpty reports whether the patch changes nothing.
func (p StylePatch) IsEmpty() bool {
	return p.FillColor == nil && p.FillOpacity == nil && p.StrokeColor == nil &&
		p.StrokeWidth == nil && p.PointSize == nil && p.PointColor == nil && p.Opacity == nil
}

// Merge returns s with every non-nil field of p applied.
func (s Style) Merge(p StylePatch) Style {
	if p.FillColor != nil {
		s.FillColor = *p.FillColor
	}
	if p.FillOpacity != nil {
		s.FillOpacity = *p.FillOpacity
	}
	if p.StrokeColor != nil {
		s.StrokeColor = *p.StrokeColor
	}
	if p.StrokeWidth != nil {
		s.StrokeWidth = *p.StrokeWidth
	}
	if p.PointSize != nil {
		s.PointSize = *p.PointSize
	}
	if p.PointColor != nil {
		s.PointColor = *p.PointColor
	}
	if p.Opacity != nil {
		s.Opacity = *p.Opacity
	}
	return s
}

// Patch converts a full style into a patch that sets every field.
func (s Style) Patch() StylePatch {
	return StylePatch{
		FillColor:   &s.FillColor,
		FillOpacity: &s.FillOpacity,
		StrokeColor: &s.StrokeColor,
		StrokeWidth: &s.StrokeWidth,
		PointSize:   &s.PointSize,
		PointColor:  &s.PointColor,
		Opacity:     &s.Opacity,
	}
}

// Validate checks numeric ranges and colour syntax.
func (s Style) Validate() error {
	for field, v := range map[string]float64{"fillOpacity": s.FillOpacity, "opacity": s.Opacity} {
		if v < 0 || v > 1 {
			return &ValidationError{Field: field, Value: v, Constraint: "[0, 1]", Message: "opacity must be between 0 and 1"}
		}
	}
	if s.StrokeWidth < 0 {
		return &ValidationError{Field: "strokeWidth", Value: s.StrokeWidth, Constraint: ">= 0", Message: "stroke width must not be negative"}
	}
	if s.PointSize < 0 {
		return &ValidationError{Field: "pointSize", Value: s.PointSize, Constraint: ">= 0", Message: "point size must not be negative"}
	}
	for field, c := range map[string]string{"fillColor": s.FillColor, "strokeColor": s.StrokeColor, "pointColor": s.PointColor} {
		if _, err := ParseColor(c); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
	}
	return nil
}

// Color is an RGBA colour with channels in [0, 1].
type Color struct {
	R, G, B, A float64
}

// White is the fallback for unparsable colours.
var White = Color{R: 1, G: 1, B: 1, A: 1}

// WithAlpha returns c with its alpha replaced.
func (c Color) WithAlpha(a float64) Color {
	c.A = a
	return c
}

// CSS returns the colour as an rgba() string.
func (c Color) CSS() string {
	return fmt.Sprintf("rgba(%d, %d, %d, %s)",
		int(c.R*255+0.5), int(c.G*255+0.5), int(c.B*255+0.5),
		strconv.FormatFloat(c.A, 'f', -1, 64))
}

var namedColors = map[string]Color{
	"white":       White,
	"black":       {0, 0, 0, 1},
	"red":         {1, 0, 0, 1},
	"green":       {0, 128.0 / 255, 0, 1},
	"blue":        {0, 0, 1, 1},
	"yellow":      {1, 1, 0, 1},
	"cyan":        {0, 1, 1, 1},
	"magenta":     {1, 0, 1, 1},
	"orange":      {1, 165.0 / 255, 0, 1},
	"gray":        {128.0 / 255, 128.0 / 255, 128.0 / 255, 1},
	"transparent": {0, 0, 0, 0},
}

// ParseColor parses a CSS colour: #rgb, #rrggbb, #rrggbbaa, rgb(), rgba()
// or one of a small set of named colours.
func ParseColor(s string) (Color, error) {
	str := strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[str]; ok {
		return c, nil
	}
	if strings.HasPrefix(str, "#") {
		return parseHexColor(str[1:], s)
	}
	if strings.HasPrefix(str, "rgb") {
		return parseFuncColor(str, s)
	}
	return Color{}, fmt.Errorf("%w: unrecognised colour %q", ErrInvalidStyle, s)
}

// ParseColorOr parses s and falls back to def when it is malformed.
func ParseColorOr(s string, def Color) (Color, bool) {
	c, err := ParseColor(s)
	if err != nil {
		return def, false
	}
	return c, true
}

func parseHexColor(hex, orig string) (Color, error) {
	if len(hex) == 3 || len(hex) == 4 {
		expanded := make([]byte, 0, len(hex)*2)
		for i := 0; i < len(hex); i++ {
			expanded = append(expanded, hex[i], hex[i])
		}
		hex = string(expanded)
	}
	if len(hex) != 6 && len(hex) != 8 {
		return Color{}, fmt.Errorf("%w: bad hex colour %q", ErrInvalidStyle, orig)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("%w: bad hex colour %q", ErrInvalidStyle, orig)
	}
	c := Color{A: 1}
	if len(hex) == 8 {
		c.A = float64(v&0xff) / 255
		v >>= 8
	}
	c.R = float64((v>>16)&0xff) / 255
	c.G = float64((v>>8)&0xff) / 255
	c.B = float64(v&0xff) / 255
	return c, nil
}

func parseFuncColor(str, orig string) (Color, error) {
	open := strings.IndexByte(str, '(')
	if open < 0 || !strings.HasSuffix(str, ")") {
		return Color{}, fmt.Errorf("%w: bad colour function %q", ErrInvalidStyle, orig)
	}
	name := str[:open]
	parts := strings.Split(str[open+1:len(str)-1], ",")
	if (name == "rgb" && len(parts) != 3) || (name == "rgba" && len(parts) != 4) || (name != "rgb" && name != "rgba") {
		return Color{}, fmt.Errorf("%w: bad colour function %q", ErrInvalidStyle, orig)
	}
	var ch [4]float64
	ch[3] = 1
	for i, p := range parts {
		p = strings.TrimSpace(p)
		pct := strings.HasSuffix(p, "%")
		v, err := strconv.ParseFloat(strings.TrimSuffix(p, "%"), 64)
		if err != nil {
			return Color{}, fmt.Errorf("%w: bad colour channel %q", ErrInvalidStyle, orig)
		}
		switch {
		case pct:
			v /= 100
		case i < 3:
			v /= 255
		}
		if v < 0 || v > 1 {
			return Color{}, fmt.Errorf("%w: colour channel out of range %q", ErrInvalidStyle, orig)
		}
		ch[i] = v
	}
	return Color{R: ch[0], G: ch[1], B: ch[2], A: ch[3]}, nil
}
