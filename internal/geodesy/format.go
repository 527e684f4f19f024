package geodesy

import "fmt"

// FormatLength renders metres as "12.34 m" or "1.23 km".
func FormatLength(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%.2f m", meters)
	}
	return fmt.Sprintf("%.2f km", meters/1000)
}

// FormatArea renders square metres as m² below one square kilometre.
func FormatArea(sqm float64) string {
	if sqm < 1e6 {
		return fmt.Sprintf("%.2f m²", sqm)
	}
	return fmt.Sprintf("%.3f km²", sqm/1e6)
}

// FormatAreaUnits picks among cm², m², ha and km².
func FormatAreaUnits(sqm float64) string {
	switch {
	case sqm < 1:
		return fmt.Sprintf("%.2f cm²", sqm*1e4)
	case sqm < 1e4:
		return fmt.Sprintf("%.2f m²", sqm)
	case sqm < 1e6:
		return fmt.Sprintf("%.2f ha", sqm/1e4)
	default:
		return fmt.Sprintf("%.2f km²", sqm/1e6)
	}
}

// FormatVolume renders cubic metres, switching to litres below 1 m³.
func FormatVolume(cbm float64) string {
	switch {
	case cbm < 1:
		return fmt.Sprintf("%.2f L", cbm*1000)
	case cbm < 1e3:
		return fmt.Sprintf("%.2f m³", cbm)
	case cbm < 1e6:
		return fmt.Sprintf("%.2f × 10³ m³", cbm/1e3)
	default:
		return fmt.Sprintf("%.2f × 10⁶ m³", cbm/1e6)
	}
}

// FormatRadius is the circle radius label.
func FormatRadius(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("R: %.2f m", meters)
	}
	return fmt.Sprintf("R: %.3f km", meters/1000)
}

// FormatDimensions is the rectangle "W × H" label.
func FormatDimensions(width, height float64) string {
	return formatSide(width) + " × " + formatSide(height)
}

func formatSide(m float64) string {
	if m < 1000 {
		return fmt.Sprintf("%.2fm", m)
	}
	return fmt.Sprintf("%.3fkm", m/1000)
}
