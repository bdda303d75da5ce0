package utils

import "strings"

// ImageView is what a product card renders: either an image URL or a glyph.
type ImageView struct {
	URL   string
	Glyph string
}

const defaultGlyph = "🍬"

var categoryGlyphs = map[string]string{
	"chocolate": "🍫",
	"cake":      "🎂",
	"cupcake":   "🧁",
	"candy":     "🍬",
}

func CategoryGlyph(category string) string {
	if g, ok := categoryGlyphs[category]; ok {
		return g
	}
	return defaultGlyph
}

// ContainsGlyph reports whether s holds a pictograph in U+1F300..U+1F9FF.
func ContainsGlyph(s string) bool {
	return strings.ContainsFunc(s, func(r rune) bool {
		return r >= 0x1F300 && r <= 0x1F9FF
	})
}

// ResolveImage applies the glyph fallback to a stored image reference.
func ResolveImage(ref, category string) ImageView {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return ImageView{Glyph: CategoryGlyph(category)}
	case ContainsGlyph(ref):
		return ImageView{Glyph: ref}
	default:
		return ImageView{URL: ref}
	}
}
