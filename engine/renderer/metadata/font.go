package metadata

type FontGlyph struct {
	Codepoint rune
	X         uint16
	Y         uint16
	Width     uint16
	Height    uint16
	XOffset   int16
	YOffset   int16
	XAdvance  int16
	PageID    uint8
}

type KerningPair struct {
	First  rune
	Second rune
}

/**
 * @brief A bitmap font with a single RGBA8 atlas page.
 */
type FontData struct {
	Face       string
	Size       uint32
	LineHeight int32
	Baseline   int32
	AtlasSizeX int32
	AtlasSizeY int32
	// Atlas holds AtlasSizeX*AtlasSizeY RGBA8 texels.
	Atlas    []byte
	Glyphs   map[rune]FontGlyph
	Kernings map[KerningPair]int16
	// TabXAdvance is the advance of '\t', four spaces when the font has a space glyph.
	TabXAdvance float32
}

// Kerning returns the extra advance between a and b.
func (f *FontData) Kerning(a, b rune) int16 {
	return f.Kernings[KerningPair{First: a, Second: b}]
}
