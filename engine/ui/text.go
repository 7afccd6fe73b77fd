package ui

import (
	"encoding/binary"
	"math"

	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// glyphQuad is one glyph: a rectangle in normalized device coordinates and
// its atlas rectangle in texture coordinates.
type glyphQuad struct {
	X0, Y0, X1, Y1 float32
	U0, V0, U1, V1 float32
}

const glyphQuadSize = 32

// layoutText places text with its top-left corner at (x, y) pixels on a
// width x height target. Unknown runes advance by nothing and draw nothing.
func layoutText(font *metadata.FontData, text string, x, y float32, width, height uint32) []glyphQuad {
	var quads []glyphQuad
	penX, penY := x, y
	var prev rune
	for _, r := range text {
		switch r {
		case '\n':
			penX = x
			penY += float32(font.LineHeight)
			prev = 0
			continue
		case '\t':
			penX += font.TabXAdvance
			prev = 0
			continue
		}
		g, ok := font.Glyphs[r]
		if !ok {
			continue
		}
		if prev != 0 {
			penX += float32(font.Kerning(prev, r))
		}
		if g.Width > 0 && g.Height > 0 {
			left := penX + float32(g.XOffset)
			top := penY + float32(g.YOffset)
			quads = append(quads, glyphQuad{
				X0: toNDC(left, width),
				Y0: toNDC(top, height),
				X1: toNDC(left+float32(g.Width), width),
				Y1: toNDC(top+float32(g.Height), height),
				U0: float32(g.X) / float32(font.AtlasSizeX),
				V0: float32(g.Y) / float32(font.AtlasSizeY),
				U1: float32(g.X+g.Width) / float32(font.AtlasSizeX),
				V1: float32(g.Y+g.Height) / float32(font.AtlasSizeY),
			})
		}
		penX += float32(g.XAdvance)
		prev = r
	}
	return quads
}

// Vulkan clip space has y pointing down, so pixel rows map directly.
func toNDC(v float32, size uint32) float32 {
	return v/float32(size)*2 - 1
}

func encodeQuads(quads []glyphQuad) []byte {
	out := make([]byte, len(quads)*glyphQuadSize)
	for i, q := range quads {
		values := [8]float32{q.X0, q.Y0, q.X1, q.Y1, q.U0, q.V0, q.U1, q.V1}
		for k, v := range values {
			binary.LittleEndian.PutUint32(out[i*glyphQuadSize+k*4:], math.Float32bits(v))
		}
	}
	return out
}
