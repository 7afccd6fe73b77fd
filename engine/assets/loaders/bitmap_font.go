package loaders

import (
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/fzipp/bmfont"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// BitmapFontLoader imports AngelCode .fnt fonts with a single page into
// *metadata.FontData, atlas included.
type BitmapFontLoader struct{}

func (fl *BitmapFontLoader) Load(path string, params interface{}) (*Resource, error) {
	data, err := fl.importFNTFile(path)
	if err != nil {
		return nil, err
	}
	return &Resource{
		Name:     data.Face,
		FullPath: path,
		Type:     ResourceTypeFont,
		DataSize: uint64(len(data.Atlas)),
		Data:     data,
	}, nil
}

func (fl *BitmapFontLoader) importFNTFile(fntFileName string) (*metadata.FontData, error) {
	font, err := bmfont.Load(fntFileName)
	if err != nil {
		return nil, errors.Wrapf(err, "loading bitmap font %s", fntFileName)
	}
	desc := font.Descriptor
	if len(desc.Pages) != 1 {
		return nil, errors.Newf("bitmap font %s has %d pages, only single-page fonts are supported", fntFileName, len(desc.Pages))
	}

	out := &metadata.FontData{
		Face:       desc.Info.Face,
		Size:       uint32(desc.Info.Size),
		LineHeight: int32(desc.Common.LineHeight),
		Baseline:   int32(desc.Common.Base),
		AtlasSizeX: int32(desc.Common.ScaleW),
		AtlasSizeY: int32(desc.Common.ScaleH),
		Glyphs:     make(map[rune]metadata.FontGlyph, len(desc.Chars)),
		Kernings:   make(map[metadata.KerningPair]int16, len(desc.Kerning)),
	}

	var pageFile string
	for _, p := range desc.Pages {
		pageFile = p.File
	}
	page, err := DecodeImageFile(filepath.Join(filepath.Dir(fntFileName), pageFile))
	if err != nil {
		return nil, errors.Wrap(err, "font page")
	}
	atlas := toImageData(page, false)
	if int32(atlas.Width) != out.AtlasSizeX || int32(atlas.Height) != out.AtlasSizeY {
		return nil, errors.Newf("font page is %dx%d, descriptor says %dx%d", atlas.Width, atlas.Height, out.AtlasSizeX, out.AtlasSizeY)
	}
	out.Atlas = atlas.Pixels

	for _, g := range desc.Chars {
		out.Glyphs[rune(g.ID)] = metadata.FontGlyph{
			Codepoint: rune(g.ID),
			X:         uint16(g.X),
			Y:         uint16(g.Y),
			Width:     uint16(g.Width),
			Height:    uint16(g.Height),
			XOffset:   int16(g.XOffset),
			YOffset:   int16(g.YOffset),
			XAdvance:  int16(g.XAdvance),
			PageID:    uint8(g.Page),
		}
	}
	for p, k := range desc.Kerning {
		out.Kernings[metadata.KerningPair{First: rune(p.First), Second: rune(p.Second)}] = int16(k.Amount)
	}
	if space, ok := out.Glyphs[' ']; ok {
		out.TabXAdvance = float32(space.XAdvance) * 4
	}
	return out, nil
}
