package render

import "resume-builder/resume/model"

// RunStyle captures inline formatting for a block kind.
type RunStyle struct {
	Bold   bool
	Italic bool
	Size   int
	Color  string
}

const (
	BodyColor   = "000000"
	MutedColor  = "666666"
	NameSize    = 24
	HeadingSize = 14
	TitleSize   = 11
	BodySize    = 10
	MetaSize    = 9
)

// StyleMap is the base formatting per block kind. Sizes are in points.
var StyleMap = map[BlockKind]RunStyle{
	BlockName:     {Bold: true, Size: NameSize, Color: BodyColor},
	BlockContact:  {Size: BodySize, Color: MutedColor},
	BlockLinks:    {Size: MetaSize},
	BlockHeading:  {Bold: true, Size: HeadingSize},
	BlockTitle:    {Size: TitleSize, Color: BodyColor},
	BlockSubtitle: {Italic: true, Size: MetaSize, Color: MutedColor},
	BlockText:     {Size: BodySize, Color: BodyColor},
	BlockBullet:   {Size: BodySize, Color: BodyColor},
	BlockInline:   {Size: BodySize, Color: BodyColor},
}

// Palette is the per-template accent used for headings and links.
type Palette struct {
	Accent string
	Link   string
}

var palettes = map[model.Template]Palette{
	model.TemplateModern:       {Accent: "2563EB", Link: "0066CC"},
	model.TemplateClassic:      {Accent: "111111", Link: "0066CC"},
	model.TemplateMinimal:      {Accent: "374151", Link: "374151"},
	model.TemplateProfessional: {Accent: "1F2937", Link: "0066CC"},
	model.TemplateCreative:     {Accent: "7C3AED", Link: "DB2777"},
}

// PaletteFor falls back to the modern palette for unknown templates.
func PaletteFor(t model.Template) Palette {
	if p, ok := palettes[t]; ok {
		return p
	}
	return palettes[model.TemplateModern]
}

// StyleFor resolves the effective style of a block under a palette.
func StyleFor(kind BlockKind, p Palette) RunStyle {
	style := StyleMap[kind]
	switch kind {
	case BlockHeading:
		style.Color = p.Accent
	case BlockLinks:
		style.Color = p.Link
	}
	return style
}

func hexRGB(hex string) (int, int, int) {
	if len(hex) != 6 {
		return 0, 0, 0
	}
	var rgb [3]int
	for i := 0; i < 3; i++ {
		rgb[i] = hexNibble(hex[i*2])<<4 | hexNibble(hex[i*2+1])
	}
	return rgb[0], rgb[1], rgb[2]
}

func hexNibble(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return 0
}
