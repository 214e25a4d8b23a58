package render

import (
	"archive/zip"
	"bytes"
	"sync"
)

const (
	wmlNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	relNamespace = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

	// bodyMarker is the placeholder paragraph replaced by the generated body.
	bodyMarker = `<w:p><w:r><w:t>{{BODY}}</w:t></w:r></w:p>`
)

type packagePart struct {
	name    string
	content string
}

var skeletonParts = []packagePart{
	{
		name: "[Content_Types].xml",
		content: `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
			`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
			`<Default Extension="xml" ContentType="application/xml"/>` +
			`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
			`<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>` +
			`</Types>`,
	},
	{
		name: "_rels/.rels",
		content: `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
			`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
			`</Relationships>`,
	},
	{
		name: "word/document.xml",
		content: `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="` + wmlNamespace + `" xmlns:r="` + relNamespace + `"><w:body>` +
			bodyMarker +
			`<w:sectPr><w:pgSz w:w="11906" w:h="16838"/>` +
			`<w:pgMar w:top="1000" w:right="1000" w:bottom="1000" w:left="1000" w:header="708" w:footer="708" w:gutter="0"/>` +
			`</w:sectPr></w:body></w:document>`,
	},
	{
		name: "word/_rels/document.xml.rels",
		content: `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
			`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>` +
			`</Relationships>`,
	},
	{
		name: "word/styles.xml",
		content: `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="` + wmlNamespace + `"><w:docDefaults><w:rPrDefault><w:rPr>` +
			`<w:rFonts w:ascii="Calibri" w:hAnsi="Calibri" w:cs="Calibri"/><w:sz w:val="22"/><w:szCs w:val="22"/>` +
			`</w:rPr></w:rPrDefault><w:pPrDefault><w:pPr><w:spacing w:after="60"/></w:pPr></w:pPrDefault></w:docDefaults>` +
			`<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/></w:style>` +
			`</w:styles>`,
	},
}

var (
	skeletonOnce  sync.Once
	skeletonBytes []byte
	skeletonErr   error
)

// skeleton returns the zipped empty package. It is built once per process.
func skeleton() ([]byte, error) {
	skeletonOnce.Do(func() {
		var buf bytes.Buffer
		zw := zip.NewWriter(&buf)
		for _, part := range skeletonParts {
			w, err := zw.Create(part.name)
			if err != nil {
				skeletonErr = err
				return
			}
			if _, err := w.Write([]byte(part.content)); err != nil {
				skeletonErr = err
				return
			}
		}
		if err := zw.Close(); err != nil {
			skeletonErr = err
			return
		}
		skeletonBytes = buf.Bytes()
	})
	return skeletonBytes, skeletonErr
}
