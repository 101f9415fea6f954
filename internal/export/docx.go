package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"zujuan/internal/model"
)

// BuildDOCX renders a paper as a minimal OOXML word processing document:
// title heading, description, then each question in paper order with its
// options, answer and explanation.
func BuildDOCX(paper *model.Paper, questions map[string]model.Question, opts Options) ([]byte, error) {
	var doc docxBuilder
	doc.heading(paper.Title)
	if paper.Description != "" {
		doc.paragraph(paper.Description)
	}

	for _, pq := range sortedByOrder(paper.Questions) {
		q, ok := questions[pq.QuestionID]
		if !ok {
			continue
		}
		doc.numbered(fmt.Sprintf("%d. (%d分) ", pq.Order, pq.Score), q.QuestionText)
		for _, opt := range q.Options {
			doc.paragraph("    " + opt)
		}
		if opts.IncludeAnswer && q.Answer != "" {
			doc.paragraph("【答案】" + q.Answer)
		}
		if opts.IncludeExplanation && q.Explanation != "" {
			doc.paragraph("【解析】" + q.Explanation)
		}
	}

	return doc.bytes()
}

// docxBuilder accumulates document body paragraphs and zips them together
// with the fixed OOXML boilerplate parts.
type docxBuilder struct {
	body strings.Builder
}

func (d *docxBuilder) heading(text string) {
	d.body.WriteString(`<w:p><w:pPr><w:jc w:val="center"/></w:pPr><w:r><w:rPr><w:b/><w:sz w:val="36"/></w:rPr><w:t xml:space="preserve">`)
	d.body.WriteString(escapeXML(text))
	d.body.WriteString(`</w:t></w:r></w:p>`)
}

func (d *docxBuilder) paragraph(text string) {
	d.body.WriteString(`<w:p><w:r><w:t xml:space="preserve">`)
	d.body.WriteString(escapeXML(text))
	d.body.WriteString(`</w:t></w:r></w:p>`)
}

// numbered writes a paragraph with a bold prefix run followed by a plain
// text run.
func (d *docxBuilder) numbered(prefix, text string) {
	d.body.WriteString(`<w:p><w:r><w:rPr><w:b/></w:rPr><w:t xml:space="preserve">`)
	d.body.WriteString(escapeXML(prefix))
	d.body.WriteString(`</w:t></w:r><w:r><w:t xml:space="preserve">`)
	d.body.WriteString(escapeXML(text))
	d.body.WriteString(`</w:t></w:r></w:p>`)
}

const docxContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const docxRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

const docxDocumentHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`

const docxDocumentFooter = `<w:sectPr><w:pgSz w:w="11906" w:h="16838"/></w:sectPr></w:body></w:document>`

func (d *docxBuilder) bytes() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	parts := []struct {
		name    string
		content string
	}{
		{"[Content_Types].xml", docxContentTypes},
		{"_rels/.rels", docxRels},
		{"word/document.xml", docxDocumentHeader + d.body.String() + docxDocumentFooter},
	}
	for _, part := range parts {
		w, err := zw.Create(part.name)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(part.content)); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
