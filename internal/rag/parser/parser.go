package parser

import (
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/akolanti/ragstream/internal/domain/commonModels"
	"github.com/akolanti/ragstream/internal/domain/ragErrors"
	"github.com/akolanti/ragstream/pkg/logger_i"
	"github.com/gabriel-vasile/mimetype"
	"github.com/lu4p/cat"
)

var logger = logger_i.NewLogger("Parser")

const (
	MimePDF      = "application/pdf"
	MimeDOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeODT      = "application/vnd.oasis.opendocument.text"
	MimeRTF      = "text/rtf"
	MimeText     = "text/plain"
	MimeMarkdown = "text/markdown"
	MimeXLSX     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var byExtension = map[string]string{
	".pdf":      MimePDF,
	".docx":     MimeDOCX,
	".odt":      MimeODT,
	".rtf":      MimeRTF,
	".txt":      MimeText,
	".text":     MimeText,
	".md":       MimeMarkdown,
	".markdown": MimeMarkdown,
	".xlsx":     MimeXLSX,
}

// DetectMimeType trusts a known file extension first and falls back to sniffing the content.
func DetectMimeType(filename string, raw []byte) string {
	if m, ok := byExtension[strings.ToLower(filepath.Ext(filename))]; ok {
		return m
	}
	return baseType(mimetype.Detect(raw).String())
}

func DocTypeOf(mimeType string) commonModels.DocType {
	switch baseType(mimeType) {
	case MimePDF:
		return commonModels.PDF
	case MimeDOCX:
		return commonModels.DOCX
	case MimeODT, "application/x-vnd.oasis.opendocument.text":
		return commonModels.ODT
	case MimeRTF, "application/rtf":
		return commonModels.RTF
	case MimeText:
		return commonModels.TXT
	case MimeMarkdown, "text/x-markdown":
		return commonModels.MARKDOWN
	case MimeXLSX:
		return commonModels.XLSX
	default:
		return commonModels.ERR
	}
}

// ParseToText extracts plain text from a document. Unknown types fail with UnsupportedType.
func ParseToText(raw []byte, mimeType string) (string, error) {
	docType := DocTypeOf(mimeType)
	logger.Debug("parsing document", "mime", mimeType, "type", docType, "bytes", len(raw))

	switch docType {
	case commonModels.PDF:
		return extractPDF(raw)
	case commonModels.DOCX:
		return extractWithCat(raw, ".docx")
	case commonModels.ODT:
		return extractWithCat(raw, ".odt")
	case commonModels.RTF:
		return extractWithCat(raw, ".rtf")
	case commonModels.TXT:
		return string(raw), nil
	case commonModels.MARKDOWN:
		return markdownToText(raw)
	case commonModels.XLSX:
		return extractSpreadsheet(raw)
	default:
		return "", ragErrors.Newf(ragErrors.UnsupportedType, "unsupported document type %q", mimeType)
	}
}

// extractWithCat spools the bytes to a temp file because cat picks its decoder from the extension.
func extractWithCat(raw []byte, ext string) (string, error) {
	f, err := os.CreateTemp("", "ragstream-*"+ext)
	if err != nil {
		return "", err
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(raw); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	text, err := cat.File(f.Name())
	if err != nil {
		logger.Error("Error extracting content from doc", "ext", ext, "error", err)
		return "", ragErrors.New(ragErrors.InvalidInput, "extract "+ext, err)
	}
	return text, nil
}

func baseType(mimeType string) string {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(mimeType))
	}
	return mediaType
}
