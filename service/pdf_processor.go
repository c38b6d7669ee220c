package service

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Aashish23092/invoice-extractor/dto"
)

// minPageChars is the least amount of visible text a page one must carry
// before it is treated as a text PDF rather than a scan.
const minPageChars = 10

var pdfMagic = []byte("%PDF")

type PDFProcessor interface {
	Load(source string, pdfData []byte, password string) (*dto.Document, error)
	ExtractImages(pdfData []byte, password string) ([]image.Image, error)
}

type pdfProcessor struct{}

func NewPDFProcessor() PDFProcessor {
	return &pdfProcessor{}
}

// Load reads the text of every page. Words on a row are joined with a space
// when the horizontal gap between them is wider than a fifth of the font size.
func (p *pdfProcessor) Load(source string, pdfData []byte, password string) (*dto.Document, error) {
	if len(pdfData) == 0 {
		return nil, eris.Wrapf(dto.ErrDocumentUnavailable, "file is empty: %s", source)
	}
	if !bytes.HasPrefix(bytes.TrimLeft(pdfData, "\x00\t\r\n "), pdfMagic) {
		return nil, eris.Wrapf(dto.ErrDocumentUnavailable, "not a PDF file: %s", source)
	}

	if password != "" {
		decrypted, err := decrypt(pdfData, password)
		if err != nil {
			return nil, eris.Wrapf(dto.ErrDocumentUnavailable, "failed to decrypt %s: %v", source, err)
		}
		pdfData = decrypted
	}

	r, err := pdf.NewReader(bytes.NewReader(pdfData), int64(len(pdfData)))
	if err != nil {
		return nil, eris.Wrapf(dto.ErrDocumentUnavailable, "failed to open PDF %s: %v", source, err)
	}

	totalPage := r.NumPage()
	if totalPage == 0 {
		return nil, eris.Wrapf(dto.ErrDocumentUnavailable, "PDF has no pages: %s", source)
	}
	if totalPage > 1 {
		zap.L().Warn("multi-page PDF, only the page 1 table is authoritative",
			zap.String("source", source),
			zap.Int("pages", totalPage),
		)
	}

	doc := &dto.Document{Source: source, Pages: make([]string, 0, totalPage)}
	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			doc.Pages = append(doc.Pages, "")
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			zap.L().Warn("failed to read page text", zap.String("source", source), zap.Int("page", pageIndex), zap.Error(err))
			doc.Pages = append(doc.Pages, "")
			continue
		}
		doc.Pages = append(doc.Pages, rowsToText(rows))
	}

	if visibleChars(doc.FirstPage()) < minPageChars {
		return nil, eris.Wrapf(dto.ErrUnsupportedDocument,
			"no extractable text on page 1 of %s; scanned or image-only PDFs are not supported", source)
	}

	zap.L().Info("loaded PDF", zap.String("source", source), zap.Int("pages", totalPage))
	return doc, nil
}

func rowsToText(rows pdf.Rows) string {
	var b strings.Builder
	for _, row := range rows {
		var prev *pdf.Text
		for i := range row.Content {
			word := &row.Content[i]
			if prev != nil && word.X > prev.X+prev.W+0.2*word.FontSize && !strings.HasPrefix(word.S, " ") {
				b.WriteByte(' ')
			}
			b.WriteString(word.S)
			prev = word
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func visibleChars(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

func decrypt(pdfData []byte, password string) ([]byte, error) {
	conf := model.NewDefaultConfiguration()
	conf.UserPW = password
	conf.OwnerPW = password

	var out bytes.Buffer
	if err := api.Decrypt(bytes.NewReader(pdfData), &out, conf); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// ExtractImages pulls embedded raster images out of every page. Images that
// fail to decode are skipped.
func (p *pdfProcessor) ExtractImages(pdfData []byte, password string) ([]image.Image, error) {
	tempDir, err := os.MkdirTemp("", "invoice_images")
	if err != nil {
		return nil, eris.Wrap(err, "failed to create temp dir")
	}
	defer os.RemoveAll(tempDir)

	tempFile, err := os.CreateTemp("", "invoice-*.pdf")
	if err != nil {
		return nil, eris.Wrap(err, "failed to create temp file")
	}
	defer os.Remove(tempFile.Name())

	if _, err := tempFile.Write(pdfData); err != nil {
		tempFile.Close()
		return nil, eris.Wrap(err, "failed to write pdf data")
	}
	tempFile.Close()

	conf := model.NewDefaultConfiguration()
	if password != "" {
		conf.UserPW = password
	}

	if err := api.ExtractImagesFile(tempFile.Name(), tempDir, nil, conf); err != nil {
		return nil, eris.Wrap(err, "failed to extract images")
	}

	files, err := os.ReadDir(tempDir)
	if err != nil {
		return nil, eris.Wrap(err, "failed to read temp dir")
	}

	var images []image.Image
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		imgFile, err := os.Open(filepath.Join(tempDir, file.Name()))
		if err != nil {
			continue
		}
		img, _, err := image.Decode(imgFile)
		imgFile.Close()
		if err != nil {
			zap.L().Debug("skipping undecodable image", zap.String("file", file.Name()), zap.Error(err))
			continue
		}
		images = append(images, img)
	}

	return images, nil
}
