package service

import (
	"fmt"
	"image"
	"strings"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Aashish23092/invoice-extractor/dto"
	"github.com/Aashish23092/invoice-extractor/utils"
)

// QRDecoder reads the text of a QR code in an image.
type QRDecoder interface {
	Decode(img image.Image) (string, error)
}

type zxingDecoder struct {
	reader gozxing.Reader
}

func NewQRDecoder() QRDecoder {
	return &zxingDecoder{reader: qrcode.NewQRCodeReader()}
}

func (d *zxingDecoder) Decode(img image.Image) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", eris.Wrap(err, "failed to create binary bitmap")
	}
	hints := map[gozxing.DecodeHintType]interface{}{gozxing.DecodeHintType_TRY_HARDER: true}
	result, err := d.reader.Decode(bmp, hints)
	if err != nil {
		return "", eris.Wrap(err, "failed to decode QR code")
	}
	return result.GetText(), nil
}

// findEInvoiceQR returns the first image whose QR code carries a signed
// e-invoice payload.
func findEInvoiceQR(decoder QRDecoder, images []image.Image) (*dto.EInvoiceQR, bool) {
	for i, img := range images {
		text, err := decoder.Decode(img)
		if err != nil {
			continue
		}
		qr, err := utils.ParseEInvoiceQR(text)
		if err != nil {
			zap.L().Debug("QR code is not an e-invoice", zap.Int("image", i), zap.Error(err))
			continue
		}
		return qr, true
	}
	return nil, false
}

// applyQRHSN fills a missing HSN code header from the QR's main HSN code.
func applyQRHSN(headers dto.ExtractedHeaders, qr *dto.EInvoiceQR) {
	if qr == nil || qr.MainHsnCode == "" || headers.Text(dto.FieldHSNCode) != "" {
		return
	}
	headers.SetText(dto.FieldHSNCode, qr.MainHsnCode)
}

// crossCheckQR compares the e-invoice QR claims with the extracted record.
// Differences become notes; the record is not modified.
func crossCheckQR(record *dto.InvoiceRecord, qr *dto.EInvoiceQR, tolerance decimal.Decimal) []string {
	var notes []string

	if qr.SellerGstin != "" && record.VendorGSTIN != dto.UnregisteredGSTIN &&
		!strings.EqualFold(qr.SellerGstin, record.VendorGSTIN) {
		notes = append(notes, fmt.Sprintf("e-invoice QR seller GSTIN %s differs from extracted %s", qr.SellerGstin, record.VendorGSTIN))
	}
	if qr.DocNo != "" && !strings.EqualFold(strings.TrimSpace(qr.DocNo), record.InvoiceNumber) {
		notes = append(notes, fmt.Sprintf("e-invoice QR document number %s differs from extracted %s", qr.DocNo, record.InvoiceNumber))
	}
	if qr.TotInvVal > 0 {
		qrTotal := decimal.NewFromFloat(qr.TotInvVal).Round(2)
		if diff := qrTotal.Sub(record.GrandTotalRounded).Abs(); diff.GreaterThan(tolerance) {
			notes = append(notes, fmt.Sprintf("e-invoice QR total %s differs from extracted %s",
				qrTotal.StringFixed(2), record.GrandTotalRounded.StringFixed(2)))
		}
	}
	if qr.ItemCnt > 0 && qr.ItemCnt != len(record.LineItems) {
		notes = append(notes, fmt.Sprintf("e-invoice QR lists %d items, extracted %d", qr.ItemCnt, len(record.LineItems)))
	}
	if len(notes) == 0 {
		notes = append(notes, "e-invoice QR matches extracted invoice")
	}
	return notes
}
