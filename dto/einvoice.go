package dto

// EInvoiceQR is the payload of the signed QR code printed on GST e-invoices.
type EInvoiceQR struct {
	SellerGstin string  `json:"SellerGstin"`
	BuyerGstin  string  `json:"BuyerGstin"`
	DocNo       string  `json:"DocNo"`
	DocTyp      string  `json:"DocTyp"`
	DocDt       string  `json:"DocDt"`
	TotInvVal   float64 `json:"TotInvVal"`
	ItemCnt     int     `json:"ItemCnt"`
	MainHsnCode string  `json:"MainHsnCode"`
	Irn         string  `json:"Irn"`
	IrnDt       string  `json:"IrnDt"`
}
