// Package payment describes how customers pay: a manual bank transfer
// referencing the order number, optionally scanned from a QR code.
package payment

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
)

const qrSize = 256

type BankDetails struct {
	BankName      string
	AccountNumber string
	AccountHolder string
	Currency      string
}

// TransferPayload is the text encoded in the payment QR. Banking apps that
// do not parse it still show it verbatim to the payer.
func (b BankDetails) TransferPayload(orderNumber string, amount decimal.Decimal) string {
	fields := []string{
		"BANK:" + b.BankName,
		"ACCT:" + b.AccountNumber,
		"NAME:" + b.AccountHolder,
		fmt.Sprintf("AMT:%s", amount.StringFixed(2)),
		"CUR:" + b.Currency,
		"REF:" + orderNumber,
	}
	return strings.Join(fields, ";")
}

// QRCode renders the transfer payload as a PNG.
func (b BankDetails) QRCode(orderNumber string, amount decimal.Decimal) ([]byte, error) {
	png, err := qrcode.Encode(b.TransferPayload(orderNumber, amount), qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("encode payment qr: %w", err)
	}
	return png, nil
}
