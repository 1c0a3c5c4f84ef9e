package payment

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var details = BankDetails{
	BankName: "Meezan Bank", AccountNumber: "0101234567", AccountHolder: "Premium Store", Currency: "PKR",
}

func TestTransferPayload(t *testing.T) {
	got := details.TransferPayload("ORD-20250410-ABCDEF12", decimal.NewFromInt(3000))
	assert.Equal(t,
		"BANK:Meezan Bank;ACCT:0101234567;NAME:Premium Store;AMT:3000.00;CUR:PKR;REF:ORD-20250410-ABCDEF12",
		got)
}

func TestQRCode_IsPNG(t *testing.T) {
	data, err := details.QRCode("ORD-20250410-ABCDEF12", decimal.NewFromInt(3000))
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, qrSize, img.Bounds().Dx())
}
