package upload

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// MaxReceiptBytes caps the decoded receipt image.
const MaxReceiptBytes = 5 << 20

var (
	ErrReceiptMissing  = errors.New("payment receipt is required")
	ErrReceiptTooLarge = errors.New("payment receipt exceeds 5MB")
	ErrReceiptNotImage = errors.New("payment receipt must be an image")
	ErrReceiptEncoding = errors.New("payment receipt is not valid base64 data")
	ErrReceiptHost     = errors.New("payment receipt URL is not on an accepted image host")
)

// Receipt is either an already hosted URL or raw image bytes to upload.
type Receipt struct {
	URL         string
	Data        []byte
	ContentType string
}

func (r *Receipt) Hosted() bool { return r.URL != "" }

// ParseReceipt accepts a data:image/...;base64 URL, or an https URL served
// from one of allowedHosts or their subdomains.
func ParseReceipt(raw string, allowedHosts []string) (*Receipt, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrReceiptMissing
	}
	if strings.HasPrefix(raw, "https://") || strings.HasPrefix(raw, "http://") {
		return hostedReceipt(raw, allowedHosts)
	}

	header, payload, ok := strings.Cut(raw, ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return nil, ErrReceiptEncoding
	}
	declared := strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
	if !strings.HasPrefix(declared, "image/") {
		return nil, ErrReceiptNotImage
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxReceiptBytes+3 {
		return nil, ErrReceiptTooLarge
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReceiptEncoding, err)
	}
	if len(data) > MaxReceiptBytes {
		return nil, ErrReceiptTooLarge
	}
	sniffed := http.DetectContentType(data)
	if !strings.HasPrefix(sniffed, "image/") {
		return nil, ErrReceiptNotImage
	}
	return &Receipt{Data: data, ContentType: sniffed}, nil
}

func hostedReceipt(raw string, allowedHosts []string) (*Receipt, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "https" || u.User != nil || u.Hostname() == "" {
		return nil, ErrReceiptHost
	}
	host := strings.ToLower(u.Hostname())
	for _, allowed := range allowedHosts {
		allowed = strings.ToLower(strings.TrimSpace(allowed))
		if allowed == "" {
			continue
		}
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return &Receipt{URL: u.String()}, nil
		}
	}
	return nil, ErrReceiptHost
}
