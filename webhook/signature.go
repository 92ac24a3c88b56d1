// Copyright (c) 2025 BVK Chaitanya

package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// parseSignatureHeader splits Mercado Pago's x-signature header, a comma
// separated list of k=v pairs, into its ts and v1 parts.
func parseSignatureHeader(header string) (ts, v1 string) {
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(k) {
		case "ts":
			ts = strings.TrimSpace(v)
		case "v1":
			v1 = strings.TrimSpace(v)
		}
	}
	return ts, v1
}

// VerifySignature checks the HMAC-SHA256 signature of a webhook delivery
// against the shared secret using the documented manifest format.
func VerifySignature(secret, dataID, requestID, signatureHeader string) bool {
	if len(secret) == 0 || len(signatureHeader) == 0 {
		return false
	}
	ts, v1 := parseSignatureHeader(signatureHeader)
	if len(ts) == 0 || len(v1) == 0 {
		return false
	}

	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", dataID, requestID, ts)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	want := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(want), []byte(strings.ToLower(v1)))
}
