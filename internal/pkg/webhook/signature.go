package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignatureHeader is the header Meta-compatible senders use for the payload HMAC
const SignatureHeader = "X-Hub-Signature-256"

// VerifySignature checks an "sha256=<hex>" HMAC of the raw body against the app secret
func VerifySignature(payload []byte, signatureHeader, appSecret string) bool {
	sig := strings.TrimSpace(signatureHeader)
	secret := strings.TrimSpace(appSecret)
	if sig == "" || secret == "" {
		return false
	}

	sig = strings.TrimPrefix(strings.ToLower(sig), "sha256=")
	decodedSig, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), decodedSig)
}
