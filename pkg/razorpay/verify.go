package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifySubscriptionSignature checks that a payment callback genuinely
// originated from the gateway: the signature must be the hex HMAC-SHA256
// of "<paymentID>|<subscriptionID>" under the API key secret. The
// comparison is constant-time.
func VerifySubscriptionSignature(paymentID, subscriptionID, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(paymentID + "|" + subscriptionID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
