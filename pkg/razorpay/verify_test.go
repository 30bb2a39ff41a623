package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sign(payload, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySubscriptionSignature(t *testing.T) {
	secret := "key_secret"
	good := sign("pay_1|sub_1", secret)

	tests := []struct {
		name           string
		paymentID      string
		subscriptionID string
		signature      string
		want           bool
	}{
		{"valid", "pay_1", "sub_1", good, true},
		{"tampered signature", "pay_1", "sub_1", sign("pay_1|sub_1", "wrong_secret"), false},
		{"swapped ids", "sub_1", "pay_1", good, false},
		{"different payment", "pay_2", "sub_1", good, false},
		{"empty signature", "pay_1", "sub_1", "", false},
		{"not hex", "pay_1", "sub_1", "zzzz", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VerifySubscriptionSignature(tt.paymentID, tt.subscriptionID, tt.signature, secret)
			assert.Equal(t, tt.want, got)
		})
	}
}
