package paymentprovider_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/studysnap-backend/internal/paymentprovider"
)

func TestVerifySignature(t *testing.T) {
	secret := "whsec_test"
	body := []byte(`{"id":"evt_1","type":"customer.subscription.updated"}`)
	signature := paymentprovider.SignBody(secret, body)

	cases := []struct {
		name      string
		secret    string
		body      []byte
		signature string
		want      bool
	}{
		{"valid", secret, body, signature, true},
		{"empty body", secret, []byte{}, paymentprovider.SignBody(secret, []byte{}), true},
		{"wrong secret", "whsec_other", body, signature, false},
		{"tampered body", secret, []byte(`{"id":"evt_2"}`), signature, false},
		{"empty signature", secret, body, "", false},
		{"not base64", secret, body, "%%%", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, paymentprovider.VerifySignature(tc.secret, tc.body, tc.signature))
		})
	}
}
