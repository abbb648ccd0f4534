package paymentprovider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// VerifySignature проверяет подпись webhook-события (заголовок X-Signature):
// HMAC-SHA256 от сырого тела запроса, закодированный в base64.
// Сравнение выполняется за константное время.
func VerifySignature(secret string, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expectedSig := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expectedSig), []byte(signature))
}

// SignBody подписывает тело запроса тем же алгоритмом. Используется
// в тестах и инструментах для формирования валидных событий.
func SignBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
