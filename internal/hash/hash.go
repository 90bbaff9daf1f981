// Package hash — подпись данных алгоритмом HMAC-SHA256.
package hash

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sum возвращает HMAC-SHA256 подпись src ключом key в
// шестнадцатеричном виде.
func Sum(key, src []byte) (string, error) {
	h := hmac.New(sha256.New, key)
	if _, err := h.Write(src); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Equal сравнивает две подписи за постоянное время.
func Equal(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}
