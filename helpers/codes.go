package helpers

import (
	"crypto/rand"
	"math/big"
)

const (
	AgentCodePrefix    = "AG-"
	ReferralCodePrefix = "REF-"
)

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func randomCode(n int) string {
	b := make([]byte, n)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err)
		}
		b[i] = codeAlphabet[idx.Int64()]
	}
	return string(b)
}

// GeneratePartnerCode returns prefix followed by six unambiguous characters.
func GeneratePartnerCode(prefix string) string {
	return prefix + randomCode(6)
}
