package auth

import (
	"crypto/rand"
	"math/big"
)

const OTPLength = 6

var ten = big.NewInt(10)

// OTPGenerator produces numeric one-time codes.
type OTPGenerator struct{}

// Generate returns OTPLength digits, each drawn uniformly.
func (OTPGenerator) Generate() (string, error) {
	code := make([]byte, OTPLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		code[i] = byte('0' + n.Int64())
	}
	return string(code), nil
}
