package credentials

import (
	"crypto/rand"
	"math/big"
	"strconv"
)

const familyCodeChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// FamilyCodeLength is the length of a family join code
const FamilyCodeLength = 6

// GenerateFamilyCode generates a random join code of upper case letters and digits
func GenerateFamilyCode() (string, error) {
	code := make([]byte, FamilyCodeLength)
	for i := range code {
		n, err := randomInt(int64(len(familyCodeChars)))
		if err != nil {
			return "", err
		}
		code[i] = familyCodeChars[n]
	}
	return string(code), nil
}

// GenerateOTP generates a 7-digit one-time password
func GenerateOTP() (string, error) {
	n, err := randomInt(9000000)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(1000000+n, 10), nil
}

// randomInt returns a uniform random number in [0, max)
func randomInt(max int64) (int64, error) {
	num, err := rand.Int(rand.Reader, big.NewInt(max))
	if err != nil {
		return 0, err
	}
	return num.Int64(), nil
}
