package table

import (
	"golang.org/x/crypto/bcrypt"

	"hometable/holdem"
)

func hashPassword(password string) (string, error) {
	if len(password) > 72 {
		return "", holdem.Validation("table password longer than 72 bytes")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// checkPassword passes when the table has no password or password matches.
func checkPassword(hash, password string) error {
	if hash == "" {
		return nil
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return holdem.Unauthorized("wrong table password")
	}
	return nil
}
