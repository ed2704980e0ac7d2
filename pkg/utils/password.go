package utils

import "golang.org/x/crypto/bcrypt"

// Password verification happens in the external identity provider; hashing
// lives here only so seeding and fixtures can produce valid user rows.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
