package pkg

import "golang.org/x/crypto/bcrypt"

// bcryptCost trades hashing speed for brute-force resistance; 14 keeps a
// single hash in the hundreds of milliseconds on current hardware.
const bcryptCost = 14

func HashPassword(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return BytesToString(digest), nil
}

func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
