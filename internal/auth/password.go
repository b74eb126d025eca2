package auth

import "golang.org/x/crypto/bcrypt"

// hashCost matches the bcrypt work factor used for both account passwords
// and room passwords.
const hashCost = 10

// HashPassword повертає bcrypt-дайджест пароля.
func HashPassword(plain string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plain), hashCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// CheckPassword reports whether plain matches the stored digest.
func CheckPassword(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}
