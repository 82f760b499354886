package utils

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
)

// GravatarURL builds the default avatar for users whose provider sends no
// picture claim. The mystery-man fallback keeps the UI from rendering a
// broken image for addresses without a gravatar.
func GravatarURL(email string) string {
	sum := md5.Sum([]byte(NormalizeEmail(email)))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%s?d=mm", hex.EncodeToString(sum[:]))
}
