package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateWidgetToken returns a new public widget token using a stable
// wgt_ prefix followed by the UUID without dashes. Tokens embedded in
// customer pages keep the same format across rotations.
func GenerateWidgetToken() string {
	return "wgt_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
