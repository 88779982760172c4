package common

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

//NewCutUUIDString returns uuid string that cut `-`.
func NewCutUUIDString() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

//SHA256HexString returns the hex string that encoded from SHA256 hash of source text.
func SHA256HexString(buf []byte) string {
	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:])
}

func MustGetJSONString(m interface{}) string {
	if m == nil {
		return "{}"
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(data)
}
