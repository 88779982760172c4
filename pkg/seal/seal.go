// Package seal encrypts relay payloads with AES-256-CBC and authenticates them with
// HMAC-SHA256 over data and iv, so a relay only ever sees ciphertext.
package seal

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"moff.io/walletauth/pkg/errors"
)

const KeySize = 32

var ErrBadMAC = errors.New("payload hmac mismatch")

// Payload is the hex encoded envelope carried in place of a plaintext payload.
type Payload struct {
	Data string `json:"data"`
	HMAC string `json:"hmac"`
	IV   string `json:"iv"`
}

func Aes256Encrypt(content, encryptionKey, iv []byte) ([]byte, error) {
	bPlaintext := pkcs7Padding(content, aes.BlockSize)
	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return nil, errors.Wrap(err, "create new cipher block")
	}
	ciphertext := make([]byte, len(bPlaintext))
	mode := cipher.NewCBCEncrypter(block, iv)
	mode.CryptBlocks(ciphertext, bPlaintext)
	return ciphertext, nil
}

func Aes256Decrypt(cipherText, encryptionKey, iv []byte) ([]byte, error) {
	if len(cipherText) == 0 || len(cipherText)%aes.BlockSize != 0 {
		return nil, errors.New("ciphertext is not a multiple of the block size")
	}
	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return nil, errors.Wrap(err, "create new cipher block")
	}
	plain := make([]byte, len(cipherText))
	mode := cipher.NewCBCDecrypter(block, iv)
	mode.CryptBlocks(plain, cipherText)
	return pkcs7Unpadding(plain)
}

func pkcs7Padding(cipherText []byte, blockSize int) []byte {
	padding := blockSize - len(cipherText)%blockSize
	padText := bytes.Repeat([]byte{byte(padding)}, padding)
	return append(cipherText, padText...)
}

func pkcs7Unpadding(plain []byte) ([]byte, error) {
	n := int(plain[len(plain)-1])
	if n == 0 || n > aes.BlockSize || n > len(plain) {
		return nil, errors.New("invalid padding")
	}
	return plain[:len(plain)-n], nil
}

func GenerateRandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func HmacSha256(data, secret []byte) []byte {
	h := hmac.New(sha256.New, secret)
	h.Write(data)
	return h.Sum(nil)
}

// NewKey returns a random 256 bit key.
func NewKey() ([]byte, error) {
	return GenerateRandomBytes(KeySize)
}

// ParseKey decodes a hex key, with or without 0x prefix.
func ParseKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "decode key")
	}
	if len(key) != KeySize {
		return nil, errors.Errorf("key must be %d bytes, got %d", KeySize, len(key))
	}
	return key, nil
}

func Seal(key, plaintext []byte) (*Payload, error) {
	iv, err := GenerateRandomBytes(aes.BlockSize)
	if err != nil {
		return nil, errors.Wrap(err, "generate iv")
	}
	data, err := Aes256Encrypt(plaintext, key, iv)
	if err != nil {
		return nil, err
	}
	return &Payload{
		Data: hex.EncodeToString(data),
		HMAC: hex.EncodeToString(HmacSha256(append(append([]byte{}, data...), iv...), key)),
		IV:   hex.EncodeToString(iv),
	}, nil
}

func Open(key []byte, p *Payload) ([]byte, error) {
	data, err := hex.DecodeString(p.Data)
	if err != nil {
		return nil, errors.Wrap(err, "decode data")
	}
	iv, err := hex.DecodeString(p.IV)
	if err != nil || len(iv) != aes.BlockSize {
		return nil, errors.New("invalid iv")
	}
	mac, err := hex.DecodeString(p.HMAC)
	if err != nil {
		return nil, errors.Wrap(err, "decode hmac")
	}
	if !hmac.Equal(mac, HmacSha256(append(append([]byte{}, data...), iv...), key)) {
		return nil, ErrBadMAC
	}
	return Aes256Decrypt(data, key, iv)
}
