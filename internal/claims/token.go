package claims

import (
	"encoding/json"

	"github.com/golang-jwt/jwt/v5"
	"moff.io/walletauth/pkg/errors"
)

// DecodeToken decodes the custom claims of an access token without verifying its signature,
// for tokens already verified by the identity service.
func DecodeToken(token string) (Result, error) {
	var mc jwt.MapClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &mc); err != nil {
		return Absent(), errors.Wrap(err, "parse access token")
	}
	return decodeMapClaims(mc)
}

// DecodeVerifiedToken verifies an HS256 access token with secret before decoding it.
func DecodeVerifiedToken(token string, secret []byte) (Result, error) {
	var mc jwt.MapClaims
	_, err := jwt.ParseWithClaims(token, &mc, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Absent(), errors.Wrap(err, "verify access token")
	}
	return decodeMapClaims(mc)
}

func decodeMapClaims(mc jwt.MapClaims) (Result, error) {
	bag, err := json.Marshal(mc)
	if err != nil {
		return Absent(), errors.Wrap(err, "encode token claims")
	}
	return Decode(bag), nil
}
