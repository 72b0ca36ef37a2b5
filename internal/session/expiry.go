package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/avoronov/finsession/internal/apperrors"
)

var unverifiedParser = jwt.NewParser()

// tokenExpiry decodes the access token payload and returns its exp claim.
// The signature is not verified: that is the identity server's job, the
// client only needs the timestamp. hasExp is false for a token without exp.
func tokenExpiry(token string) (exp time.Time, hasExp bool, err error) {
	claims := jwt.MapClaims{}

	if _, _, err := unverifiedParser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false, fmt.Errorf("%w. Err: %v", apperrors.ErrMalformedToken, err)
	}

	date, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w. Err: %v", apperrors.ErrMalformedToken, err)
	}
	if date == nil {
		return time.Time{}, false, nil
	}

	return date.Time, true, nil
}
