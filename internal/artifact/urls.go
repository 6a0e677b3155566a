package artifact

import (
	"net/url"
	"strconv"
	"time"

	"github.com/bookbloom/bookbloom/internal/signing"
)

// SignedPath builds the local download reference for an artifact key:
// "/exports/{key}?expires=...&signature=...". The signature binds the key to
// the expiry, so neither can be swapped without invalidating the URL.
func SignedPath(signer *signing.Signer, key string, expiresAt time.Time) string {
	exp := expiresAt.Unix()
	v := url.Values{}
	v.Set("expires", strconv.FormatInt(exp, 10))
	v.Set("signature", signer.Sign(key, exp))
	return "/exports/" + key + "?" + v.Encode()
}
