package token

import (
	"net/url"
	"strconv"
	"time"
)

// SignURL appends exp and sig query parameters to rawURL. The signature
// covers the path and every other query parameter, sorted by key.
func (s *Signer) SignURL(rawURL string, ttl time.Duration) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Del("sig")
	q.Set("exp", strconv.FormatInt(s.now().Add(ttl).Unix(), 10))
	q.Set("sig", s.sign(u.Path+"?"+q.Encode()))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// VerifyURL checks a URL produced by SignURL.
func (s *Signer) VerifyURL(path string, query url.Values) error {
	sig := query.Get("sig")
	expStr := query.Get("exp")
	if sig == "" || expStr == "" {
		return ErrMalformed
	}
	exp, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil {
		return ErrMalformed
	}
	rest := url.Values{}
	for k, v := range query {
		if k != "sig" {
			rest[k] = v
		}
	}
	if !s.verifySig(path+"?"+rest.Encode(), sig) {
		return ErrBadSignature
	}
	return s.checkExpiry(exp)
}
