package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMalformed     = errors.New("malformed token")
	ErrVersion       = errors.New("unsupported token version")
	ErrBadSignature  = errors.New("invalid token signature")
	ErrExpired       = errors.New("token expired")
	ErrVideoMismatch = errors.New("token was issued for another video")
	ErrRevoked       = errors.New("token revoked")
	ErrEmptySecret   = errors.New("signing secret is empty")
)

const (
	sigLen        = 32
	viewerVersion = "v1"
	viewerPrefix  = "viewer"
	noPage        = "none"
)

// Denylist lets operators revoke individual tokens before they expire.
type Denylist interface {
	IsRevoked(token string) bool
}

// Signer issues and verifies stateless HMAC-SHA256 capability tokens.
// It is safe for concurrent use.
type Signer struct {
	secret []byte
	now    func() time.Time
	deny   Denylist
}

type Option func(*Signer)

func WithClock(now func() time.Time) Option {
	return func(s *Signer) { s.now = now }
}

func WithDenylist(d Denylist) Option {
	return func(s *Signer) { s.deny = d }
}

func NewSigner(secret string, opts ...Option) (*Signer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	s := &Signer{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Signer) sign(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))[:sigLen]
}

func (s *Signer) verifySig(payload, sig string) bool {
	return hmac.Equal([]byte(sig), []byte(s.sign(payload)))
}

// checkExpiry accepts a token only while expires_at is still in the future.
func (s *Signer) checkExpiry(expiresAt int64) error {
	if s.now().Unix() >= expiresAt {
		return ErrExpired
	}
	return nil
}

func (s *Signer) revoked(token string) bool {
	return s.deny != nil && s.deny.IsRevoked(token)
}

func validID(videoID string) error {
	if videoID == "" || strings.Contains(videoID, ":") {
		return fmt.Errorf("%w: bad video id %q", ErrMalformed, videoID)
	}
	return nil
}

// StreamToken issues "{video_id}:{expires_at}:{sig}" granting playback of one video.
func (s *Signer) StreamToken(videoID string, ttl time.Duration) (string, time.Time, error) {
	if err := validID(videoID); err != nil {
		return "", time.Time{}, err
	}
	exp := s.now().Add(ttl).Unix()
	payload := fmt.Sprintf("%s:%d", videoID, exp)
	return payload + ":" + s.sign(payload), time.Unix(exp, 0), nil
}

// VerifyStream checks a stream token against the video being requested.
// Signature is checked before expiry so a forged token is never reported as
// merely expired.
func (s *Signer) VerifyStream(token, videoID string) error {
	if s.revoked(token) {
		return ErrRevoked
	}
	parts := strings.Split(token, ":")
	if len(parts) != 3 {
		return ErrMalformed
	}
	tokVideo, expStr, sig := parts[0], parts[1], parts[2]
	exp, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil || tokVideo == "" || len(sig) != sigLen {
		return ErrMalformed
	}
	if !s.verifySig(tokVideo+":"+expStr, sig) {
		return ErrBadSignature
	}
	if tokVideo != videoID {
		return ErrVideoMismatch
	}
	return s.checkExpiry(exp)
}

type ViewerClaims struct {
	VideoID   string
	PageID    *int
	ExpiresAt time.Time
}

func pageField(pageID *int) string {
	if pageID == nil {
		return noPage
	}
	return strconv.Itoa(*pageID)
}

func viewerPayload(videoID, page string, exp string) string {
	return viewerPrefix + ":" + videoID + ":" + page + ":" + exp
}

// ViewerToken issues "v1:{video_id}:{page_id|none}:{expires_at}:{sig}".
func (s *Signer) ViewerToken(videoID string, pageID *int, ttl time.Duration) (string, time.Time, error) {
	if err := validID(videoID); err != nil {
		return "", time.Time{}, err
	}
	exp := s.now().Add(ttl).Unix()
	expStr := strconv.FormatInt(exp, 10)
	page := pageField(pageID)
	sig := s.sign(viewerPayload(videoID, page, expStr))
	return strings.Join([]string{viewerVersion, videoID, page, expStr, sig}, ":"), time.Unix(exp, 0), nil
}

func (s *Signer) VerifyViewer(token, videoID string) (*ViewerClaims, error) {
	if s.revoked(token) {
		return nil, ErrRevoked
	}
	parts := strings.Split(token, ":")
	if len(parts) != 5 {
		return nil, ErrMalformed
	}
	if parts[0] != viewerVersion {
		return nil, ErrVersion
	}
	tokVideo, page, expStr, sig := parts[1], parts[2], parts[3], parts[4]
	exp, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil || tokVideo == "" || len(sig) != sigLen {
		return nil, ErrMalformed
	}
	claims := &ViewerClaims{VideoID: tokVideo, ExpiresAt: time.Unix(exp, 0)}
	if page != noPage {
		p, err := strconv.Atoi(page)
		if err != nil {
			return nil, ErrMalformed
		}
		claims.PageID = &p
	}
	if !s.verifySig(viewerPayload(tokVideo, page, expStr), sig) {
		return nil, ErrBadSignature
	}
	if tokVideo != videoID {
		return nil, ErrVideoMismatch
	}
	if err := s.checkExpiry(exp); err != nil {
		return nil, err
	}
	return claims, nil
}
