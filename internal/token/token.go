// Package token implements the signed download capability tokens minted by
// the feed endpoint and verified by the download endpoint.
//
// A token is base64url(JSON payload) + "." + base64url(HMAC-SHA256(payload)),
// the same shape as the dashboard session cookies signed against the record
// store.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nexuslabs/nexus-gateway/internal/models"
)

// ErrInvalid is returned for any token that fails verification: bad
// signature, expired, or structurally malformed. Verification fails closed
// and deliberately does not distinguish the cause.
var ErrInvalid = errors.New("invalid download token")

// Payload scopes a token to one exact artifact tuple. Tokens presented with
// any mismatching scope field are rejected regardless of signature validity.
type Payload struct {
	Channel  models.Channel  `json:"channel"`
	Platform models.Platform `json:"platform"`
	Arch     models.Arch     `json:"arch"`
	Artifact string          `json:"artifact"`
	// Exp is an absolute epoch-millisecond deadline.
	Exp int64 `json:"exp"`

	Source models.Source `json:"source,omitempty"`

	// Release-host provenance, so the download step can fetch the numeric
	// asset id without re-resolving.
	Owner      string `json:"owner,omitempty"`
	Repo       string `json:"repo,omitempty"`
	AssetID    int64  `json:"asset_id,omitempty"`
	AssetName  string `json:"asset_name,omitempty"`
	ReleaseTag string `json:"release_tag,omitempty"`

	// Static-configuration provenance.
	FileURL string `json:"file_url,omitempty"`

	// S3 provenance.
	Bucket    string `json:"bucket,omitempty"`
	ObjectKey string `json:"object_key,omitempty"`
}

// Matches reports whether the payload's scope exactly matches a presented
// artifact tuple.
func (p *Payload) Matches(channel models.Channel, platform models.Platform, arch models.Arch, artifact string) bool {
	return p.Channel == channel && p.Platform == platform && p.Arch == arch && p.Artifact == artifact
}

// Signer signs and verifies download tokens with a shared secret.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner creates a Signer. The secret must be non-empty; config.Load
// guarantees that at startup.
func NewSigner(secret []byte) *Signer {
	return &Signer{secret: secret, now: time.Now}
}

// Sign encodes and signs the payload.
func (s *Signer) Sign(p Payload) (string, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal token payload: %w", err)
	}

	encoded := base64.RawURLEncoding.EncodeToString(body)
	return encoded + "." + s.signature(encoded), nil
}

// Verify checks the token's signature and expiry and returns its payload.
// Any failure returns ErrInvalid.
func (s *Signer) Verify(tok string) (*Payload, error) {
	body, sig, ok := strings.Cut(tok, ".")
	if !ok || body == "" || sig == "" {
		return nil, ErrInvalid
	}

	expected := s.signature(body)
	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return nil, ErrInvalid
	}

	raw, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return nil, ErrInvalid
	}

	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, ErrInvalid
	}

	if p.Exp == 0 || s.now().UnixMilli() > p.Exp {
		return nil, ErrInvalid
	}

	return &p, nil
}

func (s *Signer) signature(body string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(body))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
