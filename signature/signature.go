package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strconv"
	"strings"
)

// Version prefixes every signature produced by Sign. Bump it whenever the
// canonical serialization or digest changes.
const Version = "v2"

// ErrEmptySecret is the panic value raised by Sign for an empty secret.
var ErrEmptySecret = errors.New("signature: empty secret")

// Params is the exact parameter set of a request about to be sent.
type Params map[string]string

// Keys returns the parameter names in canonical (sorted) order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Canonical returns the byte string the signature is computed over. Each
// key and value is written as "<len>:<bytes>", so no two distinct parameter
// sets share a canonical form.
func (p Params) Canonical() string {
	var b strings.Builder
	for _, k := range p.Keys() {
		writeField(&b, k)
		writeField(&b, p[k])
	}
	return b.String()
}

func writeField(b *strings.Builder, s string) {
	b.WriteString(strconv.Itoa(len(s)))
	b.WriteByte(':')
	b.WriteString(s)
}

// Clone returns an independent copy of p.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Sign computes the signature of params under secret.
//
// Sign is deterministic and side-effect free. An empty secret is a
// programming error and panics with ErrEmptySecret.
func Sign(params Params, secret string) string {
	if secret == "" {
		panic(ErrEmptySecret)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(params.Canonical()))

	return Version + ":" + hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether sig is the signature of params under secret.
func Verify(params Params, secret, sig string) bool {
	if secret == "" {
		return false
	}
	return hmac.Equal([]byte(Sign(params, secret)), []byte(sig))
}
