package paddle

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/dmitrymomot/accountd/pkg/phpserialize"
)

// signatureField carries the RSA signature inside the webhook body itself.
const signatureField = "p_signature"

// Verifier validates webhook signatures against the provider's RSA public
// key.
//
// The scheme is provider-mandated and must be matched bit-exact: drop the
// signature field, sort the remaining fields by key, stringify non-string
// values, serialize the sorted map in PHP's serialize() format, and verify
// an RSA-SHA1 signature (base64 in the payload) over those bytes. Any
// deviation in ordering or encoding invalidates every signature.
type Verifier struct {
	pub *rsa.PublicKey
}

// NewVerifier parses the PEM-encoded RSA public key from the vendor
// dashboard.
func NewVerifier(pemKey string) (*Verifier, error) {
	block, _ := pem.Decode([]byte(pemKey))
	if block == nil {
		return nil, fmt.Errorf("paddle: public key is not valid PEM")
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("paddle: parse public key: %w", err)
	}
	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("paddle: public key is not RSA")
	}
	return &Verifier{pub: pub}, nil
}

// Verify checks the signature over an untyped webhook field map.
// Pure validation: no side effects, and it never silently passes.
func (v *Verifier) Verify(fields map[string]any) error {
	sigValue, ok := fields[signatureField].(string)
	if !ok || sigValue == "" {
		return fmt.Errorf("%w: missing %s field", ErrInvalidSignature, signatureField)
	}

	signature, err := base64.StdEncoding.DecodeString(sigValue)
	if err != nil {
		return fmt.Errorf("%w: signature is not valid base64", ErrInvalidSignature)
	}

	serialized := serializeFields(fields)
	digest := sha1.Sum(serialized)

	if err := rsa.VerifyPKCS1v15(v.pub, crypto.SHA1, digest[:], signature); err != nil {
		return fmt.Errorf("%w: RSA verification failed", ErrInvalidSignature)
	}
	return nil
}

// VerifyForm is Verify for url-encoded webhook bodies, which is how the
// provider actually delivers them.
func (v *Verifier) VerifyForm(form url.Values) error {
	fields := make(map[string]any, len(form))
	for k := range form {
		fields[k] = form.Get(k)
	}
	return v.Verify(fields)
}

// serializeFields produces the exact byte stream the provider signed:
// signature field removed, keys ascending, values stringified, PHP
// serialization.
func serializeFields(fields map[string]any) []byte {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == signatureField {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]phpserialize.Pair, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, phpserialize.Pair{Key: k, Value: stringify(fields[k])})
	}
	return phpserialize.MarshalStringMap(pairs)
}

// stringify flattens non-string values the way the reference does: arrays
// join with commas, objects JSON-encode, scalars print plainly.
func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []any:
		out := ""
		for i, item := range val {
			if i > 0 {
				out += ","
			}
			out += stringify(item)
		}
		return out
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case nil:
		return ""
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(raw)
	}
}
