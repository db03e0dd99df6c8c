package adapters

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// sigv4Credentials is an AWS access-key pair, optionally with a session
// token for temporary credentials.
type sigv4Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// signSigV4 computes an AWS Signature Version 4 for the request and sets
// the X-Amz-Date, Authorization, and (when present) session-token headers.
// The canonical chain is the documented one: canonical request → string to
// sign → derived signing key → HMAC signature.
func signSigV4(header http.Header, method string, rawURL string, body []byte, region, service string, creds sigv4Credentials, now time.Time) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL for signing: %w", err)
	}

	amzDate := now.UTC().Format("20060102T150405Z")
	dateStamp := now.UTC().Format("20060102")

	payloadHash := hexSHA256(body)
	header.Set("X-Amz-Date", amzDate)
	header.Set("Host", u.Host)
	header.Set("X-Amz-Content-Sha256", payloadHash)
	if creds.SessionToken != "" {
		header.Set("X-Amz-Security-Token", creds.SessionToken)
	}

	signedHeaderNames, canonicalHeaders := canonicalizeHeaders(header)

	canonicalRequest := strings.Join([]string{
		method,
		canonicalURI(u),
		canonicalQuery(u),
		canonicalHeaders,
		signedHeaderNames,
		payloadHash,
	}, "\n")

	scope := strings.Join([]string{dateStamp, region, service, "aws4_request"}, "/")
	stringToSign := strings.Join([]string{
		"AWS4-HMAC-SHA256",
		amzDate,
		scope,
		hexSHA256([]byte(canonicalRequest)),
	}, "\n")

	key := []byte("AWS4" + creds.SecretAccessKey)
	for _, part := range []string{dateStamp, region, service, "aws4_request"} {
		key = hmacSHA256(key, part)
	}
	signature := hex.EncodeToString(hmacSHA256(key, stringToSign))

	header.Set("Authorization", fmt.Sprintf(
		"AWS4-HMAC-SHA256 Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		creds.AccessKeyID, scope, signedHeaderNames, signature,
	))
	return nil
}

// canonicalizeHeaders produces the signed-header list and the canonical
// header block, lowercase names sorted, values trimmed.
func canonicalizeHeaders(header http.Header) (signed string, canonical string) {
	names := make([]string, 0, len(header))
	for name := range header {
		lower := strings.ToLower(name)
		if lower == "authorization" {
			continue
		}
		names = append(names, lower)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteString(":")
		b.WriteString(strings.TrimSpace(header.Get(name)))
		b.WriteString("\n")
	}
	return strings.Join(names, ";"), b.String()
}

// canonicalURI percent-encodes the path per the signing rules.
func canonicalURI(u *url.URL) string {
	if u.Path == "" {
		return "/"
	}
	segments := strings.Split(u.Path, "/")
	for i, s := range segments {
		segments[i] = awsEscape(s)
	}
	return strings.Join(segments, "/")
}

// canonicalQuery sorts and encodes the query string.
func canonicalQuery(u *url.URL) string {
	query := u.Query()
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		values := query[k]
		sort.Strings(values)
		for _, v := range values {
			parts = append(parts, awsEscape(k)+"="+awsEscape(v))
		}
	}
	return strings.Join(parts, "&")
}

// awsEscape implements the unreserved-character encoding the signature
// algorithm requires, which differs from url.QueryEscape on space and
// tilde.
func awsEscape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9',
			c == '-', c == '_', c == '.', c == '~':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

func hexSHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func hmacSHA256(key []byte, data string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(data))
	return mac.Sum(nil)
}
