package stowage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	stowrysign "github.com/sagarc03/stowry-go"
)

const (
	SignatureAlgorithm = "AWS4-HMAC-SHA256"
	MaxExpiresSeconds  = 604800 // 7 days
	DateTimeFormat     = "20060102T150405Z"
	DateFormat         = "20060102"

	// ResponseContentTypeParam overrides the Content-Type of a GET response.
	// It is not covered by the native signature.
	ResponseContentTypeParam = "response-content-type"
)

// SecretStore resolves the secret key of an access key.
type SecretStore interface {
	Lookup(accessKey string) (string, error)
}

// SignatureVerifier accepts presigned requests signed either with the native
// scheme (X-Stowry-* parameters) or with AWS Signature V4 (X-Amz-*). When
// both are present the native signature is checked.
type SignatureVerifier struct {
	aws    *AWSSignatureVerifier
	native *StowrySignatureVerifier
}

func NewSignatureVerifier(region, service string, store SecretStore) *SignatureVerifier {
	return &SignatureVerifier{
		aws:    NewAWSSignatureVerifier(region, service, store),
		native: NewStowrySignatureVerifier(store),
	}
}

func (v *SignatureVerifier) Verify(r *http.Request) error {
	query := r.URL.Query()

	switch {
	case query.Get(stowrysign.StowrySignatureParam) != "":
		return v.native.Verify(r)
	case query.Get("X-Amz-Signature") != "":
		return v.aws.Verify(r)
	default:
		return fmt.Errorf("no supported signature found: %w", ErrUnauthorized)
	}
}

// SignURL returns rawURL with native signature parameters for a GET request.
// The signed path is the URL path.
func SignURL(rawURL, accessKey, secretKey string, expires time.Duration, now time.Time) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("sign url: %w", err)
	}

	seconds := int64(expires / time.Second)
	if seconds <= 0 || seconds > MaxExpiresSeconds {
		return "", fmt.Errorf("sign url: expires must be between 1 and %d seconds: %w", MaxExpiresSeconds, ErrInvalidInput)
	}

	timestamp := now.Unix()
	sig := stowrysign.Sign(secretKey, http.MethodGet, u.Path, timestamp, seconds)

	query := u.Query()
	query.Set(stowrysign.StowryCredentialParam, accessKey)
	query.Set(stowrysign.StowryDateParam, strconv.FormatInt(timestamp, 10))
	query.Set(stowrysign.StowryExpiresParam, strconv.FormatInt(seconds, 10))
	query.Set(stowrysign.StowrySignatureParam, sig)
	u.RawQuery = query.Encode()

	return u.String(), nil
}

// StowrySignatureVerifier verifies native presigned URLs.
type StowrySignatureVerifier struct {
	store SecretStore
}

func NewStowrySignatureVerifier(store SecretStore) *StowrySignatureVerifier {
	return &StowrySignatureVerifier{store: store}
}

func (v *StowrySignatureVerifier) Verify(r *http.Request) error {
	query := r.URL.Query()

	credential := query.Get(stowrysign.StowryCredentialParam)
	date := query.Get(stowrysign.StowryDateParam)
	expiresParam := query.Get(stowrysign.StowryExpiresParam)
	signature := query.Get(stowrysign.StowrySignatureParam)

	if credential == "" || date == "" || expiresParam == "" || signature == "" {
		return fmt.Errorf("missing required signature parameters: %w", ErrUnauthorized)
	}

	timestamp, err := strconv.ParseInt(date, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid X-Stowry-Date format: %w", ErrUnauthorized)
	}

	expires, err := strconv.ParseInt(expiresParam, 10, 64)
	if err != nil || expires <= 0 || expires > MaxExpiresSeconds {
		return fmt.Errorf("invalid expires: must be between 1 and %d: %w", MaxExpiresSeconds, ErrUnauthorized)
	}

	if time.Now().Unix() > timestamp+expires {
		return fmt.Errorf("signature expired: %w", ErrUnauthorized)
	}

	secretKey, err := v.store.Lookup(credential)
	if err != nil {
		return err
	}

	expected := stowrysign.Sign(secretKey, r.Method, r.URL.Path, timestamp, expires)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("signature mismatch: %w", ErrUnauthorized)
	}

	return nil
}

// AWSSignatureVerifier verifies AWS Signature V4 presigned URLs, such as
// the ones issued by S3 compatible clients.
type AWSSignatureVerifier struct {
	Region  string
	Service string
	store   SecretStore
}

func NewAWSSignatureVerifier(region, service string, store SecretStore) *AWSSignatureVerifier {
	return &AWSSignatureVerifier{
		Region:  region,
		Service: service,
		store:   store,
	}
}

// Verify checks, in order:
//  1. Presence of all required X-Amz-* parameters
//  2. Algorithm, timestamp format and expiry range (1 second to 7 days)
//  3. That the request is not expired
//  4. Credential scope (date, region, service, terminator)
//  5. That the access key exists
//  6. The HMAC-SHA256 signature
func (v *AWSSignatureVerifier) Verify(r *http.Request) error {
	query := r.URL.Query()

	params, err := extractParams(query)
	if err != nil {
		return err
	}

	if err := v.validateParams(params); err != nil {
		return err
	}

	secretKey, err := v.store.Lookup(params.accessKey)
	if err != nil {
		return err
	}

	expectedSignature := calculateSignature(
		secretKey,
		r,
		query,
		params.requestTime,
		params.dateStamp,
		params.region,
		params.service,
		params.signedHeaders,
	)

	if !hmac.Equal([]byte(expectedSignature), []byte(params.signature)) {
		return fmt.Errorf("signature mismatch: %w", ErrUnauthorized)
	}

	return nil
}

type signatureParams struct {
	algorithm     string
	accessKey     string
	dateStamp     string
	region        string
	service       string
	requestTime   time.Time
	expires       int
	signedHeaders string
	signature     string
}

func extractParams(query url.Values) (*signatureParams, error) {
	amzAlgorithm := query.Get("X-Amz-Algorithm")
	amzCredential := query.Get("X-Amz-Credential")
	amzDate := query.Get("X-Amz-Date")
	amzExpires := query.Get("X-Amz-Expires")
	amzSignedHeaders := query.Get("X-Amz-SignedHeaders")
	amzSignature := query.Get("X-Amz-Signature")

	if amzAlgorithm == "" || amzCredential == "" || amzDate == "" ||
		amzExpires == "" || amzSignedHeaders == "" || amzSignature == "" {
		return nil, fmt.Errorf("missing required signature parameters: %w", ErrUnauthorized)
	}

	requestTime, err := time.Parse(DateTimeFormat, amzDate)
	if err != nil {
		return nil, fmt.Errorf("invalid X-Amz-Date format: %w", ErrUnauthorized)
	}

	expires, err := strconv.Atoi(amzExpires)
	if err != nil || expires <= 0 || expires > MaxExpiresSeconds {
		return nil, fmt.Errorf("invalid X-Amz-Expires: must be between 1 and %d: %w", MaxExpiresSeconds, ErrUnauthorized)
	}

	credParts := strings.Split(amzCredential, "/")
	if len(credParts) != 5 {
		return nil, fmt.Errorf("invalid X-Amz-Credential format: %w", ErrUnauthorized)
	}

	if credParts[4] != "aws4_request" {
		return nil, fmt.Errorf("invalid credential terminator: expected aws4_request: %w", ErrUnauthorized)
	}

	return &signatureParams{
		algorithm:     amzAlgorithm,
		accessKey:     credParts[0],
		dateStamp:     credParts[1],
		region:        credParts[2],
		service:       credParts[3],
		requestTime:   requestTime,
		expires:       expires,
		signedHeaders: amzSignedHeaders,
		signature:     amzSignature,
	}, nil
}

func (v *AWSSignatureVerifier) validateParams(params *signatureParams) error {
	if params.algorithm != SignatureAlgorithm {
		return fmt.Errorf("invalid algorithm: expected %s, got %s: %w", SignatureAlgorithm, params.algorithm, ErrUnauthorized)
	}

	if time.Now().After(params.requestTime.Add(time.Duration(params.expires) * time.Second)) {
		return fmt.Errorf("signature expired: %w", ErrUnauthorized)
	}

	expectedDate := params.requestTime.Format(DateFormat)
	if params.dateStamp != expectedDate {
		return fmt.Errorf("credential date mismatch: %w", ErrUnauthorized)
	}

	if params.region != v.Region {
		return fmt.Errorf("region mismatch: expected %s, got %s: %w", v.Region, params.region, ErrUnauthorized)
	}

	if params.service != v.Service {
		return fmt.Errorf("service mismatch: expected %s, got %s: %w", v.Service, params.service, ErrUnauthorized)
	}

	return nil
}

func calculateSignature(
	secretKey string,
	r *http.Request,
	query url.Values,
	requestTime time.Time,
	dateStamp, region, service, signedHeaders string,
) string {
	canonicalRequest := buildCanonicalRequest(r, query, signedHeaders)

	credentialScope := fmt.Sprintf("%s/%s/%s/aws4_request", dateStamp, region, service)
	stringToSign := buildStringToSign(requestTime, credentialScope, canonicalRequest)

	signingKey := deriveSigningKey(secretKey, dateStamp, region, service)

	signature := hmacSHA256(signingKey, []byte(stringToSign))
	return hex.EncodeToString(signature)
}

func buildCanonicalRequest(r *http.Request, query url.Values, signedHeaders string) string {
	return fmt.Sprintf("%s\n%s\n%s\n%s\n%s\n%s",
		r.Method,
		escapePath(r.URL.Path),
		buildCanonicalQueryString(query),
		buildCanonicalHeaders(r, signedHeaders),
		signedHeaders,
		"UNSIGNED-PAYLOAD",
	)
}

// buildCanonicalHeaders formats the signed headers as sorted "name:value\n"
// lines. The host header is taken from the request line.
func buildCanonicalHeaders(r *http.Request, signedHeaders string) string {
	headerNames := strings.Split(signedHeaders, ";")
	sort.Strings(headerNames)

	var result strings.Builder
	for _, name := range headerNames {
		value := r.Header.Get(name)
		if name == "host" {
			value = r.Host
		}
		result.WriteString(name)
		result.WriteString(":")
		result.WriteString(strings.TrimSpace(value))
		result.WriteString("\n")
	}
	return result.String()
}

func buildCanonicalQueryString(query url.Values) string {
	params := url.Values{}
	for k, v := range query {
		if k != "X-Amz-Signature" {
			params[k] = v
		}
	}
	// QueryEscape writes spaces as "+", SigV4 wants "%20". Literal plus
	// signs are already "%2B" at this point.
	return strings.ReplaceAll(params.Encode(), "+", "%20")
}

// escapePath percent-encodes everything but unreserved characters and "/".
func escapePath(p string) string {
	var b strings.Builder
	for i := 0; i < len(p); i++ {
		c := p[i]
		if isUnreserved(c) || c == '/' {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return 'A' <= c && c <= 'Z' || 'a' <= c && c <= 'z' || '0' <= c && c <= '9' ||
		c == '-' || c == '_' || c == '.' || c == '~'
}

func buildStringToSign(requestTime time.Time, credentialScope, canonicalRequest string) string {
	return fmt.Sprintf("%s\n%s\n%s\n%s",
		SignatureAlgorithm,
		requestTime.Format(DateTimeFormat),
		credentialScope,
		sha256Hash(canonicalRequest),
	)
}

func deriveSigningKey(secretKey, dateStamp, region, service string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secretKey), []byte(dateStamp))
	kRegion := hmacSHA256(kDate, []byte(region))
	kService := hmacSHA256(kRegion, []byte(service))
	return hmacSHA256(kService, []byte("aws4_request"))
}

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

func sha256Hash(data string) string {
	h := sha256.Sum256([]byte(data))
	return hex.EncodeToString(h[:])
}
