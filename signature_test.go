package stowage_test

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/sagarc03/stowage"
	"github.com/sagarc03/stowage/keybackend"
	stowrysign "github.com/sagarc03/stowry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// presignedGet builds a GET for /test.txt carrying q.
func presignedGet(q url.Values) *http.Request {
	return &http.Request{
		Method: http.MethodGet,
		URL:    &url.URL{Path: "/test.txt", RawQuery: q.Encode()},
		Host:   "localhost:5708",
		Header: http.Header{},
	}
}

// with copies base, sets every key in set and drops every key in drop.
func with(base url.Values, set map[string]string, drop ...string) url.Values {
	q := url.Values{}
	for k, v := range base {
		q[k] = append([]string(nil), v...)
	}
	for k, v := range set {
		q.Set(k, v)
	}
	for _, k := range drop {
		q.Del(k)
	}
	return q
}

func TestAWSSignatureVerifier_Verify(t *testing.T) {
	store := keybackend.NewMapSecretStore(map[string]string{"AKIATEST": "testsecret"})
	verifier := stowage.NewAWSSignatureVerifier("us-east-1", "s3", store)

	now := time.Now().UTC().Add(-30 * time.Minute)
	day := now.Format(stowage.DateFormat)
	old := time.Now().UTC().Add(-2 * time.Hour)

	base := url.Values{
		"X-Amz-Algorithm":     {"AWS4-HMAC-SHA256"},
		"X-Amz-Credential":    {"AKIATEST/" + day + "/us-east-1/s3/aws4_request"},
		"X-Amz-Date":          {now.Format(stowage.DateTimeFormat)},
		"X-Amz-Expires":       {"3600"},
		"X-Amz-SignedHeaders": {"host"},
		"X-Amz-Signature":     {"abc123"},
	}

	tests := []struct {
		name      string
		query     url.Values
		wantError string
	}{
		{"empty query", url.Values{}, "missing required signature parameters"},
		{"missing algorithm", with(base, nil, "X-Amz-Algorithm"), "missing required signature parameters"},
		{"missing signed headers", with(base, nil, "X-Amz-SignedHeaders"), "missing required signature parameters"},
		{"invalid algorithm", with(base, map[string]string{"X-Amz-Algorithm": "AWS4-HMAC-SHA1"}), "invalid algorithm"},
		{"invalid date format", with(base, map[string]string{"X-Amz-Date": "invalid-date"}), "invalid X-Amz-Date format"},
		{"expires zero", with(base, map[string]string{"X-Amz-Expires": "0"}), "invalid X-Amz-Expires"},
		{"expires too large", with(base, map[string]string{"X-Amz-Expires": "604801"}), "invalid X-Amz-Expires"},
		{"expired", with(base, map[string]string{
			"X-Amz-Date":       old.Format(stowage.DateTimeFormat),
			"X-Amz-Credential": "AKIATEST/" + old.Format(stowage.DateFormat) + "/us-east-1/s3/aws4_request",
		}), "signature expired"},
		{"short credential", with(base, map[string]string{"X-Amz-Credential": "AKIATEST/invalid"}), "invalid X-Amz-Credential format"},
		{"unknown access key", with(base, map[string]string{"X-Amz-Credential": "WRONGKEY/" + day + "/us-east-1/s3/aws4_request"}), "access key not found"},
		{"region mismatch", with(base, map[string]string{"X-Amz-Credential": "AKIATEST/" + day + "/us-west-2/s3/aws4_request"}), "region mismatch"},
		{"service mismatch", with(base, map[string]string{"X-Amz-Credential": "AKIATEST/" + day + "/us-east-1/ec2/aws4_request"}), "service mismatch"},
		{"bad terminator", with(base, map[string]string{"X-Amz-Credential": "AKIATEST/" + day + "/us-east-1/s3/wrong"}), "invalid credential terminator"},
		{"credential date mismatch", with(base, map[string]string{"X-Amz-Credential": "AKIATEST/20260101/us-east-1/s3/aws4_request"}), "credential date mismatch"},
		{"signature mismatch", base, "signature mismatch"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := verifier.Verify(presignedGet(tt.query))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantError)
			assert.ErrorIs(t, err, stowage.ErrUnauthorized)
		})
	}
}

func TestNewAWSSignatureVerifier(t *testing.T) {
	verifier := stowage.NewAWSSignatureVerifier("us-west-1", "ec2",
		keybackend.NewMapSecretStore(map[string]string{"test": "secret"}))

	assert.Equal(t, "us-west-1", verifier.Region)
	assert.Equal(t, "ec2", verifier.Service)
}

func TestStowrySignatureVerifier_Verify(t *testing.T) {
	const (
		accessKey = "NATIVE"
		secretKey = "testsecret123"
	)

	verifier := stowage.NewStowrySignatureVerifier(
		keybackend.NewMapSecretStore(map[string]string{accessKey: secretKey}))

	now := time.Now().Unix()
	stale := time.Now().Add(-2 * time.Hour).Unix()

	base := url.Values{
		stowrysign.StowryCredentialParam: {accessKey},
		stowrysign.StowryDateParam:       {fmt.Sprint(now)},
		stowrysign.StowryExpiresParam:    {"900"},
		stowrysign.StowrySignatureParam:  {stowrysign.Sign(secretKey, http.MethodGet, "/test.txt", now, 900)},
	}

	require.NoError(t, verifier.Verify(presignedGet(base)))

	tests := []struct {
		name      string
		query     url.Values
		wantError string
	}{
		{"empty query", url.Values{}, "missing required signature parameters"},
		{"missing credential", with(base, nil, stowrysign.StowryCredentialParam), "missing required signature parameters"},
		{"missing date", with(base, nil, stowrysign.StowryDateParam), "missing required signature parameters"},
		{"missing expires", with(base, nil, stowrysign.StowryExpiresParam), "missing required signature parameters"},
		{"missing signature", with(base, nil, stowrysign.StowrySignatureParam), "missing required signature parameters"},
		{"expires zero", with(base, map[string]string{stowrysign.StowryExpiresParam: "0"}), "invalid expires"},
		{"expires negative", with(base, map[string]string{stowrysign.StowryExpiresParam: "-1"}), "invalid expires"},
		{"expires too large", with(base, map[string]string{stowrysign.StowryExpiresParam: "604801"}), "invalid expires"},
		{"expired", with(base, map[string]string{
			stowrysign.StowryDateParam:      fmt.Sprint(stale),
			stowrysign.StowrySignatureParam: stowrysign.Sign(secretKey, http.MethodGet, "/test.txt", stale, 900),
		}), "signature expired"},
		{"unknown access key", with(base, map[string]string{stowrysign.StowryCredentialParam: "WRONGKEY"}), "access key not found"},
		{"signature mismatch", with(base, map[string]string{stowrysign.StowrySignatureParam: "wrongsignature123"}), "signature mismatch"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := verifier.Verify(presignedGet(tt.query))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantError)
		})
	}
}

func TestSignatureVerifier_Verify(t *testing.T) {
	const (
		accessKey = "TESTKEY"
		secretKey = "testsecret123"
	)

	store := keybackend.NewMapSecretStore(map[string]string{
		accessKey: secretKey,
	})

	verifier := stowage.NewSignatureVerifier("us-east-1", "s3", store)

	stowryTimestamp := time.Now().Unix()
	stowryExpires := int64(900)
	stowrySignature := stowrysign.Sign(secretKey, "GET", "/test.txt", stowryTimestamp, stowryExpires)

	awsTime := time.Now().UTC()
	awsDateStamp := awsTime.Format(stowage.DateFormat)
	awsAmzDate := awsTime.Format(stowage.DateTimeFormat)

	t.Run("delegates to StowrySignatureVerifier when X-Stowry-Signature present", func(t *testing.T) {
		query := url.Values{
			"X-Stowry-Credential": []string{accessKey},
			"X-Stowry-Date":       []string{fmt.Sprintf("%d", stowryTimestamp)},
			"X-Stowry-Expires":    []string{fmt.Sprintf("%d", stowryExpires)},
			"X-Stowry-Signature":  []string{stowrySignature},
		}
		req := &http.Request{
			Method: "GET",
			URL:    &url.URL{Path: "/test.txt", RawQuery: query.Encode()},
			Host:   "localhost:5708",
			Header: http.Header{},
		}

		err := verifier.Verify(req)
		assert.NoError(t, err)
	})

	t.Run("delegates to AWSSignatureVerifier when X-Amz-Signature present", func(t *testing.T) {
		query := url.Values{
			"X-Amz-Algorithm":     []string{"AWS4-HMAC-SHA256"},
			"X-Amz-Credential":    []string{fmt.Sprintf("%s/%s/us-east-1/s3/aws4_request", accessKey, awsDateStamp)},
			"X-Amz-Date":          []string{awsAmzDate},
			"X-Amz-Expires":       []string{"3600"},
			"X-Amz-SignedHeaders": []string{"host"},
			"X-Amz-Signature":     []string{"invalidsignature"},
		}
		req := &http.Request{
			Method: "GET",
			URL:    &url.URL{Path: "/test.txt", RawQuery: query.Encode()},
			Host:   "localhost:5708",
			Header: http.Header{},
		}

		err := verifier.Verify(req)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "signature mismatch")
	})

	t.Run("returns error when no signature present", func(t *testing.T) {
		query := url.Values{
			"some-other-param": []string{"value"},
		}
		req := &http.Request{
			Method: "GET",
			URL:    &url.URL{Path: "/test.txt", RawQuery: query.Encode()},
			Host:   "localhost:5708",
			Header: http.Header{},
		}

		err := verifier.Verify(req)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "no supported signature found")
	})

	t.Run("returns error for empty query", func(t *testing.T) {
		req := &http.Request{
			Method: "GET",
			URL:    &url.URL{Path: "/test.txt"},
			Host:   "localhost:5708",
			Header: http.Header{},
		}

		err := verifier.Verify(req)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "no supported signature found")
	})

	t.Run("prefers Stowry signature when both present", func(t *testing.T) {
		query := url.Values{
			"X-Stowry-Credential": []string{accessKey},
			"X-Stowry-Date":       []string{fmt.Sprintf("%d", stowryTimestamp)},
			"X-Stowry-Expires":    []string{fmt.Sprintf("%d", stowryExpires)},
			"X-Stowry-Signature":  []string{stowrySignature},
			"X-Amz-Algorithm":     []string{"AWS4-HMAC-SHA256"},
			"X-Amz-Credential":    []string{fmt.Sprintf("%s/%s/us-east-1/s3/aws4_request", accessKey, awsDateStamp)},
			"X-Amz-Date":          []string{awsAmzDate},
			"X-Amz-Expires":       []string{"3600"},
			"X-Amz-SignedHeaders": []string{"host"},
			"X-Amz-Signature":     []string{"invalidsignature"},
		}
		req := &http.Request{
			Method: "GET",
			URL:    &url.URL{Path: "/test.txt", RawQuery: query.Encode()},
			Host:   "localhost:5708",
			Header: http.Header{},
		}

		err := verifier.Verify(req)
		assert.NoError(t, err)
	})
}

func TestAWSSignatureVerifier_AcceptsSDKPresignedURL(t *testing.T) {
	store := keybackend.NewMapSecretStore(map[string]string{
		"AKIATEST": "testsecret",
	})
	verifier := stowage.NewAWSSignatureVerifier("us-east-1", "s3", store)

	tests := []struct {
		name string
		path string
	}{
		{name: "plain key", path: "/files/foo/x/y/z/a.jpg"},
		{name: "key with space", path: "/files/foo/annual report.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := url.URL{Scheme: "http", Host: "localhost:5708", Path: tt.path}
			q := url.Values{}
			q.Set("X-Amz-Expires", "900")
			q.Set("response-content-type", "image/jpeg")
			u.RawQuery = q.Encode()

			unsigned, err := http.NewRequest(http.MethodGet, u.String(), nil)
			require.NoError(t, err)

			signer := v4.NewSigner(func(o *v4.SignerOptions) {
				o.DisableURIPathEscaping = true
			})
			signedURL, _, err := signer.PresignHTTP(
				context.Background(),
				aws.Credentials{AccessKeyID: "AKIATEST", SecretAccessKey: "testsecret"},
				unsigned,
				"UNSIGNED-PAYLOAD",
				"s3",
				"us-east-1",
				time.Now().UTC(),
			)
			require.NoError(t, err)

			req, err := http.NewRequest(http.MethodGet, signedURL, nil)
			require.NoError(t, err)
			assert.NoError(t, verifier.Verify(req))

			tampered, err := http.NewRequest(http.MethodGet, strings.Replace(signedURL, "image%2Fjpeg", "text%2Fhtml", 1), nil)
			require.NoError(t, err)
			assert.ErrorIs(t, verifier.Verify(tampered), stowage.ErrUnauthorized)
		})
	}
}

func TestSignURL(t *testing.T) {
	const (
		accessKey = "GATEWAY"
		secretKey = "gatewaysecret"
	)
	store := keybackend.NewMapSecretStore(map[string]string{accessKey: secretKey})
	verifier := stowage.NewSignatureVerifier("us-east-1", "s3", store)

	signed, err := stowage.SignURL("http://localhost:5708/foo/x/y/z/a.jpg", accessKey, secretKey, 30*time.Minute, time.Now())
	require.NoError(t, err)

	u, err := url.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "/foo/x/y/z/a.jpg", u.Path)
	assert.Equal(t, "1800", u.Query().Get(stowrysign.StowryExpiresParam))
	assert.Equal(t, accessKey, u.Query().Get(stowrysign.StowryCredentialParam))
	assert.NotEmpty(t, u.Query().Get(stowrysign.StowrySignatureParam))

	req, err := http.NewRequest(http.MethodGet, signed, nil)
	require.NoError(t, err)
	assert.NoError(t, verifier.Verify(req))

	t.Run("other path is rejected", func(t *testing.T) {
		other := strings.Replace(signed, "a.jpg", "b.jpg", 1)
		req, err := http.NewRequest(http.MethodGet, other, nil)
		require.NoError(t, err)
		assert.ErrorIs(t, verifier.Verify(req), stowage.ErrUnauthorized)
	})

	t.Run("expired", func(t *testing.T) {
		old, err := stowage.SignURL("http://localhost:5708/foo/a.jpg", accessKey, secretKey, time.Minute, time.Now().Add(-time.Hour))
		require.NoError(t, err)
		req, err := http.NewRequest(http.MethodGet, old, nil)
		require.NoError(t, err)
		err = verifier.Verify(req)
		assert.ErrorIs(t, err, stowage.ErrUnauthorized)
		assert.Contains(t, err.Error(), "signature expired")
	})

	t.Run("expires out of range", func(t *testing.T) {
		_, err := stowage.SignURL("http://localhost:5708/foo/a.jpg", accessKey, secretKey, 8*24*time.Hour, time.Now())
		assert.ErrorIs(t, err, stowage.ErrInvalidInput)
	})
}
