// Package signer presigns WebSocket URLs for Amazon Transcribe streaming.
//
// The streaming endpoint authenticates the connection upgrade through SigV4
// query parameters, which the standard SDK presigners do not produce for
// this service, so the four-step protocol (canonical request, string to
// sign, derived key, signature) is implemented here directly. The output is
// deterministic for a fixed timestamp, which is what the tests rely on.
package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
)

const (
	algorithm   = "AWS4-HMAC-SHA256"
	serviceName = "transcribe"
	requestType = "aws4_request"
	signingPath = "/stream-transcription-websocket"

	// ExpirySeconds is the validity window of a presigned URL, measured from
	// the timestamp it was signed with.
	ExpirySeconds = 300
)

// Request describes one streaming connection to authorize.
type Request struct {
	Region       string
	LanguageCode string
	SampleRate   int
}

// Result is the signed URL plus the echoed parameters a client needs to open
// the stream.
type Result struct {
	URL          string
	Region       string
	LanguageCode string
	SampleRate   int
	ExpiresIn    int
}

// Presign computes a time-limited signed wss:// URL authorizing a client to
// stream audio to Transcribe. The URL is valid for ExpirySeconds from now;
// clock skew beyond the service's tolerance invalidates it.
func Presign(creds aws.Credentials, req Request) (Result, error) {
	return PresignAt(creds, req, time.Now().UTC())
}

// PresignAt is Presign with an explicit signing timestamp. Identical inputs
// produce byte-identical URLs.
func PresignAt(creds aws.Credentials, req Request, signedAt time.Time) (Result, error) {
	if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
		return Result{}, errors.New("signer: credentials are required")
	}
	if req.Region == "" {
		return Result{}, errors.New("signer: region is required")
	}
	if req.LanguageCode == "" {
		req.LanguageCode = "en-US"
	}
	if req.SampleRate <= 0 {
		req.SampleRate = 16000
	}

	signedAt = signedAt.UTC()
	amzDate := signedAt.Format("20060102T150405Z")
	dateStamp := signedAt.Format("20060102")

	host := fmt.Sprintf("transcribestreaming.%s.amazonaws.com:8443", req.Region)
	credentialScope := strings.Join([]string{dateStamp, req.Region, serviceName, requestType}, "/")

	params := map[string]string{
		"X-Amz-Algorithm":     algorithm,
		"X-Amz-Credential":    creds.AccessKeyID + "/" + credentialScope,
		"X-Amz-Date":          amzDate,
		"X-Amz-Expires":       strconv.Itoa(ExpirySeconds),
		"X-Amz-SignedHeaders": "host",
		"language-code":       req.LanguageCode,
		"media-encoding":      "pcm",
		"sample-rate":         strconv.Itoa(req.SampleRate),
	}
	if creds.SessionToken != "" {
		params["X-Amz-Security-Token"] = creds.SessionToken
	}

	canonicalQuery := canonicalQueryString(params)

	emptyPayloadHash := sha256Hex(nil)
	canonicalRequest := strings.Join([]string{
		"GET",
		signingPath,
		canonicalQuery,
		"host:" + host + "\n",
		"host",
		emptyPayloadHash,
	}, "\n")

	stringToSign := strings.Join([]string{
		algorithm,
		amzDate,
		credentialScope,
		sha256Hex([]byte(canonicalRequest)),
	}, "\n")

	signingKey := deriveSigningKey(creds.SecretAccessKey, dateStamp, req.Region)
	signature := hex.EncodeToString(hmacSHA256(signingKey, stringToSign))

	url := fmt.Sprintf("wss://%s%s?%s&X-Amz-Signature=%s", host, signingPath, canonicalQuery, signature)
	return Result{
		URL:          url,
		Region:       req.Region,
		LanguageCode: req.LanguageCode,
		SampleRate:   req.SampleRate,
		ExpiresIn:    ExpirySeconds,
	}, nil
}

// canonicalQueryString percent-encodes keys and values per the SigV4 rule
// (unreserved characters only) and sorts entries by encoded key.
func canonicalQueryString(params map[string]string) string {
	entries := make([]string, 0, len(params))
	for k, v := range params {
		entries = append(entries, uriEncode(k)+"="+uriEncode(v))
	}
	sort.Strings(entries)
	return strings.Join(entries, "&")
}

// uriEncode applies the SigV4 variant of RFC 3986 encoding: everything but
// unreserved characters is percent-encoded, including '/' and '='.
func uriEncode(s string) string {
	var b strings.Builder
	for _, c := range []byte(s) {
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return (c >= 'A' && c <= 'Z') ||
		(c >= 'a' && c <= 'z') ||
		(c >= '0' && c <= '9') ||
		c == '-' || c == '_' || c == '.' || c == '~'
}

// deriveSigningKey chains four HMAC operations seeded from the secret key
// through the date, region, service, and terminal request-type string.
func deriveSigningKey(secretKey, dateStamp, region string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secretKey), dateStamp)
	kRegion := hmacSHA256(kDate, region)
	kService := hmacSHA256(kRegion, serviceName)
	return hmacSHA256(kService, requestType)
}

func hmacSHA256(key []byte, msg string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(msg))
	return mac.Sum(nil)
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
