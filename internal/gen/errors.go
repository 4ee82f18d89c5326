package gen

import (
	"errors"
	"net"
	"strings"

	"google.golang.org/genai"
)

var (
	// ErrNoCredentials means no usable API key is configured; generation
	// cannot even be attempted.
	ErrNoCredentials = errors.New("no API key configured, add one with 'storyweaver keys set'")

	// ErrMalformedResponse means the provider returned unparseable or
	// incomplete structured data. Never retried.
	ErrMalformedResponse = errors.New("the provider returned an invalid story format")

	// ErrEmptyResult means an otherwise-successful call produced zero
	// assets. Never retried.
	ErrEmptyResult = errors.New("the provider returned no assets")

	// ErrAllCredentialsExhausted means every configured key was rejected
	// with an auth or quota failure.
	ErrAllCredentialsExhausted = errors.New("all configured API keys were rejected")
)

// Class buckets provider failures. Only auth and quota failures trigger
// credential rotation; everything else propagates immediately.
type Class int

const (
	ClassOther Class = iota
	ClassAuth
	ClassQuota
	ClassNetwork
)

func (c Class) String() string {
	switch c {
	case ClassAuth:
		return "auth"
	case ClassQuota:
		return "quota"
	case ClassNetwork:
		return "network"
	}
	return "other"
}

// Classify buckets a provider error by structured status code when the SDK
// gives one, falling back to message heuristics the provider is known to
// emit.
func Classify(err error) Class {
	if err == nil {
		return ClassOther
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 401, 403:
			return ClassAuth
		case 429:
			return ClassQuota
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassNetwork
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "api key not valid"),
		strings.Contains(msg, "api_key_invalid"),
		strings.Contains(msg, "unauthenticated"),
		strings.Contains(msg, "permission denied"):
		return ClassAuth
	case strings.Contains(msg, "quota"),
		strings.Contains(msg, "resource has been exhausted"),
		strings.Contains(msg, "resource_exhausted"),
		strings.Contains(msg, "rate limit"):
		return ClassQuota
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "network is unreachable"):
		return ClassNetwork
	}
	return ClassOther
}

func rotatable(err error) bool {
	c := Classify(err)
	return c == ClassAuth || c == ClassQuota
}

// KeyVerdict renders the outcome of a key test as a message fit for the
// user.
func KeyVerdict(err error) string {
	if err == nil {
		return "Success! Your API key is valid."
	}
	switch Classify(err) {
	case ClassAuth:
		return "Invalid API key. Please ensure you have copied the entire key correctly."
	case ClassQuota:
		return "You may have exceeded your API quota. Please check your usage with your provider."
	case ClassNetwork:
		return "A network error occurred. Please check your internet connection and try again."
	}
	return "An unknown error occurred. Please double-check your API key."
}
