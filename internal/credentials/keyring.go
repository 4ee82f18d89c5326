// Package credentials holds the ordered list of API keys a generation run
// may burn through. The keyring is plain state: it never talks to the
// network, and it is owned and injected by the caller rather than living as
// package-global state, so two runs can never interfere through it.
package credentials

import (
	"errors"
	"strings"
)

var (
	// ErrNoKeys means no usable credential is configured at all.
	ErrNoKeys = errors.New("no API key configured")

	// ErrExhausted means the cursor is already at the last key.
	ErrExhausted = errors.New("all API keys exhausted")
)

// builtinKeys is an optional comma-separated list of fallback keys baked in
// at build time:
//
//	go build -ldflags "-X storyweaver/internal/credentials.builtinKeys=k1,k2"
var builtinKeys string

// Keyring is an ordered, de-duplicated list of candidate API keys with a
// cursor pointing at the active one. The user-supplied key, when present,
// always sorts first.
type Keyring struct {
	userKey string
	keys    []string
	cursor  int
}

// NewKeyring builds a keyring from the user key (may be empty) and the
// build-time fallback keys.
func NewKeyring(userKey string) *Keyring {
	k := &Keyring{}
	k.SetUserKey(userKey)
	return k
}

// NewKeyringWithFallbacks builds a keyring with an explicit fallback list
// instead of the build-time one.
func NewKeyringWithFallbacks(userKey string, fallbacks ...string) *Keyring {
	k := &Keyring{}
	k.rebuild(userKey, fallbacks)
	return k
}

// SetUserKey rebuilds the ordered key list with the given user key first and
// resets the cursor to the front.
func (k *Keyring) SetUserKey(userKey string) {
	k.rebuild(userKey, splitBuiltins())
}

func (k *Keyring) rebuild(userKey string, fallbacks []string) {
	k.userKey = strings.TrimSpace(userKey)
	k.keys = k.keys[:0]
	k.cursor = 0

	seen := map[string]bool{}
	add := func(key string) {
		key = strings.TrimSpace(key)
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		k.keys = append(k.keys, key)
	}

	add(k.userKey)
	for _, key := range fallbacks {
		add(key)
	}
}

// Current returns the key at the cursor.
func (k *Keyring) Current() (string, error) {
	if len(k.keys) == 0 {
		return "", ErrNoKeys
	}
	return k.keys[k.cursor], nil
}

// Advance moves the cursor to the next key, failing with ErrExhausted when
// the cursor already sits on the last one.
func (k *Keyring) Advance() error {
	if len(k.keys) == 0 {
		return ErrNoKeys
	}
	if k.cursor >= len(k.keys)-1 {
		return ErrExhausted
	}
	k.cursor++
	return nil
}

// Reset returns the cursor to the first key. Called at the start of every
// independent generation run.
func (k *Keyring) Reset() {
	k.cursor = 0
}

// Len reports how many distinct keys are configured.
func (k *Keyring) Len() int {
	return len(k.keys)
}

// Index reports the cursor position.
func (k *Keyring) Index() int {
	return k.cursor
}

func splitBuiltins() []string {
	if builtinKeys == "" {
		return nil
	}
	return strings.Split(builtinKeys, ",")
}
