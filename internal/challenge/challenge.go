// Package challenge issues and stores the short-lived codes that gate
// experience deletion.
//
// A challenge is keyed by (experience ID, email). Issuing a new code for the
// same key replaces the previous one; a code lives until it is consumed,
// replaced, or its TTL elapses.
package challenge

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

// ErrNotFound is returned when no live challenge exists for a key.
var ErrNotFound = errors.New("challenge not found")

// Key identifies a challenge.
type Key struct {
	ExperienceID string
	Email        string
}

// NewKey normalises the email part so lookups are case-insensitive.
func NewKey(experienceID, email string) Key {
	return Key{ExperienceID: experienceID, Email: strings.ToLower(strings.TrimSpace(email))}
}

func (k Key) String() string {
	return "delete-code:" + k.ExperienceID + ":" + k.Email
}

// Store persists challenges with an expiry.
type Store interface {
	// Put stores code under key, replacing any existing code.
	Put(ctx context.Context, key Key, code string) error
	// Get returns the live code for key or ErrNotFound.
	Get(ctx context.Context, key Key) (string, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key Key) error
}

const (
	digits  = "0123456789"
	letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// NewCode returns a 7-character code: four digits followed by three
// uppercase alphanumerics, drawn from crypto/rand.
func NewCode() (string, error) {
	var b strings.Builder
	b.Grow(7)
	for i := 0; i < 4; i++ {
		c, err := pick(digits)
		if err != nil {
			return "", err
		}
		b.WriteByte(c)
	}
	for i := 0; i < 3; i++ {
		c, err := pick(letters)
		if err != nil {
			return "", err
		}
		b.WriteByte(c)
	}
	return b.String(), nil
}

func pick(alphabet string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
	if err != nil {
		return 0, err
	}
	return alphabet[n.Int64()], nil
}
