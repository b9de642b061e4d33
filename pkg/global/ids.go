package global

import (
	nanoid "github.com/jaevor/go-nanoid"
)

const referenceAlphabet = "0123456789ABCDEFGHJKLMNPQRSTUVWXYZ"

var (
	referenceID = mustGenerator(nanoid.CustomASCII(referenceAlphabet, 6))
	secretToken = mustGenerator(nanoid.Standard(32))
)

func mustGenerator(gen func() string, err error) func() string {
	if err != nil {
		panic(err)
	}
	return gen
}

// NewReference returns a short uppercase id suitable for humans to read out.
func NewReference() string {
	return referenceID()
}

// NewSecretToken returns a URL-safe random token for single-use links.
func NewSecretToken() string {
	return secretToken()
}
