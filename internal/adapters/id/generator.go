// Package id provides prefixed nanoid generation for engine-local
// identifiers.
package id

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const defaultLength = 21

const (
	prefixBanner    = "bn"
	prefixOperation = "op"
	prefixSession   = "sess"
)

func generate(prefix string) string {
	nid, err := gonanoid.New(defaultLength)
	if err != nil {
		return prefix + "_fallback"
	}
	return prefix + "_" + nid
}

func NewBanner() string    { return generate(prefixBanner) }
func NewOperation() string { return generate(prefixOperation) }
func NewSession() string   { return generate(prefixSession) }
