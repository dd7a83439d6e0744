package uuid

import gonanoid "github.com/matoous/go-nanoid"

// Generator random ID source, used for playback session handles
type Generator interface {
	Generate() (string, error)
}

// NanoIDGenerator Generator implementation on NanoID.
//
// Session handles appear in URLs and socket paths, so the URL-safe
// NanoID alphabet is used as is.
type NanoIDGenerator struct {
	Length int
}

var _ Generator = &NanoIDGenerator{}

// NewNanoIDGenerator create a generator producing IDs of the given length
func NewNanoIDGenerator(length int) *NanoIDGenerator {
	if length < 1 {
		panic("length must be larger than 1")
	}
	return &NanoIDGenerator{Length: length}
}

// Generate a fresh random ID
func (ns *NanoIDGenerator) Generate() (string, error) {
	id, err := gonanoid.Nanoid(ns.Length)
	if err != nil {
		return "", err
	}
	return id, nil
}
