package main

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// parseHex decodes bytes written as hex pairs, optionally separated by
// spaces, commas or colons.
func parseHex(s string) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', ',', ':':
			return -1
		}
		return r
	}, s)
	data, err := hex.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("parse -send %q: %w", s, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("parse -send %q: no bytes", s)
	}
	return data, nil
}
