// Package whitelist decides which senders are processed and under which brand.
package whitelist

import "strings"

// Resolver maps a lower-cased sender address to a brand name
type Resolver interface {
	Resolve(sender string) (brand string, ok bool)
}

// Static is an exact-match resolver over a fixed sender → brand map
type Static map[string]string

// NewStatic copies senders, lower-casing and trimming each address
func NewStatic(senders map[string]string) Static {
	s := make(Static, len(senders))
	for sender, brand := range senders {
		s[strings.ToLower(strings.TrimSpace(sender))] = brand
	}
	return s
}

func (s Static) Resolve(sender string) (string, bool) {
	if sender == "" {
		return "", false
	}
	brand, ok := s[sender]
	return brand, ok
}
