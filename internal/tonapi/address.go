package tonapi

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xssnick/tonutils-go/address"
)

// BurnAddress is the zero account NFTs are sent to when burned.
const BurnAddress = "EQAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAM9c"

// ParseAddress accepts both raw (0:abcd...) and user-friendly base64 forms.
func ParseAddress(s string) (*address.Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty address")
	}
	var (
		addr *address.Address
		err  error
	)
	if strings.Contains(s, ":") {
		addr, err = address.ParseRawAddr(s)
	} else {
		addr, err = address.ParseAddr(s)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return addr, nil
}

// RawForm normalizes an address to its lowercase raw form, used as the
// wallet key everywhere in storage.
func RawForm(s string) (string, error) {
	addr, err := ParseAddress(s)
	if err != nil {
		return "", err
	}
	return addr.StringRaw(), nil
}

// BounceableForm returns the user-friendly bounceable form of an address.
func BounceableForm(s string) (string, error) {
	addr, err := ParseAddress(s)
	if err != nil {
		return "", err
	}
	addr.SetBounce(true)
	return addr.String(), nil
}

// SameAddress reports whether two addresses in any form point at the same account.
func SameAddress(a, b string) bool {
	left, err := ParseAddress(a)
	if err != nil {
		return false
	}
	right, err := ParseAddress(b)
	if err != nil {
		return false
	}
	return left.Workchain() == right.Workchain() && bytes.Equal(left.Data(), right.Data())
}
