package mail

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var addressPattern = regexp.MustCompile(`^([^@]+)@([^@]+\.[^@]+)$`)

// MaskAddress validates addr and redacts it for logging: only the first
// character of the local part and the last label of the domain survive.
//
//	test@example.com   -> t***@***.com
//	test@example.co.uk -> t***@***.uk
func MaskAddress(addr string) (string, error) {
	m := addressPattern.FindStringSubmatch(addr)
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}
	local, domain := m[1], m[2]
	tld := domain[strings.LastIndex(domain, ".")+1:]
	_, n := utf8.DecodeRuneInString(local)
	return local[:n] + "***@***." + tld, nil
}
