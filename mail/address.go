// SPDX-License-Identifier: GPL-3.0-or-later
package mail

import (
	stdmail "net/mail"
	"strings"

	"github.com/customeros/mailsherpa/mailvalidate"
)

// ParseAddress returns the bare address of value, which may be wrapped in
// angle brackets or carry a display name.
func ParseAddress(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if len(value) == 0 {
		return "", false
	}

	parsed, err := stdmail.ParseAddress(value)
	if err != nil {
		return "", false
	}

	if !mailvalidate.ValidateEmailSyntax(parsed.Address).IsValid {
		return "", false
	}

	return parsed.Address, true
}

// Sender is the first From or Return-Path value holding a valid address.
func Sender(header string) (string, bool) {
	for _, f := range parseFields(header) {
		if !strings.EqualFold(f.name, from) && !strings.EqualFold(f.name, returnPath) {
			continue
		}
		if address, ok := ParseAddress(f.value); ok {
			return address, true
		}
	}

	return "", false
}

// Receivers collects every valid address of every To field.
func Receivers(header string) []string {
	receivers := []string{}
	for _, value := range values(parseFields(header), to) {
		receivers = append(receivers, splitAddresses(value)...)
	}
	return receivers
}

func splitAddresses(value string) []string {
	addresses := []string{}
	for _, token := range strings.Split(value, ",") {
		if address, ok := ParseAddress(token); ok {
			addresses = append(addresses, address)
		}
	}
	return addresses
}

func appendUnique(list []string, seen map[string]struct{}, addresses ...string) []string {
	for _, address := range addresses {
		key := strings.ToLower(address)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		list = append(list, address)
	}
	return list
}
