// SPDX-License-Identifier: GPL-3.0-or-later
package mail

import "strings"

type Whitelist struct {
	senders   map[string]struct{}
	receivers map[string]struct{}
}

func NewWhitelist(senders []string, receivers []string) *Whitelist {
	return &Whitelist{
		senders:   lowerSet(senders),
		receivers: lowerSet(receivers),
	}
}

// Allows requires both a whitelisted sender and at least one whitelisted
// receiver.
func (w *Whitelist) Allows(header string) bool {
	sender, ok := Sender(header)
	if !ok {
		return false
	}

	if _, ok := w.senders[strings.ToLower(sender)]; !ok {
		return false
	}

	for _, receiver := range Receivers(header) {
		if _, ok := w.receivers[strings.ToLower(receiver)]; ok {
			return true
		}
	}

	return false
}

func lowerSet(addresses []string) map[string]struct{} {
	set := make(map[string]struct{}, len(addresses))
	for _, address := range addresses {
		set[strings.ToLower(strings.TrimSpace(address))] = struct{}{}
	}
	return set
}
