// SPDX-License-Identifier: GPL-3.0-or-later
package pop3

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/CrawX/go-pop-harvest/domain"
)

var listLine = regexp.MustCompile(`^(\d+) (\d+)$`)

func parseListLine(line string) (domain.ListEntry, bool) {
	matches := listLine.FindStringSubmatch(strings.TrimSpace(line))
	if matches == nil {
		return domain.ListEntry{}, false
	}

	number, err := strconv.Atoi(matches[1])
	if err != nil {
		return domain.ListEntry{}, false
	}
	size, err := strconv.Atoi(matches[2])
	if err != nil {
		return domain.ListEntry{}, false
	}

	return domain.ListEntry{Number: number, Size: size}, true
}
