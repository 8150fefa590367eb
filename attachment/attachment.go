// SPDX-License-Identifier: GPL-3.0-or-later
package attachment

import (
	"encoding/base64"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/CrawX/go-pop-harvest/contentkey"
	"github.com/CrawX/go-pop-harvest/domain"
	"github.com/CrawX/go-pop-harvest/log"

	"github.com/sirupsen/logrus"
)

// The extractor scans the body with regular expressions instead of parsing
// MIME. Only base64 parts with an attachment disposition are recognized.
var (
	spreadsheetMarker = regexp.MustCompile(`(?i)Content-Disposition:\s*attachment;\s*filename="[^"]+\.(xlsx|xls|csv)"`)
	dispositionMarker = regexp.MustCompile(`(?i)Content-Disposition:\s*attachment;\s*filename="([^"]+)"`)
	base64Encoding    = regexp.MustCompile(`(?i)Content-Transfer-Encoding:\s*base64`)
	blankLine         = regexp.MustCompile(`\r?\n\r?\n`)
)

var allowedExtensions = map[string]struct{}{
	"xlsx": {},
	"xls":  {},
	"csv":  {},
}

// HasSpreadsheet reports whether the body carries at least one attachment
// marker with an allowed extension.
func HasSpreadsheet(raw []byte) bool {
	return spreadsheetMarker.Match(raw)
}

func Extension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

func Allowed(extension string) bool {
	_, ok := allowedExtensions[strings.ToLower(extension)]
	return ok
}

func MimeType(extension string) string {
	switch strings.ToLower(extension) {
	case "xlsx", "xls":
		return "application/vnd.ms-excel"
	default:
		return "application/octet-stream"
	}
}

// Decode ignores line breaks and other whitespace and tolerates missing
// padding.
func Decode(encoded string) ([]byte, error) {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, encoded)

	content, err := base64.StdEncoding.DecodeString(compact)
	if err == nil {
		return content, nil
	}

	content, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(compact, "="))
	if rawErr != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}

	return content, nil
}

// EncodingVariants are the base64 renderings of content a mail client
// commonly produces: unwrapped and wrapped at 76 columns.
func EncodingVariants(content []byte) []string {
	encoded := base64.StdEncoding.EncodeToString(content)
	lines := []string{}
	rest := encoded
	for len(rest) > 76 {
		lines = append(lines, rest[:76])
		rest = rest[76:]
	}
	lines = append(lines, rest)

	wrapped := strings.Join(lines, "\r\n")
	if wrapped == encoded {
		return []string{encoded}
	}
	return []string{encoded, wrapped}
}

type RegexExtractor struct {
	l *logrus.Logger
}

func NewRegexExtractor() *RegexExtractor {
	return &RegexExtractor{l: log.Logger(log.LOG_HARVESTER)}
}

// Extract returns the accepted attachments in the order they appear. A
// payload occurring twice in the same message is returned once.
func (e *RegexExtractor) Extract(raw []byte) []*domain.Attachment {
	body := string(raw)
	attachments := []*domain.Attachment{}
	seen := map[string]struct{}{}

	for _, match := range dispositionMarker.FindAllStringSubmatchIndex(body, -1) {
		filename := body[match[2]:match[3]]
		logger := e.l.WithFields(logrus.Fields{"filename": filename})

		extension := Extension(filename)
		if !Allowed(extension) {
			logger.Debug("Skipping attachment with rejected extension")
			continue
		}

		encoded, ok := locate(body, match[0], filename)
		if !ok {
			logger.Debug("No base64 payload found for attachment")
			continue
		}

		content, err := Decode(encoded)
		if err != nil {
			logger.WithFields(logrus.Fields{"error": err}).Warn("Could not decode attachment")
			continue
		}

		hash := contentkey.OfString(encoded).String()
		if _, ok := seen[hash]; ok {
			continue
		}
		seen[hash] = struct{}{}

		attachments = append(attachments, &domain.Attachment{
			ContentHash:      hash,
			OriginalFilename: filename,
			Extension:        extension,
			MimeType:         MimeType(extension),
			Content:          content,
			SizeBytes:        len(content),
		})
	}

	return attachments
}

// Locate returns every trimmed base64 payload that belongs to an attachment
// named filename.
func Locate(raw []byte, filename string) []string {
	body := string(raw)
	candidates := []string{}
	seen := map[string]struct{}{}

	for _, match := range dispositionMarker.FindAllStringSubmatchIndex(body, -1) {
		if body[match[2]:match[3]] != filename {
			continue
		}
		encoded, ok := locate(body, match[0], filename)
		if !ok {
			continue
		}
		if _, ok := seen[encoded]; !ok {
			seen[encoded] = struct{}{}
			candidates = append(candidates, encoded)
		}
	}

	return candidates
}

// locate tries the part carrying the disposition header first and falls back
// to a part whose content type names the file.
func locate(body string, pos int, filename string) (string, bool) {
	if encoded, ok := payloadAt(body, pos); ok {
		return encoded, true
	}

	named := regexp.MustCompile(`(?i)Content-Type:\s*application/[\w.+-]+;\s*name="` + regexp.QuoteMeta(filename) + `"`)
	for _, loc := range named.FindAllStringIndex(body, -1) {
		if encoded, ok := payloadAt(body, loc[0]); ok {
			return encoded, true
		}
	}

	return "", false
}

// payloadAt extracts the base64 body of the MIME part whose header contains
// pos. The payload ends at the next boundary line.
func payloadAt(body string, pos int) (string, bool) {
	start := strings.LastIndex(body[:pos], "\n--")
	if start < 0 {
		start = 0
	}

	loc := blankLine.FindStringIndex(body[pos:])
	if loc == nil {
		return "", false
	}
	headerEnd, bodyStart := pos+loc[0], pos+loc[1]

	if strings.Contains(body[pos:headerEnd], "\n--") {
		return "", false
	}

	if !base64Encoding.MatchString(body[start:headerEnd]) {
		return "", false
	}

	rest := body[bodyStart:]
	end := strings.Index(rest, "\n--")
	if end < 0 {
		return "", false
	}

	encoded := strings.TrimSpace(rest[:end])
	if len(encoded) == 0 {
		return "", false
	}

	return encoded, true
}

// MarkDuplicates flags attachments whose hash is already in hashes and adds
// every hash to it.
func MarkDuplicates(hashes map[string]struct{}, attachments []*domain.Attachment) {
	for _, a := range attachments {
		_, a.IsDuplicate = hashes[a.ContentHash]
		hashes[a.ContentHash] = struct{}{}
	}
}
