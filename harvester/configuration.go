// SPDX-License-Identifier: GPL-3.0-or-later
package harvester

import (
	"fmt"

	"github.com/CrawX/go-pop-harvest/domain"
	"github.com/CrawX/go-pop-harvest/mail"
)

type ConfigFunc func(c *configuration) error

func DryRun() ConfigFunc {
	return func(c *configuration) error {
		c.DryRun = true

		return nil
	}
}

func Whitelist(senders []string, receivers []string) ConfigFunc {
	return func(c *configuration) error {
		if len(senders) == 0 || len(receivers) == 0 {
			return fmt.Errorf("Whitelist needs at least one sender and one receiver")
		}

		c.Whitelist = mail.NewWhitelist(senders, receivers)
		return nil
	}
}

func HeadersToFilter(headers []string) ConfigFunc {
	return func(c *configuration) error {
		if len(headers) == 0 {
			return fmt.Errorf("HeadersToFilter cannot be empty")
		}

		c.HeadersToFilter = headers
		return nil
	}
}

func Concurrency(concurrency int) ConfigFunc {
	return func(c *configuration) error {
		if concurrency < 1 {
			return fmt.Errorf("Concurrency must be at least 1")
		}

		c.Concurrency = concurrency
		return nil
	}
}

func Extractor(extractor domain.AttachmentExtractor) ConfigFunc {
	return func(c *configuration) error {
		if extractor == nil {
			return fmt.Errorf("Extractor cannot be nil")
		}

		c.Extractor = extractor
		return nil
	}
}

type configuration struct {
	DryRun bool

	Whitelist       *mail.Whitelist
	HeadersToFilter []string

	Concurrency int
	Extractor   domain.AttachmentExtractor
}
