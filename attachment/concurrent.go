// SPDX-License-Identifier: GPL-3.0-or-later
package attachment

import "github.com/CrawX/go-pop-harvest/domain"

type GoRoutineExtractor struct {
	domain.AttachmentExtractor
}

// ExtractAll runs Extract for every body with at most concurrency bodies in
// flight. Results keep the order of bodies.
func (gre *GoRoutineExtractor) ExtractAll(bodies [][]byte, concurrency int) [][]*domain.Attachment {
	if concurrency < 1 {
		concurrency = 1
	}

	semaphore := make(chan bool, concurrency)
	results := make([][]*domain.Attachment, len(bodies))
	for i := 0; i < len(bodies); i++ {
		semaphore <- true
		go func(index int) {
			results[index] = gre.Extract(bodies[index])
			<-semaphore
		}(i)
	}

	for i := 0; i < concurrency; i++ {
		semaphore <- true
	}

	return results
}
