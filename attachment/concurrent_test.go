// SPDX-License-Identifier: GPL-3.0-or-later
package attachment

import (
	"sync"
	"testing"
	"time"

	"github.com/CrawX/go-pop-harvest/domain"
	"github.com/CrawX/go-pop-harvest/domain/mocks"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
)

func Test_ExtractAllConcurrent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	extractor := mocks.NewMockAttachmentExtractor(ctrl)

	body1, body2, body3 := []byte{0}, []byte{1}, []byte{2}
	result1 := []*domain.Attachment{{ContentHash: "1"}}
	result3 := []*domain.Attachment{{ContentHash: "3a"}, {ContentHash: "3b"}}

	wg := &sync.WaitGroup{}
	wg.Add(3)

	// All bodies must be in flight at the same time to pass the wait group
	extractor.EXPECT().Extract(gomock.Eq(body1)).DoAndReturn(func(_ []byte) []*domain.Attachment {
		wg.Done()
		wg.Wait()
		return result1
	})
	extractor.EXPECT().Extract(gomock.Eq(body2)).DoAndReturn(func(_ []byte) []*domain.Attachment {
		wg.Done()
		wg.Wait()
		return []*domain.Attachment{}
	})
	extractor.EXPECT().Extract(gomock.Eq(body3)).DoAndReturn(func(_ []byte) []*domain.Attachment {
		wg.Done()
		wg.Wait()
		return result3
	})

	goRoutineExtractor := GoRoutineExtractor{extractor}

	resultsChan := make(chan [][]*domain.Attachment)
	go func() {
		resultsChan <- goRoutineExtractor.ExtractAll([][]byte{body1, body2, body3}, 3)
	}()

	timeoutChan := time.After(time.Second)
	select {
	case results := <-resultsChan:
		assert.Len(t, results, 3)
		assert.Equal(t, result1, results[0])
		assert.Empty(t, results[1])
		assert.Equal(t, result3, results[2])
	case <-timeoutChan:
		t.Error("extraction did not run concurrently")
	}
}

func Test_ExtractAllSequential(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	extractor := mocks.NewMockAttachmentExtractor(ctrl)
	extractor.EXPECT().Extract(gomock.Any()).Return([]*domain.Attachment{}).Times(2)

	results := (&GoRoutineExtractor{extractor}).ExtractAll([][]byte{{0}, {1}}, 0)
	assert.Len(t, results, 2)
}
