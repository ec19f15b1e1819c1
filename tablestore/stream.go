/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package tablestore

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/entityrepo/errors"
	"github.com/suparena/entityrepo/query"
)

// StreamResult is one streamed entity, or the error that ended the stream.
type StreamResult[T any] struct {
	Item  T
	Error error
	Meta  StreamMeta
}

// StreamMeta describes where a streamed item came from.
type StreamMeta struct {
	Index      int64     // item index in stream (0-based)
	PageNumber int       // scan page number (1-based)
	Timestamp  time.Time // item write time
}

// StreamProgress is reported after every scan page.
type StreamProgress struct {
	ItemsProcessed int64
	PagesProcessed int
	StartTime      time.Time
	CurrentRate    float64 // items per second
}

// StreamOptions configures Stream
type StreamOptions struct {
	BufferSize      int   // channel buffer size (default: 100)
	PageSize        int32 // items per scan page (default: 100)
	ProgressHandler func(StreamProgress)
}

// StreamOption is a functional option for configuring streaming
type StreamOption func(*StreamOptions)

// DefaultStreamOptions returns default streaming options
func DefaultStreamOptions() StreamOptions {
	return StreamOptions{
		BufferSize: 100,
		PageSize:   100,
	}
}

// WithBufferSize sets the channel buffer size
func WithBufferSize(size int) StreamOption {
	return func(opts *StreamOptions) {
		opts.BufferSize = size
	}
}

// WithPageSize sets the scan page size
func WithPageSize(size int32) StreamOption {
	return func(opts *StreamOptions) {
		opts.PageSize = size
	}
}

// WithProgressHandler sets a progress callback
func WithProgressHandler(handler func(StreamProgress)) StreamOption {
	return func(opts *StreamOptions) {
		opts.ProgressHandler = handler
	}
}

// Stream scans every item of T matching filter and sends it on the returned
// channel in table order, without materializing the whole table. The channel
// is closed when the scan ends. A failure is sent as a final result carrying
// Error; a cancelled ctx stops the stream silently.
func (r *Repository[T]) Stream(ctx context.Context, filter *query.Filter[T], opts ...StreamOption) <-chan StreamResult[T] {
	options := DefaultStreamOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.BufferSize < 0 {
		options.BufferSize = 0
	}

	resultCh := make(chan StreamResult[T], options.BufferSize)
	go r.streamWorker(ctx, filter, options, resultCh)
	return resultCh
}

func (r *Repository[T]) streamWorker(ctx context.Context, filter *query.Filter[T], options StreamOptions, resultCh chan<- StreamResult[T]) {
	defer close(resultCh)

	var (
		index      int64
		pageNumber int
		startTime  = time.Now()
	)
	send := func(res StreamResult[T]) bool {
		select {
		case resultCh <- res:
			return true
		case <-ctx.Done():
			return false
		}
	}
	fail := func(err error) {
		send(StreamResult[T]{Error: err, Meta: StreamMeta{Index: index, PageNumber: pageNumber}})
	}

	input := r.scanInput(types.SelectAllAttributes)
	if options.PageSize > 0 {
		input.Limit = aws.Int32(options.PageSize)
	}
	paginator := sdk.NewScanPaginator(r.api, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			if ctx.Err() != nil || isResourceNotFound(err) {
				return
			}
			fail(r.translate("stream", "", err))
			return
		}
		pageNumber++

		for _, item := range page.Items {
			rec, err := r.decode(item)
			if err != nil {
				fail(errors.NewRepositoryError("stream", r.typeName, "", err))
				return
			}
			ok, err := filter.Matches(rec.entity)
			if err != nil {
				fail(err)
				return
			}
			if !ok {
				continue
			}
			if !send(StreamResult[T]{Item: rec.entity, Meta: StreamMeta{Index: index, PageNumber: pageNumber, Timestamp: rec.timestamp}}) {
				return
			}
			index++
		}

		if options.ProgressHandler != nil {
			progress := StreamProgress{ItemsProcessed: index, PagesProcessed: pageNumber, StartTime: startTime}
			if elapsed := time.Since(startTime).Seconds(); elapsed > 0 {
				progress.CurrentRate = float64(index) / elapsed
			}
			options.ProgressHandler(progress)
		}
	}
	r.log.Debug("stream finished", "items", index, "pages", pageNumber)
}
