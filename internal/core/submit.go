package core

// submit.go sends validated products to the marketplace.
//
// Small uploads go out as one request bounded by SingleTimeout. Uploads with
// more than BatchThreshold products are split into BatchSize chunks sent one
// after another. A batch that fails marks only its own products as failed;
// the remaining batches still run. Once batching has started it no longer
// follows cancellation of the caller's context.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/JonMunkholm/bulkimport/internal/logging"
)

// BulkCreator creates products on the marketplace in one request.
type BulkCreator interface {
	BulkCreateProducts(ctx context.Context, products []Product) (*BatchResponse, error)
}

// SubmitConfig controls how products are split across requests.
type SubmitConfig struct {
	BatchThreshold   int
	BatchSize        int
	SingleTimeout    time.Duration
	BatchTimeout     time.Duration
	BatchesPerMinute int
}

// DefaultSubmitConfig returns the stock thresholds.
func DefaultSubmitConfig() SubmitConfig {
	return SubmitConfig{
		BatchThreshold: 100,
		BatchSize:      50,
		SingleTimeout:  5 * time.Minute,
		BatchTimeout:   2 * time.Minute,
	}
}

// Submitter sends products through a BulkCreator.
type Submitter struct {
	client BulkCreator
	cfg    SubmitConfig
	pacer  *rate.Limiter
}

// NewSubmitter creates a submitter. Zero config values fall back to the
// defaults.
func NewSubmitter(client BulkCreator, cfg SubmitConfig) *Submitter {
	def := DefaultSubmitConfig()
	if cfg.BatchThreshold <= 0 {
		cfg.BatchThreshold = def.BatchThreshold
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.SingleTimeout <= 0 {
		cfg.SingleTimeout = def.SingleTimeout
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = def.BatchTimeout
	}

	s := &Submitter{client: client, cfg: cfg}
	if cfg.BatchesPerMinute > 0 {
		s.pacer = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.BatchesPerMinute)), 1)
	}
	return s
}

// Submit uploads products and returns the combined result.
//
// It returns ErrNoValidProducts without contacting the marketplace when
// products is empty. For a single request, a transport failure is returned
// as an error alongside a result that lists every product as failed.
// Batch failures are reported only through the result.
func (s *Submitter) Submit(ctx context.Context, products []Product) (*UploadResult, error) {
	return s.submit(ctx, products, nil)
}

// batchCount returns how many requests n products are sent in.
func (s *Submitter) batchCount(n int) int {
	if n <= s.cfg.BatchThreshold {
		return 1
	}
	return (n + s.cfg.BatchSize - 1) / s.cfg.BatchSize
}

// submit is Submit with a callback run after each request with the number
// of requests completed so far.
func (s *Submitter) submit(ctx context.Context, products []Product, onRequest func(done int)) (*UploadResult, error) {
	if len(products) == 0 {
		return nil, ErrNoValidProducts
	}

	start := time.Now()
	var (
		result *UploadResult
		err    error
	)
	if len(products) > s.cfg.BatchThreshold {
		result = s.submitBatched(ctx, products, onRequest)
	} else {
		result, err = s.submitSingle(ctx, products)
		if onRequest != nil {
			onRequest(1)
		}
	}
	result.DurationMs = time.Since(start).Milliseconds()

	logging.FromContext(ctx).Info("products submitted",
		"total", result.Total,
		"uploaded", result.Uploaded,
		"failed", result.FailedCount(),
		"batched", result.Batched,
		"duration_ms", result.DurationMs,
	)
	return result, err
}

func (s *Submitter) submitSingle(ctx context.Context, products []Product) (*UploadResult, error) {
	reqCtx, cancel := context.WithTimeout(ctx, s.cfg.SingleTimeout)
	defer cancel()

	resp, err := s.client.BulkCreateProducts(reqCtx, products)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("%w after %s: %w", ErrUploadTimeout, s.cfg.SingleTimeout, err)
		}
		return failAll(products, err.Error()), err
	}

	return fromResponse(products, resp), nil
}

func (s *Submitter) submitBatched(ctx context.Context, products []Product, onRequest func(done int)) *UploadResult {
	// Batches run to completion regardless of the caller.
	base := context.WithoutCancel(ctx)
	logger := logging.FromContext(ctx)

	result := &UploadResult{Batched: true, Successful: []json.RawMessage{}, Failed: []FailedProduct{}}
	total := s.batchCount(len(products))

	for i := 0; i < total; i++ {
		lo := i * s.cfg.BatchSize
		hi := min(lo+s.cfg.BatchSize, len(products))
		batch := products[lo:hi]
		index := i + 1

		if s.pacer != nil {
			if err := s.pacer.Wait(base); err != nil {
				logger.Warn("batch pacing interrupted", "batch", index, "error", err)
			}
		}

		part, err := s.sendBatch(base, batch)
		outcome := BatchOutcome{
			Index:     index,
			Size:      len(batch),
			Succeeded: part.Uploaded,
			Failed:    part.FailedCount(),
		}
		if err != nil {
			outcome.Error = err.Error()
			logger.Warn("batch failed", "batch", index, "of", total, "size", len(batch), "error", err)
		} else {
			logger.Debug("batch uploaded", "batch", index, "of", total, "uploaded", part.Uploaded)
		}

		part.Batches = []BatchOutcome{outcome}
		result.Merge(part)
		if onRequest != nil {
			onRequest(index)
		}
	}

	return result
}

func (s *Submitter) sendBatch(ctx context.Context, batch []Product) (*UploadResult, error) {
	reqCtx, cancel := context.WithTimeout(ctx, s.cfg.BatchTimeout)
	defer cancel()

	resp, err := s.client.BulkCreateProducts(reqCtx, batch)
	if err != nil {
		return failAll(batch, err.Error()), err
	}
	return fromResponse(batch, resp), nil
}

// fromResponse converts a marketplace response into a result. Failed
// entries without a row index are matched back to the request by name.
func fromResponse(products []Product, resp *BatchResponse) *UploadResult {
	if resp == nil {
		resp = &BatchResponse{}
	}
	r := &UploadResult{
		Total:      len(products),
		Uploaded:   resp.created(),
		Successful: resp.Successful,
		Failed:     make([]FailedProduct, 0, len(resp.Failed)),
	}
	if r.Successful == nil {
		r.Successful = []json.RawMessage{}
	}

	rowByName := make(map[string]int, len(products))
	for _, p := range products {
		if _, seen := rowByName[p.Name]; !seen {
			rowByName[p.Name] = p.RowIndex
		}
	}
	for _, f := range resp.Failed {
		if f.RowIndex == 0 {
			f.RowIndex = rowByName[f.Name]
		}
		r.Failed = append(r.Failed, f)
	}
	return r
}

// failAll marks every product as failed with the same message.
func failAll(products []Product, msg string) *UploadResult {
	r := &UploadResult{
		Total:      len(products),
		Successful: []json.RawMessage{},
		Failed:     make([]FailedProduct, 0, len(products)),
	}
	for _, p := range products {
		r.Failed = append(r.Failed, FailedProduct{
			Name:     p.Name,
			RowIndex: p.RowIndex,
			Errors:   []string{msg},
		})
	}
	return r
}
