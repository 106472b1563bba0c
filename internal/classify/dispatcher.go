// Package classify turns extracted documents into structured verdicts
// by way of an external judgment model, preferring the cheaper batch
// endpoint and falling back to one-at-a-time calls when a batch stalls.
package classify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"go.uber.org/zap"

	"github.com/hsugimura/eizocrawl/internal/classify/anthropic"
	"github.com/hsugimura/eizocrawl/internal/config"
	"github.com/hsugimura/eizocrawl/internal/extract"
	"github.com/hsugimura/eizocrawl/internal/metrics"
)

// Item is one document queued for judgment.
type Item struct {
	Doc        *extract.Document
	Prefecture string
}

// Judgment pairs an item with the verdict the model returned for it.
type Judgment struct {
	Item
	Verdict Verdict
}

// api is the slice of the service client the dispatcher uses.
type api interface {
	CreateMessage(ctx context.Context, req anthropic.MessageRequest) (anthropic.MessageResponse, error)
	CreateBatch(ctx context.Context, items []anthropic.BatchRequestItem) (anthropic.Batch, error)
	GetBatch(ctx context.Context, id string) (anthropic.Batch, error)
	ListBatches(ctx context.Context, limit int) ([]anthropic.Batch, error)
	BatchResults(ctx context.Context, id string) ([]anthropic.BatchResult, error)
}

// Dispatcher drives the batch-then-sync classification state machine.
type Dispatcher struct {
	client api
	cfg    config.ClassifyConfig
	logger *zap.Logger
}

// NewDispatcher builds a Dispatcher around a service client.
func NewDispatcher(client api, cfg config.ClassifyConfig, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{client: client, cfg: cfg, logger: logger}
}

// Classify judges every item and returns one Judgment per item that
// produced a parseable verdict. Items whose judgment fails are logged
// and skipped rather than failing the run.
func (d *Dispatcher) Classify(ctx context.Context, items []Item) []Judgment {
	if len(items) == 0 {
		return nil
	}

	judged := make(map[string]Judgment, len(items))
	byID := make(map[string]Item, len(items))
	for _, it := range items {
		byID[customID(it.Doc.URL)] = it
	}

	dropped := make(map[string]struct{})
	if d.cfg.Mode == "batch" {
		d.classifyBatch(ctx, byID, judged, dropped)
	}

	// Anything the batch path did not settle goes through one-shot
	// calls. In sync mode this is every item. Items whose batch
	// response came back broken stay dropped; the fallback exists for
	// the timeout case, not for bad responses.
	for id, it := range byID {
		if _, ok := judged[id]; ok {
			continue
		}
		if _, ok := dropped[id]; ok {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		v, err := d.classifyOne(ctx, it)
		if err != nil {
			d.logger.Warn("sync classification failed",
				zap.String("url", it.Doc.URL), zap.Error(err))
			continue
		}
		judged[id] = Judgment{Item: it, Verdict: v}
		metrics.ObserveVerdict(string(v.Label), "sync")
		if delay := d.cfg.SyncDelay(); delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
			}
		}
	}

	out := make([]Judgment, 0, len(judged))
	for _, j := range judged {
		out = append(out, j)
	}
	return out
}

// classifyBatch submits (or adopts) a batch, polls it to completion
// within the configured wait, and folds any results into judged. Items
// whose result arrived but was unusable go into dropped so the caller
// does not retry them synchronously.
func (d *Dispatcher) classifyBatch(ctx context.Context, byID map[string]Item, judged map[string]Judgment, dropped map[string]struct{}) {
	batch, err := d.openBatch(ctx, byID)
	if err != nil {
		d.logger.Warn("batch submission failed, falling back to sync calls", zap.Error(err))
		return
	}

	deadline := time.Now().Add(d.cfg.BatchWait())
	for !batch.Ended() {
		if time.Now().After(deadline) {
			d.logger.Warn("batch did not finish in time, falling back to sync calls",
				zap.String("batch_id", batch.ID),
				zap.Int("processing", batch.RequestCounts.Processing))
			return
		}
		select {
		case <-time.After(d.cfg.PollInterval()):
		case <-ctx.Done():
			return
		}

		batch, err = d.client.GetBatch(ctx, batch.ID)
		if err != nil {
			d.logger.Warn("batch poll failed", zap.Error(err))
			return
		}
		d.logger.Info("batch progress",
			zap.String("batch_id", batch.ID),
			zap.String("status", batch.ProcessingStatus),
			zap.Int("succeeded", batch.RequestCounts.Succeeded),
			zap.Int("errored", batch.RequestCounts.Errored),
			zap.Int("processing", batch.RequestCounts.Processing))
	}

	results, err := d.client.BatchResults(ctx, batch.ID)
	if err != nil {
		d.logger.Warn("batch results fetch failed", zap.Error(err))
		return
	}
	for _, res := range results {
		it, ours := byID[res.CustomID]
		if !ours {
			continue
		}
		if !res.Succeeded() {
			d.logger.Warn("batch item failed",
				zap.String("url", it.Doc.URL), zap.String("result", res.Result.Type))
			dropped[res.CustomID] = struct{}{}
			continue
		}
		v, err := ParseVerdict(res.Result.Message.Text())
		if err != nil {
			d.logger.Warn("unparseable batch verdict",
				zap.String("url", it.Doc.URL), zap.Error(err))
			dropped[res.CustomID] = struct{}{}
			continue
		}
		judged[res.CustomID] = Judgment{Item: it, Verdict: v}
		metrics.ObserveVerdict(string(v.Label), "batch")
	}
}

// openBatch resumes a recent unfinished batch when one exists, so an
// interrupted run does not pay for the same documents twice. Otherwise
// it submits a fresh batch for every item.
func (d *Dispatcher) openBatch(ctx context.Context, byID map[string]Item) (anthropic.Batch, error) {
	if window := d.cfg.ResumeWindow(); window > 0 {
		recent, err := d.client.ListBatches(ctx, 10)
		if err != nil {
			d.logger.Warn("batch listing failed, submitting fresh batch", zap.Error(err))
		} else {
			cutoff := time.Now().Add(-window)
			for _, b := range recent {
				if !b.Ended() && b.CreatedAt.After(cutoff) {
					d.logger.Info("resuming unfinished batch",
						zap.String("batch_id", b.ID), zap.Time("created_at", b.CreatedAt))
					return b, nil
				}
			}
		}
	}

	reqs := make([]anthropic.BatchRequestItem, 0, len(byID))
	for id, it := range byID {
		reqs = append(reqs, anthropic.BatchRequestItem{
			CustomID: id,
			Params:   d.request(it),
		})
	}
	batch, err := d.client.CreateBatch(ctx, reqs)
	if err != nil {
		return anthropic.Batch{}, err
	}
	d.logger.Info("batch submitted",
		zap.String("batch_id", batch.ID), zap.Int("items", len(reqs)))
	return batch, nil
}

func (d *Dispatcher) classifyOne(ctx context.Context, it Item) (Verdict, error) {
	resp, err := d.client.CreateMessage(ctx, d.request(it))
	if err != nil {
		return Verdict{}, err
	}
	return ParseVerdict(resp.Text())
}

func (d *Dispatcher) request(it Item) anthropic.MessageRequest {
	return anthropic.MessageRequest{
		Model:     d.cfg.Model,
		MaxTokens: d.cfg.MaxTokens,
		Messages: []anthropic.Message{
			{Role: "user", Content: BuildPrompt(it.Doc, it.Prefecture, d.cfg.PromptMaxRunes)},
		},
	}
}

// customID derives a stable batch item ID from the document URL, so a
// resumed batch's results can be matched back to this run's documents.
func customID(url string) string {
	sum := sha256.Sum256([]byte(url))
	return "doc-" + hex.EncodeToString(sum[:])[:32]
}
