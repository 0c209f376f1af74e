package capture

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/crystalpeak/camcapture/internal/telemetry"
)

// OrchestratorConfig controls run-wide behavior.
type OrchestratorConfig struct {
	// BlobPrefix is prepended to storage keys (may be empty).
	BlobPrefix string
	// CacheControl is set on every uploaded object.
	CacheControl string
	// Concurrency bounds parallel camera processing. 1 processes cameras
	// sequentially in display order.
	Concurrency int
	// Topic, when set together with a publisher, receives a run summary
	// event after every run.
	Topic string
}

// Orchestrator executes one capture run: it loads active cameras, dispatches
// each to its source adapter, uploads the image, and records the snapshot.
// A failure of one camera never aborts the batch.
type Orchestrator struct {
	cameras   CameraStore
	snapshots SnapshotStore
	blobs     BlobStore
	adapters  map[SourceType]SourceAdapter
	allow     *Allowlist
	slots     *SlotTable
	clock     Clock
	publisher Publisher
	cfg       OrchestratorConfig
	logger    *zap.Logger
}

// NewOrchestrator wires the capture pipeline.
func NewOrchestrator(
	cameras CameraStore,
	snapshots SnapshotStore,
	blobs BlobStore,
	adapters map[SourceType]SourceAdapter,
	allow *Allowlist,
	slots *SlotTable,
	clock Clock,
	publisher Publisher,
	cfg OrchestratorConfig,
	logger *zap.Logger,
) *Orchestrator {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		cameras:   cameras,
		snapshots: snapshots,
		blobs:     blobs,
		adapters:  adapters,
		allow:     allow,
		slots:     slots,
		clock:     clock,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run performs one best-effort pass over all active cameras. The capture
// instant and its time slot are fixed once and shared by every camera in the
// run. Only a camera-list failure is returned as an error; everything else is
// absorbed into the summary.
func (o *Orchestrator) Run(ctx context.Context) (RunSummary, error) {
	start := time.Now()
	now := o.clock.Now().UTC()
	timeSlot := o.slots.Classify(now)

	cameras, err := o.cameras.ListActive(ctx)
	if err != nil {
		telemetry.ObserveRun("error", time.Since(start))
		return RunSummary{}, fmt.Errorf("list active cameras: %w", err)
	}
	o.logger.Info("capture run started",
		zap.Int("cameras", len(cameras)),
		zap.Time("captured_at", now),
		zap.String("time_slot", timeSlot),
	)

	var processed, successful atomic.Int64

	g := new(errgroup.Group)
	g.SetLimit(o.cfg.Concurrency)
	for _, cam := range cameras {
		cam := cam
		g.Go(func() error {
			processed.Add(1)
			if err := o.captureOne(ctx, cam, now, timeSlot); err != nil {
				reason := FailureReason(err)
				o.logger.Warn("camera capture failed",
					zap.String("camera", cam.Name),
					zap.String("source_type", string(cam.SourceType)),
					zap.String("reason", reason),
					zap.Error(err),
				)
				telemetry.ObserveCapture(cam.Slug, false, reason)
				return nil
			}
			successful.Add(1)
			telemetry.ObserveCapture(cam.Slug, true, "")
			return nil
		})
	}
	// Workers never return errors, so Wait only synchronizes.
	_ = g.Wait()

	summary := RunSummary{
		Processed:  int(processed.Load()),
		Successful: int(successful.Load()),
	}
	o.logger.Info("capture run complete",
		zap.Int("processed", summary.Processed),
		zap.Int("successful", summary.Successful),
	)
	telemetry.ObserveRun("ok", time.Since(start))
	o.publishSummary(ctx, now, timeSlot, summary)
	return summary, nil
}

func (o *Orchestrator) captureOne(ctx context.Context, cam Camera, now time.Time, timeSlot string) error {
	// Configuration is trusted input but validated anyway.
	if !o.allow.Allows(cam.SourceURL) {
		return fmt.Errorf("%w: %s", ErrDisallowedDomain, cam.SourceURL)
	}
	adapter, ok := o.adapters[cam.SourceType]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedSource, cam.SourceType)
	}

	img, err := adapter.Capture(ctx, cam)
	if err != nil {
		return err
	}

	key := o.objectKey(cam.Slug, now)
	imageURL, err := o.blobs.PutObject(ctx, key, "image/jpeg", o.cfg.CacheControl, bytes.NewReader(img))
	if err != nil {
		return fmt.Errorf("store image %s: %w", key, err)
	}
	telemetry.AddSnapshotBytes(cam.Slug, len(img))

	snap := Snapshot{
		CameraID:      cam.ID,
		ImageURL:      imageURL,
		CapturedAt:    now,
		TimeSlot:      timeSlot,
		FileSizeBytes: len(img),
	}
	if err := o.snapshots.Insert(ctx, snap); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	o.logger.Info("camera captured",
		zap.String("camera", cam.Name),
		zap.String("image_url", imageURL),
		zap.Int("bytes", len(img)),
	)
	return nil
}

var keySanitizer = strings.NewReplacer(":", "-", ".", "-")

// objectKey derives a filesystem-safe storage key from the camera slug and
// the run timestamp.
func (o *Orchestrator) objectKey(slug string, now time.Time) string {
	ts := keySanitizer.Replace(now.UTC().Format("2006-01-02T15:04:05.000Z"))
	prefix := strings.Trim(o.cfg.BlobPrefix, "/")
	if prefix == "" {
		return fmt.Sprintf("%s/%s.jpg", slug, ts)
	}
	return fmt.Sprintf("%s/%s/%s.jpg", prefix, slug, ts)
}

func (o *Orchestrator) publishSummary(ctx context.Context, now time.Time, timeSlot string, summary RunSummary) {
	if o.publisher == nil || o.cfg.Topic == "" {
		return
	}
	payload := map[string]any{
		"captured_at": now.Format(time.RFC3339),
		"time_slot":   timeSlot,
		"processed":   summary.Processed,
		"successful":  summary.Successful,
	}
	if _, err := o.publisher.Publish(ctx, o.cfg.Topic, payload); err != nil {
		o.logger.Warn("publish run summary failed", zap.Error(err))
	}
}
