package storage

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"github.com/RingDeskAI/ringdesk-voice-service/pkg/logger"
	"go.uber.org/zap"
)

// AudioArchive writes relayed caller audio to a GCS bucket. It is an
// optional feature: a disabled archive hands out no recorders and the
// bridge runs without one.
type AudioArchive struct {
	client  *storage.Client
	bucket  string
	enabled bool
}

// NewAudioArchive creates the archive. When disabled it never touches GCS;
// credentials come from the ambient service account.
func NewAudioArchive(ctx context.Context, enabled bool, bucket string) (*AudioArchive, error) {
	if !enabled {
		logger.Base().Info("audio archive disabled")
		return &AudioArchive{enabled: false}, nil
	}
	if bucket == "" {
		return nil, fmt.Errorf("audio archive enabled but no bucket configured")
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	logger.Base().Info("audio archive enabled", zap.String("bucket", bucket))
	return &AudioArchive{client: client, bucket: bucket, enabled: true}, nil
}

// IsEnabled reports whether call audio is being archived.
func (a *AudioArchive) IsEnabled() bool {
	return a != nil && a.enabled
}

// NewCallRecorder opens a recorder for one call. Returns nil when the
// archive is disabled; callers pass that straight through.
func (a *AudioArchive) NewCallRecorder(ctx context.Context, callID string) *CallRecorder {
	if !a.IsEnabled() {
		return nil
	}

	objectName := fmt.Sprintf("calls/%s/%s.ulaw", time.Now().UTC().Format("2006-01-02"), callID)
	writer := a.client.Bucket(a.bucket).Object(objectName).NewWriter(ctx)
	writer.ContentType = "audio/basic"

	return &CallRecorder{writer: writer, objectName: objectName, callID: callID}
}

// Close releases the underlying storage client.
func (a *AudioArchive) Close() error {
	if a == nil || a.client == nil {
		return nil
	}
	return a.client.Close()
}

// CallRecorder streams one call's caller audio into a single GCS object.
// Append is only called from the bridge's actor goroutine, so no locking.
type CallRecorder struct {
	writer     *storage.Writer
	objectName string
	callID     string
}

// Append writes one decoded audio chunk.
func (r *CallRecorder) Append(chunk []byte) error {
	if _, err := r.writer.Write(chunk); err != nil {
		return fmt.Errorf("failed to write audio chunk: %w", err)
	}
	return nil
}

// Close commits the object. The upload is not durable until this returns.
func (r *CallRecorder) Close(_ context.Context) error {
	if err := r.writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize audio object %s: %w", r.objectName, err)
	}
	logger.Base().Info("archived call audio",
		zap.String("call_id", r.callID),
		zap.String("object", r.objectName))
	return nil
}
