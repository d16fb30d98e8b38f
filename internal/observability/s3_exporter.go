// Batched S3 export of routing attempt records as date-partitioned JSONL.
// Only attempt and diagnostic metadata leaves the process; message content
// never does.
package observability

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/goccy/go-json"

	"github.com/switchboard-ai/switchboard/pkg/types"
)

// S3Config contains configuration for the attempt-record exporter.
type S3Config struct {
	Enabled       bool          `yaml:"enabled" json:"enabled"`
	Bucket        string        `yaml:"bucket" json:"bucket"`
	Region        string        `yaml:"region" json:"region"`
	AccessKeyID   string        `yaml:"access_key_id" json:"-"`
	SecretKey     string        `yaml:"secret_key" json:"-"`
	Endpoint      string        `yaml:"endpoint" json:"endpoint"` // custom endpoint for MinIO etc.
	Prefix        string        `yaml:"prefix" json:"prefix"`
	FlushInterval time.Duration `yaml:"flush_interval" json:"flush_interval"`
	BatchSize     int           `yaml:"batch_size" json:"batch_size"`
}

// DefaultS3Config returns default configuration from environment.
func DefaultS3Config() S3Config {
	return S3Config{
		Enabled:       false,
		Bucket:        os.Getenv("S3_BUCKET_NAME"),
		Region:        os.Getenv("AWS_REGION"),
		AccessKeyID:   os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretKey:     os.Getenv("AWS_SECRET_ACCESS_KEY"),
		Endpoint:      os.Getenv("S3_ENDPOINT"),
		Prefix:        "switchboard/attempts",
		FlushInterval: 10 * time.Second,
		BatchSize:     100,
	}
}

// ExportEntry is one routing outcome flattened for JSONL export.
type ExportEntry struct {
	Timestamp      time.Time             `json:"timestamp"`
	RequestID      string                `json:"request_id"`
	Intent         string                `json:"intent"`
	Disposition    string                `json:"disposition"`
	Provider       string                `json:"provider,omitempty"`
	Model          string                `json:"model,omitempty"`
	FallbackUsed   bool                  `json:"fallback_used"`
	FallbackReason string                `json:"fallback_reason,omitempty"`
	Attempts       []types.AttemptRecord `json:"attempts"`
	Notes          []types.ChainNote     `json:"notes,omitempty"`
	Violations     []types.Violation     `json:"violations,omitempty"`
	Escalations    int                   `json:"escalations"`
	Error          string                `json:"error,omitempty"`
	LatencyMs      int64                 `json:"latency_ms"`
}

// EntryFromResult flattens a routing result into an export entry.
func EntryFromResult(intent string, res *types.RoutingResult) ExportEntry {
	entry := ExportEntry{
		Timestamp:      time.Now().UTC(),
		RequestID:      res.RequestID,
		Intent:         intent,
		Disposition:    string(res.Disposition),
		FallbackUsed:   res.FallbackUsed,
		FallbackReason: string(res.FallbackReason),
		Attempts:       res.Attempts,
		Notes:          res.Notes,
		Violations:     res.Violations,
		Escalations:    res.Escalations,
		LatencyMs:      res.Elapsed.Milliseconds(),
	}
	if res.Response != nil {
		entry.Provider = res.Response.Provider
		entry.Model = res.Response.Model
	}
	if res.Error != nil {
		entry.Error = res.Error.Error()
	}
	return entry
}

// S3Exporter batches export entries and uploads them to S3.
type S3Exporter struct {
	config S3Config
	client *s3.Client

	mu     sync.Mutex
	queue  []ExportEntry
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewS3Exporter creates an exporter and starts its background flush loop.
func NewS3Exporter(ctx context.Context, cfg S3Config) (*S3Exporter, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3: bucket is required")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 10 * time.Second
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load AWS config: %w", err)
	}

	s3Opts := []func(*s3.Options){}
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	exp := &S3Exporter{
		config: cfg,
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		queue:  make([]ExportEntry, 0, cfg.BatchSize),
		stopCh: make(chan struct{}),
	}

	exp.wg.Add(1)
	go exp.flushLoop()

	return exp, nil
}

// Enqueue queues one entry for upload. A full batch triggers an async flush.
func (e *S3Exporter) Enqueue(entry ExportEntry) {
	if e == nil {
		return
	}

	e.mu.Lock()
	e.queue = append(e.queue, entry)
	full := len(e.queue) >= e.config.BatchSize
	e.mu.Unlock()

	if full {
		go func() { _ = e.flush(context.Background()) }()
	}
}

// Shutdown stops the flush loop and drains the queue.
func (e *S3Exporter) Shutdown(ctx context.Context) error {
	if e == nil {
		return nil
	}
	close(e.stopCh)
	e.wg.Wait()
	return e.flush(ctx)
}

func (e *S3Exporter) flushLoop() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = e.flush(context.Background())
		case <-e.stopCh:
			return
		}
	}
}

func (e *S3Exporter) flush(ctx context.Context) error {
	e.mu.Lock()
	if len(e.queue) == 0 {
		e.mu.Unlock()
		return nil
	}
	entries := e.queue
	e.queue = make([]ExportEntry, 0, e.config.BatchSize)
	e.mu.Unlock()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range entries {
		if err := enc.Encode(&entries[i]); err != nil {
			continue
		}
	}

	key := e.objectKey(time.Now().UTC())
	_, err := e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.config.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("s3: upload attempt records: %w", err)
	}
	return nil
}

// objectKey builds a Hive-style date-partitioned key so the records are
// directly queryable from Athena.
func (e *S3Exporter) objectKey(t time.Time) string {
	datePrefix := fmt.Sprintf("year=%d/month=%02d/day=%02d/hour=%02d",
		t.Year(), t.Month(), t.Day(), t.Hour())
	filename := fmt.Sprintf("attempts_%d.jsonl", t.UnixNano())

	if e.config.Prefix != "" {
		return path.Join(e.config.Prefix, datePrefix, filename)
	}
	return path.Join(datePrefix, filename)
}
