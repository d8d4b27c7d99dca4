package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "qrtrace-backend/internal/config"
	"qrtrace-backend/internal/repositories"
)

// Archiver periodically snapshots completed replacement jobs to an
// S3-compatible bucket (R2 in production). The snapshot is an append-only
// audit copy; the database stays the source of truth.
type Archiver struct {
	client   *s3.Client
	bucket   string
	jobRepo  *repositories.JobRepository
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

func NewArchiver(cfg *appconfig.Config, jobRepo *repositories.JobRepository) (*Archiver, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.Archive.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.Archive.AccessKey, cfg.Archive.SecretKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load archive credentials: %w", err)
	}

	endpoint := cfg.Archive.Endpoint
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = &endpoint
	})

	return &Archiver{
		client:   client,
		bucket:   cfg.Archive.Bucket,
		jobRepo:  jobRepo,
		interval: 1 * time.Hour,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start runs the archive loop until Stop is called
func (a *Archiver) Start() {
	go func() {
		defer close(a.done)

		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()

		lastRun := time.Now().Add(-a.interval)
		for {
			select {
			case <-a.stop:
				return
			case <-ticker.C:
				cutoff := lastRun
				lastRun = time.Now()
				if err := a.archiveSince(cutoff); err != nil {
					log.Printf("[Archive] snapshot failed: %v", err)
				}
			}
		}
	}()
}

func (a *Archiver) Stop() {
	close(a.stop)
	<-a.done
}

func (a *Archiver) archiveSince(cutoff time.Time) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	jobs, err := a.jobRepo.CompletedJobsSince(ctx, cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return nil
	}

	body, err := json.Marshal(jobs)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("reverse-jobs/%s.json", time.Now().UTC().Format("2006-01-02T15-04-05"))
	contentType := "application/json"
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &a.bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: &contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}

	log.Printf("[Archive] uploaded %d completed job(s) to %s", len(jobs), key)
	return nil
}
