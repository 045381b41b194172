package loadtest

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/podium/pkg/logger"
)

// Run executes the complete submission test.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting podium submission test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("raters", config.NumRaters),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Int("resubmitEvery", config.ResubmitEvery),
		logger.Any("verbose", config.Verbose))

	client := newHTTPClient(config.Timeout)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Fetch the roster the service was configured with
	doc, err := fetchSchema(ctx, client, config.BaseURL)
	if err != nil {
		return fmt.Errorf("schema retrieval failed: %w", err)
	}

	// Step 3: Generate one full sheet per rater
	subs := generateSubmissions(ctx, config, doc, stats)

	// Step 4: Submit sheets concurrently, replaying some for dedupe
	if err := submitAll(ctx, config, subs, stats); err != nil {
		return fmt.Errorf("submission failed: %w", err)
	}

	// Step 5: Retrieve rankings
	rankings, err := fetchRankings(ctx, client, config.BaseURL)
	if err != nil {
		return fmt.Errorf("ranking retrieval failed: %w", err)
	}
	stats.RankingRows = len(rankings)

	// Step 6: Verify aggregates against locally computed expectations
	if err := verifyRankings(ctx, rankings, expectedAggregate(subs)); err != nil {
		return fmt.Errorf("ranking verification failed: %w", err)
	}
	displayTopSubjects(rankings, config.Verbose)

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	logger.Get().Info(ctx, "test completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	resp, err := client.Get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	// Accept any 200 response as healthy (the service returns Prometheus metrics)
	if resp.StatusCode != statusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// displayFinalStats prints the final test statistics.
func displayFinalStats(stats *Stats) {
	var successRate, sheetsPerSecond float64

	if stats.Submitted > 0 {
		successRate = float64(stats.Accepted) / float64(stats.Submitted) * 100
	}

	if stats.Duration > 0 {
		sheetsPerSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("ratersGenerated", stats.RatersGenerated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("invalid", stats.Invalid),
		logger.Int("failed", stats.Failed),
		logger.Int("rankingRows", stats.RankingRows),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("sheetsPerSecond", sheetsPerSecond))
}
