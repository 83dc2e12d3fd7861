// Command expirebatch runs one expiry sweep and exits. It is meant for
// external schedulers; when TASK_TOKEN is set the result is reported to AWS
// Step Functions.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/aws/aws-xray-sdk-go/xray"

	"hotel-booking-backend/config"
	"hotel-booking-backend/internal/availability"
	"hotel-booking-backend/internal/booking"
	"hotel-booking-backend/internal/db"
	"hotel-booking-backend/internal/idgen"
	"hotel-booking-backend/internal/store"
	"hotel-booking-backend/internal/sweeper"
)

const serviceName = "hotel-expirebatch"

// taskAPI is the part of the Step Functions client the batch uses.
type taskAPI interface {
	SendTaskSuccess(ctx context.Context, params *sfn.SendTaskSuccessInput, optFns ...func(*sfn.Options)) (*sfn.SendTaskSuccessOutput, error)
	SendTaskFailure(ctx context.Context, params *sfn.SendTaskFailureInput, optFns ...func(*sfn.Options)) (*sfn.SendTaskFailureOutput, error)
}

// reporter tells Step Functions how the sweep ended. A nil client means the
// batch was started without a task token and nothing is reported.
type reporter struct {
	client taskAPI
	token  string
}

type sweepResult struct {
	Expired    int    `json:"expired"`
	StartedAt  string `json:"started_at"`
	DurationMS int64  `json:"duration_ms"`
}

func (r reporter) success(ctx context.Context, result sweepResult) error {
	if r.client == nil {
		log.Printf("No task token; skipping Step Functions success report")
		return nil
	}
	output, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal sweep result: %w", err)
	}
	if _, err := r.client.SendTaskSuccess(ctx, &sfn.SendTaskSuccessInput{
		TaskToken: aws.String(r.token),
		Output:    aws.String(string(output)),
	}); err != nil {
		return fmt.Errorf("failed to send task success: %w", err)
	}
	log.Printf("Sent task success: %s", output)
	return nil
}

func (r reporter) failure(ctx context.Context, cause error) {
	if r.client == nil {
		return
	}
	if _, err := r.client.SendTaskFailure(ctx, &sfn.SendTaskFailureInput{
		TaskToken: aws.String(r.token),
		Error:     aws.String("ExpirySweepFailed"),
		Cause:     aws.String(cause.Error()),
	}); err != nil {
		log.Printf("Failed to send task failure: %v", err)
	}
}

// sweep runs one expiry pass inside the timeout.
func sweep(ctx context.Context, expirer sweeper.Expirer, timeout time.Duration, now func() time.Time) (sweepResult, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := now()
	count, err := expirer.ExpirePendingBookings(ctx)
	result := sweepResult{
		Expired:    count,
		StartedAt:  start.UTC().Format(time.RFC3339),
		DurationMS: now().Sub(start).Milliseconds(),
	}
	if err != nil {
		return result, fmt.Errorf("expiry sweep stopped after %d cancellations: %w", count, err)
	}
	return result, nil
}

// execute sweeps, annotates the X-Ray segment on ctx when there is one and
// reports the outcome.
func execute(ctx context.Context, expirer sweeper.Expirer, rep reporter, timeout time.Duration, now func() time.Time) error {
	result, err := sweep(ctx, expirer, timeout, now)
	if seg := xray.GetSegment(ctx); seg != nil {
		if merr := seg.AddMetadata("expired", result.Expired); merr != nil {
			log.Printf("Failed to add X-Ray metadata: %v", merr)
		}
	}
	if err != nil {
		log.Printf("Batch failed: %v", err)
		rep.failure(context.WithoutCancel(ctx), err)
		return err
	}
	log.Printf("Batch completed: %d bookings expired in %dms", result.Expired, result.DurationMS)

	if err := rep.success(context.WithoutCancel(ctx), result); err != nil {
		log.Printf("Batch succeeded but reporting failed: %v", err)
		return err
	}
	return nil
}

func main() {
	os.Exit(run())
}

// run returns the process exit code. Deferred cleanup, including closing the
// X-Ray segment, happens before main exits.
func run() int {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("failed to load configuration from %s: %v", configPath, err)
		return 1
	}

	if cfg.Batch.EnableTracing {
		if err := xray.Configure(xray.Config{ServiceVersion: "1.0.0"}); err != nil {
			log.Printf("Failed to configure X-Ray: %v", err)
		}
		os.Setenv("AWS_XRAY_CONTEXT_MISSING", "LOG_ERROR")
	}

	rep := reporter{token: os.Getenv("TASK_TOKEN")}
	if rep.token != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
		if err != nil {
			log.Printf("failed to load AWS config: %v", err)
			return 1
		}
		rep.client = sfn.NewFromConfig(awsCfg)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var runErr error
	if cfg.Batch.EnableTracing {
		var seg *xray.Segment
		ctx, seg = xray.BeginSegment(ctx, serviceName)
		defer func() { seg.Close(runErr) }()
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		runErr = err
		log.Printf("failed to initialize database: %v", err)
		rep.failure(ctx, err)
		return 1
	}

	appStore := store.NewGormStore(gormDB)
	coordinator := booking.NewCoordinator(appStore, availability.NewOracle(appStore), nil, idgen.Random{}, booking.Options{
		ExpiryWindow: cfg.Booking.ExpiryWindow(),
		TaxRate:      cfg.Booking.TaxRate,
	})

	timeout := time.Duration(cfg.Batch.TimeoutSeconds) * time.Second
	if runErr = execute(ctx, coordinator, rep, timeout, time.Now); runErr != nil {
		return 1
	}
	return 0
}
