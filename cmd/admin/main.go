package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"cartag/backend/internal/abuse"
	"cartag/backend/internal/clock"
	"cartag/backend/internal/config"
	"cartag/backend/internal/models"
	"cartag/backend/internal/phones"
	"cartag/backend/internal/qrsign"
	"cartag/backend/internal/storage"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load()

	logger := zap.Must(zap.NewDevelopment()).Sugar()
	defer logger.Sync()

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: os.Getenv("REDIS_ADDR")})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}

	store := storage.NewStorageService(db, rdb, logger)

	if len(os.Args) < 2 {
		usage()
	}

	switch os.Args[1] {
	case "issue-qr":
		if len(os.Args) < 3 {
			fmt.Println("Usage: admin issue-qr <vehicle_id> [valid_days]")
			os.Exit(1)
		}
		vehicleID := os.Args[2]
		days := 365
		if len(os.Args) > 3 {
			days, err = strconv.Atoi(os.Args[3])
			if err != nil {
				fmt.Println("Invalid day count. Please provide an integer.")
				os.Exit(1)
			}
		}
		if err := issueQR(store, vehicleID, days); err != nil {
			log.Fatalf("Error issuing QR: %v", err)
		}

	case "block-caller":
		if len(os.Args) < 3 {
			fmt.Println("Usage: admin block-caller <phone> [duration_hours]")
			os.Exit(1)
		}
		d := config.BlockLevel2Duration
		if len(os.Args) > 3 {
			hours, err := strconv.Atoi(os.Args[3])
			if err != nil {
				fmt.Println("Invalid duration. Please provide an integer.")
				os.Exit(1)
			}
			d = time.Duration(hours) * time.Hour
		}
		if err := store.BlockCaller(phones.Hash(os.Args[2]), d); err != nil {
			log.Fatalf("Error blocking caller: %v", err)
		}
		fmt.Printf("Caller %s blocked for %s.\n", phones.Mask(os.Args[2]), d)

	case "unblock-caller":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin unblock-caller <phone>")
			os.Exit(1)
		}
		if err := store.UnblockCaller(phones.Hash(os.Args[2])); err != nil {
			log.Fatalf("Error unblocking caller: %v", err)
		}
		fmt.Printf("Caller %s unblocked.\n", phones.Mask(os.Args[2]))

	case "file-report":
		if len(os.Args) < 5 {
			fmt.Println("Usage: admin file-report <vehicle_id> <call_log_id> <reason> [severity]")
			os.Exit(1)
		}
		callLog, err := store.GetCallLogForVehicle(os.Args[2], os.Args[3])
		if err != nil {
			log.Fatalf("Error loading interaction: %v", err)
		}
		severity := "low"
		if len(os.Args) > 5 {
			severity = os.Args[5]
		}
		svc := abuse.NewService(store, clock.System(), logger)
		report := &models.AbuseReport{
			CallLogID:  callLog.ID,
			CallerHash: callLog.CallerHash,
			Reporter:   "operator",
			Reason:     os.Args[4],
			Severity:   severity,
		}
		if err := svc.HandleReport(report); err != nil {
			log.Fatalf("Error filing report: %v", err)
		}
		fmt.Printf("Report %d filed against interaction %s.\n", report.ID, callLog.ID)

	case "confirm-report":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin confirm-report <report_id>")
			os.Exit(1)
		}
		reportID, err := strconv.Atoi(os.Args[2])
		if err != nil {
			fmt.Println("Invalid report ID. Please provide an integer.")
			os.Exit(1)
		}
		svc := abuse.NewService(store, clock.System(), logger)
		if err := svc.Confirm(uint(reportID)); err != nil {
			log.Fatalf("Error confirming report: %v", err)
		}
		fmt.Printf("Report %d confirmed.\n", reportID)

	case "anonymize":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin anonymize <account_id>")
			os.Exit(1)
		}
		n, err := store.AnonymizeAccountLogs(os.Args[2])
		if err != nil {
			log.Fatalf("Error anonymizing logs: %v", err)
		}
		fmt.Printf("Stripped caller identifiers from %d interaction records.\n", n)

	default:
		usage()
	}
}

func usage() {
	fmt.Println("Usage: admin <issue-qr|block-caller|unblock-caller|file-report|confirm-report|anonymize> [args]")
	os.Exit(1)
}

func issueQR(store *storage.Service, vehicleID string, days int) error {
	until := time.Now().AddDate(0, 0, days)
	if err := store.ExtendQRValidity(vehicleID, until); err != nil {
		return err
	}

	secret := os.Getenv("QR_SIGNING_SECRET")
	if secret == "" {
		return fmt.Errorf("QR_SIGNING_SECRET is not set")
	}
	signer := qrsign.NewSigner([]byte(secret))

	baseURL := os.Getenv("PUBLIC_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	fmt.Printf("QR valid until %s\n", until.Format("2006-01-02"))
	fmt.Println(signer.SignedURL(baseURL, vehicleID))
	return nil
}
