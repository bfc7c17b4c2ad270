package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	api "github.com/nextlinkuae/site-backend/api"
	"github.com/nextlinkuae/site-backend/config"
	"github.com/nextlinkuae/site-backend/database"
	"github.com/nextlinkuae/site-backend/models"
	"github.com/nextlinkuae/site-backend/services"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: Error loading .env file: %v\n", err)
	}

	settings := config.Load(config.New())
	setupLogging(settings)
	log.Info().Msg("Initializing app...")

	db, err := database.Open(database.Config{
		DSN:                settings.DatabaseURL,
		ReplicaDSN:         settings.ReplicaDSN,
		SlowQueryThreshold: settings.SlowQueryThreshold,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Error connecting to database")
	}
	currentDB := database.New(db)
	defer currentDB.Close()

	if settings.AutoMigrate {
		if err := currentDB.Migrate(); err != nil {
			log.Fatal().Err(err).Msg("Error migrating database")
		}
	}

	// If generating models, run generation and exit
	if settings.GenerateModels {
		log.Info().Msg("Generating models and query helpers...")
		if err := models.GenerateModels(db, "./generated"); err != nil {
			log.Fatal().Err(err).Msg("Error generating models")
		}
		if _, err := models.GenerateColumnMismatchReport(db); err != nil {
			log.Fatal().Err(err).Msg("Error generating column mismatch report")
		}
		return
	}

	imageStore, staticDir, err := newImageStore(settings)
	if err != nil {
		log.Fatal().Err(err).Msg("Error configuring image storage")
	}

	var mailer services.EmailSender
	if settings.ResendAPIKey != "" {
		mailer = services.NewMailer(settings.ResendAPIKey, settings.ResendFromEmail)
	} else {
		log.Warn().Msg("RESEND_API_KEY not set, form notifications are disabled")
	}

	auth, err := services.NewAdminAuth(settings.AdminPasswordHash, settings.BackendPassword, settings.SessionSecret, settings.SessionTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("Error configuring admin auth")
	}

	server, err := api.NewServer(settings, api.Dependencies{
		DB:        currentDB,
		Projects:  services.NewProjectService(currentDB.ProjectRepo(), settings.SlugMaxAttempts),
		Contacts:  services.NewContactService(currentDB.ContactRepo(), mailer, settings.SalesToEmail),
		Uploader:  services.NewImageUploader(imageStore),
		Auth:      auth,
		StaticDir: staticDir,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing server")
	}

	errChannel := make(chan error)
	defer close(errChannel)

	go server.Start(errChannel)

	// Listen for interrupt signals to gracefully shutdown the server
	go listenToInterrupt(errChannel)

	fatalErr := <-errChannel
	log.Info().Msgf("Closing server: %v", fatalErr)

	server.ShutdownGracefully(30 * time.Second)
}

func setupLogging(settings config.Settings) {
	level, err := zerolog.ParseLevel(strings.ToLower(settings.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if settings.LogFormat == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()
}

// newImageStore picks the upload backend. The local backend also returns the
// directory served at /images/.
func newImageStore(settings config.Settings) (services.ImageStore, string, error) {
	switch settings.UploadBackend {
	case "s3":
		if settings.S3Bucket == "" {
			return nil, "", fmt.Errorf("S3_BUCKET is required when UPLOAD_BACKEND=s3")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("load aws config: %w", err)
		}
		log.Info().Str("bucket", settings.S3Bucket).Msg("Storing uploads in S3")
		return services.NewS3ImageStore(s3.NewFromConfig(awsCfg), settings.S3Bucket, settings.S3PublicBase), "", nil
	case "local", "":
		log.Info().Str("dir", settings.UploadDir).Msg("Storing uploads on local disk")
		store := services.NewLocalImageStore(settings.UploadDir, settings.UploadPublicBase)
		return store, filepath.Join(settings.UploadDir, "images"), nil
	default:
		return nil, "", fmt.Errorf("unknown UPLOAD_BACKEND %q", settings.UploadBackend)
	}
}

// listenToInterrupt waits for SIGINT or SIGTERM and then sends an error to the error channel.
func listenToInterrupt(errChannel chan<- error) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	errChannel <- fmt.Errorf("%s", <-c)
}
