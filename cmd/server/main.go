package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/reflection"

	"github.com/quentinrf/light-analyzer/internal/adapters/console"
	"github.com/quentinrf/light-analyzer/internal/adapters/csvfile"
	grpcAdapter "github.com/quentinrf/light-analyzer/internal/adapters/grpc"
	httpAdapter "github.com/quentinrf/light-analyzer/internal/adapters/http"
	"github.com/quentinrf/light-analyzer/internal/adapters/memory"
	"github.com/quentinrf/light-analyzer/internal/adapters/mock"
	"github.com/quentinrf/light-analyzer/internal/adapters/mqtt"
	"github.com/quentinrf/light-analyzer/internal/adapters/sqlite"
	"github.com/quentinrf/light-analyzer/internal/domain"
	"github.com/quentinrf/light-analyzer/internal/ports"
	"github.com/quentinrf/light-analyzer/pkg/tlsconfig"
)

func main() {
	// Initialize logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to load .env file")
	}

	// Read configuration from environment
	config := loadConfig()
	zerolog.SetGlobalLevel(config.LogLevel)

	log.Info().Msg("starting light analyzer")

	loc, err := time.LoadLocation(config.Timezone)
	if err != nil {
		log.Fatal().Err(err).Str("timezone", config.Timezone).Msg("unknown timezone")
	}

	// Initialize session journal
	var journal domain.SessionRepository
	switch config.JournalType {
	case "sqlite":
		r, err := sqlite.NewSessionRepository(config.DBPath)
		if err != nil {
			log.Fatal().Err(err).Str("db_path", config.DBPath).Msg("failed to open SQLite database")
		}
		defer r.Close()
		journal = r
		log.Info().Str("db_path", config.DBPath).Msg("initialized SQLite session journal")
	default:
		journal = memory.NewSessionRepository()
		log.Info().Msg("initialized in-memory session journal")
	}

	// Initialize sensor source
	var source ports.SensorSource
	switch config.SensorType {
	case "mqtt":
		s, err := mqtt.NewSource(mqtt.Config{
			Broker:   config.MQTTBroker,
			ClientID: config.MQTTClientID,
			Topics:   map[ports.SensorKind]string{ports.KindLight: config.MQTTLightTopic},
			QoS:      1,
			Timeout:  10 * time.Second,
		})
		if err != nil {
			log.Fatal().Err(err).Str("broker", config.MQTTBroker).Msg("failed to connect to MQTT broker")
		}
		source = s
		log.Info().Str("broker", config.MQTTBroker).Str("topic", config.MQTTLightTopic).Msg("initialized MQTT sensor source")
	default:
		source = mock.NewFakeSource(config.MockBaseLux, config.MockVariationLux)
		log.Info().
			Float64("base_lux", config.MockBaseLux).
			Float64("variation_lux", config.MockVariationLux).
			Msg("initialized mock sensor source")
	}

	readingLog := csvfile.NewReadingLog(config.StorageRoot, loc)
	log.Info().Str("path", readingLog.Path()).Msg("reading log configured")

	// Displays: console output and the gRPC watch feed
	feed := grpcAdapter.NewFeed()
	dispatcher := ports.NewDispatcher(ports.Displays{console.NewDisplay(os.Stdout), feed})

	session := ports.NewSamplingSession(source, readingLog, dispatcher, ports.WithJournal(journal))

	// Configure TLS if certificates are provided
	var serverOpts []grpc.ServerOption
	if config.TLS.Enabled() {
		tlsCfg, err := tlsconfig.LoadServerTLS(config.TLS)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load TLS config")
		}
		serverOpts = append(serverOpts, grpc.Creds(credentials.NewTLS(tlsCfg)))
		log.Info().Msg("mTLS enabled")
	} else {
		log.Warn().Msg("TLS_CERT not set, starting without TLS (dev mode only)")
	}

	// Create gRPC server
	grpcServer := grpc.NewServer(serverOpts...)
	grpcAdapter.RegisterControlServer(grpcServer, grpcAdapter.NewControlHandler(session, journal, feed))

	// Enable gRPC reflection for grpcurl testing
	reflection.Register(grpcServer)

	listener, err := net.Listen("tcp", fmt.Sprintf(":%s", config.Port))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to listen")
	}

	log.Info().Str("port", config.Port).Msg("gRPC server listening")

	go func() {
		if err := grpcServer.Serve(listener); err != nil {
			log.Fatal().Err(err).Msg("failed to serve gRPC")
		}
	}()

	// Start HTTP control surface
	httpServer := &http.Server{
		Addr:              config.HTTPAddr,
		Handler:           httpAdapter.NewRouter(session, journal),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", config.HTTPAddr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to serve HTTP")
		}
	}()

	if config.Autostart {
		if err := session.Start(context.Background()); err != nil {
			log.Error().Err(err).Msg("autostart failed")
		}
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Stop sampling before the log and displays go away
	if err := session.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("session shutdown reported errors")
	}
	dispatcher.Close()
	feed.Close()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("HTTP shutdown failed")
	}
	grpcServer.GracefulStop()

	if c, ok := source.(io.Closer); ok {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close sensor source")
		}
	}

	log.Info().Msg("server stopped")
}

// Config holds application configuration
type Config struct {
	StorageRoot      string // directory holding LightAnalyzer/Light.csv
	Timezone         string // zone for the human-readable timestamp column
	SensorType       string // "mock" | "mqtt"
	MockBaseLux      float64
	MockVariationLux float64
	MQTTBroker       string
	MQTTClientID     string
	MQTTLightTopic   string
	JournalType      string // "memory" | "sqlite"
	DBPath           string // SQLite database file path (used when JournalType=sqlite)
	Port             string // gRPC port
	HTTPAddr         string
	TLS              tlsconfig.Files
	Autostart        bool
	LogLevel         zerolog.Level
}

// loadConfig reads configuration from environment variables
func loadConfig() Config {
	return Config{
		StorageRoot:      getEnv("STORAGE_ROOT", defaultStorageRoot()),
		Timezone:         getEnv("LOG_TIMEZONE", "Local"),
		SensorType:       getEnv("SENSOR_TYPE", "mock"),
		MockBaseLux:      getFloat("MOCK_BASE_LUX", 500.0),
		MockVariationLux: getFloat("MOCK_VARIATION_LUX", 100.0),
		MQTTBroker:       getEnv("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTClientID:     getEnv("MQTT_CLIENT_ID", "light-analyzer"),
		MQTTLightTopic:   getEnv("MQTT_LIGHT_TOPIC", "sensors/light"),
		JournalType:      getEnv("JOURNAL_TYPE", "memory"),
		DBPath:           getEnv("DB_PATH", "./sessions.db"),
		Port:             getEnv("PORT", "50051"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		TLS: tlsconfig.Files{
			Cert: os.Getenv("TLS_CERT"),
			Key:  os.Getenv("TLS_KEY"),
			CA:   os.Getenv("TLS_CA"),
		},
		Autostart: getBool("AUTOSTART", false),
		LogLevel:  getLevel("LOG_LEVEL", zerolog.InfoLevel),
	}
}

// defaultStorageRoot mirrors the external storage root of a handset,
// falling back to the user's home directory.
func defaultStorageRoot() string {
	if root := os.Getenv("EXTERNAL_STORAGE"); root != "" {
		return root
	}
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("invalid number, using default")
		return fallback
	}
	return f
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("invalid boolean, using default")
		return fallback
	}
	return b
}

func getLevel(key string, fallback zerolog.Level) zerolog.Level {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(v))
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("invalid log level, using default")
		return fallback
	}
	return lvl
}
