package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/cmlabs-parking/parking-backend-go/internal/domain/parking"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	Database DatabaseConfig
	JWT      JWTConfig
	App      AppConfig
	Storage  StorageConfig
	Shift    ShiftConfig
	Rates    RateConfig
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	AutoMigrate     bool
	MaxConns        int32
	MinConns        int32
	MaxConnIdleTime time.Duration
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration time.Duration
}

// AppConfig holds application configuration
type AppConfig struct {
	Port           int
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

type StorageConfig struct {
	Driver string
}

// ShiftConfig holds the lifecycle guards and the reporting targets.
type ShiftConfig struct {
	BackdateWindow   time.Duration
	FutureWindow     time.Duration
	Location         *time.Location
	LotCapacity      int
	TargetThroughput float64 // vehicles per hour scored as 100
	TargetRevenue    float64 // revenue per exited vehicle scored as 100

	// ReconcileInterval drives the background backfill and resync jobs; zero disables them.
	ReconcileInterval time.Duration
}

// RateConfig maps vehicle types to their daily parking rate.
type RateConfig struct {
	Daily    map[string]decimal.Decimal
	Fallback decimal.Decimal

	// A zero threshold or a multiplier of 1 disables the overstay surcharge.
	OverstayThreshold time.Duration
	PenaltyMultiplier decimal.Decimal
}

func (r RateConfig) Overstay() parking.OverstayPolicy {
	return parking.OverstayPolicy{Threshold: r.OverstayThreshold, Multiplier: r.PenaltyMultiplier}
}

func (r RateConfig) Schedule() parking.RateSchedule {
	rates := make(map[string]decimal.Decimal, len(r.Daily))
	for name, rate := range r.Daily {
		rates[name] = rate
	}
	return parking.RateSchedule{
		Rates:                  rates,
		FallbackRate:           r.Fallback,
		OverstayThresholdHours: r.OverstayThreshold.Hours(),
		PenaltyMultiplier:      r.PenaltyMultiplier,
		CalculationMethod:      parking.CalculationMethod,
	}
}

// For returns the daily rate of a vehicle type, matched case-insensitively.
func (r RateConfig) For(vehicleType string) decimal.Decimal {
	for name, rate := range r.Daily {
		if strings.EqualFold(name, strings.TrimSpace(vehicleType)) {
			return rate
		}
	}
	return r.Fallback
}

const defaultRates = "Trailer:225,6 Wheeler:150,4 Wheeler:100,2 Wheeler:50"

func Load() (*Config, error) {
	// A missing .env is fine; the process environment still applies.
	_ = godotenv.Load()

	config := &Config{}

	// Database configuration
	dbPort, err := getEnvInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 25)
	if err != nil {
		return nil, err
	}
	minConns, err := getEnvInt("DB_MIN_CONNS", 5)
	if err != nil {
		return nil, err
	}
	idle, err := getEnvDuration("DB_MAX_CONN_IDLE_TIME", 30*time.Minute)
	if err != nil {
		return nil, err
	}

	config.Database = DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            dbPort,
		User:            getEnv("DB_USER", "postgres"),
		Password:        getEnv("DB_PASSWORD", ""),
		Name:            getEnv("DB_NAME", "parking"),
		SSLMode:         getEnv("DB_SSL_MODE", "disable"),
		AutoMigrate:     getEnv("DB_AUTO_MIGRATE", "true") == "true",
		MaxConns:        int32(maxConns),
		MinConns:        int32(minConns),
		MaxConnIdleTime: idle,
	}

	// Application configuration
	appPort, err := getEnvInt("APP_PORT", 8080)
	if err != nil {
		return nil, err
	}

	config.App = AppConfig{
		Port:           appPort,
		Env:            getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
	}

	// JWT configuration
	accessExpiration, err := getEnvDuration("JWT_ACCESS_EXPIRATION_TIME", 12*time.Hour)
	if err != nil {
		return nil, err
	}

	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: accessExpiration,
	}

	config.Storage = StorageConfig{
		Driver: getEnv("STORAGE_DRIVER", StorageDriverPostgres),
	}

	// Shift configuration
	backdate, err := getEnvDuration("SHIFT_BACKDATE_WINDOW", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	future, err := getEnvDuration("SHIFT_FUTURE_WINDOW", time.Hour)
	if err != nil {
		return nil, err
	}
	location, err := time.LoadLocation(getEnv("SHIFT_TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid SHIFT_TIMEZONE: %w", err)
	}
	capacity, err := getEnvInt("LOT_CAPACITY", 100)
	if err != nil {
		return nil, err
	}
	throughput, err := getEnvFloat("TARGET_VEHICLES_PER_HOUR", 10)
	if err != nil {
		return nil, err
	}
	revenue, err := getEnvFloat("TARGET_REVENUE_PER_VEHICLE", 100)
	if err != nil {
		return nil, err
	}
	reconcile, err := getEnvDuration("SHIFT_RECONCILE_INTERVAL", 0)
	if err != nil {
		return nil, err
	}

	config.Shift = ShiftConfig{
		BackdateWindow:    backdate,
		FutureWindow:      future,
		Location:          location,
		LotCapacity:       capacity,
		TargetThroughput:  throughput,
		TargetRevenue:     revenue,
		ReconcileInterval: reconcile,
	}

	// Rate configuration
	rates, err := ParseRates(getEnv("RATES", defaultRates))
	if err != nil {
		return nil, err
	}
	fallback, err := decimal.NewFromString(getEnv("FALLBACK_RATE", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid FALLBACK_RATE: %w", err)
	}
	threshold, err := getEnvDuration("OVERSTAY_THRESHOLD", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	multiplier, err := decimal.NewFromString(getEnv("OVERSTAY_PENALTY_MULTIPLIER", "1.5"))
	if err != nil {
		return nil, fmt.Errorf("invalid OVERSTAY_PENALTY_MULTIPLIER: %w", err)
	}
	config.Rates = RateConfig{
		Daily:             rates,
		Fallback:          fallback,
		OverstayThreshold: threshold,
		PenaltyMultiplier: multiplier,
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []error

	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET_KEY is required"))
	}
	switch c.Storage.Driver {
	case StorageDriverPostgres:
		if c.Database.Password == "" {
			errs = append(errs, errors.New("DB_PASSWORD is required"))
		}
	case StorageDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver))
	}
	if c.Shift.BackdateWindow <= 0 || c.Shift.FutureWindow <= 0 {
		errs = append(errs, errors.New("shift windows must be positive"))
	}
	if c.Shift.ReconcileInterval < 0 {
		errs = append(errs, errors.New("SHIFT_RECONCILE_INTERVAL must not be negative"))
	}
	if c.Rates.OverstayThreshold < 0 {
		errs = append(errs, errors.New("OVERSTAY_THRESHOLD must not be negative"))
	}
	if m := c.Rates.PenaltyMultiplier; !m.IsZero() && m.LessThan(decimal.NewFromInt(1)) {
		errs = append(errs, errors.New("OVERSTAY_PENALTY_MULTIPLIER must be at least 1"))
	}
	if c.Shift.LotCapacity <= 0 {
		errs = append(errs, errors.New("LOT_CAPACITY must be positive"))
	}
	if c.Shift.TargetThroughput <= 0 || c.Shift.TargetRevenue <= 0 {
		errs = append(errs, errors.New("efficiency targets must be positive"))
	}

	return errors.Join(errs...)
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// ParseRates reads "Type:rate,Type:rate" pairs.
func ParseRates(value string) (map[string]decimal.Decimal, error) {
	rates := make(map[string]decimal.Decimal)
	for _, pair := range strings.Split(value, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, raw, ok := strings.Cut(pair, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid RATES entry %q", pair)
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil || rate.IsNegative() {
			return nil, fmt.Errorf("invalid rate for %q", name)
		}
		rates[strings.TrimSpace(name)] = rate
	}
	return rates, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnvSlice(key string, fallback []string) []string {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	var result []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}
	return result
}
