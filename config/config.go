// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"bitwise74/phone-verify/internal/service"
	"bitwise74/phone-verify/pkg/otp"

	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
)

var (
	configPath = pflag.String("config", ".", "Directory containing config.toml")

	validLogLevels    = []string{"debug", "info", "warn", "error", "fatal"}
	validStorageTypes = []string{"memory", "sql", "redis", "dynamodb"}
	validSQLDrivers   = []string{"sqlite", "postgres"}
	validSMSProviders = []string{"sns", "log"}
)

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() error {
	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(*configPath)

	v.AutomaticEnv()
	bindEnvs()
	setDefaults()

	if err := v.ReadInConfig(); err != nil {
		// Running purely from the environment is fine (containers, lambdas)
		if _, ok := err.(v.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file, %w", err)
		}
	}

	return Validate()
}

func bindEnvs() {
	v.BindEnv("app.log_level", "app_log_level")

	v.BindEnv("host.port", "host_port")
	v.BindEnv("host.cors", "host_cors")

	v.BindEnv("security.rate_limit", "security_rate_limit")

	v.BindEnv("verification.max_attempts", "verification_max_attempts", "max_attempts")
	v.BindEnv("verification.rate_window", "verification_rate_window")
	v.BindEnv("verification.recent_limit", "verification_recent_limit")
	v.BindEnv("verification.validity", "verification_validity")
	v.BindEnv("verification.digits", "verification_digits")
	v.BindEnv("verification.message", "verification_message")

	v.BindEnv("phone.default_region", "phone_default_region")

	v.BindEnv("storage.type", "storage_type")

	v.BindEnv("sql.driver", "sql_driver")
	v.BindEnv("sql.dsn", "sql_dsn")

	v.BindEnv("redis.addr", "redis_addr")
	v.BindEnv("redis.password", "redis_password")
	v.BindEnv("redis.db", "redis_db")

	v.BindEnv("dynamodb.table", "dynamodb_table")

	v.BindEnv("aws.region", "aws_region")
	v.BindEnv("aws.access_key", "aws_access_key")
	v.BindEnv("aws.secret_access_key", "aws_secret_access_key")
	v.BindEnv("aws.endpoint", "aws_endpoint")

	v.BindEnv("sms.provider", "sms_provider")
	v.BindEnv("sms.sender_id", "sms_sender_id")

	v.BindEnv("retention.enabled", "retention_enabled")
	v.BindEnv("retention.max_age", "retention_max_age")
	v.BindEnv("retention.interval", "retention_interval")
}

func setDefaults() {
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 8080)

	v.SetDefault("security.rate_limit", 5)

	v.SetDefault("verification.max_attempts", 3)
	v.SetDefault("verification.rate_window", "1h")
	v.SetDefault("verification.recent_limit", 10)
	v.SetDefault("verification.validity", "3m")
	v.SetDefault("verification.digits", 6)
	v.SetDefault("verification.message", "Your code is: "+service.CodePlaceholder)

	v.SetDefault("storage.type", "memory")

	v.SetDefault("sql.driver", "sqlite")
	v.SetDefault("sql.dsn", "verifications.db")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("dynamodb.table", "Verifications")

	v.SetDefault("sms.provider", "log")

	v.SetDefault("retention.enabled", false)
	v.SetDefault("retention.max_age", "720h")
	v.SetDefault("retention.interval", "24h")
}

// Validate checks the loaded values. It is separate from Setup so tests can
// set values directly.
func Validate() error {
	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if v.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if v.GetInt("security.rate_limit") < 0 {
		return errors.New("security.rate_limit can't be negative")
	}

	if v.GetInt("verification.max_attempts") <= 0 {
		return errors.New("verification.max_attempts must be bigger than 0")
	}

	if v.GetDuration("verification.rate_window") <= 0 {
		return errors.New("verification.rate_window must be bigger than 0")
	}

	if v.GetInt("verification.recent_limit") <= 0 {
		return errors.New("verification.recent_limit must be bigger than 0")
	}

	if v.GetDuration("verification.validity") <= 0 {
		return errors.New("verification.validity must be bigger than 0")
	}

	if d := v.GetInt("verification.digits"); d < otp.MinDigits || d > otp.MaxDigits {
		return otp.ErrInvalidDigits
	}

	if !strings.Contains(v.GetString("verification.message"), service.CodePlaceholder) {
		return fmt.Errorf("verification.message must contain %v", service.CodePlaceholder)
	}

	switch v.GetString("storage.type") {
	case "sql":
		if !slices.Contains(validSQLDrivers, v.GetString("sql.driver")) {
			return errors.New("invalid sql driver provided")
		}
		if v.GetString("sql.dsn") == "" {
			return errors.New("sql dsn can't be empty")
		}
	case "redis":
		if v.GetString("redis.addr") == "" {
			return errors.New("redis address can't be empty")
		}
	case "dynamodb":
		if v.GetString("dynamodb.table") == "" {
			return errors.New("dynamodb table can't be empty")
		}
		if v.GetString("aws.region") == "" {
			return errors.New("aws region can't be empty")
		}
	}

	if !slices.Contains(validStorageTypes, v.GetString("storage.type")) {
		return errors.New("invalid storage type provided")
	}

	if !slices.Contains(validSMSProviders, v.GetString("sms.provider")) {
		return errors.New("invalid sms provider provided")
	}

	if v.GetString("sms.provider") == "sns" && v.GetString("aws.region") == "" {
		return errors.New("aws region can't be empty when sms.provider is sns")
	}

	if v.GetBool("retention.enabled") {
		if v.GetString("storage.type") != "sql" {
			return errors.New("retention is only supported with the sql storage type")
		}
		if v.GetDuration("retention.max_age") <= 0 || v.GetDuration("retention.interval") <= 0 {
			return errors.New("retention.max_age and retention.interval must be bigger than 0")
		}
	}

	if v.GetString("sms.provider") == "log" {
		fmt.Println("[WARNING]: sms.provider is \"log\", verification codes are written to the log instead of being sent")
	}

	return nil
}

// Policy builds the issuance policy from the verification.* settings
func Policy() service.Policy {
	return service.Policy{
		MaxAttempts: v.GetInt("verification.max_attempts"),
		RateWindow:  v.GetDuration("verification.rate_window"),
		RecentLimit: v.GetInt("verification.recent_limit"),
		Validity:    v.GetDuration("verification.validity"),
		Digits:      v.GetInt("verification.digits"),
		Message:     v.GetString("verification.message"),
	}
}
