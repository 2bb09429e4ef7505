// config_validation.go - Start-up validation of the FS_* environment.
//
// Every variable is checked before anything is opened so that a bad
// deployment fails with all of its problems listed at once.
package server

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ConfigValidationError represents a configuration validation error.
type ConfigValidationError struct {
	Field   string
	Message string
}

func (e ConfigValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// ConfigValidator collects validation errors.
type ConfigValidator struct {
	errors []ConfigValidationError
}

// NewConfigValidator creates a new configuration validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// AddError adds a validation error.
func (v *ConfigValidator) AddError(field, message string) {
	v.errors = append(v.errors, ConfigValidationError{Field: field, Message: message})
}

// HasErrors returns true if there are validation errors.
func (v *ConfigValidator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors.
func (v *ConfigValidator) Errors() []ConfigValidationError {
	return v.errors
}

// ErrorString returns a formatted string of all errors.
func (v *ConfigValidator) ErrorString() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Configuration validation failed with %d error(s):\n", len(v.errors))
	for i, err := range v.errors {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// ValidateURL validates that a value is an http or https URL.
func (v *ConfigValidator) ValidateURL(key, value string) {
	if value == "" {
		return
	}
	parsed, err := url.Parse(value)
	if err != nil {
		v.AddError(key, fmt.Sprintf("invalid URL format: %v", err))
		return
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		v.AddError(key, "URL must use http or https scheme")
	}
}

// ValidatePort validates ":port" or "host:port".
func (v *ConfigValidator) ValidatePort(key, value string) {
	if value == "" {
		return
	}
	portStr := value
	if i := strings.LastIndex(value, ":"); i >= 0 {
		portStr = value[i+1:]
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		v.AddError(key, "port must be a number")
		return
	}
	if port < 1 || port > 65535 {
		v.AddError(key, "port must be between 1 and 65535")
	}
}

// ValidateEnum validates that a value is one of allowed options.
func (v *ConfigValidator) ValidateEnum(key, value string, allowed []string) {
	if value == "" || slices.Contains(allowed, value) {
		return
	}
	v.AddError(key, fmt.Sprintf("must be one of: %s (got: %s)", strings.Join(allowed, ", "), value))
}

// ValidatePositiveInt validates that a value is a positive integer.
func (v *ConfigValidator) ValidatePositiveInt(key, value string) {
	if value == "" {
		return
	}
	num, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		v.AddError(key, "must be a valid integer")
		return
	}
	if num <= 0 {
		v.AddError(key, "must be a positive integer")
	}
}

// ValidateNonNegativeFloat validates a number >= 0.
func (v *ConfigValidator) ValidateNonNegativeFloat(key, value string) {
	if value == "" {
		return
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f < 0 {
		v.AddError(key, "must be a non-negative number")
	}
}

// ValidateDuration validates a time.ParseDuration string.
func (v *ConfigValidator) ValidateDuration(key, value string) {
	if value == "" {
		return
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		v.AddError(key, "must be a valid duration (e.g., 10m, 1h)")
		return
	}
	if d < 0 {
		v.AddError(key, "must not be negative")
	}
}

// ValidateBool validates a strconv.ParseBool string.
func (v *ConfigValidator) ValidateBool(key, value string) {
	if value == "" {
		return
	}
	if _, err := strconv.ParseBool(value); err != nil {
		v.AddError(key, "must be true or false")
	}
}

// ValidateAllConfiguration checks every FS_* variable and the optional
// database and mirror settings.
func ValidateAllConfiguration() error {
	v := NewConfigValidator()

	v.ValidatePort("FS_ADDR", os.Getenv("FS_ADDR"))
	if dir, ok := os.LookupEnv("FS_STORE_DIR"); ok && strings.TrimSpace(dir) == "" {
		v.AddError("FS_STORE_DIR", "must not be blank")
	}
	v.ValidatePositiveInt("FS_MAX_UPLOAD_BYTES", os.Getenv("FS_MAX_UPLOAD_BYTES"))
	v.ValidateNonNegativeFloat("FS_RATE_LIMIT", os.Getenv("FS_RATE_LIMIT"))
	v.ValidatePositiveInt("FS_RATE_BURST", os.Getenv("FS_RATE_BURST"))
	v.ValidateBool("FS_RECONCILE_ON_START", os.Getenv("FS_RECONCILE_ON_START"))
	v.ValidateDuration("FS_RECONCILE_INTERVAL", os.Getenv("FS_RECONCILE_INTERVAL"))
	v.ValidatePositiveInt("FS_SCAN_WORKERS", os.Getenv("FS_SCAN_WORKERS"))

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		if !strings.HasPrefix(dbURL, "postgres://") && !strings.HasPrefix(dbURL, "postgresql://") {
			v.AddError("DATABASE_URL", "must be a valid PostgreSQL connection string")
		}
	}

	mirror := MirrorConfigFromEnv()
	if mirror.Enabled() {
		for key, val := range map[string]string{
			"FS_S3_ENDPOINT":   mirror.Endpoint,
			"FS_S3_ACCESS_KEY": mirror.AccessKey,
			"FS_S3_SECRET_KEY": mirror.SecretKey,
			"FS_BUCKET":        mirror.Bucket,
		} {
			if val == "" {
				v.AddError(key, "required when any FS_S3_* or FS_BUCKET variable is set")
			}
		}
		if strings.Contains(mirror.Endpoint, "://") {
			v.ValidateURL("FS_S3_ENDPOINT", mirror.Endpoint)
		}
	}

	v.ValidateEnum("FS_LOG_FORMAT", os.Getenv("FS_LOG_FORMAT"), []string{LogFormatJSON, LogFormatText})
	v.ValidateEnum("FS_LOG_LEVEL", os.Getenv("FS_LOG_LEVEL"),
		[]string{LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError, LogLevelNone})

	if v.HasErrors() {
		slices.SortFunc(v.errors, func(a, b ConfigValidationError) int { return strings.Compare(a.Field, b.Field) })
		return fmt.Errorf("%s", v.ErrorString())
	}
	return nil
}

// MirrorConfigFromEnv reads the object mirror settings.
func MirrorConfigFromEnv() MirrorConfig {
	return MirrorConfig{
		Endpoint:  os.Getenv("FS_S3_ENDPOINT"),
		AccessKey: os.Getenv("FS_S3_ACCESS_KEY"),
		SecretKey: os.Getenv("FS_S3_SECRET_KEY"),
		Bucket:    os.Getenv("FS_BUCKET"),
		Prefix:    os.Getenv("FS_S3_PREFIX"),
	}
}

// WarnOnOptionalMissingConfig logs warnings for optional but recommended config.
func WarnOnOptionalMissingConfig(log *zap.Logger) {
	var warnings []string
	if os.Getenv("FS_MAX_UPLOAD_BYTES") == "" {
		warnings = append(warnings, "FS_MAX_UPLOAD_BYTES not set - uploads are unbounded")
	}
	if os.Getenv("DATABASE_URL") == "" {
		warnings = append(warnings, "DATABASE_URL not set - audit trail disabled")
	}
	if !MirrorConfigFromEnv().Enabled() {
		warnings = append(warnings, "FS_S3_ENDPOINT not set - object mirror disabled")
	}
	if len(warnings) > 0 {
		log.Info("configuration warnings", zap.Int("count", len(warnings)), zap.Strings("warnings", warnings))
	}
}
