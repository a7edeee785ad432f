package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rpattn/creditdq/internal/db"
	"github.com/rpattn/creditdq/internal/domain"
	"github.com/rpattn/creditdq/internal/export"
	"github.com/rpattn/creditdq/internal/validation"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "CREDITDQ"

// Source kinds.
const (
	SourceDir      = "dir"
	SourcePostgres = "postgres"
	SourceSQLite   = "sqlite"
)

// Config is the decoded, validated application configuration.
type Config struct {
	AsOfDate   string     `mapstructure:"as_of_date" validate:"omitempty,datetime=2006-01-02"`
	Thresholds Thresholds `mapstructure:"thresholds"`
	Report     Report     `mapstructure:"report"`
	Source     Source     `mapstructure:"source"`
	Database   db.Config  `mapstructure:"database"`
	Store      Store      `mapstructure:"store"`
	Log        Log        `mapstructure:"log"`
}

// Thresholds tune the individual checks.
type Thresholds struct {
	AbsoluteTolerance           float64 `mapstructure:"absolute_tolerance" validate:"gte=0"`
	RelativeTolerance           float64 `mapstructure:"relative_tolerance" validate:"gte=0"`
	OutlierPercentileLow        float64 `mapstructure:"outlier_percentile_low" validate:"gte=0,ltfield=OutlierPercentileHigh"`
	OutlierPercentileHigh       float64 `mapstructure:"outlier_percentile_high" validate:"lte=100"`
	FeeRatioLow                 float64 `mapstructure:"fee_ratio_low" validate:"gte=0,ltfield=FeeRatioHigh"`
	FeeRatioHigh                float64 `mapstructure:"fee_ratio_high"`
	MinLeadsForConversionCheck  int     `mapstructure:"min_leads_for_conversion_check" validate:"gte=0"`
	ConversionLow               float64 `mapstructure:"conversion_low" validate:"gte=0,ltfield=ConversionHigh"`
	ConversionHigh              float64 `mapstructure:"conversion_high" validate:"lte=1"`
	ScopeInvoicesToCreditWindow bool    `mapstructure:"scope_invoices_to_credit_window"`
}

// Report controls the emitted ledger and artifacts.
type Report struct {
	MinSeverity   string   `mapstructure:"min_severity" validate:"oneof=Info Warning Critical info warning critical"`
	TopMismatches int      `mapstructure:"top_mismatches" validate:"gte=0"`
	Formats       []string `mapstructure:"formats" validate:"dive,oneof=csv md markdown xlsx parquet json"`
	OutputDir     string   `mapstructure:"output_dir" validate:"required"`
}

// Source names where the entity tables are read from.
type Source struct {
	Kind   string `mapstructure:"kind" validate:"oneof=dir postgres sqlite"`
	Path   string `mapstructure:"path" validate:"required_unless=Kind postgres"`
	Schema string `mapstructure:"schema"`
}

// Store enables persisting runs to Postgres.
type Store struct {
	Enabled bool `mapstructure:"enabled"`
}

// Log configures the process logger.
type Log struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn warning error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// flagKeys maps CLI flag names onto configuration keys.
var flagKeys = map[string]string{
	"as-of":        "as_of_date",
	"source":       "source.kind",
	"input":        "source.path",
	"schema":       "source.schema",
	"output":       "report.output_dir",
	"format":       "report.formats",
	"min-severity": "report.min_severity",
	"top":          "report.top_mismatches",
	"store":        "store.enabled",
	"log-level":    "log.level",
	"log-format":   "log.format",
}

func setDefaults(v *viper.Viper) {
	defaults := validation.DefaultOptions(time.Now())
	dbDefaults := db.DefaultConfig()

	v.SetDefault("as_of_date", "")
	v.SetDefault("thresholds.absolute_tolerance", defaults.AbsoluteTolerance.InexactFloat64())
	v.SetDefault("thresholds.relative_tolerance", defaults.RelativeTolerance.InexactFloat64())
	v.SetDefault("thresholds.outlier_percentile_low", defaults.OutlierPercentileLow)
	v.SetDefault("thresholds.outlier_percentile_high", defaults.OutlierPercentileHigh)
	v.SetDefault("thresholds.fee_ratio_low", defaults.FeeRatioLow.InexactFloat64())
	v.SetDefault("thresholds.fee_ratio_high", defaults.FeeRatioHigh.InexactFloat64())
	v.SetDefault("thresholds.min_leads_for_conversion_check", defaults.MinLeadsForConversionCheck)
	v.SetDefault("thresholds.conversion_low", defaults.ConversionLow)
	v.SetDefault("thresholds.conversion_high", defaults.ConversionHigh)
	v.SetDefault("thresholds.scope_invoices_to_credit_window", defaults.ScopeInvoicesToCreditWindow)

	v.SetDefault("report.min_severity", defaults.MinSeverity.String())
	v.SetDefault("report.top_mismatches", defaults.TopMismatches)
	formats := make([]string, 0, len(export.DefaultFormats))
	for _, f := range export.DefaultFormats {
		formats = append(formats, string(f))
	}
	v.SetDefault("report.formats", formats)
	v.SetDefault("report.output_dir", "reports")

	v.SetDefault("source.kind", SourceDir)
	v.SetDefault("source.path", "data")
	v.SetDefault("source.schema", "public")

	v.SetDefault("database.host", dbDefaults.Host)
	v.SetDefault("database.port", dbDefaults.Port)
	v.SetDefault("database.user", dbDefaults.User)
	v.SetDefault("database.password", dbDefaults.Password)
	v.SetDefault("database.dbname", dbDefaults.DBName)
	v.SetDefault("database.sslmode", dbDefaults.SSLMode)
	v.SetDefault("database.max_conns", dbDefaults.MaxConns)
	v.SetDefault("database.conn_max_lifetime", dbDefaults.ConnMaxLifetime)

	v.SetDefault("store.enabled", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration from defaults, an optional YAML file, CREDITDQ_*
// environment variables and any changed flags, in increasing precedence.
// With an empty path the file is looked up as creditdq.yaml in the working
// directory and ./configs, and its absence is not an error.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("creditdq")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if flag := flags.Lookup(name); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return Config{}, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints and reports every failing field.
func (c Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return fmt.Errorf("invalid config: %w", err)
		}
		problems := make([]string, 0, len(validationErrors))
		for _, ve := range validationErrors {
			problems = append(problems, fmt.Sprintf("%s (%s)", ve.Namespace(), ve.Tag()))
		}
		sort.Strings(problems)
		return fmt.Errorf("invalid config: %s", strings.Join(problems, ", "))
	}
	return nil
}

// Options converts the configuration into validation options evaluated as of
// the configured date, or today in UTC.
func (c Config) Options() (validation.Options, error) {
	return c.OptionsAt(time.Now())
}

// OptionsAt is Options with an explicit clock for the default as-of date.
func (c Config) OptionsAt(now time.Time) (validation.Options, error) {
	opts := validation.DefaultOptions(now)

	if c.AsOfDate != "" {
		asOf, err := time.Parse("2006-01-02", c.AsOfDate)
		if err != nil {
			return validation.Options{}, fmt.Errorf("invalid as_of_date %q: %w", c.AsOfDate, err)
		}
		opts.AsOf = asOf
	}

	severity, err := domain.ParseSeverity(c.Report.MinSeverity)
	if err != nil {
		return validation.Options{}, err
	}

	t := c.Thresholds
	opts.AbsoluteTolerance = decimal.NewFromFloat(t.AbsoluteTolerance)
	opts.RelativeTolerance = decimal.NewFromFloat(t.RelativeTolerance)
	opts.OutlierPercentileLow = t.OutlierPercentileLow
	opts.OutlierPercentileHigh = t.OutlierPercentileHigh
	opts.FeeRatioLow = decimal.NewFromFloat(t.FeeRatioLow)
	opts.FeeRatioHigh = decimal.NewFromFloat(t.FeeRatioHigh)
	opts.MinLeadsForConversionCheck = t.MinLeadsForConversionCheck
	opts.ConversionLow = t.ConversionLow
	opts.ConversionHigh = t.ConversionHigh
	opts.ScopeInvoicesToCreditWindow = t.ScopeInvoicesToCreditWindow
	opts.MinSeverity = severity
	opts.TopMismatches = c.Report.TopMismatches
	return opts, nil
}

// Formats parses the configured report formats.
func (c Config) Formats() ([]export.Format, error) {
	formats := make([]export.Format, 0, len(c.Report.Formats))
	for _, raw := range c.Report.Formats {
		f, err := export.ParseFormat(raw)
		if err != nil {
			return nil, err
		}
		formats = append(formats, f)
	}
	return formats, nil
}
