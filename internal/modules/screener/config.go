package screener

import (
	"fmt"

	"github.com/aristath/put-screener/internal/domain"
	"github.com/aristath/put-screener/internal/modules/settings"
)

// SettingsReader exposes the settings store to the screener.
type SettingsReader interface {
	GetFloat(key string, defaultValue float64) (float64, error)
	GetInt(key string, defaultValue int) (int, error)
	GetString(key string, defaultValue string) (string, error)
}

// Config holds every screening threshold, read once at run start. A Config
// is immutable for the duration of a run; mid-run settings changes apply
// to the next run.
type Config struct {
	MarketETF              string
	StalenessDays          int
	Stock52wPctMax         float64
	PERatioMin             float64
	PERatioMax             float64
	MarketCapMinMillions   float64
	AvgVolumeMinMillions   float64
	TargetDTE              int
	DTETolerance           int
	PutStrikeDiscount      float64
	MinAnnualizedYield     float64
	MaxSpreadRatio         float64
	TargetPremiumThousands float64
}

// LoadConfig reads and validates the screening thresholds from the
// settings store. Any malformed or out-of-range value is a
// ConfigurationError and aborts the run before ticker processing.
func LoadConfig(setting SettingsReader) (*Config, error) {
	cfg := &Config{}

	var err error
	if cfg.MarketETF, err = setting.GetString("market_etf", settings.DefaultString("market_etf")); err != nil {
		return nil, readError("market_etf", err)
	}
	if cfg.StalenessDays, err = setting.GetInt("price_staleness_days", settings.DefaultInt("price_staleness_days")); err != nil {
		return nil, readError("price_staleness_days", err)
	}
	if cfg.Stock52wPctMax, err = setting.GetFloat("stock_52w_percentile_max", settings.DefaultFloat("stock_52w_percentile_max")); err != nil {
		return nil, readError("stock_52w_percentile_max", err)
	}
	if cfg.PERatioMin, err = setting.GetFloat("pe_ratio_min", settings.DefaultFloat("pe_ratio_min")); err != nil {
		return nil, readError("pe_ratio_min", err)
	}
	if cfg.PERatioMax, err = setting.GetFloat("pe_ratio_max", settings.DefaultFloat("pe_ratio_max")); err != nil {
		return nil, readError("pe_ratio_max", err)
	}
	if cfg.MarketCapMinMillions, err = setting.GetFloat("market_cap_min_millions", settings.DefaultFloat("market_cap_min_millions")); err != nil {
		return nil, readError("market_cap_min_millions", err)
	}
	if cfg.AvgVolumeMinMillions, err = setting.GetFloat("avg_volume_usd_min_millions", settings.DefaultFloat("avg_volume_usd_min_millions")); err != nil {
		return nil, readError("avg_volume_usd_min_millions", err)
	}
	if cfg.TargetDTE, err = setting.GetInt("target_dte", settings.DefaultInt("target_dte")); err != nil {
		return nil, readError("target_dte", err)
	}
	if cfg.DTETolerance, err = setting.GetInt("dte_tolerance", settings.DefaultInt("dte_tolerance")); err != nil {
		return nil, readError("dte_tolerance", err)
	}
	if cfg.PutStrikeDiscount, err = setting.GetFloat("put_strike_discount", settings.DefaultFloat("put_strike_discount")); err != nil {
		return nil, readError("put_strike_discount", err)
	}
	if cfg.MinAnnualizedYield, err = setting.GetFloat("min_annualized_premium_yield", settings.DefaultFloat("min_annualized_premium_yield")); err != nil {
		return nil, readError("min_annualized_premium_yield", err)
	}
	if cfg.MaxSpreadRatio, err = setting.GetFloat("max_spread_ratio", settings.DefaultFloat("max_spread_ratio")); err != nil {
		return nil, readError("max_spread_ratio", err)
	}
	if cfg.TargetPremiumThousands, err = setting.GetFloat("target_premium_thousands", settings.DefaultFloat("target_premium_thousands")); err != nil {
		return nil, readError("target_premium_thousands", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if !domain.IsMarketETF(c.MarketETF) {
		return &domain.ConfigurationError{Key: "market_etf", Message: fmt.Sprintf("unknown market ETF %q", c.MarketETF)}
	}
	if c.StalenessDays < 1 {
		return &domain.ConfigurationError{Key: "price_staleness_days", Message: "must be at least 1"}
	}
	if c.Stock52wPctMax <= 0 || c.Stock52wPctMax > 1 {
		return &domain.ConfigurationError{Key: "stock_52w_percentile_max", Message: "must be in (0, 1]"}
	}
	if c.PERatioMin <= 0 {
		return &domain.ConfigurationError{Key: "pe_ratio_min", Message: "must be positive"}
	}
	if c.PERatioMin >= c.PERatioMax {
		return &domain.ConfigurationError{Key: "pe_ratio_min", Message: "must be below pe_ratio_max"}
	}
	if c.MarketCapMinMillions <= 0 {
		return &domain.ConfigurationError{Key: "market_cap_min_millions", Message: "must be positive"}
	}
	if c.AvgVolumeMinMillions <= 0 {
		return &domain.ConfigurationError{Key: "avg_volume_usd_min_millions", Message: "must be positive"}
	}
	if c.TargetDTE < 1 {
		return &domain.ConfigurationError{Key: "target_dte", Message: "must be at least 1"}
	}
	if c.DTETolerance < 0 {
		return &domain.ConfigurationError{Key: "dte_tolerance", Message: "must not be negative"}
	}
	if c.PutStrikeDiscount <= 0 || c.PutStrikeDiscount >= 1 {
		return &domain.ConfigurationError{Key: "put_strike_discount", Message: "must be in (0, 1)"}
	}
	if c.MinAnnualizedYield <= 0 {
		return &domain.ConfigurationError{Key: "min_annualized_premium_yield", Message: "must be positive"}
	}
	if c.MaxSpreadRatio <= 0 {
		return &domain.ConfigurationError{Key: "max_spread_ratio", Message: "must be positive"}
	}
	if c.TargetPremiumThousands <= 0 {
		return &domain.ConfigurationError{Key: "target_premium_thousands", Message: "must be positive"}
	}
	return nil
}

func readError(key string, err error) error {
	return &domain.ConfigurationError{Key: key, Message: err.Error()}
}
