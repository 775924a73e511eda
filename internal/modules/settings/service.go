package settings

import (
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/aristath/put-screener/internal/domain"
)

// Service provides settings business logic
type Service struct {
	repo *Repository
	log  zerolog.Logger
}

// NewService creates a new settings service
func NewService(repo *Repository, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With().Str("service", "settings").Logger(),
	}
}

// GetAll retrieves all settings with defaults
func (s *Service) GetAll() (map[string]interface{}, error) {
	dbValues, err := s.repo.GetAll()
	if err != nil {
		return nil, err
	}

	result := make(map[string]interface{})
	for key, defaultValue := range SettingDefaults {
		if dbValue, exists := dbValues[key]; exists {
			if StringSettings[key] {
				result[key] = dbValue
			} else if floatVal, err := strconv.ParseFloat(dbValue, 64); err == nil {
				result[key] = floatVal
			} else {
				result[key] = defaultValue
			}
		} else {
			result[key] = defaultValue
		}
	}

	return result, nil
}

// Get retrieves a setting value with fallback to default
func (s *Service) Get(key string) (interface{}, error) {
	dbValue, err := s.repo.Get(key)
	if err != nil {
		return nil, err
	}

	if dbValue != nil {
		if StringSettings[key] {
			return *dbValue, nil
		}
		if floatVal, err := strconv.ParseFloat(*dbValue, 64); err == nil {
			return floatVal, nil
		}
	}

	defaultValue, exists := SettingDefaults[key]
	if !exists {
		return nil, fmt.Errorf("unknown setting: %s", key)
	}
	return defaultValue, nil
}

// Set updates a setting value with validation
func (s *Service) Set(key string, value interface{}) error {
	if _, exists := SettingDefaults[key]; !exists {
		return fmt.Errorf("unknown setting: %s", key)
	}

	if StringSettings[key] {
		strVal, ok := value.(string)
		if !ok {
			return fmt.Errorf("%s must be a string", key)
		}
		if err := s.validateString(key, strVal); err != nil {
			return err
		}
		return s.repo.Set(key, strVal, nil)
	}

	var floatVal float64
	switch v := value.(type) {
	case float64:
		floatVal = v
	case int:
		floatVal = float64(v)
	default:
		return fmt.Errorf("%s must be a number", key)
	}

	if err := s.validateNumeric(key, floatVal); err != nil {
		return err
	}

	return s.repo.Set(key, strconv.FormatFloat(floatVal, 'f', -1, 64), nil)
}

// Reset removes a stored value so the default applies again.
func (s *Service) Reset(key string) error {
	if _, exists := SettingDefaults[key]; !exists {
		return fmt.Errorf("unknown setting: %s", key)
	}
	return s.repo.Delete(key)
}

func (s *Service) validateString(key, value string) error {
	switch key {
	case "market_etf":
		if !domain.IsMarketETF(value) {
			return fmt.Errorf("market_etf must be one of %v", domain.MarketETFs)
		}
	case "history_period":
		if !ValidHistoryPeriods[value] {
			return fmt.Errorf("invalid history_period: %s", value)
		}
	}
	return nil
}

func (s *Service) validateNumeric(key string, value float64) error {
	switch key {
	case "stock_52w_percentile_max":
		if value <= 0 || value > 1 {
			return fmt.Errorf("stock_52w_percentile_max must be in (0, 1]")
		}
	case "put_strike_discount":
		if value < 0 || value > 0.5 {
			return fmt.Errorf("put_strike_discount must be in [0, 0.5]")
		}
	case "min_annualized_premium_yield":
		if value < 0 {
			return fmt.Errorf("min_annualized_premium_yield must be non-negative")
		}
	case "max_spread_ratio":
		if value <= 0 {
			return fmt.Errorf("max_spread_ratio must be positive")
		}
	case "pe_ratio_min":
		peMax, _ := s.repo.GetFloat("pe_ratio_max", DefaultFloat("pe_ratio_max"))
		if value < 0 || value >= peMax {
			return fmt.Errorf("pe_ratio_min must be non-negative and below pe_ratio_max (%g)", peMax)
		}
	case "pe_ratio_max":
		peMin, _ := s.repo.GetFloat("pe_ratio_min", DefaultFloat("pe_ratio_min"))
		if value <= peMin {
			return fmt.Errorf("pe_ratio_max must be above pe_ratio_min (%g)", peMin)
		}
	case "target_dte":
		if value < 1 {
			return fmt.Errorf("target_dte must be at least 1")
		}
	case "dte_tolerance":
		if value < 0 {
			return fmt.Errorf("dte_tolerance must be non-negative")
		}
	case "atr_period":
		if value < 1 {
			return fmt.Errorf("atr_period must be at least 1")
		}
	case "metrics_min_bars":
		if value < 2 {
			return fmt.Errorf("metrics_min_bars must be at least 2")
		}
	case "price_staleness_days":
		if value < 1 {
			return fmt.Errorf("price_staleness_days must be at least 1")
		}
	case "lateral_trend_atr_threshold", "market_cap_min_millions", "avg_volume_usd_min_millions":
		if value < 0 {
			return fmt.Errorf("%s must be non-negative", key)
		}
	case "target_premium_thousands":
		if value <= 0 {
			return fmt.Errorf("target_premium_thousands must be positive")
		}
	case "universe_screen_limit":
		if value < 1 || value > 10000 {
			return fmt.Errorf("universe_screen_limit must be between 1 and 10000")
		}
	}
	return nil
}
