package billing

import (
	"fmt"
	"strings"

	"github.com/tooldashai/tooldash/internal/pkg/env"
)

const (
	StoreStatusApproved = "approved"
	StoreStatusPending  = "pending"

	defaultLemonSqueezyAPIURL = "https://api.lemonsqueezy.com"
)

// Config carries every provider setting the billing flow needs. It is loaded
// once at startup and passed to the components that use it.
type Config struct {
	APIKey        string
	APIURL        string
	StoreID       string
	VariantID     string
	WebhookSecret string
	WebhookURL    string
	StoreStatus   string
	TestMode      bool
	TestUserID    string
	RedirectURL   string
}

// LoadConfig reads the billing configuration from the environment.
func LoadConfig() Config {
	status := strings.ToLower(strings.TrimSpace(env.GetEnv("LEMONSQUEEZY_STORE_STATUS", StoreStatusApproved)))
	if status == "" {
		status = StoreStatusApproved
	}

	return Config{
		APIKey:        strings.TrimSpace(env.GetEnv("LEMONSQUEEZY_API_KEY", "")),
		APIURL:        strings.TrimRight(strings.TrimSpace(env.GetEnv("LEMONSQUEEZY_API_URL", defaultLemonSqueezyAPIURL)), "/"),
		StoreID:       strings.TrimSpace(env.GetEnv("LEMONSQUEEZY_STORE_ID", "")),
		VariantID:     strings.TrimSpace(env.GetEnv("LEMONSQUEEZY_VARIANT_ID", "")),
		WebhookSecret: strings.TrimSpace(env.GetEnv("LEMONSQUEEZY_WEBHOOK_SECRET", "")),
		WebhookURL:    strings.TrimSpace(env.GetEnv("LEMONSQUEEZY_WEBHOOK_URL", "")),
		StoreStatus:   status,
		TestMode:      parseBool(env.GetEnv("LEMONSQUEEZY_TEST_MODE", "true")),
		TestUserID:    strings.TrimSpace(env.GetEnv("ME_USER_ID", "")),
		RedirectURL:   strings.TrimSpace(env.GetEnv("HOST_NAME", "")),
	}
}

// MissingVars lists the required variables that are empty.
func (c Config) MissingVars() []string {
	required := []struct {
		name  string
		value string
	}{
		{"LEMONSQUEEZY_API_KEY", c.APIKey},
		{"LEMONSQUEEZY_STORE_ID", c.StoreID},
		{"LEMONSQUEEZY_VARIANT_ID", c.VariantID},
		{"LEMONSQUEEZY_WEBHOOK_SECRET", c.WebhookSecret},
		{"LEMONSQUEEZY_WEBHOOK_URL", c.WebhookURL},
	}

	var missing []string
	for _, r := range required {
		if r.value == "" {
			missing = append(missing, r.name)
		}
	}
	return missing
}

// Validate fails with ErrConfiguration when a required variable is unset.
func (c Config) Validate() error {
	if missing := c.MissingVars(); len(missing) > 0 {
		return fmt.Errorf("%w: missing required LEMONSQUEEZY env variables: %s. Please, set them in your .env file",
			ErrConfiguration, strings.Join(missing, ", "))
	}
	return nil
}

// IsPending reports whether the store is still waiting for approval.
func (c Config) IsPending() bool {
	return c.StoreStatus == StoreStatusPending
}

// IsTestUser reports whether userID is the operator account that may use
// checkout regardless of the store approval status.
func (c Config) IsTestUser(userID uint) bool {
	return c.TestUserID != "" && fmt.Sprint(userID) == c.TestUserID
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
