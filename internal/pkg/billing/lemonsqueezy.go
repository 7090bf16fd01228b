package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	jsonAPIContentType = "application/vnd.api+json"
	receiptButtonText  = "Go to Dashboard"
)

// LemonSqueezyClient talks to the Lemon Squeezy REST API.
type LemonSqueezyClient struct {
	APIKey     string
	APIURL     string
	StoreID    string
	VariantID  string
	TestMode   bool
	HTTPClient *http.Client
}

// CheckoutRequest describes a single credit purchase.
type CheckoutRequest struct {
	Email       string
	UserID      uint
	Credits     int
	PriceCents  int64
	RedirectURL string
}

// NewLemonSqueezyClient builds a client from the billing configuration.
func NewLemonSqueezyClient(cfg Config) *LemonSqueezyClient {
	return &LemonSqueezyClient{
		APIKey:    cfg.APIKey,
		APIURL:    cfg.APIURL,
		StoreID:   cfg.StoreID,
		VariantID: cfg.VariantID,
		TestMode:  cfg.TestMode,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type jsonAPIRelation struct {
	Data struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	} `json:"data"`
}

type checkoutAttributes struct {
	CustomPrice    int64 `json:"custom_price"`
	ProductOptions struct {
		RedirectURL       string `json:"redirect_url"`
		ReceiptButtonText string `json:"receipt_button_text"`
	} `json:"product_options"`
	CheckoutOptions struct {
		Embed bool `json:"embed"`
		Media bool `json:"media"`
		Logo  bool `json:"logo"`
	} `json:"checkout_options"`
	CheckoutData struct {
		Email  string            `json:"email,omitempty"`
		Custom map[string]string `json:"custom"`
	} `json:"checkout_data"`
	ExpiresAt *string `json:"expires_at"`
	Preview   bool    `json:"preview"`
	TestMode  bool    `json:"test_mode"`
}

type checkoutBody struct {
	Data struct {
		Type          string             `json:"type"`
		Attributes    checkoutAttributes `json:"attributes"`
		Relationships struct {
			Store   jsonAPIRelation `json:"store"`
			Variant jsonAPIRelation `json:"variant"`
		} `json:"relationships"`
	} `json:"data"`
}

func (c *LemonSqueezyClient) buildCheckoutBody(in CheckoutRequest) checkoutBody {
	var body checkoutBody
	body.Data.Type = "checkouts"

	attrs := &body.Data.Attributes
	attrs.CustomPrice = in.PriceCents
	attrs.ProductOptions.RedirectURL = in.RedirectURL
	attrs.ProductOptions.ReceiptButtonText = receiptButtonText
	attrs.CheckoutOptions.Embed = true
	attrs.CheckoutOptions.Media = true
	attrs.CheckoutOptions.Logo = true
	attrs.CheckoutData.Email = in.Email
	attrs.CheckoutData.Custom = map[string]string{
		"user_id": strconv.FormatUint(uint64(in.UserID), 10),
		"credits": strconv.Itoa(in.Credits),
	}
	attrs.TestMode = c.TestMode

	body.Data.Relationships.Store.Data.Type = "stores"
	body.Data.Relationships.Store.Data.ID = c.StoreID
	body.Data.Relationships.Variant.Data.Type = "variants"
	body.Data.Relationships.Variant.Data.ID = c.VariantID
	return body
}

// CreateCheckout creates a hosted checkout and returns its URL.
func (c *LemonSqueezyClient) CreateCheckout(ctx context.Context, in CheckoutRequest) (string, error) {
	if strings.TrimSpace(c.APIKey) == "" || strings.TrimSpace(c.StoreID) == "" || strings.TrimSpace(c.VariantID) == "" {
		return "", fmt.Errorf("%w: lemon squeezy api key, store id and variant id are required", ErrConfiguration)
	}

	payload, err := json.Marshal(c.buildCheckoutBody(in))
	if err != nil {
		return "", err
	}

	endpoint := strings.TrimRight(c.APIURL, "/") + "/v1/checkouts"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", jsonAPIContentType)
	req.Header.Set("Content-Type", jsonAPIContentType)
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read checkout response (status=%d): %v", ErrUpstream, resp.StatusCode, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: checkout request failed: status=%d body=%s", ErrUpstream, resp.StatusCode, string(body))
	}

	var out struct {
		Data struct {
			Attributes struct {
				URL string `json:"url"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: decode checkout response: %v", ErrUpstream, err)
	}
	url := strings.TrimSpace(out.Data.Attributes.URL)
	if url == "" {
		return "", fmt.Errorf("%w: %v", ErrUpstream, errors.New("checkout response has no url"))
	}
	return url, nil
}
