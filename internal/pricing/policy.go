package pricing

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Policy holds the checkout pricing constants. Amounts are minor currency units.
type Policy struct {
	TaxRateBPS                 int64  `yaml:"tax_rate_bps" validate:"gte=0,lte=10000"`
	FreeShippingThresholdCents int64  `yaml:"free_shipping_threshold_cents" validate:"gte=0"`
	FlatShippingCents          int64  `yaml:"flat_shipping_cents" validate:"gte=0"`
	Currency                   string `yaml:"currency" validate:"required,len=3,lowercase"`
}

func DefaultPolicy() Policy {
	return Policy{
		TaxRateBPS:                 1800,
		FreeShippingThresholdCents: 50_000,
		FlatShippingCents:          5_000,
		Currency:                   "inr",
	}
}

var policyValidator = validator.New()

func (p Policy) Validate() error {
	if err := policyValidator.Struct(p); err != nil {
		return fmt.Errorf("invalid pricing policy: %w", err)
	}
	return nil
}

// LoadPolicyFile overlays the values present in a YAML file onto base.
func LoadPolicyFile(path string, base Policy) (Policy, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("failed to read pricing policy: %w", err)
	}
	return ParsePolicy(content, base)
}

func ParsePolicy(content []byte, base Policy) (Policy, error) {
	policy := base
	if err := yaml.Unmarshal(content, &policy); err != nil {
		return Policy{}, fmt.Errorf("failed to parse YAML: %w", err)
	}
	policy.Currency = strings.ToLower(strings.TrimSpace(policy.Currency))

	if err := policy.Validate(); err != nil {
		return Policy{}, err
	}
	return policy, nil
}
