package template

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Names of the templates the service sends on its own.
const (
	OrderConfirmation    = "order_confirmation"
	ShippingNotification = "shipping_notification"
)

// DefaultTrackingNumber fills {{trackingNumber}} until a carrier reference exists.
const DefaultTrackingNumber = "Will be updated soon"

// Default is a built-in template definition.
type Default struct {
	Name      string   `yaml:"name"`
	Subject   string   `yaml:"subject"`
	Body      string   `yaml:"body"`
	Variables []string `yaml:"variables"`
}

//go:embed defaults.yaml
var defaultsYAML []byte

// Defaults returns the built-in templates.
func Defaults() ([]Default, error) {
	var doc struct {
		Templates []Default `yaml:"templates"`
	}
	if err := yaml.Unmarshal(defaultsYAML, &doc); err != nil {
		return nil, fmt.Errorf("parse default templates: %w", err)
	}
	for i := range doc.Templates {
		doc.Templates[i].Body = strings.TrimSpace(doc.Templates[i].Body)
		if len(doc.Templates[i].Variables) == 0 {
			doc.Templates[i].Variables = Variables(doc.Templates[i].Subject, doc.Templates[i].Body)
		}
	}
	return doc.Templates, nil
}
