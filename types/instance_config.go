package types

// InstanceConfig holds the admin-managed configuration for this deployment:
// the extraction provider credentials and the set of configured dispatch
// sinks. The pipeline always reads a fresh snapshot per operation since the
// admin may change it concurrently; it is never cached.
type InstanceConfig struct {
	ID         string `json:"id"`
	AdminEmail string `json:"adminEmail"`

	// Extraction service selection and credentials.
	LLMProvider string `json:"llmProvider"`
	LLMAPIKey   string `json:"-"`

	// Webhook sink: enabled when non-empty.
	WebhookURL string `json:"webhookUrl,omitempty"`

	// Object-store sink: enabled when all four are present.
	S3Bucket          string `json:"s3Bucket,omitempty"`
	S3Region          string `json:"s3Region,omitempty"`
	S3AccessKeyID     string `json:"-"`
	S3SecretAccessKey string `json:"-"`

	// Spreadsheet sink: enabled when non-empty. Path of the workbook the
	// monthly log sheets are written to.
	SpreadsheetPath string `json:"spreadsheetPath,omitempty"`
}

// IsConfigured reports whether the essential extraction configuration is
// complete. Sinks are optional and do not gate ingress.
func (c *InstanceConfig) IsConfigured() bool {
	return c.LLMProvider != "" && c.LLMAPIKey != ""
}

// WebhookEnabled reports whether the webhook sink should receive events.
func (c *InstanceConfig) WebhookEnabled() bool {
	return c.WebhookURL != ""
}

// S3Enabled reports whether the object-store sink should receive events.
func (c *InstanceConfig) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != "" && c.S3AccessKeyID != "" && c.S3SecretAccessKey != ""
}

// SpreadsheetEnabled reports whether the spreadsheet sink should receive
// events.
func (c *InstanceConfig) SpreadsheetEnabled() bool {
	return c.SpreadsheetPath != ""
}
