package types

// Device is an authenticated submission source registered by the admin.
// The core pipeline treats devices as read-only: enrollment happens through
// an external admin flow.
type Device struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// APIKey is the unique bearer credential the device presents at ingress.
	APIKey string `json:"-"`
}
