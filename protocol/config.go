package protocol

import "time"

// DefaultAuthorizationValidity is how long a decryption authorization
// remains acceptable to the Gateway.
const DefaultAuthorizationValidity = 72 * time.Hour

// MarketConfig provides configuration parameters for a marketplace
// deployment. Served verbatim at GET /config so CLI and front-end clients
// bind to the same Gateway context.
type MarketConfig struct {
	// ContextID identifies this deployment to the Gateway. Decryption
	// authorizations are bound to it and are not valid elsewhere.
	ContextID string `json:"context_id"`

	// AuthorizationValidity is the validity window stamped on decryption
	// authorizations.
	AuthorizationValidity time.Duration `json:"authorization_validity,string"`
}

// DefaultMarketConfig returns a configuration with the standard validity
// window and the given context id.
func DefaultMarketConfig(contextID string) *MarketConfig {
	return &MarketConfig{
		ContextID:             contextID,
		AuthorizationValidity: DefaultAuthorizationValidity,
	}
}
