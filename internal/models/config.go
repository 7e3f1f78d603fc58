package models

import "encoding/json"

// TenantConfig is the per-tenant configuration blob from the registry file.
//
// The fields the relay actually understands are typed; everything else a
// tenant ships in its blob is kept verbatim in Extra and round-trips through
// storage untouched, so channel connectors can stash their own settings here
// without a schema change on our side.
type TenantConfig struct {
	BotName        string `json:"bot_name,omitempty"`
	Language       string `json:"language,omitempty"`
	WelcomeMessage string `json:"welcome_message,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// knownConfigKeys are the blob keys bound to typed fields above.
var knownConfigKeys = map[string]bool{
	"bot_name":        true,
	"language":        true,
	"welcome_message": true,
}

func (c *TenantConfig) UnmarshalJSON(data []byte) error {
	type alias TenantConfig
	var typed alias
	if err := json.Unmarshal(data, &typed); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key := range raw {
		if knownConfigKeys[key] {
			delete(raw, key)
		}
	}
	if len(raw) == 0 {
		raw = nil
	}

	*c = TenantConfig(typed)
	c.Extra = raw
	return nil
}

func (c TenantConfig) MarshalJSON() ([]byte, error) {
	type alias TenantConfig
	typed, err := json.Marshal(alias(c))
	if err != nil {
		return nil, err
	}
	if len(c.Extra) == 0 {
		return typed, nil
	}

	merged := make(map[string]json.RawMessage, len(c.Extra)+3)
	if err := json.Unmarshal(typed, &merged); err != nil {
		return nil, err
	}
	for key, value := range c.Extra {
		if _, clash := merged[key]; clash {
			continue
		}
		merged[key] = value
	}
	return json.Marshal(merged)
}

// ParseTenantConfig decodes a registry config blob. An empty blob is a valid
// zero config.
func ParseTenantConfig(blob string) (TenantConfig, error) {
	var cfg TenantConfig
	if blob == "" {
		return cfg, nil
	}
	if err := json.Unmarshal([]byte(blob), &cfg); err != nil {
		return TenantConfig{}, err
	}
	return cfg, nil
}
