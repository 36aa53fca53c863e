// Package config provides configuration management for the Minecraft sign-in CLI.
// It handles loading and parsing YAML configuration files, applies environment
// overrides and provides structured access to the application registration,
// callback listener, request limits, logging and proxy settings.
package config

// SDKConfig holds the outbound connection settings shared by every HTTP call of the chain.
type SDKConfig struct {
	// ProxyURL is the URL of an optional proxy server to use for outbound requests.
	// Supported schemes are socks5, http and https.
	ProxyURL string `yaml:"proxy-url" json:"proxy-url"`

	// RequestLog logs every stage request and response status at info level
	// instead of debug.
	RequestLog bool `yaml:"request-log" json:"request-log"`
}
