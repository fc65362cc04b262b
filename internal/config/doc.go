// Package config loads, validates, and normalizes reelsmith configuration.
//
// Configuration is TOML with environment fallback for provider credentials.
// Every provider section carries its own concurrency ceiling; the scheduler
// never dispatches more in-flight calls than a provider's ceiling allows.
package config
