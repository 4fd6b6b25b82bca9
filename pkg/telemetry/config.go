// Package telemetry provides OpenTelemetry integration for distributed
// tracing of import runs.
//
// Configuration comes from the standard OTel environment variables:
//
//	OTEL_ENABLED                  - enable tracing (default: false)
//	OTEL_SERVICE_NAME             - service name (default: graph-import)
//	OTEL_SERVICE_VERSION          - service version (default: unknown)
//	OTEL_EXPORTER_OTLP_ENDPOINT   - OTLP collector endpoint
//	OTEL_EXPORTER_OTLP_PROTOCOL   - grpc or http/protobuf (default: grpc)
//	OTEL_EXPORTER_OTLP_HEADERS    - auth headers, "k1=v1,k2=v2"
//	OTEL_EXPORTER_OTLP_INSECURE   - plain-text connection (default: false)
//	OTEL_TRACES_SAMPLER           - sampler type (default: always_on)
//	OTEL_TRACES_SAMPLER_ARG       - sampler argument (e.g. a ratio)
//	OTEL_RESOURCE_ATTRIBUTES      - extra resource attributes
package telemetry

import (
	"os"
	"strings"
)

// Config holds OpenTelemetry configuration loaded from the environment.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Protocol       string
	Headers        map[string]string
	Insecure       bool
	Sampler        string
	SamplerArg     string
	ResourceAttrs  map[string]string
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() *Config {
	return &Config{
		Enabled:        strings.ToLower(os.Getenv("OTEL_ENABLED")) == "true",
		ServiceName:    getEnvOrDefault("OTEL_SERVICE_NAME", "graph-import"),
		ServiceVersion: getEnvOrDefault("OTEL_SERVICE_VERSION", "unknown"),
		Endpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Protocol:       getEnvOrDefault("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"),
		Headers:        parseKeyValuePairs(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")),
		Insecure:       strings.ToLower(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE")) == "true",
		Sampler:        os.Getenv("OTEL_TRACES_SAMPLER"),
		SamplerArg:     os.Getenv("OTEL_TRACES_SAMPLER_ARG"),
		ResourceAttrs:  parseKeyValuePairs(os.Getenv("OTEL_RESOURCE_ATTRIBUTES")),
	}
}

// getEnvOrDefault returns the environment variable value or a default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseKeyValuePairs parses a comma-separated list of key=value pairs.
// Splits on the first '=' only so values may contain '='.
func parseKeyValuePairs(s string) map[string]string {
	result := make(map[string]string)
	if s == "" {
		return result
	}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		idx := strings.Index(pair, "=")
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(pair[:idx])
		value := strings.TrimSpace(pair[idx+1:])
		if key != "" {
			result[key] = value
		}
	}
	return result
}
