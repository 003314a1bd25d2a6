package config

import (
	"log"
	"log/slog"
)

func MustNonEmpty(value, envName string) {
	if value == "" {
		log.Fatalf("missing required env %s", envName)
	}
}

func MustNonEmptyBytes(value []byte, envName string) {
	if len(value) == 0 {
		log.Fatalf("missing required env %s", envName)
	}
}

// WarnShort logs when a secret is shorter than minLen but still usable.
func WarnShort(value []byte, envName string, minLen int) {
	if len(value) > 0 && len(value) < minLen {
		slog.Warn("weak secret", "env", envName, "min_length", minLen, "length", len(value))
	}
}
