// Package common provides general utility helper functions and types
package common

import (
	"errors"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
	"gopkg.in/yaml.v3"
)

// ErrConfigPathMissing is returned by MakeConfig for an empty path.
var ErrConfigPathMissing = errors.New("config file path missing")

// TimeTrack logs the execution time of a named operation at debug level.
func TimeTrack(start time.Time, name string, logger *slog.Logger) {
	logger.Debug(name, "elapsed_time", time.Since(start))
}

// SanitizeFloat replaces +/-Inf and NaN with zero.
func SanitizeFloat(v float64) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0
	}

	return v
}

// ContentUUID returns a UUID derived from the xxh3 128 bit hash of content.
// Identical content always yields the same UUID.
func ContentUUID(content []byte) (string, error) {
	h := xxh3.Hash128(content).Bytes()

	id, err := uuid.FromBytes(h[:])
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

// MakeConfig reads the YAML config file at filePath into a new T. Defaults
// are set by T's UnmarshalYAML when it has one.
func MakeConfig[T any](filePath string) (*T, error) {
	config := new(T)

	if filePath == "" {
		return config, ErrConfigPathMissing
	}

	configFile, err := os.ReadFile(filePath)
	if err != nil {
		return config, err
	}

	if err := yaml.Unmarshal(configFile, config); err != nil {
		return config, err
	}

	return config, nil
}
