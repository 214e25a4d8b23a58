package config

import (
	"os"

	"github.com/joho/godotenv"
)

// loadEnvFiles loads KEY=VALUE files that exist. Variables already present in
// the process environment win over file values.
func loadEnvFiles(paths ...string) {
	var existing []string
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			existing = append(existing, path)
		}
	}
	if len(existing) == 0 {
		return
	}
	_ = godotenv.Load(existing...)
}
