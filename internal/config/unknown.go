package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

// maxLevenshteinDistance is the maximum edit distance for "did you mean?"
// suggestions when unknown config keys are detected.
const maxLevenshteinDistance = 3

// knownKeys maps each config section to the keys valid inside it.
var knownKeys = map[string][]string{
	"limits":  {"attachment_ceiling", "link_ceiling", "message_ceiling"},
	"graph":   {"base_url", "client_id", "client_secret", "tenant_id"},
	"network": {"bandwidth_limit", "download_timeout", "metadata_timeout", "user_agent"},
	"storage": {"access_key_id", "bucket", "endpoint", "prefix", "region", "secret_access_key"},
	"server":  {"history_db", "listen"},
	"logging": {"log_format", "log_level"},
}

// knownSections is the sorted list of section names for suggestions.
var knownSections = func() []string {
	names := make([]string, 0, len(knownKeys))
	for k := range knownKeys {
		names = append(names, k)
	}

	slices.Sort(names)

	return names
}()

// checkUnknownKeys inspects TOML metadata for undecoded keys and returns
// an error with "did you mean?" suggestions for each unknown key.
func checkUnknownKeys(md *toml.MetaData) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}

	var errs []error

	seen := make(map[string]bool)

	for _, key := range undecoded {
		err := buildKeyError(key)
		if err == nil || seen[err.Error()] {
			continue
		}

		seen[err.Error()] = true

		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// buildKeyError describes one undecoded key. An unknown section is reported
// once by name; a bad key inside a known section is matched against that
// section's keys.
func buildKeyError(key toml.Key) error {
	section := key[0]

	fields, ok := knownKeys[section]
	if !ok {
		return unknownKeyError(section, closestMatch(section, knownSections))
	}

	if len(key) < 2 {
		return fmt.Errorf("config key %q must be a [%s] section", section, section)
	}

	field := strings.Join(key[1:], ".")

	return unknownKeyError(section+"."+field, prefixed(section, closestMatch(field, fields)))
}

func unknownKeyError(name, suggestion string) error {
	if suggestion != "" {
		return fmt.Errorf("unknown config key %q (did you mean %q?)", name, suggestion)
	}

	return fmt.Errorf("unknown config key %q", name)
}

func prefixed(section, field string) string {
	if field == "" {
		return ""
	}

	return section + "." + field
}

// closestMatch finds the closest known key by Levenshtein distance.
// Returns empty string if no match is within maxLevenshteinDistance.
func closestMatch(unknown string, known []string) string {
	best := ""
	bestDist := maxLevenshteinDistance + 1

	for _, k := range known {
		d := levenshtein(unknown, k)
		if d < bestDist {
			bestDist = d
			best = k
		}
	}

	if bestDist <= maxLevenshteinDistance {
		return best
	}

	return ""
}

// levenshtein computes the edit distance between two strings.
func levenshtein(a, b string) int {
	if a == "" {
		return len(b)
	}

	if b == "" {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := range len(a) {
		curr[0] = i + 1

		for j := range len(b) {
			cost := 1
			if a[i] == b[j] {
				cost = 0
			}

			curr[j+1] = min(curr[j]+1, prev[j+1]+1, prev[j]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}
