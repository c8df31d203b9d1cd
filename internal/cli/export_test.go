package cli

import "time"

// Internal helpers exposed for black-box testing.

func ValidateInput(path string) error {
	return validateInput(path)
}

func JobID(now time.Time) string {
	return jobID(now)
}

func APIKey(env *Env) (string, error) {
	return apiKey(env)
}
