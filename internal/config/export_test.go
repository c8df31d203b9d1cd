package config

// Internal functions exposed for black-box testing.

func Dir() (string, error) {
	return dir()
}
