package config

import "os"

// ExpandEnv expands ${VAR} and $VAR references in YAML content before
// parsing, so secrets (API keys, DB passwords) stay out of the file.
func ExpandEnv(data []byte) []byte {
	return []byte(os.ExpandEnv(string(data)))
}
