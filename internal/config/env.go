//go:build !dev

package config

// Production builds read the real environment only; .env loading is
// compiled in with the dev tag.
func loadDotEnv() error {
	return nil
}
