package config

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
)

const dotEnvFile = ".env"

// loadDotEnv copies variables from a dotenv file into the process
// environment. Variables that are already set win. A missing file is ignored.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
