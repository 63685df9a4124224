// Package auth locates the Gemini API key used for scene analysis and
// checks that it works before a run depends on it.
package auth

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// EnvAPIKey is the environment variable holding the Gemini API key.
const EnvAPIKey = "GEMINI_API_KEY"

const (
	credentialDir  = ".postrender"
	credentialFile = "credentials.gpg"
	passphraseFile = ".gpg-passphrase"
)

// ErrNoAPIKey is returned when no key source yields a key.
var ErrNoAPIKey = errors.New("gemini API key not found")

// GetAPIKey returns the Gemini API key from, in order, the GEMINI_API_KEY
// environment variable or the GPG-encrypted file ~/.postrender/credentials.gpg.
func GetAPIKey() (string, error) {
	if key := strings.TrimSpace(os.Getenv(EnvAPIKey)); key != "" {
		log.Debug().Msg("Using API key from environment")
		return key, nil
	}

	key, err := decryptCredentials()
	if err != nil {
		log.Debug().Err(err).Msg("No usable GPG credentials")
		return "", fmt.Errorf("%w: set %s or store it in ~/%s/%s: %v", ErrNoAPIKey, EnvAPIKey, credentialDir, credentialFile, err)
	}
	if key == "" {
		return "", fmt.Errorf("%w: decrypted credentials are empty", ErrNoAPIKey)
	}
	log.Debug().Msg("Using API key from GPG credentials")
	return key, nil
}

func decryptCredentials() (string, error) {
	credPath, err := credentialPath()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(credPath); err != nil {
		return "", fmt.Errorf("credentials file %s: %w", credPath, err)
	}

	cmd := exec.Command("gpg", gpgArgs(credPath, passphrasePath())...)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("gpg decrypt: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("gpg decrypt: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// gpgArgs builds the decrypt command line. A passphrase file is used for
// non-interactive decryption only when it is readable by its owner alone.
func gpgArgs(credPath, passphrase string) []string {
	args := []string{"--decrypt", "--quiet", "--batch"}
	if passphrase != "" {
		if fi, err := os.Stat(passphrase); err == nil {
			if perm := fi.Mode().Perm(); perm&0o077 != 0 {
				log.Warn().
					Str("passphrase_file", passphrase).
					Str("permissions", fmt.Sprintf("%04o", perm)).
					Msg("Passphrase file is readable by others, ignoring it")
			} else {
				args = append(args, "--pinentry-mode", "loopback", "--passphrase-file", passphrase)
			}
		}
	}
	return append(args, credPath)
}

func credentialPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home directory: %w", err)
	}
	return filepath.Join(home, credentialDir, credentialFile), nil
}

// passphrasePath returns the first existing passphrase file next to the
// executable or in the working directory, or "".
func passphrasePath() string {
	var dirs []string
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	for _, dir := range dirs {
		p := filepath.Join(dir, passphraseFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
