package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-ini/ini"
)

const (
	// CredentialsFile is the INI file, relative to the working directory,
	// holding the object store keys.
	CredentialsFile = "dl.cfg"

	credentialsSection = "AWS"
	accessKeyName      = "AWS_ACCESS_KEY_ID"
	secretKeyName      = "AWS_SECRET_ACCESS_KEY"
)

// ErrMissingCredentials is returned when the credentials file lacks a key.
var ErrMissingCredentials = errors.New("missing credentials")

// Credentials is the key pair handed to the storage backends.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
}

// String never prints the secret.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{AccessKeyID: %s, SecretAccessKey: ***}", c.AccessKeyID)
}

// LoadCredentials reads the [AWS] section of an INI file.
func LoadCredentials(path string) (Credentials, error) {
	f, err := ini.Load(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to load credentials file %s: %w", path, err)
	}
	return credentialsFromINI(f, path)
}

// ParseCredentials reads credentials from INI text.
func ParseCredentials(data []byte) (Credentials, error) {
	f, err := ini.Load(data)
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to parse credentials: %w", err)
	}
	return credentialsFromINI(f, "<inline>")
}

func credentialsFromINI(f *ini.File, source string) (Credentials, error) {
	sec, err := f.GetSection(credentialsSection)
	if err != nil {
		return Credentials{}, fmt.Errorf("%w: %s has no [%s] section", ErrMissingCredentials, source, credentialsSection)
	}

	creds := Credentials{
		AccessKeyID:     strings.TrimSpace(sec.Key(accessKeyName).String()),
		SecretAccessKey: strings.TrimSpace(sec.Key(secretKeyName).String()),
	}
	if creds.AccessKeyID == "" {
		return Credentials{}, fmt.Errorf("%w: %s in %s", ErrMissingCredentials, accessKeyName, source)
	}
	if creds.SecretAccessKey == "" {
		return Credentials{}, fmt.Errorf("%w: %s in %s", ErrMissingCredentials, secretKeyName, source)
	}
	return creds, nil
}
