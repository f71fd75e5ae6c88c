// Package credential resolves the portal login from flags, a JSON credentials
// file, the OS keyring and finally an interactive prompt.
package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Credentials is a portal login.
type Credentials struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

// Complete reports whether both user and password are set.
func (c *Credentials) Complete() bool {
	return c != nil && c.User != "" && c.Password != ""
}

// LoadFile reads a credentials file of the form {"user": ..., "password": ...}.
// A missing file returns nil, nil.
func LoadFile(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}

	var c Credentials
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing credentials file %s: %w", path, err)
	}
	return &c, nil
}

// PasswordStore is a secret store keyed by user name.
type PasswordStore interface {
	Password(user string) (string, error)
}

// PromptFunc asks the user for the password of user.
type PromptFunc func(user string) (string, error)

// Resolver merges the credential sources. Later sources only fill fields the
// earlier ones left empty: flags, then File, then Store, then Prompt.
type Resolver struct {
	File   string        // credentials file path, "" to skip
	Store  PasswordStore // nil to skip
	Prompt PromptFunc    // nil to skip
}

// Resolve returns complete credentials or an error naming what is missing.
func (r *Resolver) Resolve(flags Credentials) (*Credentials, error) {
	creds := flags

	if r.File != "" && !creds.Complete() {
		fromFile, err := LoadFile(r.File)
		if err != nil {
			return nil, err
		}
		if fromFile != nil {
			fill(&creds, fromFile)
		}
	}

	if creds.User == "" {
		return nil, errors.New("no portal user configured")
	}

	if creds.Password == "" && r.Store != nil {
		password, err := r.Store.Password(creds.User)
		if err != nil {
			return nil, err
		}
		creds.Password = password
	}

	if creds.Password == "" && r.Prompt != nil {
		password, err := r.Prompt(creds.User)
		if err != nil {
			return nil, fmt.Errorf("prompting for password: %w", err)
		}
		creds.Password = password
	}

	if creds.Password == "" {
		return nil, fmt.Errorf("no password for %s", creds.User)
	}
	return &creds, nil
}

func fill(dst *Credentials, src *Credentials) {
	if dst.User == "" {
		dst.User = src.User
	}
	// A file password belongs to the file user only.
	if dst.Password == "" && dst.User == src.User {
		dst.Password = src.Password
	}
}
