package credential_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/99designs/keyring"

	"dropscan-go/internal/credential"
	"dropscan-go/internal/testutil"
)

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid file", func(t *testing.T) {
		path := testutil.WriteFile(t, filepath.Join(dir, "creds.json"), `{"user": "max@example.com", "password": "s3cret"}`)
		got, err := credential.LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile() error: %v", err)
		}
		if got.User != "max@example.com" || got.Password != "s3cret" {
			t.Errorf("LoadFile() = %+v", got)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		got, err := credential.LoadFile(filepath.Join(dir, "absent.json"))
		if err != nil {
			t.Fatalf("LoadFile() error: %v", err)
		}
		if got != nil {
			t.Errorf("LoadFile() = %+v, want nil", got)
		}
	})

	t.Run("malformed file", func(t *testing.T) {
		path := testutil.WriteFile(t, filepath.Join(dir, "bad.json"), `{"user": `)
		if _, err := credential.LoadFile(path); err == nil {
			t.Error("LoadFile() expected error for malformed JSON")
		}
	})
}

func TestKeyring(t *testing.T) {
	k := credential.NewKeyring(keyring.NewArrayKeyring(nil))

	got, err := k.Password("max@example.com")
	if err != nil {
		t.Fatalf("Password() error: %v", err)
	}
	if got != "" {
		t.Errorf("Password() = %q before set, want empty", got)
	}

	if err := k.SetPassword("max@example.com", "s3cret"); err != nil {
		t.Fatalf("SetPassword() error: %v", err)
	}
	if got, _ := k.Password("max@example.com"); got != "s3cret" {
		t.Errorf("Password() = %q, want s3cret", got)
	}

	if err := k.DeletePassword("max@example.com"); err != nil {
		t.Fatalf("DeletePassword() error: %v", err)
	}
	if got, _ := k.Password("max@example.com"); got != "" {
		t.Errorf("Password() = %q after delete, want empty", got)
	}
}

type staticStore map[string]string

func (s staticStore) Password(user string) (string, error) {
	return s[user], nil
}

type failingStore struct{}

func (failingStore) Password(string) (string, error) {
	return "", errors.New("keyring locked")
}

func TestResolver_Resolve(t *testing.T) {
	dir := t.TempDir()
	file := testutil.WriteFile(t, filepath.Join(dir, "creds.json"), `{"user": "file@example.com", "password": "from-file"}`)
	userOnly := testutil.WriteFile(t, filepath.Join(dir, "user.json"), `{"user": "file@example.com"}`)

	prompted := func(user string) (string, error) { return "typed-" + user, nil }

	tests := []struct {
		name     string
		resolver credential.Resolver
		flags    credential.Credentials
		want     credential.Credentials
		wantErr  bool
	}{
		{
			name:     "flags win",
			resolver: credential.Resolver{File: file},
			flags:    credential.Credentials{User: "flag@example.com", Password: "from-flag"},
			want:     credential.Credentials{User: "flag@example.com", Password: "from-flag"},
		},
		{
			name:     "file fills everything",
			resolver: credential.Resolver{File: file},
			want:     credential.Credentials{User: "file@example.com", Password: "from-file"},
		},
		{
			name:     "flag password with file user",
			resolver: credential.Resolver{File: file},
			flags:    credential.Credentials{Password: "from-flag"},
			want:     credential.Credentials{User: "file@example.com", Password: "from-flag"},
		},
		{
			name:     "file password not used for other user",
			resolver: credential.Resolver{File: file, Store: staticStore{"flag@example.com": "from-store"}},
			flags:    credential.Credentials{User: "flag@example.com"},
			want:     credential.Credentials{User: "flag@example.com", Password: "from-store"},
		},
		{
			name:     "store after file",
			resolver: credential.Resolver{File: userOnly, Store: staticStore{"file@example.com": "from-store"}},
			want:     credential.Credentials{User: "file@example.com", Password: "from-store"},
		},
		{
			name:     "prompt last",
			resolver: credential.Resolver{File: userOnly, Store: staticStore{}, Prompt: prompted},
			want:     credential.Credentials{User: "file@example.com", Password: "typed-file@example.com"},
		},
		{
			name:     "no user",
			resolver: credential.Resolver{Prompt: prompted},
			wantErr:  true,
		},
		{
			name:     "no password anywhere",
			resolver: credential.Resolver{File: userOnly},
			wantErr:  true,
		},
		{
			name:     "store error",
			resolver: credential.Resolver{Store: failingStore{}},
			flags:    credential.Credentials{User: "flag@example.com"},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.resolver.Resolve(tt.flags)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Resolve() = %+v, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() error: %v", err)
			}
			if *got != tt.want {
				t.Errorf("Resolve() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}
