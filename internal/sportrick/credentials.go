package sportrick

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/example/sport-scheduler/internal/crypto"
)

// LoadCredentials reads and decrypts the sealed credentials file.
func LoadCredentials(path, hexKey string) (Credentials, error) {
	aead, err := crypto.NewFromHex(hexKey)
	if err != nil {
		return Credentials{}, err
	}
	sealed, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("read credentials file: %w", err)
	}
	plain, err := aead.DecryptString(string(sealed))
	if err != nil {
		return Credentials{}, fmt.Errorf("decrypt credentials: %w", err)
	}
	var creds Credentials
	if err := json.Unmarshal([]byte(plain), &creds); err != nil {
		return Credentials{}, fmt.Errorf("parse credentials: %w", err)
	}
	return creds, nil
}

// SaveCredentials encrypts and writes the credentials file.
func SaveCredentials(path, hexKey string, creds Credentials) error {
	aead, err := crypto.NewFromHex(hexKey)
	if err != nil {
		return err
	}
	plain, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	sealed, err := aead.EncryptToString(string(plain))
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(sealed), 0o600)
}
