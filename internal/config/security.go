package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// SecurityManager handles encryption and decryption of sensitive configuration data
type SecurityManager interface {
	// EncryptCredential encrypts sensitive authentication data for storage
	EncryptCredential(plaintext string) (string, error)

	// DecryptCredential decrypts stored authentication data for use
	DecryptCredential(ciphertext string) (string, error)

	// ValidateTokenFormat performs format validation on authentication tokens
	ValidateTokenFormat(token string, tokenType string) error

	// RotateKey replaces the key material. Credentials encrypted with the
	// old key can no longer be read.
	RotateKey() error
}

// keyDerivationRounds is the PBKDF2 iteration count for the master key.
const keyDerivationRounds = 100000

// AESSecurityManager implements SecurityManager using AES-256-GCM encryption
type AESSecurityManager struct {
	keyPath    string
	masterKey  []byte
	keyDerived bool
}

// NewSecurityManager creates a new security manager with OS-appropriate key storage
func NewSecurityManager() (SecurityManager, error) {
	keyPath, err := getSecurityKeyPath()
	if err != nil {
		return nil, fmt.Errorf("failed to determine security key path: %w", err)
	}
	return NewSecurityManagerAt(keyPath)
}

// NewSecurityManagerAt creates a security manager whose key material lives at keyPath
func NewSecurityManagerAt(keyPath string) (SecurityManager, error) {
	manager := &AESSecurityManager{
		keyPath: keyPath,
	}

	// Ensure the security directory exists with restrictive permissions
	if err := manager.ensureSecurityDirectory(); err != nil {
		return nil, fmt.Errorf("failed to create security directory: %w", err)
	}

	// Load or generate encryption key
	if err := manager.initializeEncryptionKey(); err != nil {
		return nil, fmt.Errorf("failed to initialize encryption key: %w", err)
	}

	return manager, nil
}

// getSecurityKeyPath determines the OS-appropriate path for storing encryption keys
func getSecurityKeyPath() (string, error) {
	if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
		return filepath.Join(xdgDataHome, "storyconsole", "security", "master.key"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "storyconsole", "security", "master.key"), nil
}

// ensureSecurityDirectory creates the security directory with highly restrictive permissions
func (s *AESSecurityManager) ensureSecurityDirectory() error {
	securityDir := filepath.Dir(s.keyPath)

	if err := os.MkdirAll(securityDir, 0700); err != nil {
		return fmt.Errorf("failed to create security directory %s: %w", securityDir, err)
	}

	return nil
}

// initializeEncryptionKey loads existing key or generates a new one
func (s *AESSecurityManager) initializeEncryptionKey() error {
	if _, err := os.Stat(s.keyPath); os.IsNotExist(err) {
		return s.generateKey()
	}
	return s.loadExistingKey()
}

// loadExistingKey reads and derives the master key from stored key material
func (s *AESSecurityManager) loadExistingKey() error {
	keyData, err := os.ReadFile(s.keyPath)
	if err != nil {
		return fmt.Errorf("failed to read master key file: %w", err)
	}

	salt, err := hex.DecodeString(strings.TrimSpace(string(keyData)))
	if err != nil {
		return fmt.Errorf("failed to decode key material: %w", err)
	}

	s.deriveKey(salt)
	return nil
}

// deriveKey derives the AES key from the salt and a machine-specific passphrase
func (s *AESSecurityManager) deriveKey(salt []byte) {
	passphrase := s.generateMachinePassphrase()
	s.masterKey = pbkdf2.Key([]byte(passphrase), salt, keyDerivationRounds, 32, sha256.New)
	s.keyDerived = true
}

// generateMachinePassphrase creates a machine-specific passphrase for key derivation
func (s *AESSecurityManager) generateMachinePassphrase() string {
	hostname, _ := os.Hostname()
	username := os.Getenv("USER")
	if username == "" {
		username = os.Getenv("USERNAME")
	}
	return fmt.Sprintf("storyconsole-security-%s-%s", hostname, username)
}

// generateKey creates new encryption key material and stores it securely
func (s *AESSecurityManager) generateKey() error {
	salt := make([]byte, 32)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("failed to generate random salt: %w", err)
	}

	if err := os.WriteFile(s.keyPath, []byte(hex.EncodeToString(salt)), 0600); err != nil {
		return fmt.Errorf("failed to write key material: %w", err)
	}

	s.deriveKey(salt)
	return nil
}

// EncryptCredential encrypts sensitive authentication data using AES-256-GCM
func (s *AESSecurityManager) EncryptCredential(plaintext string) (string, error) {
	if !s.keyDerived {
		return "", fmt.Errorf("encryption key not available")
	}

	gcm, err := s.newGCM()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func (s *AESSecurityManager) newGCM() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.masterKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// DecryptCredential decrypts stored authentication data
func (s *AESSecurityManager) DecryptCredential(ciphertext string) (string, error) {
	if !s.keyDerived {
		return "", fmt.Errorf("encryption key not available")
	}

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	gcm, err := s.newGCM()
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertextBytes := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertextBytes, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}

	return string(plaintext), nil
}

// ValidateTokenFormat performs format validation on authentication tokens
func (s *AESSecurityManager) ValidateTokenFormat(token string, tokenType string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("token cannot be empty")
	}

	switch strings.ToLower(tokenType) {
	case "bearer":
		return s.validateBearerToken(token)
	case "none":
		return fmt.Errorf("no token should be provided when auth type is 'none'")
	default:
		return fmt.Errorf("unsupported token type: %s", tokenType)
	}
}

// validateBearerToken performs specific validation for bearer tokens
func (s *AESSecurityManager) validateBearerToken(token string) error {
	token = strings.TrimSpace(token)

	if token == "" {
		return fmt.Errorf("bearer token cannot be empty")
	}

	if strings.ContainsAny(token, " \t\n\r") {
		return fmt.Errorf("bearer token cannot contain whitespace")
	}

	if len(token) < 8 {
		return fmt.Errorf("bearer token appears to be too short (minimum 8 characters)")
	}

	lowerToken := strings.ToLower(token)
	placeholders := []string{"placeholder", "your-token", "changeme", "<token>"}
	for _, placeholder := range placeholders {
		if strings.Contains(lowerToken, placeholder) {
			return fmt.Errorf("bearer token appears to be a placeholder value")
		}
	}

	if s.looksLikeJWT(token) {
		return s.validateJWTStructure(token)
	}

	return nil
}

// looksLikeJWT reports whether the token has the three dot-separated parts of a JWT
func (s *AESSecurityManager) looksLikeJWT(token string) bool {
	parts := strings.Split(token, ".")
	return len(parts) == 3
}

// validateJWTStructure performs basic JWT structure validation
func (s *AESSecurityManager) validateJWTStructure(token string) error {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return fmt.Errorf("JWT must have exactly 3 parts separated by dots")
	}

	for i, part := range parts {
		if err := s.validateBase64Part(part); err != nil {
			return fmt.Errorf("JWT part %d is not valid base64: %w", i+1, err)
		}
	}

	return nil
}

// validateBase64Part checks if a string is valid base64 (with padding adjustment)
func (s *AESSecurityManager) validateBase64Part(part string) error {
	switch len(part) % 4 {
	case 2:
		part += "=="
	case 3:
		part += "="
	}

	if _, err := base64.StdEncoding.DecodeString(part); err != nil {
		if _, err := base64.URLEncoding.DecodeString(part); err != nil {
			return fmt.Errorf("invalid base64 encoding")
		}
	}

	return nil
}

// clearKey wipes the derived key and removes the key material
func (s *AESSecurityManager) clearKey() error {
	if s.masterKey != nil {
		for i := range s.masterKey {
			s.masterKey[i] = 0
		}
		s.masterKey = nil
		s.keyDerived = false
	}

	if err := os.Remove(s.keyPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove security key file: %w", err)
	}

	return nil
}

// RotateKey discards the key material and generates new material
func (s *AESSecurityManager) RotateKey() error {
	if err := s.clearKey(); err != nil {
		return fmt.Errorf("failed to clear existing security data: %w", err)
	}
	return s.generateKey()
}
