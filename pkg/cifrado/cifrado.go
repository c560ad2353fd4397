// Package cifrado provee cifrado simétrico AES-256-GCM para material sensible
// en reposo (contenedores PKCS#12 y contraseñas de certificados de tenants).
package cifrado

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
)

// Cifrador encapsula la llave de servidor. La llave de entrada se normaliza a
// 32 bytes con SHA-256 para tolerar llaves de configuración de cualquier largo.
type Cifrador struct {
	key [32]byte
}

// New construye el cifrador a partir de la llave configurada. Falla con llave vacía.
func New(serverKey string) (*Cifrador, error) {
	if serverKey == "" {
		return nil, fmt.Errorf("cifrado: llave de servidor vacía")
	}
	return &Cifrador{key: sha256.Sum256([]byte(serverKey))}, nil
}

// Cifrar sella el plaintext con AES-256-GCM. El nonce va como prefijo del resultado.
func (c *Cifrador) Cifrar(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(c.key[:])
	if err != nil {
		return nil, fmt.Errorf("cifrado: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cifrado: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("cifrado: generar nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Descifrar abre un blob producido por Cifrar.
func (c *Cifrador) Descifrar(ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(c.key[:])
	if err != nil {
		return nil, fmt.Errorf("cifrado: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cifrado: %w", err)
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, fmt.Errorf("cifrado: blob demasiado corto")
	}
	nonce, sealed := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("cifrado: descifrar: %w", err)
	}
	return plain, nil
}
