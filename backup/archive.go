package backup

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/erikbos/moontv-server/crypt"
	"github.com/erikbos/moontv-server/database/model"
)

// maxArchiveSize caps the decompressed size of an archive.
const maxArchiveSize = 512 << 20

// Archive is the complete dataset of a deployment.
type Archive struct {
	// Timestamp is the export time in ISO 8601 format
	Timestamp     string      `json:"timestamp"`
	ServerVersion string      `json:"serverVersion"`
	Data          ArchiveData `json:"data"`
}

type ArchiveData struct {
	AdminConfig *model.AdminConfig      `json:"adminConfig"`
	UserData    map[string]*UserArchive `json:"userData"`
}

// UserArchive holds all data of one user.
type UserArchive struct {
	PlayRecords   map[string]*model.PlayRecord `json:"playRecords"`
	Favorites     map[string]*model.Favorite   `json:"favorites"`
	SearchHistory []string                     `json:"searchHistory"`
	SkipConfigs   map[string]*model.SkipConfig `json:"skipConfigs"`
	// Password is a salt:hash credential, the plaintext password for the
	// owner, or nil if the backend could not provide it.
	Password *string `json:"password"`
}

// Seal serializes, compresses and encrypts an archive.
func Seal(archive *Archive, password string) (string, error) {
	data, err := json.Marshal(archive)
	if err != nil {
		return "", fmt.Errorf("serialize archive: %w", err)
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return "", fmt.Errorf("compress archive: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("compress archive: %w", err)
	}

	return crypt.Encrypt(base64.StdEncoding.EncodeToString(buf.Bytes()), password)
}

// Open reverses Seal. Decryption failures return crypt.ErrDecryption, all
// other failures model.ErrMalformed.
func Open(ciphertext, password string) (*Archive, error) {
	encoded, err := crypt.Decrypt(ciphertext, password)
	if err != nil {
		return nil, err
	}
	compressed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: archive payload is not base64: %v", model.ErrMalformed, err)
	}

	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("%w: archive payload is not gzip: %v", model.ErrMalformed, err)
	}
	defer zr.Close()
	data, err := io.ReadAll(io.LimitReader(zr, maxArchiveSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: decompress archive: %v", model.ErrMalformed, err)
	}
	if len(data) > maxArchiveSize {
		return nil, fmt.Errorf("%w: archive exceeds %d bytes", model.ErrMalformed, maxArchiveSize)
	}

	var archive Archive
	if err := json.Unmarshal(data, &archive); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return nil, fmt.Errorf("%w: archive is not valid json at offset %d", model.ErrMalformed, syntaxErr.Offset)
		}
		return nil, fmt.Errorf("%w: %v", model.ErrMalformed, err)
	}
	return &archive, nil
}
