package core

import (
	"context"
	"errors"
	"fmt"
	"io"

	"imagingcore/internal/blob"
	"imagingcore/pkg/domain"
)

// ErrNoRawStore is returned by payload operations when the service was built
// without a raw store.
var ErrNoRawStore = errors.New("no raw payload store configured")

// WithRawStore attaches a raw-payload store so imports can stage the files
// their keys reference.
func WithRawStore(store blob.Store) Option {
	return func(s *Service) { s.raw = store }
}

// RawStore returns the configured raw-payload store, or nil.
func (s *Service) RawStore() blob.Store {
	return s.raw
}

// payloadKey maps a catalogue key to its object key in the raw store. Payloads
// are namespaced per import, mirroring the key namespace itself.
func payloadKey(importID, keyName string) string {
	return importID + "/" + keyName
}

// resolveKey verifies the import exists and carries the named key.
func (s *Service) resolveKey(importID, keyName string) error {
	if _, ok := s.store.GetImport(importID); !ok {
		return domain.NotFoundError{Entity: domain.EntityImport, ID: importID}
	}
	for _, k := range s.store.ListKeysInImport(importID) {
		if k.Key == keyName {
			return nil
		}
	}
	return domain.NotFoundError{Entity: domain.EntityKey, ID: payloadKey(importID, keyName)}
}

// PutKeyPayload stages the raw file for a key registered in an import. The
// key must already exist in the import's namespace; payloads are write-once.
func (s *Service) PutKeyPayload(ctx context.Context, importID, keyName string, r io.Reader, opts blob.PutOptions) (blob.Info, error) {
	if s.raw == nil {
		return blob.Info{}, ErrNoRawStore
	}
	if err := s.resolveKey(importID, keyName); err != nil {
		return blob.Info{}, err
	}
	info, err := s.raw.Put(ctx, payloadKey(importID, keyName), r, opts)
	if err != nil {
		s.logger.Error("put_key_payload failed", "import", importID, "key", keyName, "error", err)
		return blob.Info{}, err
	}
	s.logger.Debug("put_key_payload", "import", importID, "key", keyName, "size", info.Size)
	return info, nil
}

// GetKeyPayload opens the raw file staged for a key. The caller must close
// the returned reader.
func (s *Service) GetKeyPayload(ctx context.Context, importID, keyName string) (blob.Info, io.ReadCloser, error) {
	if s.raw == nil {
		return blob.Info{}, nil, ErrNoRawStore
	}
	if err := s.resolveKey(importID, keyName); err != nil {
		return blob.Info{}, nil, err
	}
	return s.raw.Get(ctx, payloadKey(importID, keyName))
}

// HeadKeyPayload returns metadata for a staged raw file without opening it.
func (s *Service) HeadKeyPayload(ctx context.Context, importID, keyName string) (blob.Info, error) {
	if s.raw == nil {
		return blob.Info{}, ErrNoRawStore
	}
	if err := s.resolveKey(importID, keyName); err != nil {
		return blob.Info{}, err
	}
	return s.raw.Head(ctx, payloadKey(importID, keyName))
}

// DeleteKeyPayload removes the raw file staged for a key. The catalogue key
// record itself is untouched.
func (s *Service) DeleteKeyPayload(ctx context.Context, importID, keyName string) (bool, error) {
	if s.raw == nil {
		return false, ErrNoRawStore
	}
	if err := s.resolveKey(importID, keyName); err != nil {
		return false, err
	}
	return s.raw.Delete(ctx, payloadKey(importID, keyName))
}

// ListKeyPayloads lists the raw files staged under an import.
func (s *Service) ListKeyPayloads(ctx context.Context, importID string) ([]blob.Info, error) {
	if s.raw == nil {
		return nil, ErrNoRawStore
	}
	if _, ok := s.store.GetImport(importID); !ok {
		return nil, domain.NotFoundError{Entity: domain.EntityImport, ID: importID}
	}
	return s.raw.List(ctx, importID+"/")
}

// PresignKeyPayloadURL returns a time-limited download URL for a staged raw
// file, when the backend supports signing.
func (s *Service) PresignKeyPayloadURL(ctx context.Context, importID, keyName string, opts blob.SignedURLOptions) (string, error) {
	if s.raw == nil {
		return "", ErrNoRawStore
	}
	if err := s.resolveKey(importID, keyName); err != nil {
		return "", err
	}
	url, err := s.raw.PresignURL(ctx, payloadKey(importID, keyName), opts)
	if err != nil {
		return "", fmt.Errorf("presign payload %s: %w", payloadKey(importID, keyName), err)
	}
	return url, nil
}
