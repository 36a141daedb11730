// Package bboltstore is an optional durable cache for the authority tree:
// a caller that wants a resource certificate's decoded record to survive
// a restart without reparsing its DER may persist it here, keyed by
// subject key identifier. The in-memory Tree of pkg/authority remains the
// source of truth during a run; this store is a side cache a caller may
// warm the tree from, not a replacement for it (spec.md section 4.3: the
// tree itself holds no history and reclaims nothing).
package bboltstore

import (
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/rpki-core/validator/pkg/rescert"
	"github.com/rpki-core/validator/pkg/rpkicodec"
)

var authoritiesBucket = []byte("authorities")

// Store persists parsed certificate records keyed by SKI in a bbolt file.
type Store struct {
	db *bbolt.DB
}

// Open opens or creates a bbolt database at path with a single
// "authorities" bucket.
func Open(path string, opts *bbolt.Options) (*Store, error) {
	db, err := bbolt.Open(path, 0600, opts)
	if err != nil {
		return nil, fmt.Errorf("bboltstore: open: %w", err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(authoritiesBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("bboltstore: create bucket: %w", err)
	}
	return &Store{db: db}, nil
}

// Store persists cert's record, keyed by its SKI, overwriting any
// previous record under the same key.
func (s *Store) Store(cert *rescert.Cert) error {
	if cert.SKI == "" {
		return fmt.Errorf("bboltstore: store: certificate has no SKI")
	}
	data, err := rpkicodec.Encode(cert)
	if err != nil {
		return fmt.Errorf("bboltstore: encode: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(authoritiesBucket).Put([]byte(cert.SKI), data)
	})
}

// Load retrieves the certificate record stored under ski. ok is false if
// no record is present.
func (s *Store) Load(ski string) (cert *rescert.Cert, ok bool, err error) {
	var data []byte
	if err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(authoritiesBucket).Get([]byte(ski))
		if v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	}); err != nil {
		return nil, false, fmt.Errorf("bboltstore: load: %w", err)
	}
	if data == nil {
		return nil, false, nil
	}
	cert, err = rpkicodec.Decode(data)
	if err != nil {
		return nil, false, fmt.Errorf("bboltstore: decode %s: %w", ski, err)
	}
	return cert, true, nil
}

// Delete removes the record stored under ski, if any.
func (s *Store) Delete(ski string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(authoritiesBucket).Delete([]byte(ski))
	})
}

// All returns every certificate record currently stored.
func (s *Store) All() ([]*rescert.Cert, error) {
	var out []*rescert.Cert
	if err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(authoritiesBucket).ForEach(func(k, v []byte) error {
			cert, err := rpkicodec.Decode(v)
			if err != nil {
				return fmt.Errorf("bboltstore: decode %s: %w", k, err)
			}
			out = append(out, cert)
			return nil
		})
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
