package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/roach88/userscript/internal/script"
)

var (
	bucketScripts = []byte("scripts")
	bucketOrder   = []byte("order")
)

// boltRecord is the value stored under a script ID in the scripts bucket.
type boltRecord struct {
	Seq     uint64   `json:"seq"`
	Match   []string `json:"match"`
	Exclude []string `json:"exclude"`
	Code    string   `json:"code"`
	Encoded bool     `json:"encoded"`
}

// BoltStore stores scripts in a bbolt file.
//
// Buckets:
//   - scripts: id -> JSON boltRecord
//   - order:   big-endian seq -> id
type BoltStore struct {
	db     *bbolt.DB
	logger *zap.Logger
	noSync bool
}

// BoltOption configures a BoltStore.
type BoltOption func(*BoltStore)

// WithBoltLogger sets the logger for the store.
func WithBoltLogger(logger *zap.Logger) BoltOption {
	return func(b *BoltStore) {
		b.logger = logger
	}
}

// WithNoSync disables fsync per transaction. Tests only.
func WithNoSync(noSync bool) BoltOption {
	return func(b *BoltStore) {
		b.noSync = noSync
	}
}

// OpenBolt opens or creates a bbolt store at path.
func OpenBolt(path string, opts ...BoltOption) (*BoltStore, error) {
	b := &BoltStore{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{
		Timeout: 1 * time.Second,
		NoSync:  b.noSync,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	b.db = db

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketScripts, bucketOrder} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	b.logger.Debug("opened bolt store", zap.String("path", path), zap.Bool("noSync", b.noSync))
	return b, nil
}

// Close closes the database.
func (b *BoltStore) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

// GetAll returns every stored script in insertion order.
func (b *BoltStore) GetAll(_ context.Context) ([]script.Script, error) {
	scripts := []script.Script{}
	err := b.db.View(func(tx *bbolt.Tx) error {
		byID := tx.Bucket(bucketScripts)
		return tx.Bucket(bucketOrder).ForEach(func(_, id []byte) error {
			sc, err := decodeRecord(string(id), byID.Get(id))
			if err != nil {
				return err
			}
			scripts = append(scripts, sc)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("query scripts: %w", err)
	}
	return scripts, nil
}

// Get returns the script with the given ID, or ErrNotFound.
func (b *BoltStore) Get(_ context.Context, id string) (script.Script, error) {
	var sc script.Script
	err := b.db.View(func(tx *bbolt.Tx) error {
		val := tx.Bucket(bucketScripts).Get([]byte(id))
		if val == nil {
			return ErrNotFound
		}
		var err error
		sc, err = decodeRecord(id, val)
		return err
	})
	if err != nil {
		return script.Script{}, fmt.Errorf("get script %q: %w", id, err)
	}
	return sc, nil
}

// InsertAll upserts scripts by ID in one transaction.
func (b *BoltStore) InsertAll(_ context.Context, scripts ...script.Script) error {
	if len(scripts) == 0 {
		return nil
	}
	err := b.db.Update(func(tx *bbolt.Tx) error {
		byID := tx.Bucket(bucketScripts)
		order := tx.Bucket(bucketOrder)

		for _, sc := range scripts {
			if sc.ID == "" {
				return ErrEmptyID
			}

			rec := boltRecord{
				Match:   nonNil(sc.Match),
				Exclude: nonNil(sc.Exclude),
				Code:    sc.Code,
				Encoded: sc.Encoded,
			}

			if existing := byID.Get([]byte(sc.ID)); existing != nil {
				var prev boltRecord
				if err := json.Unmarshal(existing, &prev); err != nil {
					return fmt.Errorf("script %q: %w", sc.ID, err)
				}
				rec.Seq = prev.Seq
			} else {
				seq, err := order.NextSequence()
				if err != nil {
					return fmt.Errorf("script %q: next sequence: %w", sc.ID, err)
				}
				rec.Seq = seq
				if err := order.Put(seqKey(seq), []byte(sc.ID)); err != nil {
					return fmt.Errorf("script %q: %w", sc.ID, err)
				}
			}

			data, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("script %q: %w", sc.ID, err)
			}
			if err := byID.Put([]byte(sc.ID), data); err != nil {
				return fmt.Errorf("script %q: %w", sc.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("insert scripts: %w", err)
	}
	return nil
}

// Delete removes the script with sc.ID and returns 1, or 0 if absent.
func (b *BoltStore) Delete(_ context.Context, sc script.Script) (int64, error) {
	var n int64
	err := b.db.Update(func(tx *bbolt.Tx) error {
		byID := tx.Bucket(bucketScripts)
		val := byID.Get([]byte(sc.ID))
		if val == nil {
			return nil
		}
		var rec boltRecord
		if err := json.Unmarshal(val, &rec); err != nil {
			return err
		}
		if err := tx.Bucket(bucketOrder).Delete(seqKey(rec.Seq)); err != nil {
			return err
		}
		if err := byID.Delete([]byte(sc.ID)); err != nil {
			return err
		}
		n = 1
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete script %q: %w", sc.ID, err)
	}
	if n > 0 {
		b.logger.Debug("deleted script", zap.String("id", sc.ID))
	}
	return n, nil
}

func decodeRecord(id string, val []byte) (script.Script, error) {
	if val == nil {
		return script.Script{}, fmt.Errorf("script %q: order index points at missing record", id)
	}
	var rec boltRecord
	if err := json.Unmarshal(val, &rec); err != nil {
		return script.Script{}, fmt.Errorf("script %q: %w", id, err)
	}
	return script.Script{
		ID:      id,
		Match:   nonNil(rec.Match),
		Exclude: nonNil(rec.Exclude),
		Code:    rec.Code,
		Encoded: rec.Encoded,
	}, nil
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
