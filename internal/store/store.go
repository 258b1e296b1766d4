// Package store persists analysis results for callers of the analysis core.
// The core itself never imports it.
package store

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/timshannon/badgerhold/v4"
	"go.uber.org/zap"
)

// ErrNotFound is returned when no record has the requested ID.
var ErrNotFound = errors.New("record not found")

// Kind names the operation that produced a record.
type Kind string

const (
	KindAnalysis     Kind = "analyze"
	KindOptimization Kind = "optimize"
)

// Record is one stored result. Owner is an opaque caller identifier.
type Record struct {
	ID        string    `json:"id" yaml:"id"`
	Owner     string    `json:"owner" yaml:"owner" badgerholdIndex:"Owner"`
	Kind      Kind      `json:"kind" yaml:"kind"`
	CircuitID string    `json:"circuit_id" yaml:"circuit_id"`
	Format    string    `json:"format" yaml:"format"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Payload   []byte    `json:"payload" yaml:"-"`
}

func (r *Record) clone() *Record {
	out := *r
	out.Payload = append([]byte(nil), r.Payload...)
	return &out
}

// NewRecord encodes payload as JSON into a new record with a fresh ID.
func NewRecord(owner string, kind Kind, circuitID, format string, payload any) (*Record, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "encode payload")
	}
	return &Record{
		ID:        uuid.NewString(),
		Owner:     owner,
		Kind:      kind,
		CircuitID: circuitID,
		Format:    format,
		CreatedAt: time.Now().UTC(),
		Payload:   data,
	}, nil
}

// Decode unmarshals the payload into v.
func (r *Record) Decode(v any) error {
	return errors.Wrap(json.Unmarshal(r.Payload, v), "decode payload")
}

// ResultStore saves and retrieves records.
type ResultStore interface {
	Save(ctx context.Context, r *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	ListByOwner(ctx context.Context, owner string, limit int) ([]*Record, error)
	Close() error
}

// BadgerStore is a ResultStore on an embedded badgerhold database.
type BadgerStore struct {
	store  *badgerhold.Store
	logger *zap.Logger
}

// Open opens or creates the database directory at path.
func Open(path string, logger *zap.Logger) (*BadgerStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, errors.Wrap(err, "create database directory")
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, errors.Wrapf(err, "open badger database at %s", path)
	}
	logger.Debug("result store opened", zap.String("path", path))
	return &BadgerStore{store: store, logger: logger}, nil
}

func (s *BadgerStore) Save(_ context.Context, r *Record) error {
	if r.ID == "" {
		return errors.New("record ID is required")
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	if err := s.store.Upsert(r.ID, r); err != nil {
		return errors.Wrap(err, "save record")
	}
	s.logger.Debug("record saved",
		zap.String("id", r.ID),
		zap.String("kind", string(r.Kind)),
		zap.String("circuit_id", r.CircuitID),
	)
	return nil
}

func (s *BadgerStore) Get(_ context.Context, id string) (*Record, error) {
	var r Record
	if err := s.store.Get(id, &r); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, errors.Wrap(ErrNotFound, id)
		}
		return nil, errors.Wrap(err, "get record")
	}
	return &r, nil
}

// ListByOwner returns the owner's records, newest first. limit <= 0 returns
// all of them.
func (s *BadgerStore) ListByOwner(_ context.Context, owner string, limit int) ([]*Record, error) {
	query := badgerhold.Where("Owner").Eq(owner).Index("Owner").SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var records []Record
	if err := s.store.Find(&records, query); err != nil {
		return nil, errors.Wrap(err, "list records")
	}
	out := make([]*Record, len(records))
	for i := range records {
		out[i] = &records[i]
	}
	return out, nil
}

func (s *BadgerStore) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}
