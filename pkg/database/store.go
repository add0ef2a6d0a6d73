package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mattn/go-sqlite3"
	"golang.org/x/sync/semaphore"

	"moviedb/pkg/apperr"
)

const (
	SideRead  = "read"
	SideWrite = "write"
)

// TxFunc runs inside a transaction. A write TxFunc may be invoked more than
// once when the database reports contention, so it must not touch state
// outside tx.
type TxFunc func(ctx context.Context, tx *sql.Tx) error

// Observer receives store contention measurements.
type Observer interface {
	ObserveAcquire(side string, wait time.Duration, acquired bool)
	ObserveWriteRetry()
}

type nopObserver struct{}

func (nopObserver) ObserveAcquire(string, time.Duration, bool) {}
func (nopObserver) ObserveWriteRetry()                         {}

// Store is a bounded pool of read connections plus one write connection to
// the same SQLite file. Reads run concurrently against WAL snapshots; writes
// are serialized through a single slot.
type Store struct {
	reader *sql.DB
	writer *sql.DB

	readSlots *semaphore.Weighted
	writeSlot *semaphore.Weighted

	acquireTimeout time.Duration
	writeAttempts  int
	retryInterval  time.Duration
	observer       Observer
}

func newStore(cfg Config, reader, writer *sql.DB) *Store {
	return &Store{
		reader:         reader,
		writer:         writer,
		readSlots:      semaphore.NewWeighted(int64(cfg.ReadPoolSize)),
		writeSlot:      semaphore.NewWeighted(1),
		acquireTimeout: cfg.AcquireTimeout,
		writeAttempts:  cfg.WriteAttempts,
		retryInterval:  25 * time.Millisecond,
		observer:       nopObserver{},
	}
}

// SetObserver installs o; nil restores the no-op observer.
func (s *Store) SetObserver(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	s.observer = o
}

func (s *Store) acquire(ctx context.Context, sem *semaphore.Weighted, side string) (func(), error) {
	start := time.Now()
	actx, cancel := context.WithTimeout(ctx, s.acquireTimeout)
	defer cancel()

	if err := sem.Acquire(actx, 1); err != nil {
		s.observer.ObserveAcquire(side, time.Since(start), false)
		if ctx.Err() != nil {
			return nil, fmt.Errorf("acquire %s slot: %w", side, ctx.Err())
		}
		return nil, apperr.New(apperr.KindResourceBusy, "store "+side,
			"no %s connection available within %s", side, s.acquireTimeout)
	}
	s.observer.ObserveAcquire(side, time.Since(start), true)
	return func() { sem.Release(1) }, nil
}

// Read runs fn in a read transaction on one of the pooled reader
// connections. All queries in fn observe the same snapshot.
func (s *Store) Read(ctx context.Context, fn TxFunc) error {
	release, err := s.acquire(ctx, s.readSlots, SideRead)
	if err != nil {
		return err
	}
	defer release()

	tx, err := s.reader.BeginTx(ctx, nil)
	if err != nil {
		return classify("store read", fmt.Errorf("begin read: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(ctx, tx); err != nil {
		return classify("store read", err)
	}
	return nil
}

// Write runs fn in its own write transaction while holding the writer slot.
func (s *Store) Write(ctx context.Context, fn TxFunc) error {
	return s.Exclusive(ctx, func(ctx context.Context, w *Writer) error {
		return w.Tx(ctx, fn)
	})
}

// Exclusive holds the writer slot for the whole of fn. The context passed
// to fn is detached from the caller's cancellation: once the slot is held
// the work runs to completion.
func (s *Store) Exclusive(ctx context.Context, fn func(ctx context.Context, w *Writer) error) error {
	release, err := s.acquire(ctx, s.writeSlot, SideWrite)
	if err != nil {
		return err
	}
	defer release()

	return fn(context.WithoutCancel(ctx), &Writer{s: s})
}

// Writer issues write transactions on behalf of a holder of the writer slot.
type Writer struct {
	s *Store
}

// Tx commits fn, retrying with exponential backoff while SQLite reports
// BUSY or LOCKED. Any other error rolls the transaction back and is
// returned as is.
func (w *Writer) Tx(ctx context.Context, fn TxFunc) error {
	s := w.s

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = s.retryInterval
	eb.MaxInterval = 20 * s.retryInterval
	eb.MaxElapsedTime = 0

	attempt := 0
	op := func() error {
		attempt++
		if attempt > 1 {
			s.observer.ObserveWriteRetry()
		}
		err := s.writeOnce(ctx, fn)
		if err == nil || IsBusy(err) {
			return err
		}
		return backoff.Permanent(err)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(s.writeAttempts-1)), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return classify("store write", err)
	}
	return nil
}

func (s *Store) writeOnce(ctx context.Context, fn TxFunc) error {
	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin write: %w", err)
	}
	if err := fn(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Ping checks both the reader pool and the writer.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.reader.PingContext(ctx); err != nil {
		return fmt.Errorf("ping reader: %w", err)
	}
	if err := s.writer.PingContext(ctx); err != nil {
		return fmt.Errorf("ping writer: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return errors.Join(s.reader.Close(), s.writer.Close())
}

// classify tags driver failures that escape a transaction. Errors that
// already carry a kind pass through unchanged.
func classify(op string, err error) error {
	var ae *apperr.Error
	switch {
	case errors.As(err, &ae):
		return err
	case IsBusy(err):
		return apperr.Wrap(apperr.KindResourceBusy, op, err)
	case IsConstraint(err):
		return apperr.Wrap(apperr.KindIntegrity, op, err)
	default:
		return err
	}
}

func sqliteError(err error) (sqlite3.Error, bool) {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se, true
	}
	return se, false
}

func IsBusy(err error) bool {
	se, ok := sqliteError(err)
	return ok && (se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked)
}

func IsConstraint(err error) bool {
	se, ok := sqliteError(err)
	return ok && se.Code == sqlite3.ErrConstraint
}

// IsUniqueViolation reports a UNIQUE or PRIMARY KEY conflict.
func IsUniqueViolation(err error) bool {
	se, ok := sqliteError(err)
	return ok && (se.ExtendedCode == sqlite3.ErrConstraintUnique ||
		se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey)
}
