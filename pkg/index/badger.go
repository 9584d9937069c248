package index

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/haivivi/meetrec/pkg/artifact"
)

// Badger is an Index backed by BadgerDB v4.
type Badger struct {
	db *badger.DB
}

var _ Index = (*Badger)(nil)

// BadgerOptions configures the BadgerDB index.
type BadgerOptions struct {
	// Dir is the directory for BadgerDB data files. Required unless
	// InMemory is set.
	Dir string

	// InMemory runs BadgerDB without disk persistence.
	InMemory bool

	// Logger receives badger's warnings and errors. Nil uses slog.Default.
	Logger *slog.Logger
}

// OpenBadger opens (or creates) a BadgerDB index.
func OpenBadger(opts BadgerOptions) (*Badger, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("index: BadgerOptions.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = badger.DefaultOptions("").WithInMemory(true)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dbOpts = dbOpts.WithLogger(slogLogger{logger.With(slog.String("component", "badger"))})
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("index: open badger: %w", err)
	}
	return &Badger{db: db}, nil
}

// Put stores md, replacing any record with the same meeting name.
func (b *Badger) Put(_ context.Context, md artifact.Metadata) error {
	if err := validName(md.MeetingName); err != nil {
		return err
	}
	val, err := encode(md)
	if err != nil {
		return fmt.Errorf("index: encode %s: %w", md.MeetingName, err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		// Drop the channel entry of a previous record under another channel.
		if item, err := txn.Get(meetingKey(md.MeetingName)); err == nil {
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if old, err := decode(raw); err == nil && old.ChannelID != md.ChannelID {
				if err := txn.Delete(channelKey(old.ChannelID, md.MeetingName)); err != nil {
					return err
				}
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(meetingKey(md.MeetingName), val); err != nil {
			return err
		}
		return txn.Set(channelKey(md.ChannelID, md.MeetingName), nil)
	})
}

func (b *Badger) Get(_ context.Context, name string) (*artifact.Metadata, error) {
	var md artifact.Metadata
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(meetingKey(name))
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		md, err = decode(raw)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &md, nil
}

func (b *Badger) List(_ context.Context, opts ListOptions) iter.Seq2[artifact.Metadata, error] {
	prefix := meetingPrefix()
	if opts.ChannelID != "" {
		prefix = channelPrefix(opts.ChannelID)
	}
	return func(yield func(artifact.Metadata, error) bool) {
		n := 0
		err := b.db.View(func(txn *badger.Txn) error {
			iterOpts := badger.DefaultIteratorOptions
			iterOpts.Prefix = prefix
			iterOpts.PrefetchValues = opts.ChannelID == ""
			it := txn.NewIterator(iterOpts)
			defer it.Close()

			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				if opts.Limit > 0 && n >= opts.Limit {
					return nil
				}
				item := it.Item()
				if opts.ChannelID != "" {
					// Resolve the channel entry to its primary record.
					var err error
					item, err = txn.Get(meetingKey(nameFromKey(item.Key())))
					if errors.Is(err, badger.ErrKeyNotFound) {
						continue
					}
					if err != nil {
						return err
					}
				}
				raw, err := item.ValueCopy(nil)
				if err != nil {
					return err
				}
				md, err := decode(raw)
				n++
				if !yield(md, err) {
					return nil
				}
			}
			return nil
		})
		if err != nil {
			yield(artifact.Metadata{}, err)
		}
	}
}

// Delete removes a meeting. Deleting an unknown meeting is not an error.
func (b *Badger) Delete(ctx context.Context, name string) error {
	md, err := b.Get(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	if err := wb.Delete(meetingKey(name)); err != nil {
		return err
	}
	if err := wb.Delete(channelKey(md.ChannelID, name)); err != nil {
		return err
	}
	return wb.Flush()
}

func (b *Badger) Close() error {
	return b.db.Close()
}

// slogLogger adapts slog to badger.Logger. Badger's info and debug output
// is dropped.
type slogLogger struct{ l *slog.Logger }

func (s slogLogger) Errorf(f string, v ...any)   { s.l.Error(fmt.Sprintf(f, v...)) }
func (s slogLogger) Warningf(f string, v ...any) { s.l.Warn(fmt.Sprintf(f, v...)) }
func (slogLogger) Infof(string, ...any)          {}
func (slogLogger) Debugf(string, ...any)         {}
