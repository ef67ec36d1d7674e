package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	bolt "go.etcd.io/bbolt"

	"github.com/albapepper/yardgoats-tracker/internal/recipients"
	"github.com/albapepper/yardgoats-tracker/internal/schedule"
)

const (
	bucketGames      = "games"      // game date -> game JSON (with promotions)
	bucketGameIDs    = "game_ids"   // game id -> game date
	bucketRecipients = "recipients" // recipient id -> recipient JSON
	bucketDeliveries = "deliveries" // game/recipient/channel -> delivery JSON
)

// Bolt is a single-file Store. bbolt holds an exclusive file lock while open,
// so two processes can never run against the same file; runLock covers runs
// within this process.
type Bolt struct {
	db      *bolt.DB
	runLock sync.Mutex
	now     func() time.Time
}

// OpenBolt opens (creating if needed) the database file at path.
func OpenBolt(path string) (*Bolt, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{bucketGames, bucketGameIDs, bucketRecipients, bucketDeliveries} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("creating %s bucket: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Bolt{db: db, now: time.Now}, nil
}

// Close releases the database file.
func (s *Bolt) Close() error {
	return s.db.Close()
}

// Ping verifies the database is still open.
func (s *Bolt) Ping(ctx context.Context) error {
	return s.db.View(func(tx *bolt.Tx) error { return nil })
}

// AcquireRunLock takes the in-process run lock without blocking.
func (s *Bolt) AcquireRunLock(ctx context.Context) (func(), error) {
	if !s.runLock.TryLock() {
		return nil, ErrRunInProgress
	}
	return s.runLock.Unlock, nil
}

// --------------------------------------------------------------------------
// Schedule
// --------------------------------------------------------------------------

func (s *Bolt) LatestUpdate(ctx context.Context) (*time.Time, error) {
	var latest *time.Time
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketGames)).ForEach(func(k, v []byte) error {
			var g schedule.Game
			if err := json.Unmarshal(v, &g); err != nil {
				return fmt.Errorf("decode game %s: %w", k, err)
			}
			if latest == nil || g.UpdatedAt.After(*latest) {
				ts := g.UpdatedAt
				latest = &ts
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return latest, nil
}

func (s *Bolt) GamesOn(ctx context.Context, date time.Time) ([]schedule.Game, error) {
	var games []schedule.Game
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(bucketGames)).Get(dateKey(date))
		if data == nil {
			return nil
		}
		var g schedule.Game
		if err := json.Unmarshal(data, &g); err != nil {
			return fmt.Errorf("decode game: %w", err)
		}
		games = append(games, g)
		return nil
	})
	return games, err
}

func (s *Bolt) UpsertGame(ctx context.Context, g schedule.Game) (int64, error) {
	g.Date = schedule.DateOf(g.Date)
	if g.UpdatedAt.IsZero() {
		g.UpdatedAt = s.now().UTC()
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		games := tx.Bucket([]byte(bucketGames))
		key := dateKey(g.Date)

		if existing := games.Get(key); existing != nil {
			var prev schedule.Game
			if err := json.Unmarshal(existing, &prev); err != nil {
				return fmt.Errorf("decode game: %w", err)
			}
			g.ID = prev.ID
			g.Promotions = prev.Promotions
		} else {
			seq, err := games.NextSequence()
			if err != nil {
				return fmt.Errorf("next game id: %w", err)
			}
			g.ID = int64(seq)
			g.Promotions = nil
			if err := tx.Bucket([]byte(bucketGameIDs)).Put(idKey(g.ID), key); err != nil {
				return err
			}
		}
		return putJSON(games, key, g)
	})
	if err != nil {
		return 0, fmt.Errorf("upsert game: %w", err)
	}
	return g.ID, nil
}

func (s *Bolt) ReplacePromotions(ctx context.Context, gameID int64, promos []schedule.Promotion) error {
	if err := checkPromotions(promos); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		key := tx.Bucket([]byte(bucketGameIDs)).Get(idKey(gameID))
		if key == nil {
			return fmt.Errorf("replace promotions for game %d: %w", gameID, ErrNotFound)
		}
		games := tx.Bucket([]byte(bucketGames))
		var g schedule.Game
		if err := json.Unmarshal(games.Get(key), &g); err != nil {
			return fmt.Errorf("decode game: %w", err)
		}
		g.Promotions = append([]schedule.Promotion(nil), promos...)
		return putJSON(games, key, g)
	})
}

// --------------------------------------------------------------------------
// Recipients
// --------------------------------------------------------------------------

func (s *Bolt) AddRecipient(ctx context.Context, r recipients.Recipient) (int64, error) {
	if err := checkContact(r); err != nil {
		return 0, err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketRecipients))
		seq, err := b.NextSequence()
		if err != nil {
			return fmt.Errorf("next recipient id: %w", err)
		}
		r.ID = int64(seq)
		r.Active = true
		if r.CreatedAt.IsZero() {
			r.CreatedAt = s.now().UTC()
		}
		return putJSON(b, idKey(r.ID), r)
	})
	if err != nil {
		return 0, fmt.Errorf("add recipient: %w", err)
	}
	return r.ID, nil
}

func (s *Bolt) ListRecipients(ctx context.Context, activeOnly bool) ([]recipients.Recipient, error) {
	var out []recipients.Recipient
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketRecipients)).ForEach(func(k, v []byte) error {
			var r recipients.Recipient
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("decode recipient: %w", err)
			}
			if activeOnly && !r.Active {
				return nil
			}
			out = append(out, r)
			return nil
		})
	})
	return out, err
}

func (s *Bolt) SetRecipientActive(ctx context.Context, id int64, active bool) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketRecipients))
		data := b.Get(idKey(id))
		if data == nil {
			return fmt.Errorf("recipient %d: %w", id, ErrNotFound)
		}
		var r recipients.Recipient
		if err := json.Unmarshal(data, &r); err != nil {
			return fmt.Errorf("decode recipient: %w", err)
		}
		r.Active = active
		return putJSON(b, idKey(id), r)
	})
}

// --------------------------------------------------------------------------
// Ledger
// --------------------------------------------------------------------------

func (s *Bolt) HasDelivery(ctx context.Context, key DeliveryKey) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket([]byte(bucketDeliveries)).Get(deliveryKey(key)) != nil
		return nil
	})
	return found, err
}

func (s *Bolt) RecordDelivery(ctx context.Context, d Delivery) error {
	if d.SentAt.IsZero() {
		d.SentAt = s.now().UTC()
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx.Bucket([]byte(bucketDeliveries)), deliveryKey(d.DeliveryKey), d)
	})
	if err != nil {
		return fmt.Errorf("record delivery: %w", err)
	}
	return nil
}

func (s *Bolt) ListDeliveries(ctx context.Context, gameID int64) ([]Delivery, error) {
	var out []Delivery
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(bucketDeliveries)).Cursor()
		var k, v []byte
		if gameID > 0 {
			prefix := []byte(fmt.Sprintf("%020d/", gameID))
			for k, v = c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
				if err := appendDelivery(&out, v); err != nil {
					return err
				}
			}
			return nil
		}
		for k, v = c.First(); k != nil; k, v = c.Next() {
			if err := appendDelivery(&out, v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SentAt.After(out[j].SentAt) })
	return out, nil
}

func (s *Bolt) PruneDeliveries(ctx context.Context, cutoff time.Time) (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketDeliveries))
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var d Delivery
			if err := json.Unmarshal(v, &d); err != nil {
				return fmt.Errorf("decode delivery: %w", err)
			}
			if d.SentAt.Before(cutoff) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

func dateKey(t time.Time) []byte {
	return []byte(schedule.DateOf(t).Format(schedule.DateLayout))
}

func idKey(id int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

func deliveryKey(k DeliveryKey) []byte {
	return []byte(fmt.Sprintf("%020d/%020d/%s", k.GameID, k.RecipientID, k.Channel))
}

func putJSON(b *bolt.Bucket, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling value: %w", err)
	}
	return b.Put(key, data)
}

func appendDelivery(out *[]Delivery, v []byte) error {
	var d Delivery
	if err := json.Unmarshal(v, &d); err != nil {
		return fmt.Errorf("decode delivery: %w", err)
	}
	*out = append(*out, d)
	return nil
}
