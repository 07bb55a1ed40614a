package audit

import (
	"encoding/binary"
	"encoding/json"
	"time"

	bolt "github.com/boltdb/bolt"
)

const spoolBucket = "audit_spool"

// Spool is a bolt-backed holding queue for audit events that failed the
// synchronous store write. It survives process restarts, so an outage of the
// audit store loses nothing.
type Spool struct {
	db *bolt.DB
}

func OpenSpool(path string) (*Spool, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(spoolBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Spool{db: db}, nil
}

func (s *Spool) Close() error {
	return s.db.Close()
}

func (s *Spool) Enqueue(event Event) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(spoolBucket))
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		value, err := json.Marshal(event)
		if err != nil {
			return err
		}
		return b.Put(key, value)
	})
}

// Drain feeds queued events to fn in insertion order, deleting each one fn
// accepts. It stops at the first failure so ordering is preserved across
// retries, and reports how many events were delivered.
func (s *Spool) Drain(fn func(event Event) error) (int, error) {
	delivered := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(spoolBucket))
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var event Event
			if err := json.Unmarshal(v, &event); err != nil {
				return err
			}
			if err := fn(event); err != nil {
				return nil
			}
			if err := b.Delete(k); err != nil {
				return err
			}
			delivered++
		}
		return nil
	})
	return delivered, err
}

// Len reports the number of spooled events.
func (s *Spool) Len() (int, error) {
	count := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket([]byte(spoolBucket)).Stats().KeyN
		return nil
	})
	return count, err
}
