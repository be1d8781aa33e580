package main

import (
	"encoding/binary"
	"fmt"

	"github.com/boltdb/bolt"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// MirrorStorage keeps a snapshot of each book with its reviews.
type MirrorStorage interface {
	Put(book Book) error
	Get(id int64) (Book, error)
	Delete(id int64) error
	List() ([]Book, error)
	Close() error
}

type boltMirrorStorage struct {
	logger *zap.Logger
	client *bolt.DB
	config *BoltDBConfig
}

// GetBoltDBClient setup the database and the bucket then provides a ready to use client.
func GetBoltDBClient(config *Config) (*bolt.DB, error) {
	db, err := bolt.Open(config.BoltDB.FilePath, 0o600, &bolt.Options{Timeout: config.BoltDB.Timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open the database, %v", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, errB := tx.CreateBucketIfNotExists([]byte(config.BoltDB.BucketName)); errB != nil {
			return fmt.Errorf("failed to create %s bucket: %v", config.BoltDB.BucketName, errB)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set up bucket: %v", err)
	}
	return db, nil
}

// NewBoltMirrorStorage provides an instance of bolt-based catalog mirror.
func NewBoltMirrorStorage(logger *zap.Logger, boltConfig *BoltDBConfig, client *bolt.DB) MirrorStorage {
	return &boltMirrorStorage{
		logger: logger,
		client: client,
		config: boltConfig,
	}
}

// itob encodes an id as big endian so that cursor order is id order.
func itob(id int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

// Close shuts down the bolt-based mirror.
func (bs *boltMirrorStorage) Close() error {
	return bs.client.Close()
}

// Put inserts or replaces the snapshot of a book.
func (bs *boltMirrorStorage) Put(book Book) error {
	bookBytes, err := json.Marshal(book)
	if err != nil {
		return err
	}
	return bs.client.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bs.config.BucketName)).Put(itob(book.ID), bookBytes)
	})
}

// Get retrieves the snapshot of a book based on its ID.
func (bs *boltMirrorStorage) Get(id int64) (Book, error) {
	var book Book
	// initialize a readable transaction.
	tx, err := bs.client.Begin(false)
	if err != nil {
		return book, err
	}
	defer tx.Rollback()

	result := tx.Bucket([]byte(bs.config.BucketName)).Get(itob(id))
	if result == nil {
		return book, ErrBookNotFound
	}
	err = json.Unmarshal(result, &book)
	return book, err
}

// Delete removes the snapshot of a book. Missing keys are ignored.
func (bs *boltMirrorStorage) Delete(id int64) error {
	return bs.client.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bs.config.BucketName)).Delete(itob(id))
	})
}

// List retrieves every snapshot ordered by book id.
func (bs *boltMirrorStorage) List() ([]Book, error) {
	tx, err := bs.client.Begin(false)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	c := tx.Bucket([]byte(bs.config.BucketName)).Cursor()

	books := []Book{}
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var book Book
		if err = json.Unmarshal(v, &book); err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	return books, nil
}
