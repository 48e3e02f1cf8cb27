/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package bolt is a storage.Storage backed by bbolt.  Each host is
// a bucket, and each module is a key in that bucket.
package bolt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Comcast/chunks/storage"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
)

type Storage struct {
	Logger *zap.Logger

	filename string
	db       *bolt.DB
}

func NewStorage(filename string, logger *zap.Logger) *Storage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Storage{
		Logger:   logger,
		filename: filename,
	}
}

func (s *Storage) Open(ctx context.Context) error {
	opts := &bolt.Options{
		Timeout: time.Second,
	}

	db, err := bolt.Open(s.filename, 0644, opts)
	if err != nil {
		return err
	}
	s.db = db
	return nil
}

func (s *Storage) Close(ctx context.Context) error {
	return s.db.Close()
}

func (s *Storage) MakeHost(ctx context.Context, name string) error {
	s.Logger.Debug("MakeHost", zap.String("host", name))
	return s.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucket([]byte(name))
		return err
	})
}

func (s *Storage) RemHost(ctx context.Context, name string) error {
	s.Logger.Debug("RemHost", zap.String("host", name))
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.DeleteBucket([]byte(name))
	})
}

// GetHost returns the stored modules in module name order.  A host
// that doesn't exist has no modules.
func (s *Storage) GetHost(ctx context.Context, name string) ([]*storage.ModuleState, error) {
	mss := make([]*storage.ModuleState, 0, 8)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(name))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for id, bs := c.First(); id != nil; id, bs = c.Next() {
			var ms storage.ModuleState
			if err := json.Unmarshal(bs, &ms); err != nil {
				return err
			}
			ms.Module = string(id)
			mss = append(mss, &ms)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Debug("GetHost", zap.String("host", name), zap.Int("modules", len(mss)))

	if len(mss) == 0 {
		return nil, nil
	}

	return mss, nil
}

// WriteState writes the modules.  A Deleted module is removed.
func (s *Storage) WriteState(ctx context.Context, name string, mss []*storage.ModuleState) error {
	s.Logger.Debug("WriteState", zap.String("host", name), zap.Int("modules", len(mss)))

	if 0 == len(mss) {
		return nil
	}

	vals := make(map[string][]byte, len(mss))

	for _, ms := range mss {
		if ms.Deleted {
			vals[ms.Module] = nil
			continue
		}
		// To save some space, remove the name.
		js, err := json.Marshal(&storage.ModuleState{
			Graph:    ms.Graph,
			Buffer:   ms.Buffer,
			ReadOnly: ms.ReadOnly,
		})
		if err != nil {
			return err
		}
		vals[ms.Module] = js
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(name))
		if err != nil {
			return err
		}
		for id, bs := range vals {
			key := []byte(id)
			if bs == nil {
				err = b.Delete(key)
			} else {
				err = b.Put(key, bs)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}
