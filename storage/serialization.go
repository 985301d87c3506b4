// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"encoding/json"
	"fmt"

	"github.com/poiesic/curator/core"
	"github.com/poiesic/curator/learning"
)

func marshal(kind string, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSerializationFailed, kind, err)
	}
	return data, nil
}

func unmarshal(kind string, data []byte, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyRecord, kind)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSerializationFailed, kind, err)
	}
	return nil
}

// MarshalSeenRecord serializes a SeenRecord to bytes.
func MarshalSeenRecord(rec *SeenRecord) ([]byte, error) {
	return marshal("seen record", rec)
}

// UnmarshalSeenRecord deserializes a SeenRecord from bytes.
func UnmarshalSeenRecord(data []byte) (*SeenRecord, error) {
	var rec SeenRecord
	if err := unmarshal("seen record", data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// MarshalSnapshot serializes a learning Snapshot to bytes.
func MarshalSnapshot(snap *learning.Snapshot) ([]byte, error) {
	return marshal("learning snapshot", snap)
}

// UnmarshalSnapshot deserializes a learning Snapshot from bytes.
func UnmarshalSnapshot(data []byte) (*learning.Snapshot, error) {
	var snap learning.Snapshot
	if err := unmarshal("learning snapshot", data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// MarshalRunStats serializes RunStats to bytes.
func MarshalRunStats(stats *core.RunStats) ([]byte, error) {
	return marshal("run stats", stats)
}

// UnmarshalRunStats deserializes RunStats from bytes.
func UnmarshalRunStats(data []byte) (*core.RunStats, error) {
	var stats core.RunStats
	if err := unmarshal("run stats", data, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
