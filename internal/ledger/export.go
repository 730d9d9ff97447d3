// SPDX-License-Identifier: MIT

package ledger

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/renameio/v2"
)

// Snapshot is the exported form of the ledger, consumed by the storefront
// build pipeline to pre-seed player sources without hitting the API.
type Snapshot struct {
	GeneratedAt time.Time `json:"generatedAt"`
	Renditions  []Record  `json:"renditions"`
}

// Export writes a JSON snapshot of all recorded renditions to path. The
// write is atomic: readers never observe a partially written file.
func (s *Store) Export(ctx context.Context, path string) error {
	records, err := s.List(ctx)
	if err != nil {
		return err
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].SourceURL < records[j].SourceURL
	})

	buf, err := json.MarshalIndent(Snapshot{
		GeneratedAt: time.Now().UTC(),
		Renditions:  records,
	}, "", "  ")
	if err != nil {
		return err
	}
	return renameio.WriteFile(path, append(buf, '\n'), 0o644)
}
