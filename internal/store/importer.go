package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mbeaupre/autoemail/internal/model"
)

// importFile is the JSON document accepted by ImportFile: an export of
// the business database's shops and owners tables.
type importFile struct {
	Shops  []model.Shop  `json:"shops"`
	Owners []model.Owner `json:"owners"`
}

// ImportFile loads a JSON export into the replica, upserting owners
// before shops so the owner_id references resolve.
func ImportFile(ctx context.Context, s Store, path string) (shops, owners int, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, fmt.Errorf("reading import file: %w", err)
	}

	var doc importFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, 0, fmt.Errorf("parsing import file %s: %w", path, err)
	}

	if err := s.UpsertOwners(ctx, doc.Owners); err != nil {
		return 0, 0, fmt.Errorf("importing owners: %w", err)
	}
	if err := s.UpsertShops(ctx, doc.Shops); err != nil {
		return 0, len(doc.Owners), fmt.Errorf("importing shops: %w", err)
	}

	return len(doc.Shops), len(doc.Owners), nil
}
