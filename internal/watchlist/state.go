package watchlist

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"CoinSentinel/internal/model"
)

// LoadState reads the watchlist from a JSON file. The bool is false when the file does not exist.
func LoadState(filePath string) (*model.Watchlist, bool, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &model.Watchlist{}, false, nil
		}
		return nil, false, err
	}
	var wl model.Watchlist
	if err := json.Unmarshal(data, &wl); err != nil {
		return nil, false, err
	}
	return &wl, true, nil
}

// SaveState writes the watchlist to a JSON file, creating its directory if needed.
func SaveState(filePath string, wl *model.Watchlist) error {
	wl.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(wl, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(filePath, data, 0o644)
}
