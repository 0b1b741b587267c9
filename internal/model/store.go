package model

import "time"

// StoreInfo describes where a record store lives.
type StoreInfo struct {
	Name     string `json:"name"`
	Driver   string `json:"driver"`
	Location string `json:"location"`
}

// DatabaseInfo is the GET /api/admin/database-info payload.
type DatabaseInfo struct {
	Timestamp       time.Time   `json:"timestamp"`
	UserCount       int64       `json:"userCount"`
	InventoryCount  int64       `json:"inventoryCount"`
	PreferenceCount int64       `json:"preferenceCount"`
	DeviceCount     int64       `json:"deviceCount"`
	Databases       []string    `json:"databases"`
	Database        string      `json:"database"`
	Stores          []StoreInfo `json:"stores"`
}

// ClearResult reports how many rows each store dropped.
type ClearResult struct {
	Users       int64 `json:"users"`
	Inventory   int64 `json:"inventory"`
	Preferences int64 `json:"preferences"`
}
