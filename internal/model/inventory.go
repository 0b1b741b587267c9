package model

import (
	"encoding/json"
	"math"
	"time"
)

// InventoryItem is one stocked part. PartNumber is the natural key used by
// the merge-upsert; it is not unique at the storage level.
type InventoryItem struct {
	ID            int64     `json:"item_id"`
	PartNumber    string    `json:"part_number"`
	Quantity      int       `json:"quantity"`
	Description   string    `json:"description"`
	Category      string    `json:"category"`
	Location      string    `json:"location"`
	Subteam       string    `json:"subteam"`
	Cost          float64   `json:"cost"`
	Vendor        string    `json:"vendor"`
	CreatedBy     string    `json:"created_by"`
	LastUpdatedBy string    `json:"last_updated_by"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	ItemType      string    `json:"item_type"`
	Systems       string    `json:"systems"`
	CaseCode      string    `json:"case_code_in"`
	Size          string    `json:"size"`
	Link          string    `json:"link"`
	Company       string    `json:"company"`
	Notes         string    `json:"notes"`
}

// MarshalJSON adds the date_time_added alias the front-end still reads.
func (i InventoryItem) MarshalJSON() ([]byte, error) {
	type plain InventoryItem
	return json.Marshal(struct {
		plain
		DateTimeAdded time.Time `json:"date_time_added"`
	}{
		plain:         plain(i),
		DateTimeAdded: i.CreatedAt,
	})
}

// InventoryItemCreate is the POST /api/inventory body.
type InventoryItemCreate struct {
	PartNumber  string   `json:"part_number" validate:"required,notblank"`
	Quantity    *int     `json:"quantity" validate:"required"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Location    string   `json:"location"`
	Subteam     string   `json:"subteam"`
	Cost        *float64 `json:"cost"`
	Vendor      string   `json:"vendor"`
	CreatedBy   string   `json:"created_by"`
	UpdatedBy   string   `json:"updated_by"`
	ItemType    string   `json:"item_type"`
	Systems     string   `json:"systems"`
	CaseCode    string   `json:"case_code_in"`
	Size        string   `json:"size"`
	Link        string   `json:"link"`
	Company     string   `json:"company"`
	Notes       string   `json:"notes"`
}

// Actor returns who performed the write: updated_by wins over created_by.
func (c *InventoryItemCreate) Actor() string {
	if c.UpdatedBy != "" {
		return c.UpdatedBy
	}
	return c.CreatedBy
}

// InventoryItemUpdate is the PUT /api/inventory/{id} body. Only non-nil
// fields are written; unknown JSON keys are rejected by the decoder.
type InventoryItemUpdate struct {
	PartNumber    *string  `json:"part_number" validate:"omitempty,notblank"`
	Quantity      *int     `json:"quantity"`
	Description   *string  `json:"description"`
	Category      *string  `json:"category"`
	Location      *string  `json:"location"`
	Subteam       *string  `json:"subteam"`
	Cost          *float64 `json:"cost"`
	Vendor        *string  `json:"vendor"`
	LastUpdatedBy *string  `json:"last_updated_by"`
	ItemType      *string  `json:"item_type"`
	Systems       *string  `json:"systems"`
	CaseCode      *string  `json:"case_code_in"`
	Size          *string  `json:"size"`
	Link          *string  `json:"link"`
	Company       *string  `json:"company"`
	Notes         *string  `json:"notes"`
}

// Columns returns the column → value pairs that were supplied.
func (u *InventoryItemUpdate) Columns() map[string]interface{} {
	set := make(map[string]interface{})

	text := []struct {
		column string
		value  *string
	}{
		{"part_number", u.PartNumber},
		{"description", u.Description},
		{"category", u.Category},
		{"location", u.Location},
		{"subteam", u.Subteam},
		{"vendor", u.Vendor},
		{"last_updated_by", u.LastUpdatedBy},
		{"item_type", u.ItemType},
		{"systems", u.Systems},
		{"case_code_in", u.CaseCode},
		{"size", u.Size},
		{"link", u.Link},
		{"company", u.Company},
		{"notes", u.Notes},
	}
	for _, t := range text {
		if t.value != nil {
			set[t.column] = *t.value
		}
	}

	if u.Quantity != nil {
		set["quantity"] = *u.Quantity
	}
	if u.Cost != nil {
		set["cost"] = *u.Cost
	}

	return set
}

// InventoryFilter narrows a listing. Query is a substring over part number,
// description and vendor; Category and Subteam are exact matches.
type InventoryFilter struct {
	Query    string
	Category string
	Subteam  string
}

// UpsertResult is returned by POST /api/inventory.
type UpsertResult struct {
	ItemID  int64  `json:"itemId"`
	Message string `json:"message"`
	Created bool   `json:"-"`
}

// InventoryStatistics is the aggregate view over every item.
type InventoryStatistics struct {
	TotalItems        int            `json:"totalItems"`
	TotalQuantity     int            `json:"totalQuantity"`
	TotalValue        float64        `json:"totalValue"`
	Categories        map[string]int `json:"categories"`
	Subteams          map[string]int `json:"subteams"`
	UniquePartNumbers int            `json:"uniquePartNumbers"`
}

const (
	uncategorized = "Uncategorized"
	unassigned    = "Unassigned"
)

// ComputeStatistics scans items once. totalValue is rounded to cents.
func ComputeStatistics(items []InventoryItem) InventoryStatistics {
	stats := InventoryStatistics{
		TotalItems: len(items),
		Categories: make(map[string]int),
		Subteams:   make(map[string]int),
	}

	parts := make(map[string]struct{}, len(items))
	var value float64
	for _, item := range items {
		stats.TotalQuantity += item.Quantity
		value += item.Cost * float64(item.Quantity)

		category := item.Category
		if category == "" {
			category = uncategorized
		}
		stats.Categories[category] += item.Quantity

		subteam := item.Subteam
		if subteam == "" {
			subteam = unassigned
		}
		stats.Subteams[subteam] += item.Quantity

		parts[item.PartNumber] = struct{}{}
	}

	stats.TotalValue = math.Round(value*100) / 100
	stats.UniquePartNumbers = len(parts)
	return stats
}
