package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"prstocks-api/internal/model"
)

const msgInventoryCreated = "Inventory item created successfully"

// MergeField combines an existing free-text value with an incoming one.
// Blank incoming keeps existing; blank existing takes the trimmed incoming;
// an incoming value already contained (case-insensitively) is dropped;
// anything else is appended as "existing, incoming".
func MergeField(existing, incoming string) string {
	incoming = strings.TrimSpace(incoming)
	if incoming == "" {
		return existing
	}
	trimmed := strings.TrimSpace(existing)
	if trimmed == "" {
		return incoming
	}
	if strings.Contains(strings.ToLower(trimmed), strings.ToLower(incoming)) {
		return trimmed
	}
	return trimmed + ", " + incoming
}

// MergeInventory returns the record to persist for in and the message to
// report. existing is nil when no item carries in.PartNumber; existing is
// never modified.
func MergeInventory(existing *model.InventoryItem, in model.InventoryItemCreate, now time.Time) (*model.InventoryItem, string) {
	quantity := 0
	if in.Quantity != nil {
		quantity = *in.Quantity
	}

	if existing == nil {
		item := &model.InventoryItem{
			PartNumber:    in.PartNumber,
			Quantity:      quantity,
			Description:   in.Description,
			Category:      in.Category,
			Location:      in.Location,
			Subteam:       in.Subteam,
			Cost:          lo.FromPtr(in.Cost),
			Vendor:        in.Vendor,
			CreatedBy:     in.CreatedBy,
			LastUpdatedBy: in.CreatedBy,
			CreatedAt:     now,
			UpdatedAt:     now,
			ItemType:      in.ItemType,
			Systems:       in.Systems,
			CaseCode:      in.CaseCode,
			Size:          in.Size,
			Link:          in.Link,
			Company:       in.Company,
			Notes:         in.Notes,
		}
		return item, msgInventoryCreated
	}

	item := *existing
	if quantity != 0 {
		item.Quantity += quantity
	}

	for _, f := range []struct {
		dst *string
		in  string
	}{
		{&item.Description, in.Description},
		{&item.Category, in.Category},
		{&item.Location, in.Location},
		{&item.Subteam, in.Subteam},
		{&item.Vendor, in.Vendor},
		{&item.ItemType, in.ItemType},
		{&item.Systems, in.Systems},
		{&item.CaseCode, in.CaseCode},
		{&item.Size, in.Size},
		{&item.Link, in.Link},
		{&item.Company, in.Company},
		{&item.Notes, in.Notes},
	} {
		*f.dst = MergeField(*f.dst, f.in)
	}

	if in.Cost != nil {
		item.Cost = *in.Cost
	}
	if actor := in.Actor(); actor != "" {
		item.LastUpdatedBy = actor
	}
	item.UpdatedAt = now

	msg := fmt.Sprintf("Updated existing item %s, new quantity: %d", in.PartNumber, item.Quantity)
	return &item, msg
}

// RecordLogin appends deviceID to the user's devices when it is non-empty
// and not yet known, and stamps last_login.
func RecordLogin(user *model.User, deviceID string, now time.Time) *model.User {
	if deviceID != "" && !lo.Contains(user.Devices, deviceID) {
		user.Devices = append(user.Devices, deviceID)
	}
	if user.Devices == nil {
		user.Devices = []string{}
	}
	user.LastLogin = &now
	return user
}
