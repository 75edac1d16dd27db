package model

import "time"

// StorageUsage is one mailbox's quota consumption in the storage
// overview.
type StorageUsage struct {
	Email        string    `json:"email"`
	QuotaBytes   int64     `json:"quota_bytes"`
	UsageBytes   int64     `json:"usage_bytes"`
	UsagePercent float64   `json:"usage_percent"`
	LastSynced   time.Time `json:"last_synced"`
}

// StorageStats summarizes quota allocation across all mailboxes.
type StorageStats struct {
	TotalAllocated      int64          `json:"total_allocated"`
	TotalUsed           int64          `json:"total_used"`
	AverageUsagePercent float64        `json:"average_usage_percent"`
	UsersOver90Percent  int64          `json:"users_over_90_percent"`
	TopUsers            []StorageUsage `json:"top_users"`
}

// QuotaPreset is a named quota size offered when assigning mailbox
// quotas.
type QuotaPreset struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}
