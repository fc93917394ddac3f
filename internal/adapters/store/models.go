package store

import "time"

// Checkin is the durable check-in record. Uniqueness of
// (Employee, Timestamp, LogType) is a writer contract, not a database
// constraint: historical duplicates from earlier bugs must remain loadable
// so the purge pass can remove them.
type Checkin struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Employee  string    `gorm:"index;size:140"`
	Timestamp time.Time `gorm:"index"` // second precision
	LogType   string    `gorm:"index;size:8"`
	DeviceID  string    `gorm:"index;size:140"` // dedup/locking scope
	CreatedAt time.Time `gorm:"index"`
}

// SyncState is the per-scope sync watermark. It replaces the implicit
// process-level "last sync" state with an explicit persisted row.
type SyncState struct {
	Scope       string `gorm:"primaryKey;size:140"`
	LastSync    time.Time
	TotalSynced int64
	UpdatedAt   time.Time
}

// Employee mirrors the HR identity fields consulted during subject-code
// resolution, in priority order: EmployeeCode, UserID, AttendanceDeviceID.
type Employee struct {
	ID                 string `gorm:"primaryKey;size:36"`
	Name               string `gorm:"size:140"`
	EmployeeCode       string `gorm:"index;size:140"`
	UserID             string `gorm:"index;size:140"`
	AttendanceDeviceID string `gorm:"index;size:140"`
}
