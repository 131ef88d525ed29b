package services

import (
	"bytes"
	"strings"
	"time"

	"battery-erp-backend/models"
	"battery-erp-backend/utils"

	"github.com/goccy/go-json"
)

// SnapshotSchemaVersion is written on export; restore refuses anything newer.
const SnapshotSchemaVersion = 1

// Layouts accepted for snapshot timestamps, newest format first. The zone-less
// layouts cover backups written before timestamps carried an offset.
var snapshotTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Timestamp is a snapshot time. Null or empty decodes to the zero time.
type Timestamp struct {
	time.Time
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range snapshotTimeLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return newError(KindMalformedSnapshot, "unrecognised timestamp %q", raw)
}

// orNow falls back to now for records that carried no time.
func (t Timestamp) orNow(now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t.Time
}

func stamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

type SnapshotUser struct {
	ID        uint        `json:"id"`
	Username  string      `json:"username"`
	FullName  string      `json:"full_name"`
	Role      models.Role `json:"role"`
	IsActive  *bool       `json:"is_active"`
	CreatedAt Timestamp   `json:"created_at"`
}

type SnapshotCustomer struct {
	ID              uint      `json:"id"`
	Name            string    `json:"name"`
	Mobile          string    `json:"mobile"`
	MobileSecondary *string   `json:"mobile_secondary,omitempty"`
	CreatedAt       Timestamp `json:"created_at"`
}

type SnapshotBattery struct {
	ID         uint   `json:"id"`
	TrackingID string `json:"tracking_id"`
	// Older backups carried the tracking id under this key.
	LegacyTrackingID string `json:"battery_id,omitempty"`

	CustomerID   *uint         `json:"customer_id"`
	BatteryType  string        `json:"battery_type"`
	Voltage      string        `json:"voltage"`
	Capacity     string        `json:"capacity"`
	Status       models.Status `json:"status"`
	InwardDate   Timestamp     `json:"inward_date"`
	ServicePrice float64       `json:"service_price"`
	IsPickup     bool          `json:"is_pickup"`
	PickupCharge float64       `json:"pickup_charge"`
}

type SnapshotHistory struct {
	ID        uint          `json:"id"`
	BatteryID uint          `json:"battery_id"`
	Status    models.Status `json:"status"`
	Comments  string        `json:"comments"`
	UpdatedBy uint          `json:"updated_by"`
	UpdatedAt Timestamp     `json:"updated_at"`
}

type SnapshotNote struct {
	ID         uint            `json:"id"`
	BatteryID  uint            `json:"battery_id"`
	Note       string          `json:"note"`
	NoteType   models.NoteType `json:"note_type"`
	CreatedBy  uint            `json:"created_by"`
	CreatedAt  Timestamp       `json:"created_at"`
	IsResolved bool            `json:"is_resolved"`
}

type SnapshotSetting struct {
	Key       string    `json:"setting_key"`
	Value     string    `json:"setting_value"`
	UpdatedAt Timestamp `json:"updated_at"`
}

// Snapshot is the full-dataset backup document. Credentials are never part of it.
type Snapshot struct {
	SchemaVersion int                `json:"schema_version"`
	Timestamp     Timestamp          `json:"timestamp"`
	Users         []SnapshotUser     `json:"users"`
	Customers     []SnapshotCustomer `json:"customers"`
	Batteries     []SnapshotBattery  `json:"batteries"`
	StatusHistory []SnapshotHistory  `json:"status_history"`
	StaffNotes    []SnapshotNote     `json:"staff_notes"`
	Settings      []SnapshotSetting  `json:"settings"`
}

// Every backup carries these arrays, possibly empty. staff_notes is optional
// because older backups never wrote it.
var requiredSnapshotArrays = []string{"users", "customers", "batteries", "status_history", "settings"}

func malformed(format string, args ...interface{}) error {
	return newError(KindMalformedSnapshot, format, args...)
}

// DecodeSnapshot parses and validates a backup document.
func DecodeSnapshot(payload []byte) (*Snapshot, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || payload[0] != '{' {
		return nil, malformed("backup must be a JSON object")
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(payload, &top); err != nil {
		return nil, malformed("cannot parse backup: %v", err)
	}
	for _, key := range requiredSnapshotArrays {
		raw, ok := top[key]
		if !ok {
			return nil, malformed("backup has no %s list", key)
		}
		if raw = bytes.TrimSpace(raw); len(raw) == 0 || raw[0] != '[' {
			return nil, malformed("backup field %s must be a list", key)
		}
	}

	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		if KindOf(err) == KindMalformedSnapshot {
			return nil, err
		}
		return nil, malformed("cannot parse backup: %v", err)
	}
	if snap.SchemaVersion == 0 {
		snap.SchemaVersion = 1
	}
	if err := snap.validate(); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *Snapshot) validate() error {
	if s.SchemaVersion < 0 || s.SchemaVersion > SnapshotSchemaVersion {
		return malformed("unsupported schema version %d (this server reads up to %d)", s.SchemaVersion, SnapshotSchemaVersion)
	}
	if s.Timestamp.IsZero() {
		return malformed("backup timestamp is missing")
	}

	usernames := make(map[string]bool, len(s.Users))
	for i, u := range s.Users {
		if strings.TrimSpace(u.Username) == "" {
			return malformed("user %d has no username", i+1)
		}
		if utils.TooLong(u.Username, models.MaxUsernameLength) || utils.TooLong(u.FullName, models.MaxFullNameLength) {
			return malformed("user %s has an oversized name", u.Username)
		}
		if !u.Role.Valid() {
			return malformed("user %s has unknown role %q", u.Username, u.Role)
		}
		if usernames[u.Username] {
			return malformed("user %s appears twice", u.Username)
		}
		usernames[u.Username] = true
	}

	customerIDs := make(map[uint]bool, len(s.Customers))
	for i, c := range s.Customers {
		if c.ID == 0 {
			return malformed("customer %d has no id", i+1)
		}
		if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Mobile) == "" {
			return malformed("customer %d is missing name or mobile", c.ID)
		}
		if utils.TooLong(c.Name, models.MaxCustomerNameLength) || utils.TooLong(c.Mobile, models.MaxMobileLength) ||
			(c.MobileSecondary != nil && utils.TooLong(*c.MobileSecondary, models.MaxMobileLength)) {
			return malformed("customer %d has a field longer than its column", c.ID)
		}
		if customerIDs[c.ID] {
			return malformed("customer id %d appears twice", c.ID)
		}
		customerIDs[c.ID] = true
	}

	batteryIDs := make(map[uint]bool, len(s.Batteries))
	trackingIDs := make(map[string]bool, len(s.Batteries))
	for i := range s.Batteries {
		b := &s.Batteries[i]
		if b.TrackingID == "" {
			b.TrackingID = b.LegacyTrackingID
		}
		if b.ID == 0 {
			return malformed("battery %d has no id", i+1)
		}
		if b.TrackingID == "" || len(b.TrackingID) > models.MaxTrackingIDLength {
			return malformed("battery %d has an invalid tracking id", b.ID)
		}
		if strings.TrimSpace(b.BatteryType) == "" {
			return malformed("battery %s has no type", b.TrackingID)
		}
		if utils.TooLong(b.BatteryType, models.MaxBatteryTypeLength) || utils.TooLong(b.Voltage, models.MaxVoltageLength) ||
			utils.TooLong(b.Capacity, models.MaxCapacityLength) {
			return malformed("battery %s has a field longer than its column", b.TrackingID)
		}
		if !b.Status.Valid() {
			return malformed("battery %s has unknown status %q", b.TrackingID, b.Status)
		}
		if batteryIDs[b.ID] || trackingIDs[b.TrackingID] {
			return malformed("battery %s appears twice", b.TrackingID)
		}
		batteryIDs[b.ID] = true
		trackingIDs[b.TrackingID] = true
	}

	for i, h := range s.StatusHistory {
		if h.BatteryID == 0 || !h.Status.Valid() {
			return malformed("status history entry %d is incomplete", i+1)
		}
	}

	for i, n := range s.StaffNotes {
		if n.BatteryID == 0 || strings.TrimSpace(n.Note) == "" {
			return malformed("staff note %d is incomplete", i+1)
		}
		if n.NoteType != "" && !n.NoteType.Valid() {
			return malformed("staff note %d has unknown type %q", i+1, n.NoteType)
		}
	}

	keys := make(map[string]bool, len(s.Settings))
	for i, st := range s.Settings {
		if strings.TrimSpace(st.Key) == "" {
			return malformed("setting %d has no key", i+1)
		}
		if utils.TooLong(st.Key, models.MaxSettingKeyLength) {
			return malformed("setting key %s is too long", st.Key)
		}
		if keys[st.Key] {
			return malformed("setting %s appears twice", st.Key)
		}
		keys[st.Key] = true
	}
	return nil
}
