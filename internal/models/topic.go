package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// StringArray represents a PostgreSQL text[] type
type StringArray []string

// Scan implements the sql.Scanner interface
func (s *StringArray) Scan(value interface{}) error {
	if value == nil {
		*s = StringArray{}
		return nil
	}

	switch v := value.(type) {
	case string:
		// Handle PostgreSQL array format: {value1,value2,value3}
		if v == "{}" || v == "" {
			*s = StringArray{}
			return nil
		}

		trimmed := strings.Trim(v, "{}")
		if trimmed == "" {
			*s = StringArray{}
			return nil
		}

		parts := strings.Split(trimmed, ",")
		result := make([]string, len(parts))
		for i, part := range parts {
			result[i] = strings.Trim(strings.TrimSpace(part), "\"")
		}
		*s = result
		return nil
	case []byte:
		// Try to parse as JSON first
		var arr []string
		if err := json.Unmarshal(v, &arr); err == nil {
			*s = arr
			return nil
		}
		return s.Scan(string(v))
	default:
		return errors.New(fmt.Sprintf("cannot scan %T into StringArray", value))
	}
}

// Value implements the driver.Valuer interface
func (s StringArray) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "{}", nil
	}

	quoted := make([]string, len(s))
	for i, v := range s {
		escaped := strings.ReplaceAll(v, "\"", "\\\"")
		quoted[i] = fmt.Sprintf("\"%s\"", escaped)
	}

	return fmt.Sprintf("{%s}", strings.Join(quoted, ",")), nil
}

// Topic statuses, mirrored back to the spreadsheet status column.
const (
	TopicStatusPending   = "pending"
	TopicStatusCompleted = "completed"
	TopicStatusError     = "error"
)

// Topic is one work item pulled from the topic spreadsheet: a subject to
// write about and the site it should be published to.
type Topic struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	SheetRow      int            `gorm:"uniqueIndex;not null" json:"sheet_row"`
	Subject       string         `gorm:"not null;size:500" json:"subject"`
	Business      string         `gorm:"size:255" json:"business"`
	Location      string         `gorm:"size:255" json:"location"`
	TargetSiteID  string         `gorm:"not null;size:100;index" json:"target_site_id"`
	InternalLinks StringArray    `gorm:"type:text[]" json:"internal_links"`
	Status        string         `gorm:"size:50;default:'pending';index" json:"status"`
	ResultURL     string         `gorm:"size:1000" json:"result_url"`
	LastError     string         `gorm:"type:text" json:"last_error"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}
