package repository

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/graph-import/pkg/model"
)

// ImportTaskRecord represents the import_tasks table.
type ImportTaskRecord struct {
	ID         int64              `gorm:"column:id;primaryKey;autoIncrement"`
	RunUUID    string             `gorm:"column:run_uuid;type:varchar(64);uniqueIndex"`
	SourcePath string             `gorm:"column:source_path;type:varchar(512)"`
	Bucket     string             `gorm:"column:bucket;type:varchar(128)"`
	Status     model.ImportStatus `gorm:"column:status"`
	StatusInfo string             `gorm:"column:status_info;type:text"`
	CreateTime time.Time          `gorm:"column:create_time;autoCreateTime"`
	BeginTime  *time.Time         `gorm:"column:begin_time"`
	EndTime    *time.Time         `gorm:"column:end_time"`
}

// TableName returns the table name for ImportTaskRecord.
func (ImportTaskRecord) TableName() string {
	return "import_tasks"
}

// ToModel converts ImportTaskRecord to model.ImportTask.
func (r *ImportTaskRecord) ToModel() *model.ImportTask {
	return &model.ImportTask{
		ID:         r.ID,
		RunUUID:    r.RunUUID,
		SourcePath: r.SourcePath,
		Bucket:     r.Bucket,
		Status:     r.Status,
		StatusInfo: r.StatusInfo,
		CreateTime: r.CreateTime,
		BeginTime:  r.BeginTime,
		EndTime:    r.EndTime,
	}
}

// FromModel converts model.ImportTask to ImportTaskRecord.
func FromModel(t *model.ImportTask) *ImportTaskRecord {
	return &ImportTaskRecord{
		ID:         t.ID,
		RunUUID:    t.RunUUID,
		SourcePath: t.SourcePath,
		Bucket:     t.Bucket,
		Status:     t.Status,
		StatusInfo: t.StatusInfo,
		CreateTime: t.CreateTime,
		BeginTime:  t.BeginTime,
		EndTime:    t.EndTime,
	}
}

// ImportSummaryRecord represents the import_summaries table.
type ImportSummaryRecord struct {
	ID       int64     `gorm:"column:id;primaryKey;autoIncrement"`
	RunUUID  string    `gorm:"column:run_uuid;type:varchar(64);uniqueIndex"`
	Mode     string    `gorm:"column:mode;type:varchar(16)"`
	Counters JSONField `gorm:"column:counters;type:json"`
	Phases   JSONField `gorm:"column:phases;type:json"`
	TotalMS  int64     `gorm:"column:total_ms"`
	Warnings int64     `gorm:"column:warnings"`
	Errors   int64     `gorm:"column:errors"`
	Error    string    `gorm:"column:error;type:text"`
	SavedAt  time.Time `gorm:"column:saved_at;autoCreateTime"`
}

// TableName returns the table name for ImportSummaryRecord.
func (ImportSummaryRecord) TableName() string {
	return "import_summaries"
}

// JSONField stores arbitrary JSON in a database column.
type JSONField json.RawMessage

// Value implements driver.Valuer.
func (f JSONField) Value() (driver.Value, error) {
	if len(f) == 0 {
		return nil, nil
	}
	return string(f), nil
}

// Scan implements sql.Scanner.
func (f *JSONField) Scan(value interface{}) error {
	if value == nil {
		*f = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*f = append((*f)[:0], v...)
		return nil
	case string:
		*f = JSONField(v)
		return nil
	default:
		return errors.New("unsupported type for JSONField")
	}
}

// MarshalJSON implements json.Marshaler.
func (f JSONField) MarshalJSON() ([]byte, error) {
	if len(f) == 0 {
		return []byte("null"), nil
	}
	return f, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *JSONField) UnmarshalJSON(data []byte) error {
	*f = append((*f)[:0], data...)
	return nil
}
