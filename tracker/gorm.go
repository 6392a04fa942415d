package tracker

import (
	"time"

	"github.com/archivelab/fcbatch"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GORMTrackerConfig represents the GORMTracker config structure.
type GORMTrackerConfig struct {
	Host     string           `validate:"required"`
	Database string           `validate:"required"`
	User     string           `validate:"required"`
	Password string           `validate:"required"`
	Port     string           `validate:"required"`
	Logger   logger.Interface `validate:"required"`
}

// NewGORMTracker returns a new instance of the GORMTracker.
func NewGORMTracker(cfg GORMTrackerConfig) *GORMTracker {
	return &GORMTracker{
		Cfg: cfg,
	}
}

// GORMTracker represents a tracker that stores the load protocol inside a
// database supported by gorm, so finished loads stay queryable.
type GORMTracker struct {
	fcbatch.BaseStorage
	Cfg    GORMTrackerConfig
	client *gorm.DB
}

// Shutdown is called only once at the very end of the work with the storage.
// As for the GORMTracker, it closes the initially opened db connection.
func (t *GORMTracker) Shutdown() {
	if t.client == nil {
		return
	}
	db, _ := t.client.DB()
	if db != nil {
		db.Close()
	}
}

// TrackLoad persists one successfully loaded row pair.
func (t *GORMTracker) TrackLoad(entry *fcbatch.LoadEntry) error {
	return t.client.Create(&load{
		RunID:      t.RunID,
		Row:        entry.Row,
		Label:      entry.Label,
		ObjectURI:  entry.ObjectURI,
		FileURI:    entry.FileURI,
		Checksum:   entry.Checksum,
		DurationMS: entry.Duration.Milliseconds(),
		Created:    entry.Created,
	}).Error
}

// TrackIssue persists a row failure.
func (t *GORMTracker) TrackIssue(i *fcbatch.Issue) error {
	var errMsg string
	if i.Err != nil {
		errMsg = i.Err.Error()
	}
	return t.client.Create(&issue{
		RunID:   t.RunID,
		Row:     i.Row,
		Label:   i.Label,
		Step:    i.Step.String(),
		Type:    i.Type.String(),
		Note:    i.Note,
		Payload: i.Payload,
		Error:   errMsg,
		Created: i.Created,
	}).Error
}

// load is the database model of one protocol entry.
type load struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	RunID      string `gorm:"index;size:64"`
	Row        int
	Label      string `gorm:"size:512"`
	ObjectURI  string `gorm:"size:1024"`
	FileURI    string `gorm:"size:1024"`
	Checksum   string `gorm:"size:40"`
	DurationMS int64
	Created    time.Time
}

// issue is the database model of one tracked row failure.
type issue struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement"`
	RunID   string `gorm:"index;size:64"`
	Row     int
	Label   string `gorm:"size:512"`
	Step    string `gorm:"size:32"`
	Type    string `gorm:"size:32"`
	Note    string `gorm:"size:1024"`
	Payload string `gorm:"type:text"`
	Error   string `gorm:"type:text"`
	Created time.Time
}
