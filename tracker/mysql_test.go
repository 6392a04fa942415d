//go:build integration
// +build integration

package tracker

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"

	"github.com/archivelab/fcbatch"
)

func buildTracker() (*MySQLTracker, error) {
	tracker := &MySQLTracker{GORMTracker: *NewGORMTracker(GORMTrackerConfig{
		Host:     os.Getenv("MYSQL_HOST"),
		Database: "fcbatch_tracker_test",
		User:     os.Getenv("MYSQL_USER"),
		Password: os.Getenv("MYSQL_PASSWORD"),
		Port:     os.Getenv("MYSQL_PORT"),
		Logger:   logger.Default,
	})}
	if err := tracker.Prepare(context.Background(), "test_run", zap.NewNop()); err != nil {
		return nil, fmt.Errorf("tracker prepare error: %v", err)
	}
	if err := tracker.Setup(); err != nil {
		return nil, fmt.Errorf("tracker setup error: %v", err)
	}
	return tracker, nil
}

func TestMySQLTracker_TrackLoad(t *testing.T) {
	tracker, err := buildTracker()
	if err != nil {
		t.Fatalf("tracker build error: %v", err)
	}
	defer tracker.Shutdown()
	err = tracker.TrackLoad(&fcbatch.LoadEntry{
		Row:       1,
		Label:     "Climbing rose",
		ObjectURI: "http://repo/rest/obj1",
		FileURI:   "http://repo/rest/obj1/pp00042.tiff",
		Checksum:  "7ca2c19a7edb552ab89e36e8d6b3b938dfe19957",
		Duration:  3 * time.Second,
		Created:   time.Now(),
	})
	assert.Nilf(t, err, "track load error")
	var row load
	err = tracker.client.Where("run_id = ?", tracker.RunID).Last(&row).Error
	assert.Nilf(t, err, "get protocol row error")
	assert.Equal(t, "Climbing rose", row.Label)
	assert.Equal(t, "http://repo/rest/obj1", row.ObjectURI)
	assert.Equal(t, int64(3000), row.DurationMS)
}

func TestMySQLTracker_TrackIssue(t *testing.T) {
	tracker, err := buildTracker()
	if err != nil {
		t.Fatalf("tracker build error: %v", err)
	}
	defer tracker.Shutdown()
	tracked := fcbatch.NewIssue(fmt.Errorf("file does not exist"), "cannot access binary file pp00042.tiff", fcbatch.IssueTypeDataIntegrity, "")
	tracked.Row = 3
	tracked.Label = "Climbing rose"
	tracked.Step = fcbatch.StepScan
	err = tracker.TrackIssue(tracked)
	assert.Nilf(t, err, "track issue error")
	var row issue
	err = tracker.client.Where("run_id = ?", tracker.RunID).Last(&row).Error
	assert.Nilf(t, err, "get issue row error")
	assert.Equal(t, "scan", row.Step)
	assert.Equal(t, "data_integrity", row.Type)
	assert.Equal(t, "file does not exist", row.Error)
}
