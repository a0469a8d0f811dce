package eventlog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// EventRecord is the MySQL row for one event line.
type EventRecord struct {
	ID        uint   `gorm:"primaryKey"`
	Session   string `gorm:"size:36;index"`
	Seq       uint64
	Level     string    `gorm:"size:8"`
	Line      string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"index"`
}

// GormSink stores event lines through gorm and drops rows older than
// retention.
type GormSink struct {
	mu        sync.Mutex
	db        *gorm.DB
	retention time.Duration
	writes    int
	now       func() time.Time
}

// OpenMySQL connects to MySQL and migrates the event table.
func OpenMySQL(dsn string, retention time.Duration) (*GormSink, error) {
	cfg := &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	}
	db, err := gorm.Open(mysql.Open(dsn), cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql open: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("mysql pool: %w", err)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetMaxOpenConns(4)
	if err := db.AutoMigrate(&EventRecord{}); err != nil {
		return nil, fmt.Errorf("mysql migrate: %w", err)
	}
	return NewGormSink(db, retention), nil
}

func NewGormSink(db *gorm.DB, retention time.Duration) *GormSink {
	return &GormSink{db: db, retention: retention, now: time.Now}
}

func (g *GormSink) Write(ctx context.Context, e Entry) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec := EventRecord{
		Session:   e.Session,
		Seq:       e.Seq,
		Level:     string(e.Level),
		Line:      e.Line,
		CreatedAt: e.Time,
	}
	if err := g.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return err
	}
	g.writes++
	if g.retention > 0 && g.writes%pruneEvery == 0 {
		return g.prune(ctx)
	}
	return nil
}

// Prune deletes rows older than the retention window.
func (g *GormSink) Prune(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.prune(ctx)
}

func (g *GormSink) prune(ctx context.Context) error {
	if g.retention <= 0 {
		return nil
	}
	cutoff := g.now().Add(-g.retention)
	return g.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&EventRecord{}).Error
}

// Recent returns up to limit persisted lines, oldest first.
func (g *GormSink) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	var recs []EventRecord
	if err := g.db.WithContext(ctx).Order("id desc").Limit(limit).Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(recs))
	for i := len(recs) - 1; i >= 0; i-- {
		r := recs[i]
		out = append(out, Entry{Session: r.Session, Seq: r.Seq, Level: Level(r.Level), Line: r.Line, Time: r.CreatedAt})
	}
	return out, nil
}

func (g *GormSink) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
