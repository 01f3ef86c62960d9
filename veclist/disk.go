package veclist

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const (
	tableVector = "v"

	queryTimeout = 48 * time.Hour
	metaTimeout  = 3 * time.Second
)

// Disk is a List backed by a SQLite database.
// Vectors are stored one per row as little-endian float64 blobs.
type Disk struct {
	Path string
	n    int

	db *sql.DB
}

func NewDisk(dbPath string) (*Disk, error) {
	l := &Disk{Path: dbPath}
	var err error
	l.db, err = newDB(l.Path)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return l, nil
}

// Close closes the database and removes its file.
func (l *Disk) Close() error {
	var err error
	if err1 := l.db.Close(); err1 != nil && err == nil {
		err = err1
	}
	if err1 := os.Remove(l.Path); err1 != nil && err == nil {
		err = err1
	}
	return err
}

func (l *Disk) Append(x []float64) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	buf := make([]byte, 8*len(x))
	for i, v := range x {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(v))
	}

	sqlStr := fmt.Sprintf(`INSERT INTO %s (i, x) VALUES (?, ?)`, tableVector)
	if _, err := l.db.ExecContext(ctx, sqlStr, l.n, buf); err != nil {
		return errors.Wrap(err, fmt.Sprintf("%s %d", l.Path, l.n))
	}
	l.n++
	return nil
}

func (l *Disk) At(i int, dst []float64) ([]float64, error) {
	if i < 0 || i >= l.n {
		return nil, errors.Errorf("%d %d", i, l.n)
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	sqlStr := fmt.Sprintf(`SELECT x FROM %s WHERE i=?`, tableVector)
	var buf []byte
	if err := l.db.QueryRowContext(ctx, sqlStr, i).Scan(&buf); err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("%s %d", l.Path, i))
	}
	if len(buf)%8 != 0 {
		return nil, errors.Errorf("%d", len(buf))
	}

	n := len(buf) / 8
	if cap(dst) < n {
		dst = make([]float64, n)
	}
	dst = dst[:n]
	for j := range dst {
		dst[j] = math.Float64frombits(binary.LittleEndian.Uint64(buf[8*j:]))
	}
	return dst, nil
}

func (l *Disk) Len() int { return l.n }

func (l *Disk) Reset() error {
	ctx, cancel := context.WithTimeout(context.Background(), metaTimeout)
	defer cancel()
	sqlStr := fmt.Sprintf(`DELETE FROM %s`, tableVector)
	if _, err := l.db.ExecContext(ctx, sqlStr); err != nil {
		return errors.Wrap(err, l.Path)
	}
	l.n = 0
	return nil
}

func newDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", dbPath))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}

	if err := prepareDB(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "")
	}

	return db, nil
}

func prepareDB(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), metaTimeout)
	defer cancel()
	sqlStr := fmt.Sprintf(`DROP TABLE IF EXISTS %s`, tableVector)
	if _, err := db.ExecContext(ctx, sqlStr); err != nil {
		return errors.Wrap(err, "")
	}
	sqlStr = fmt.Sprintf(`CREATE TABLE %s (i INTEGER PRIMARY KEY, x BLOB) STRICT`, tableVector)
	if _, err := db.ExecContext(ctx, sqlStr); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}
