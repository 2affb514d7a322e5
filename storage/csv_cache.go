package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"pricecompare/models"
)

// legacyHeader is the schema written before condition was tracked.
var legacyHeader = []string{models.ColTitle, models.ColPrice, models.ColURL, models.ColImage}

// CSVCache keeps one CSV file per normalized query. An entry is valid
// while its age is below TTL; a TTL <= 0 never expires and only
// Invalidate removes entries.
type CSVCache struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

func NewCSVCache(dir string, ttl time.Duration) *CSVCache {
	return &CSVCache{dir: dir, ttl: ttl, now: time.Now}
}

func (c *CSVCache) TTL() time.Duration {
	return c.ttl
}

// Path returns the file backing key.
func (c *CSVCache) Path(key string) string {
	return filepath.Join(c.dir, url.QueryEscape(NormalizeKey(key))+".csv")
}

// Get returns the cached table for key. A missing or expired entry is a
// miss, not an error.
func (c *CSVCache) Get(key string) (models.Table, bool, error) {
	path := c.Path(key)

	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return models.Table{}, false, nil
	}
	if err != nil {
		return models.Table{}, false, fmt.Errorf("stat cache entry: %w", err)
	}
	if c.expired(info.ModTime()) {
		return models.Table{}, false, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return models.Table{}, false, fmt.Errorf("open cache entry: %w", err)
	}
	defer file.Close()

	table, err := readTable(file)
	if err != nil {
		return models.Table{}, false, fmt.Errorf("read cache entry %s: %w", path, err)
	}
	return table, true, nil
}

func (c *CSVCache) expired(created time.Time) bool {
	if c.ttl <= 0 {
		return false
	}
	return c.now().Sub(created) >= c.ttl
}

// Put writes table for key, replacing any previous entry.
func (c *CSVCache) Put(key string, table models.Table) error {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("could not create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, ".entry-*.csv")
	if err != nil {
		return fmt.Errorf("could not create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := writeTable(tmp, table); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	path := c.Path(key)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace cache entry: %w", err)
	}

	// The entry's creation time is its mtime, taken from the cache clock.
	now := c.now()
	if err := os.Chtimes(path, now, now); err != nil {
		return fmt.Errorf("stamp cache entry: %w", err)
	}
	return nil
}

// Invalidate drops the entry for key. Dropping a missing entry is not an error.
func (c *CSVCache) Invalidate(key string) error {
	err := os.Remove(c.Path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("invalidate cache entry: %w", err)
	}
	return nil
}

// CSV columns: item, price, url, img, condition
func writeTable(w io.Writer, table models.Table) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(models.Columns); err != nil {
		return fmt.Errorf("csv write error: %w", err)
	}
	for _, l := range table.Rows {
		row := []string{
			l.Title,
			strconv.FormatFloat(l.Price, 'f', -1, 64),
			l.URL,
			l.Image,
			l.Condition,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("csv write error: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("csv write error: %w", err)
	}
	return nil
}

func readTable(r io.Reader) (models.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return models.Table{}, fmt.Errorf("read header: %w", err)
	}
	width := len(header)
	if !slices.Equal(header, models.Columns) && !slices.Equal(header, legacyHeader) {
		return models.Table{}, fmt.Errorf("unexpected header %v", header)
	}

	rows := []models.Listing{}
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return models.Table{}, err
		}
		if len(rec) != width {
			return models.Table{}, fmt.Errorf("line %d: want %d fields, got %d", line, width, len(rec))
		}

		price, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return models.Table{}, fmt.Errorf("line %d: bad price %q", line, rec[1])
		}
		l := models.Listing{
			Title:     rec[0],
			Price:     price,
			URL:       rec[2],
			Image:     rec[3],
			Condition: models.UnknownCondition,
		}
		if width == len(models.Columns) {
			l.Condition = rec[4]
		}
		rows = append(rows, l)
	}

	return models.NewTable(rows), nil
}
