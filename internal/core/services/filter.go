package services

import (
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/custodia-labs/cmtap/internal/core/domain"
)

// FilterNewRecords decides which records of one incremental page are new
// relative to the watermark, and whether pagination may stop.
//
// For descending pages (most recent first): an empty page stops; a page whose
// last record is after the watermark is accepted whole and pagination
// continues; otherwise the prefix of records after the watermark is accepted
// and pagination stops at the first record at or before it.
//
// For ascending pages the records at or before the watermark lead the page, so
// they are dropped and pagination never stops early.
//
// An empty watermark accepts every record without stopping.
func FilterNewRecords(
	records []domain.Record,
	watermark domain.Watermark,
	bookmarkKey string,
	order domain.OrderDirection,
) (stop bool, accepted []domain.Record, err error) {
	if len(records) == 0 {
		return true, records, nil
	}
	if watermark.IsZero() {
		return false, records, nil
	}

	wm, err := watermark.Time()
	if err != nil {
		return false, nil, err
	}

	if order == domain.OrderAscending {
		for i, r := range records {
			ts, err := RecordTime(r, bookmarkKey)
			if err != nil {
				return false, nil, err
			}
			if ts.After(wm) {
				return false, records[i:], nil
			}
		}
		return false, records[:0], nil
	}

	last, err := RecordTime(records[len(records)-1], bookmarkKey)
	if err != nil {
		return false, nil, err
	}
	if last.After(wm) {
		return false, records, nil
	}

	for i, r := range records {
		ts, err := RecordTime(r, bookmarkKey)
		if err != nil {
			return false, nil, err
		}
		if !ts.After(wm) {
			return true, records[:i], nil
		}
	}
	return true, records, nil
}

// LatestRecordTime returns the maximum bookmark value among records, or the
// zero time when records is empty.
func LatestRecordTime(records []domain.Record, bookmarkKey string) (time.Time, error) {
	var latest time.Time
	for _, r := range records {
		ts, err := RecordTime(r, bookmarkKey)
		if err != nil {
			return time.Time{}, err
		}
		if ts.After(latest) {
			latest = ts
		}
	}
	return latest, nil
}

// RecordTime reads and parses a record's bookmark field.
func RecordTime(r domain.Record, bookmarkKey string) (time.Time, error) {
	v := gjson.GetBytes(r, bookmarkKey)
	if !v.Exists() {
		return time.Time{}, fmt.Errorf("%w: record has no %s field", domain.ErrInvalidTimestamp, bookmarkKey)
	}
	return domain.ParseRecordTime(v.String())
}
