// Package owrd reads Oregon Water Resources Department groundwater data:
// tab-delimited exports of periodic levels, recorder readings, and other
// identifiers, plus the OWRD measured-water-level REST API.
package owrd

import (
	"fmt"
	"os"

	"github.com/couchcryptid/groundwater-etl/internal/domain"
	"github.com/couchcryptid/groundwater-etl/internal/rdb"
)

// ReadMeasurements reads the periodic water-level export.
func ReadMeasurements(path string) ([]domain.OWRDLevel, error) {
	return readFile[domain.OWRDLevel](path, "gw_logid", "measured_datetime")
}

// ReadRecorder reads the recorder (continuous) water-level export.
func ReadRecorder(path string) ([]domain.OWRDRecorderRow, error) {
	return readFile[domain.OWRDRecorderRow](path, "gw_logid", "record_date")
}

// ReadOtherIDs reads the other-identifier export that links well logs to
// USGS site numbers.
func ReadOtherIDs(path string) ([]domain.OWRDOtherID, error) {
	return readFile[domain.OWRDOtherID](path, "gw_logid", "other_identity_name", "other_identity_id")
}

func readFile[T any](path string, required ...string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open OWRD file: %w", err)
	}
	defer f.Close()

	rows, err := rdb.DecodeAll[T](f, required...)
	if err != nil {
		return nil, fmt.Errorf("read OWRD file %s: %w", path, err)
	}
	return rows, nil
}
