package reference

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dimchansky/utfbom"
	"github.com/gocarina/gocsv"

	"flight_spotter/internal/models"
)

// Member names inside the FAA releasable aircraft archive
const (
	MasterFileName  = "MASTER.txt"
	AcftRefFileName = "ACFTREF.txt"
)

// masterRow holds the MASTER.txt columns we use.
// Full header: N-NUMBER,SERIAL NUMBER,MFR MDL CODE,ENG MFR MDL,YEAR MFR,TYPE REGISTRANT,NAME,...,MODE S CODE HEX,
type masterRow struct {
	NNumber      string `csv:"N-NUMBER"`
	SerialNumber string `csv:"SERIAL NUMBER"`
	MfrModelCode string `csv:"MFR MDL CODE"`
	YearMfr      string `csv:"YEAR MFR"`
	Name         string `csv:"NAME"`
	City         string `csv:"CITY"`
	State        string `csv:"STATE"`
	ModeSCodeHex string `csv:"MODE S CODE HEX"`
}

// acftRefRow holds the ACFTREF.txt columns we use.
// Full header: CODE,MFR,MODEL,TYPE-ACFT,TYPE-ENG,AC-CAT,BUILD-CERT-IND,NO-ENG,NO-SEATS,AC-WEIGHT,SPEED,...
type acftRefRow struct {
	Code    string `csv:"CODE"`
	Mfr     string `csv:"MFR"`
	Model   string `csv:"MODEL"`
	NoSeats string `csv:"NO-SEATS"`
}

// Source locates the two FAA files, either loose on disk or inside the
// releasable aircraft archive. ArchivePath wins when set.
type Source struct {
	ArchivePath string
	MasterPath  string
	AcftRefPath string
}

// NormalizeField trims a value and collapses runs of internal whitespace to one space.
// The FAA files pad every column with trailing blanks.
func NormalizeField(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeKey is the registration lookup key: normalized and case-folded
func NormalizeKey(s string) string {
	return strings.ToLower(NormalizeField(s))
}

func newFAAReader(in io.Reader) *csv.Reader {
	r := csv.NewReader(utfbom.SkipOnly(in))
	r.LazyQuotes = true    // owner names contain stray quotes
	r.FieldsPerRecord = -1 // header and rows end with a trailing comma
	return r
}

// ReadRegistrations decodes a MASTER.txt stream. Rows without a Mode S hex code are skipped.
func ReadRegistrations(in io.Reader) ([]*models.RegistrationRecord, error) {
	var rows []*masterRow
	if err := gocsv.UnmarshalCSV(newFAAReader(in), &rows); err != nil {
		return nil, fmt.Errorf("failed to parse registration master: %w", err)
	}

	records := make([]*models.RegistrationRecord, 0, len(rows))
	for _, row := range rows {
		hex := NormalizeField(row.ModeSCodeHex)
		if hex == "" {
			continue
		}
		records = append(records, &models.RegistrationRecord{
			ModeSCodeHex:   hex,
			TailNumber:     models.NormalizeTailNumber(NormalizeField(row.NNumber)),
			SerialNumber:   NormalizeField(row.SerialNumber),
			MfrModelCode:   NormalizeField(row.MfrModelCode),
			YearMfr:        NormalizeField(row.YearMfr),
			RegisteredName: NormalizeField(row.Name),
			City:           NormalizeField(row.City),
			State:          NormalizeField(row.State),
		})
	}
	return records, nil
}

// ReadAirframes decodes an ACFTREF.txt stream. Rows without a code are skipped.
func ReadAirframes(in io.Reader) ([]*models.AirframeRecord, error) {
	var rows []*acftRefRow
	if err := gocsv.UnmarshalCSV(newFAAReader(in), &rows); err != nil {
		return nil, fmt.Errorf("failed to parse aircraft reference: %w", err)
	}

	records := make([]*models.AirframeRecord, 0, len(rows))
	for _, row := range rows {
		code := NormalizeField(row.Code)
		if code == "" {
			continue
		}
		records = append(records, &models.AirframeRecord{
			Code:         code,
			Manufacturer: NormalizeField(row.Mfr),
			Model:        NormalizeField(row.Model),
			NumSeats:     NormalizeField(row.NoSeats),
		})
	}
	return records, nil
}

// Read opens the source and decodes both datasets
func (s Source) Read() ([]*models.RegistrationRecord, []*models.AirframeRecord, error) {
	if s.ArchivePath != "" {
		return s.readArchive()
	}

	regs, err := readFile(s.MasterPath, ReadRegistrations)
	if err != nil {
		return nil, nil, err
	}
	airframes, err := readFile(s.AcftRefPath, ReadAirframes)
	if err != nil {
		return nil, nil, err
	}
	return regs, airframes, nil
}

func (s Source) readArchive() ([]*models.RegistrationRecord, []*models.AirframeRecord, error) {
	r, err := zip.OpenReader(s.ArchivePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open archive %s: %w", s.ArchivePath, err)
	}
	defer r.Close()

	var regs []*models.RegistrationRecord
	var airframes []*models.AirframeRecord
	for _, zf := range r.File {
		switch zf.Name {
		case MasterFileName:
			regs, err = readZipMember(zf, ReadRegistrations)
		case AcftRefFileName:
			airframes, err = readZipMember(zf, ReadAirframes)
		default:
			continue
		}
		if err != nil {
			return nil, nil, err
		}
	}

	if regs == nil || airframes == nil {
		return nil, nil, fmt.Errorf("archive %s is missing %s or %s", s.ArchivePath, MasterFileName, AcftRefFileName)
	}
	return regs, airframes, nil
}

func readFile[T any](path string, decode func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return decode(f)
}

func readZipMember[T any](zf *zip.File, decode func(io.Reader) ([]T, error)) ([]T, error) {
	rc, err := zf.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s in archive: %w", zf.Name, err)
	}
	defer rc.Close()
	return decode(rc)
}
