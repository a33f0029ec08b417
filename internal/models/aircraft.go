package models

// RegistrationRecord is one row of the FAA registration master dataset (MASTER.txt)
type RegistrationRecord struct {
	ModeSCodeHex   string // Lookup key - ICAO24 address in hex
	TailNumber     string // N-number, always carries the leading "N"
	SerialNumber   string // Manufacturer serial number
	MfrModelCode   string // Join key into the airframe reference dataset
	YearMfr        string // Year manufactured
	RegisteredName string // Registered owner name
	City           string // Registrant city
	State          string // Registrant state
}

// AirframeRecord is one row of the FAA aircraft reference dataset (ACFTREF.txt)
type AirframeRecord struct {
	Code         string // Manufacturer/model code, primary key
	Manufacturer string // Manufacturer name
	Model        string // Model name
	NumSeats     string // Seat count
}

// NormalizeTailNumber prefixes an FAA N-number with "N" when the dataset stores it bare.
func NormalizeTailNumber(nNumber string) string {
	if nNumber == "" || nNumber[0] == 'N' || nNumber[0] == 'n' {
		return nNumber
	}
	return "N" + nNumber
}
