package models

// PhotoInfo is the best-effort photo attribution for an aircraft. Both fields are blank when unavailable.
type PhotoInfo struct {
	ThumbnailSrc string `json:"thumbnailSrc"`
	Photographer string `json:"photographer"`
}

// ResolvedAircraft is the merged result of the identity, live state and photo lookups.
// Identity fields are nil for foreign codes and the airframe fields are nil when the
// reference join finds no airframe row.
type ResolvedAircraft struct {
	ICAO24        string      `json:"icao24"`
	Registry      string      `json:"registry"`
	TailNumber    *string     `json:"tailNum"`
	MfrModelCode  *string     `json:"manNum"`
	YearMfr       *string     `json:"manYear"`
	RegName       *string     `json:"regName"`
	Manufacturer  *string     `json:"manName"`
	Model         *string     `json:"modelNum"`
	AircraftState []LiveState `json:"aircraftState"`
	PhotoInfo
	Warnings []string `json:"warnings,omitempty"`
}

// SetRegistration copies the registration fields into the result
func (r *ResolvedAircraft) SetRegistration(reg *RegistrationRecord) {
	if reg == nil {
		return
	}
	r.TailNumber = &reg.TailNumber
	r.MfrModelCode = &reg.MfrModelCode
	r.YearMfr = &reg.YearMfr
	r.RegName = &reg.RegisteredName
}

// SetAirframe copies the airframe fields into the result; a nil airframe leaves them nil
func (r *ResolvedAircraft) SetAirframe(af *AirframeRecord) {
	if af == nil {
		return
	}
	r.Manufacturer = &af.Manufacturer
	r.Model = &af.Model
}
