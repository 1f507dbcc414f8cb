package parcels

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/sells-group/parcel-cli/internal/model"
)

// parcelAttributes maps the registry's attribute names onto the canonical
// candidate model. The registry nulls fields freely and is inconsistent
// about numeric vs. string encoding, so every field is decoded through a
// tolerant scalar type.
type parcelAttributes struct {
	APN            flexString `json:"APN"`
	OwnerName      flexString `json:"OWN_NAME1"`
	SitusAddress   flexString `json:"SITUS_ADDRESS"`
	SitusStreet    flexString `json:"SITUS_STREET"`
	SitusSuffix    flexString `json:"SITUS_SUFFIX"`
	SitusCommunity flexString `json:"SITUS_COMMUNITY"`
	SitusZip       flexString `json:"SITUS_ZIP"`
	AssessedTotal  flexNumber `json:"ASR_TOTAL"`
	AssessedLand   flexNumber `json:"ASR_LAND"`
	AssessedImpr   flexNumber `json:"ASR_IMPR"`
	LivingArea     flexNumber `json:"TOTAL_LVG_AREA"`
	UsableSqFeet   flexNumber `json:"USABLE_SQ_FEET"`
	Bedrooms       flexNumber `json:"BEDROOMS"`
	Baths          flexNumber `json:"BATHS"`
}

func (a parcelAttributes) toCandidate() model.ParcelCandidate {
	return model.ParcelCandidate{
		APN:                  string(a.APN),
		OwnerName:            string(a.OwnerName),
		SitusHouseNumber:     string(a.SitusAddress),
		SitusStreetName:      strings.ToUpper(strings.TrimSpace(string(a.SitusStreet))),
		SitusStreetSuffix:    strings.ToUpper(strings.TrimSpace(string(a.SitusSuffix))),
		SitusCommunity:       string(a.SitusCommunity),
		SitusZip:             string(a.SitusZip),
		AssessedTotal:        int64(a.AssessedTotal),
		AssessedLand:         int64(a.AssessedLand),
		AssessedImprovements: int64(a.AssessedImpr),
		LivingAreaSqft:       float64(a.LivingArea),
		LotSqft:              float64(a.UsableSqFeet),
		Beds:                 int(a.Bedrooms),
		Baths:                float64(a.Baths),
	}
}

// flexString decodes a JSON string, number, or null into a trimmed string.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(strings.TrimSpace(v))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	// House numbers arrive as integers; strip a trailing ".0" if the
	// registry sent a float.
	str := n.String()
	if f, err := n.Float64(); err == nil && f == float64(int64(f)) {
		str = strconv.FormatInt(int64(f), 10)
	}
	*s = flexString(str)
	return nil
}

// flexNumber decodes a JSON number, numeric string, or null into a float64.
type flexNumber float64

func (f *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		v = strings.TrimSpace(v)
		if v == "" {
			*f = 0
			return nil
		}
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			*f = 0
			return nil // unparseable attribute, treat as absent
		}
		*f = flexNumber(parsed)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = flexNumber(v)
	return nil
}
