// Package mains works out which mains frequency the hum filter should
// notch, either from an explicit setting or from the system timezone.
package mains

import (
	"fmt"
	"strconv"
	"strings"

	tz "github.com/medama-io/go-timezone-country"
	"github.com/thlib/go-timezone-local/tzlocal"
)

const fallbackHz = 50

// Detection describes how a frequency was chosen.
type Detection struct {
	Hz       int
	Timezone string
	Country  string
	Fallback bool // no country could be matched; Hz is the 50Hz default
}

func (d Detection) String() string {
	switch {
	case d.Country != "":
		return fmt.Sprintf("%d Hz (%s, %s)", d.Hz, d.Timezone, d.Country)
	case d.Timezone != "":
		return fmt.Sprintf("%d Hz (%s, default)", d.Hz, d.Timezone)
	default:
		return fmt.Sprintf("%d Hz (default)", d.Hz)
	}
}

// Detect looks up the local timezone and maps it to a mains frequency.
func Detect() Detection {
	timezone, err := tzlocal.RuntimeTZ()
	if err != nil {
		return Detection{Hz: fallbackHz, Fallback: true}
	}
	return DetectTimezone(timezone)
}

// DetectTimezone maps an IANA timezone to a mains frequency. UTC, GMT and
// Etc/ zones have no country and fall back to 50Hz.
func DetectTimezone(timezone string) Detection {
	d := Detection{Hz: fallbackHz, Timezone: timezone, Fallback: true}
	if timezone == "UTC" || timezone == "GMT" || strings.HasPrefix(timezone, "Etc/") {
		return d
	}

	tzMap, err := tz.NewTimezoneCountryMap()
	if err != nil {
		return d
	}
	country, err := tzMap.GetCountry(timezone)
	if err != nil {
		return d
	}

	d.Country = country
	d.Hz = frequencyForCountry(country)
	d.Fallback = false
	return d
}

// Resolve turns a hum setting into a frequency. "off" and "" give 0,
// "auto" detects from the timezone, anything else must be a positive
// number of Hz.
func Resolve(setting string) (float64, Detection, error) {
	switch s := strings.ToLower(strings.TrimSpace(setting)); s {
	case "", "off":
		return 0, Detection{}, nil
	case "auto":
		d := Detect()
		return float64(d.Hz), d, nil
	default:
		hz, err := strconv.ParseFloat(s, 64)
		if err != nil || hz <= 0 {
			return 0, Detection{}, fmt.Errorf("invalid mains frequency %q: want off, auto, 50 or 60", setting)
		}
		return hz, Detection{Hz: int(hz)}, nil
	}
}

// frequencyForCountry defaults to 50Hz for unlisted countries. Japan is
// split by region; the Tokyo side is 50Hz.
func frequencyForCountry(country string) int {
	if hz60Countries[country] {
		return 60
	}
	return fallbackHz
}

// hz60Countries lists countries on 60Hz mains.
// Source: https://en.wikipedia.org/wiki/Mains_electricity_by_country
var hz60Countries = map[string]bool{
	// North America
	"United States": true,
	"Canada":        true,
	"Mexico":        true,

	// Central America
	"Belize":      true,
	"Costa Rica":  true,
	"El Salvador": true,
	"Guatemala":   true,
	"Honduras":    true,
	"Nicaragua":   true,
	"Panama":      true,

	// Caribbean
	"Bahamas":             true,
	"Barbados":            true,
	"Cayman Islands":      true,
	"Cuba":                true,
	"Dominican Republic":  true,
	"Haiti":               true,
	"Jamaica":             true,
	"Puerto Rico":         true,
	"Trinidad and Tobago": true,
	"U.S. Virgin Islands": true,

	// South America (partial, most use 50Hz)
	"Brazil":    true, // Note: Brazil has both 50Hz and 60Hz regions; 60Hz predominant
	"Colombia":  true,
	"Ecuador":   true,
	"Guyana":    true,
	"Peru":      true,
	"Suriname":  true,
	"Venezuela": true,

	// Asia (partial)
	"South Korea":  true,
	"Taiwan":       true,
	"Philippines":  true,
	"Saudi Arabia": true,

	// Pacific
	"Guam":             true,
	"American Samoa":   true,
	"Marshall Islands": true,
	"Micronesia":       true,
	"Palau":            true,
}
