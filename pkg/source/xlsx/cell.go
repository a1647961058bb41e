package xlsx

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ajitpratap0/xlsx2parquet/pkg/models"
)

// Layouts excelize uses for its built-in date formats, plus ISO forms that
// appear in text cells exported by other tools.
var (
	dateLayouts = []string{
		time.DateOnly,
		"01-02-06",
		"2006/01/02",
		"2-Jan-06",
		"Jan-06",
	}
	timestampLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		time.DateTime,
		"2006-01-02 15:04",
		"1/2/06 15:04",
		"1/2/06 15:04:05",
	}
)

// DecodeCell turns the displayed text of a cell into a Value.
//
// The kind is recovered from the rendering: a cell is a number only when its
// text is the canonical rendering of that number, which is what the sheet
// shows for numeric cells under the General format. Text such as "007" or
// "1.50" stays a string. With infer false every non-empty cell is a string.
func DecodeCell(s string, infer bool) models.Value {
	if s == "" {
		return models.Null()
	}
	if !infer {
		return models.String(s)
	}

	switch s {
	case "TRUE":
		return models.Bool(true)
	case "FALSE":
		return models.Bool(false)
	}

	if c := s[0]; c == '-' || (c >= '0' && c <= '9') {
		if v, ok := decodeNumber(s); ok {
			return v
		}
		if v, ok := decodeTemporal(s); ok {
			return v
		}
	}

	return models.String(s)
}

func decodeNumber(s string) (models.Value, bool) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		if strconv.FormatInt(i, 10) == s {
			return models.Int(i), true
		}
		return models.Value{}, false
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return models.Value{}, false
	}
	if strconv.FormatFloat(f, 'f', -1, 64) == s {
		return models.Float(f), true
	}
	// excelize renders numbers with more than 15 significant digits in
	// exponent form
	if strings.ContainsRune(s, 'E') && strconv.FormatFloat(f, 'G', 15, 64) == s {
		return models.Float(f), true
	}
	return models.Value{}, false
}

func decodeTemporal(s string) (models.Value, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return models.Date(t, s), true
		}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return models.Timestamp(t, s), true
		}
	}
	return models.Value{}, false
}

// cellDecoder decodes a cell from both its stored value and its displayed
// text. The stored value keeps the full precision of numbers; the displayed
// text tells booleans, dates and times apart from plain numbers.
type cellDecoder struct {
	infer    bool
	date1904 bool
}

func (d cellDecoder) decode(stored, display string) models.Value {
	if display == "" {
		// formats such as ;;; hide the value
		display = stored
	}
	if display == "" {
		return models.Null()
	}
	if !d.infer {
		return models.String(display)
	}
	if stored != display && display != "TRUE" && display != "FALSE" {
		if v, ok := d.decodeNumber(stored, display); ok {
			return v
		}
	}
	return DecodeCell(display, true)
}

// decodeNumber decodes a numeric cell whose rendering differs from its
// stored value, either because a number format applies or because General
// rounds it to 15 significant digits. Date and time formats turn the stored
// serial into a date or timestamp; every other format keeps the number.
func (d cellDecoder) decodeNumber(stored, display string) (models.Value, bool) {
	f, err := strconv.ParseFloat(stored, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return models.Value{}, false
	}

	if tv, ok := decodeTemporal(display); ok {
		t, err := excelize.ExcelDateToTime(f, d.date1904)
		if err != nil {
			return tv, true
		}
		if tv.Kind() == models.KindDate {
			return models.Date(t, display), true
		}
		return models.Timestamp(t, display), true
	}

	if i, err := strconv.ParseInt(stored, 10, 64); err == nil {
		return models.Int(i), true
	}
	return models.Float(f), true
}
