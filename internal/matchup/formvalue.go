package matchup

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FormValue is a raw form field that decodes from a JSON string, number or
// null. Numbers keep their literal text so "25" and 25 normalize the same way.
type FormValue string

// UnmarshalJSON implements json.Unmarshaler.
func (v *FormValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = FormValue(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("form value must be a string or number, got %s", data)
	}
	*v = FormValue(n.String())
	return nil
}

// UnmarshalJSON accepts numeric usage and advantage values as well as strings.
func (r *RawEntry) UnmarshalJSON(data []byte) error {
	var aux struct {
		DeckName  FormValue `json:"deckName"`
		UsageRate FormValue `json:"usageRate"`
		Advantage FormValue `json:"advantage"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = RawEntry{
		DeckName:  string(aux.DeckName),
		UsageRate: string(aux.UsageRate),
		Advantage: string(aux.Advantage),
	}
	return nil
}
