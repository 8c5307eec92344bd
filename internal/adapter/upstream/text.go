package upstream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Text is a JSON scalar read as a string. Agency services mix numbers,
// strings, and null in the same field; null decodes to "" and numbers keep
// their shortest decimal form ("0.01", "1").
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*t = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
	case bytes.Equal(b, []byte("true")), bytes.Equal(b, []byte("false")):
		*t = Text(b)
	default:
		f, err := strconv.ParseFloat(string(b), 64)
		if err != nil {
			return fmt.Errorf("unsupported JSON value %s", b)
		}
		*t = Text(strconv.FormatFloat(f, 'f', -1, 64))
	}
	return nil
}

func (t Text) String() string { return string(t) }
