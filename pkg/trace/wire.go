package trace

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

// LineMarker prefixes every trace line in the line-oriented wire format.
// Instrumented child processes interleave trace lines with their ordinary
// output; readers pass unmarked lines through untouched.
const LineMarker = "RASTER_TRACE:"

// ErrMalformedLine is returned when a marked line's payload cannot be
// decoded.
var ErrMalformedLine = fmt.Errorf("trace: malformed trace line")

// EncodeLine serializes an item to one wire line: the marker followed by the
// base64 of the canonical CBOR payload.
func EncodeLine(item Item) (string, error) {
	data, err := item.MarshalCanonical()
	if err != nil {
		return "", err
	}
	return LineMarker + base64.StdEncoding.EncodeToString(data), nil
}

// DecodeLine parses one line of child output. It reports ok=false for lines
// without the marker; a marked line that fails to decode is an error.
func DecodeLine(line string) (Item, bool, error) {
	payload, found := strings.CutPrefix(strings.TrimRight(line, "\r\n"), LineMarker)
	if !found {
		return Item{}, false, nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Item{}, false, fmt.Errorf("%w: %v", ErrMalformedLine, err)
	}
	var item Item
	if err := cborDecode(data, &item); err != nil {
		return Item{}, false, fmt.Errorf("%w: %v", ErrMalformedLine, err)
	}
	return item, true, nil
}

// ReadItems scans a stream of child output and collects every marked trace
// line in order, ignoring everything else.
func ReadItems(r io.Reader) ([]Item, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var items []Item
	for scanner.Scan() {
		item, ok, err := DecodeLine(scanner.Text())
		if err != nil {
			return nil, err
		}
		if ok {
			items = append(items, item)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("trace: reading stream: %w", err)
	}
	return items, nil
}

func cborDecode(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}
