// Package registryparser downloads, decodes and normalizes the drug registry
// export and the disease-classification dataset.
package registryparser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/giygas/drugregistry/logging"
	"github.com/giygas/drugregistry/registryparser/entities"
	"github.com/jszwec/csvutil"
)

var (
	// ErrMalformedHeader reports a missing, empty or ambiguous header row.
	ErrMalformedHeader = errors.New("malformed header")
	// ErrMalformedFeed reports a record the decoder could not read.
	ErrMalformedFeed = errors.New("malformed feed")
	// ErrEncoding reports a blob that is not valid UTF-8.
	ErrEncoding = errors.New("feed is not valid UTF-8")
)

const fieldSeparator = ';'

var utf8BOM = []byte("\xEF\xBB\xBF")

// ParseStats accounts for every input row: InputRows = OutputRows + DroppedRows.
type ParseStats struct {
	InputRows   int `json:"inputRows"`
	OutputRows  int `json:"outputRows"`
	DroppedRows int `json:"droppedRows"`
}

// drugHeaderAliases maps lower-cased header labels onto the canonical csv tags
// of RawDrugRow. Registry exports use the Polish labels.
var drugHeaderAliases = map[string]string{
	"identifier":                         "Identifier",
	"identyfikator produktu leczniczego": "Identifier",
	"trade name":                         "Trade name",
	"nazwa produktu leczniczego":         "Trade name",
	"nazwa handlowa":                     "Trade name",
	"common name":                        "Common name",
	"nazwa powszechnie stosowana":        "Common name",
	"previous name":                      "Previous name",
	"nazwa poprzednia produktu":          "Previous name",
	"strength":                           "Strength",
	"moc":                                "Strength",
	"pharmaceutical form":                "Pharmaceutical form",
	"postać farmaceutyczna":              "Pharmaceutical form",
	"preparation type":                   "Preparation type",
	"rodzaj preparatu":                   "Preparation type",
	"route of administration":            "Route of administration",
	"droga podania":                      "Route of administration",
	"atc code":                           "ATC code",
	"kod atc":                            "ATC code",
	"atc description":                    "ATC description",
	"opis atc":                           "ATC description",
	"registration number":                "Registration number",
	"numer pozwolenia":                   "Registration number",
	"validity":                           "Validity",
	"ważność pozwolenia":                 "Validity",
	"marketing authorisation holder":     "Marketing authorisation holder",
	"podmiot odpowiedzialny":             "Marketing authorisation holder",
	"active substance":                   "Active substance",
	"substancja czynna":                  "Active substance",
	"package":                            "Package",
	"opakowanie":                         "Package",
	"leaflet":                            "Leaflet",
	"ulotka":                             "Leaflet",
	"characteristics":                    "Characteristics",
	"charakterystyka":                    "Characteristics",
}

var classificationHeaderAliases = map[string]string{
	"code":          "Code",
	"kod":           "Code",
	"name":          "Name",
	"nazwa":         "Name",
	"category":      "Category",
	"kategoria":     "Category",
	"parent code":   "Parent code",
	"kod nadrzędny": "Parent code",
}

// fixedWidthReader pads or truncates every record to the header width so that
// ragged rows degrade to empty fields instead of failing the batch.
type fixedWidthReader struct {
	r     *csv.Reader
	width int
	rows  int
}

func (f *fixedWidthReader) Read() ([]string, error) {
	record, err := f.r.Read()
	if err != nil {
		return nil, err
	}
	f.rows++

	switch {
	case len(record) < f.width:
		padded := make([]string, f.width)
		copy(padded, record)
		return padded, nil
	case len(record) > f.width:
		return record[:f.width], nil
	}
	return record, nil
}

// decodeRows decodes a ;-separated blob into typed rows using the header row,
// canonicalized through aliases. required names the column that must exist.
func decodeRows[T any](blob []byte, aliases map[string]string, required string) ([]T, error) {
	if !utf8.Valid(blob) {
		return nil, ErrEncoding
	}
	blob = bytes.TrimPrefix(blob, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(blob))
	reader.Comma = fieldSeparator
	reader.FieldsPerRecord = -1
	// Free text carries stray quotes (12" blister); keep them literally.
	reader.LazyQuotes = true

	rawHeader, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty feed", ErrMalformedHeader)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}

	header, err := canonicalHeader(rawHeader, aliases, required)
	if err != nil {
		return nil, err
	}

	fr := &fixedWidthReader{r: reader, width: len(header)}
	dec, err := csvutil.NewDecoder(fr, header...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}

	var rows []T
	for {
		var row T
		if err := dec.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				return nil, fmt.Errorf("%w: %v", ErrMalformedFeed, err)
			}
			return nil, fmt.Errorf("%w: record %d: %v", ErrMalformedFeed, fr.rows, err)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func canonicalHeader(raw []string, aliases map[string]string, required string) ([]string, error) {
	header := make([]string, len(raw))
	seen := make(map[string]bool, len(raw))

	for i, label := range raw {
		label = strings.TrimSpace(label)
		if canonical, ok := aliases[strings.ToLower(label)]; ok {
			label = canonical
		}
		if label == "" {
			// csvutil rejects empty header names; unnamed columns are ignored.
			label = fmt.Sprintf("_unnamed_%d", i)
		}
		if seen[label] {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrMalformedHeader, label)
		}
		seen[label] = true
		header[i] = label
	}

	if !seen[required] {
		return nil, fmt.Errorf("%w: missing column %q", ErrMalformedHeader, required)
	}

	return header, nil
}

// ParseDrugs decodes the drug feed and normalizes every row. Rows without a
// trade name are dropped and counted in the stats.
func ParseDrugs(blob []byte, normalizer *Normalizer) ([]entities.Drug, ParseStats, error) {
	rows, err := decodeRows[entities.RawDrugRow](blob, drugHeaderAliases, "Trade name")
	if err != nil {
		return nil, ParseStats{}, fmt.Errorf("failed to decode drug feed: %w", err)
	}

	drugs := make([]entities.Drug, 0, len(rows))
	for _, row := range rows {
		if drug, ok := normalizer.Normalize(row); ok {
			drugs = append(drugs, drug)
		}
	}

	stats := ParseStats{
		InputRows:   len(rows),
		OutputRows:  len(drugs),
		DroppedRows: len(rows) - len(drugs),
	}

	if stats.DroppedRows > 0 {
		logging.Info("Drug feed skip statistics",
			"input_rows", stats.InputRows,
			"output_rows", stats.OutputRows,
			"dropped_rows", stats.DroppedRows)
	}

	return drugs, stats, nil
}

// ParseClassifications decodes the classification feed and nests rows under
// their parent code. Rows without a code, and duplicate codes, are dropped.
func ParseClassifications(blob []byte) ([]entities.Classification, ParseStats, error) {
	rows, err := decodeRows[entities.RawClassificationRow](blob, classificationHeaderAliases, "Code")
	if err != nil {
		return nil, ParseStats{}, fmt.Errorf("failed to decode classification feed: %w", err)
	}

	tree, kept := buildClassificationTree(rows)
	stats := ParseStats{
		InputRows:   len(rows),
		OutputRows:  kept,
		DroppedRows: len(rows) - kept,
	}

	if stats.DroppedRows > 0 {
		logging.Info("Classification feed skip statistics",
			"input_rows", stats.InputRows,
			"output_rows", stats.OutputRows,
			"dropped_rows", stats.DroppedRows)
	}

	return tree, stats, nil
}

type classificationNode struct {
	value    entities.Classification
	parent   string
	children []*classificationNode
}

// buildClassificationTree returns the top-level nodes and the number of rows
// kept. Orphans and rows caught in parent cycles stay top-level.
func buildClassificationTree(rows []entities.RawClassificationRow) ([]entities.Classification, int) {
	nodes := make(map[string]*classificationNode, len(rows))
	order := make([]*classificationNode, 0, len(rows))

	for _, row := range rows {
		code := strings.TrimSpace(row.Code)
		if code == "" {
			continue
		}
		if _, dup := nodes[code]; dup {
			continue
		}
		n := &classificationNode{
			value: entities.Classification{
				Code:     code,
				Name:     strings.TrimSpace(row.Name),
				Category: strings.TrimSpace(row.Category),
			},
			parent: strings.TrimSpace(row.ParentCode),
		}
		nodes[code] = n
		order = append(order, n)
	}

	var roots []*classificationNode
	for _, n := range order {
		parent, ok := nodes[n.parent]
		if !ok || n.parent == n.value.Code || inParentCycle(n, nodes) {
			roots = append(roots, n)
			continue
		}
		parent.children = append(parent.children, n)
	}

	result := make([]entities.Classification, 0, len(roots))
	for _, r := range roots {
		result = append(result, r.materialize())
	}
	return result, len(order)
}

// inParentCycle reports whether start is its own ancestor.
func inParentCycle(start *classificationNode, nodes map[string]*classificationNode) bool {
	visited := make(map[string]bool)
	for current := nodes[start.parent]; current != nil; current = nodes[current.parent] {
		if current == start {
			return true
		}
		if visited[current.value.Code] {
			return false
		}
		visited[current.value.Code] = true
	}
	return false
}

func (n *classificationNode) materialize() entities.Classification {
	c := n.value
	if len(n.children) > 0 {
		c.Subcategories = make([]entities.Classification, 0, len(n.children))
		for _, child := range n.children {
			c.Subcategories = append(c.Subcategories, child.materialize())
		}
	}
	return c
}
