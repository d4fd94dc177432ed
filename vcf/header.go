package vcf

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type (
	// Header holds the declarations of a VCF file. Infos and Formats keep header order.
	Header struct {
		FileFormat string
		Infos      []FieldDef
		Formats    []FieldDef
		// Meta holds every other ## line verbatim, without the leading ##
		Meta    []string
		Samples []string

		infoIndex   map[string]int
		formatIndex map[string]int
	}

	// FieldDef is one ##INFO or ##FORMAT declaration.
	FieldDef struct {
		ID          string
		Number      Number
		Type        ValueType
		Description string
	}

	NumberKind int

	// Number is the declared arity of a field.
	Number struct {
		Kind  NumberKind
		Count int
	}

	// ValueType is the declared Type of a field. It is kept verbatim from the header so that
	// unknown types can be reported by whoever consumes the header.
	ValueType string
)

const (
	NumberCount NumberKind = iota
	// NumberA is one value per alternate allele
	NumberA
	// NumberR is one value per allele, reference included
	NumberR
	// NumberG is one value per genotype
	NumberG
	// NumberUnknown is the "." arity
	NumberUnknown
)

const (
	TypeInteger   ValueType = "Integer"
	TypeFloat     ValueType = "Float"
	TypeFlag      ValueType = "Flag"
	TypeCharacter ValueType = "Character"
	TypeString    ValueType = "String"
)

var (
	ErrMissingColumnHeader = errors.New("missing #CHROM header line")
	ErrDuplicateSample     = errors.New("duplicate sample name")
	ErrBadNumber           = errors.New("bad Number declaration")
	ErrBadDefinition       = errors.New("bad field definition")
)

var fixedColumns = []string{"#CHROM", "POS", "ID", "REF", "ALT", "QUAL", "FILTER", "INFO"}

// NewHeader builds a header from already parsed declarations. Later definitions of the same ID
// replace earlier ones in place.
func NewHeader(infos, formats []FieldDef, samples []string) (*Header, error) {
	h := &Header{FileFormat: "VCFv4.3"}
	for _, def := range infos {
		h.addInfo(def)
	}
	for _, def := range formats {
		h.addFormat(def)
	}
	if err := h.setSamples(samples); err != nil {
		return nil, err
	}
	return h, nil
}

// Scalar reports whether the field holds at most one value per record (or per sample).
func (n Number) Scalar() bool {
	return n.Kind == NumberCount && n.Count <= 1
}

func (n Number) String() string {
	switch n.Kind {
	case NumberA:
		return "A"
	case NumberR:
		return "R"
	case NumberG:
		return "G"
	case NumberUnknown:
		return "."
	default:
		return strconv.Itoa(n.Count)
	}
}

func ParseNumber(s string) (Number, error) {
	switch s {
	case "A":
		return Number{Kind: NumberA}, nil
	case "R":
		return Number{Kind: NumberR}, nil
	case "G":
		return Number{Kind: NumberG}, nil
	case ".":
		return Number{Kind: NumberUnknown}, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return Number{}, fmt.Errorf("%w: %q", ErrBadNumber, s)
	}
	return Number{Kind: NumberCount, Count: n}, nil
}

// Info returns the INFO declaration for id.
func (h *Header) Info(id string) (FieldDef, bool) {
	i, ok := h.infoIndex[id]
	if !ok {
		return FieldDef{}, false
	}
	return h.Infos[i], true
}

// Format returns the FORMAT declaration for id.
func (h *Header) Format(id string) (FieldDef, bool) {
	i, ok := h.formatIndex[id]
	if !ok {
		return FieldDef{}, false
	}
	return h.Formats[i], true
}

func (h *Header) addInfo(def FieldDef) {
	if h.infoIndex == nil {
		h.infoIndex = make(map[string]int)
	}
	if i, exists := h.infoIndex[def.ID]; exists {
		h.Infos[i] = def
		return
	}
	h.infoIndex[def.ID] = len(h.Infos)
	h.Infos = append(h.Infos, def)
}

func (h *Header) addFormat(def FieldDef) {
	if h.formatIndex == nil {
		h.formatIndex = make(map[string]int)
	}
	if i, exists := h.formatIndex[def.ID]; exists {
		h.Formats[i] = def
		return
	}
	h.formatIndex[def.ID] = len(h.Formats)
	h.Formats = append(h.Formats, def)
}

func (h *Header) setSamples(samples []string) error {
	seen := make(map[string]struct{}, len(samples))
	for _, s := range samples {
		if _, dup := seen[s]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateSample, s)
		}
		seen[s] = struct{}{}
	}
	h.Samples = samples
	return nil
}

// parseMetaLine handles a single line starting with ##.
func (h *Header) parseMetaLine(line string) error {
	body := strings.TrimPrefix(line, "##")
	key, value, found := strings.Cut(body, "=")
	if !found {
		h.Meta = append(h.Meta, body)
		return nil
	}

	switch key {
	case "fileformat":
		h.FileFormat = value
	case "INFO", "FORMAT":
		def, err := parseFieldDef(value)
		if err != nil {
			return fmt.Errorf("error in parseFieldDef for %s: %w", key, err)
		}
		if key == "INFO" {
			h.addInfo(def)
		} else {
			h.addFormat(def)
		}
	default:
		h.Meta = append(h.Meta, body)
	}
	return nil
}

func (h *Header) parseColumnLine(line string) error {
	cols := strings.Split(line, "\t")
	if len(cols) < len(fixedColumns) {
		return fmt.Errorf("%w: got %d columns", ErrMissingColumnHeader, len(cols))
	}
	for i, want := range fixedColumns {
		if cols[i] != want {
			return fmt.Errorf("%w: column %d is %q, expected %q", ErrMissingColumnHeader, i, cols[i], want)
		}
	}
	var samples []string
	if len(cols) > len(fixedColumns) {
		// cols[8] is FORMAT
		samples = cols[len(fixedColumns)+1:]
	}
	return h.setSamples(samples)
}

// parseFieldDef parses the <ID=..,Number=..,Type=..,Description=".."> structure.
func parseFieldDef(s string) (FieldDef, error) {
	if !strings.HasPrefix(s, "<") || !strings.HasSuffix(s, ">") {
		return FieldDef{}, fmt.Errorf("%w: %q", ErrBadDefinition, s)
	}
	attrs := splitAttributes(s[1 : len(s)-1])

	def := FieldDef{
		ID:          attrs["ID"],
		Type:        ValueType(attrs["Type"]),
		Description: attrs["Description"],
	}
	if def.ID == "" {
		return FieldDef{}, fmt.Errorf("%w: missing ID in %q", ErrBadDefinition, s)
	}
	number, ok := attrs["Number"]
	if !ok {
		return FieldDef{}, fmt.Errorf("%w: missing Number for %s", ErrBadDefinition, def.ID)
	}
	n, err := ParseNumber(number)
	if err != nil {
		return FieldDef{}, err
	}
	def.Number = n
	return def, nil
}

func splitAttributes(s string) map[string]string {
	attrs := make(map[string]string)
	var (
		key, cur strings.Builder
		inKey    = true
		quoted   bool
		escaped  bool
	)
	flush := func() {
		if key.Len() > 0 {
			attrs[key.String()] = cur.String()
		}
		key.Reset()
		cur.Reset()
		inKey = true
	}
	for _, r := range s {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case quoted && r == '\\':
			escaped = true
		case r == '"':
			quoted = !quoted
		case !quoted && inKey && r == '=':
			inKey = false
		case !quoted && r == ',':
			flush()
		case inKey:
			key.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return attrs
}
